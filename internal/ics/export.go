package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"bridgecal/internal/model"
)

const (
	propProvider ical.ComponentProperty = "X-BRIDGE-PROVIDER"
	propOwner    ical.ComponentProperty = "X-BRIDGE-OWNER"
)

// Export renders events as an iCalendar document for subscription by other
// calendar apps. Shared events are CLASS:PUBLIC, the rest CLASS:PRIVATE.
func Export(group model.Group, events []model.CalendarEvent, now time.Time) string {
	cal := ical.NewCalendarFor("bridgecal")
	cal.SetMethod(ical.MethodPublish)
	cal.SetXWRCalName(group.Name)
	if group.Description != "" {
		cal.SetXWRCalDesc(group.Description)
	}

	stamp := now.UTC()
	for _, e := range events {
		// Board ids are unique per instance; feed UIDs repeat across a series.
		ve := cal.AddEvent(e.ID + "@bridgecal")
		ve.SetDtStampTime(stamp)
		ve.SetStartAt(e.StartTime.UTC())
		ve.SetEndAt(e.EndTime.UTC())
		ve.SetSummary(e.Title)
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}
		if e.Location != "" {
			ve.SetLocation(e.Location)
		}
		class := "PRIVATE"
		if e.IsShared {
			class = "PUBLIC"
		}
		ve.SetProperty(ical.ComponentPropertyClass, class)
		ve.SetProperty(propProvider, string(e.Provider))
		if e.OwnerID != "" {
			ve.SetProperty(propOwner, e.OwnerID)
		}
	}
	return cal.Serialize()
}
