package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	goical "github.com/emersion/go-ical"

	"bridgecal/internal/log"
)

// VEvent is a VEVENT reduced to what the calendar needs. Recurrences are
// not expanded here; see Expand.
type VEvent struct {
	UID      string
	Sequence int

	Summary     string
	Description string
	Location    string

	Start  time.Time
	End    time.Time
	AllDay bool

	// Public is true for CLASS:PUBLIC.
	Public bool

	RRule   string
	ExDates []time.Time

	// RecurrenceID is set on an override of one instance of a series.
	RecurrenceID *time.Time
}

// Parse decodes an iCalendar body. VEVENTs that cannot be read are logged
// and skipped.
func Parse(src Source, body []byte) ([]VEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty calendar body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse calendar %s: %w", src.ID, err)
	}

	var out []VEvent
	skipped := 0
	for _, comp := range cal.Events() {
		ev, err := readVEvent(comp)
		if err != nil {
			skipped++
			log.Debug("vevent skipped", "feed", src.ID, "err", err.Error())
			continue
		}
		out = append(out, ev)
	}
	log.Debug("calendar parsed", "feed", src.ID, "events", len(out), "skipped", skipped)
	return out, nil
}

func readVEvent(ve *ical.VEvent) (VEvent, error) {
	var ev VEvent

	ev.UID = propValue(ve, ical.ComponentPropertyUniqueId)
	if ev.UID == "" {
		return ev, errors.New("missing UID")
	}
	if n, err := strconv.Atoi(propValue(ve, ical.ComponentPropertySequence)); err == nil {
		ev.Sequence = n
	}
	ev.Summary = propValue(ve, ical.ComponentPropertySummary)
	ev.Description = propValue(ve, ical.ComponentPropertyDescription)
	ev.Location = propValue(ve, ical.ComponentPropertyLocation)
	ev.Public = strings.EqualFold(propValue(ve, ical.ComponentPropertyClass), "PUBLIC")

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return ev, fmt.Errorf("%s: missing DTSTART", ev.UID)
	}
	ev.AllDay = isDateValue(dtStart)

	start, err := readStart(ve, dtStart, ev.AllDay)
	if err != nil {
		return ev, fmt.Errorf("%s: DTSTART: %w", ev.UID, err)
	}
	ev.Start = start

	if end, err := readEnd(ve, start, ev.AllDay); err == nil && !end.Before(start) {
		ev.End = end
	} else if ev.AllDay {
		ev.End = start.AddDate(0, 0, 1)
	} else {
		ev.End = start
	}

	ev.RRule = propValue(ve, ical.ComponentPropertyRrule)

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		loc := paramLocation(p, start.Location())
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseStamp(part, loc); err == nil {
				ev.ExDates = append(ev.ExDates, t)
			}
		}
	}

	if rid := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); rid != nil {
		if t, err := parseStamp(rid.Value, paramLocation(rid, start.Location())); err == nil {
			ev.RecurrenceID = &t
		}
	}

	return ev, nil
}

func readStart(ve *ical.VEvent, p *ical.IANAProperty, allDay bool) (time.Time, error) {
	var t time.Time
	var err error
	if allDay {
		t, err = ve.GetAllDayStartAt()
	} else {
		t, err = ve.GetStartAt()
	}
	if err == nil {
		return t, nil
	}
	return parseStamp(p.Value, paramLocation(p, time.UTC))
}

func readEnd(ve *ical.VEvent, start time.Time, allDay bool) (time.Time, error) {
	p := ve.GetProperty(ical.ComponentPropertyDtEnd)
	if p == nil {
		return endFromDuration(ve, start, allDay)
	}
	var t time.Time
	var err error
	if allDay {
		t, err = ve.GetAllDayEndAt()
	} else {
		t, err = ve.GetEndAt()
	}
	if err == nil {
		return t, nil
	}
	return parseStamp(p.Value, paramLocation(p, start.Location()))
}

// endFromDuration applies a DURATION property when DTEND is absent.
func endFromDuration(ve *ical.VEvent, start time.Time, allDay bool) (time.Time, error) {
	v := propValue(ve, ical.ComponentProperty(goical.PropDuration))
	if v == "" {
		return time.Time{}, errors.New("no DTEND or DURATION")
	}
	prop := goical.Prop{Name: goical.PropDuration, Value: v}
	d, err := prop.Duration()
	if err != nil {
		return time.Time{}, fmt.Errorf("DURATION %q: %w", v, err)
	}
	if allDay && d%(24*time.Hour) == 0 {
		return start.AddDate(0, 0, int(d/(24*time.Hour))), nil
	}
	return start.Add(d), nil
}

func propValue(ve *ical.VEvent, p ical.ComponentProperty) string {
	if prop := ve.GetProperty(p); prop != nil {
		return strings.TrimSpace(prop.Value)
	}
	return ""
}

func isDateValue(p *ical.IANAProperty) bool {
	if vs := p.ICalParameters["VALUE"]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// paramLocation resolves a TZID parameter, falling back to def.
func paramLocation(p *ical.IANAProperty, def *time.Location) *time.Location {
	if tz := p.ICalParameters["TZID"]; len(tz) > 0 {
		if loc, err := time.LoadLocation(tz[0]); err == nil {
			return loc
		}
	}
	return def
}

// parseStamp reads a DATE, floating DATE-TIME or UTC DATE-TIME value.
func parseStamp(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
