package calendar

import (
	"time"

	"bridgecal/internal/model"
)

// DemoDate is the day the demo household's events are centred on.
var DemoDate = time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)

// Demo returns the sample household: three members and a weekend of
// events around DemoDate, with wall-clock times in loc.
func Demo(loc *time.Location) (model.Group, []model.UserProfile, []model.CalendarEvent) {
	if loc == nil {
		loc = time.UTC
	}
	at := func(day, hour, min int) time.Time {
		return time.Date(2026, time.January, day, hour, min, 0, 0, loc)
	}
	avatar := func(key string) model.Avatar {
		a, _ := model.IllustrationAvatar(key)
		return a
	}
	bangkokFrom, bangkokTo := at(1, 0, 0), at(15, 0, 0)

	group := model.Group{
		ID:          "bridge-core-group",
		Name:        "Rivera Household",
		Description: "Shared calendar for coordination",
		OwnerID:     "user-123",
	}

	members := []model.UserProfile{
		{
			ID:       "user-123",
			Email:    "alex@bridge.app",
			FullName: "Alex Rivera",
			Avatar:   avatar("fox"),
			Role:     model.RoleOwner,
			BaseLocations: []model.BaseLocation{{
				ID: "loc-1", City: "Singapore", CountryCode: "SG", Type: model.LocationRecurring,
				RecurringDays: []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday},
			}},
		},
		{
			ID:       "user-456",
			Email:    "sarah@bridge.app",
			FullName: "Sarah Chen",
			Avatar:   avatar("panda"),
			Role:     model.RoleMember,
			BaseLocations: []model.BaseLocation{{
				ID: "loc-2", City: "Bangkok", CountryCode: "TH", Type: model.LocationTemporary,
				StartDate: &bangkokFrom, EndDate: &bangkokTo,
			}},
		},
		{
			ID:       "user-789",
			Email:    "jordan@bridge.app",
			FullName: "Jordan Smith",
			Avatar:   avatar("koala"),
			Role:     model.RoleMember,
			BaseLocations: []model.BaseLocation{{
				ID: "loc-3", City: "London", CountryCode: "GB", Type: model.LocationRecurring,
				RecurringDays: []time.Weekday{
					time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
					time.Thursday, time.Friday, time.Saturday,
				},
			}},
		},
	}

	ev := func(id, owner, title string, start, end time.Time, shared bool, p model.Provider) model.CalendarEvent {
		return model.CalendarEvent{
			ID: id, OwnerID: owner, GroupID: group.ID, Title: title,
			StartTime: start, EndTime: end, IsShared: shared, Provider: p,
		}
	}
	events := []model.CalendarEvent{
		ev("e1", "user-123", "Dentist Appointment", at(10, 9, 0), at(10, 10, 0), false, model.ProviderGoogle),
		ev("e2", "user-123", "Family Dinner", at(10, 19, 0), at(10, 21, 0), true, model.ProviderBridge),
		ev("e3", "user-456", "Flight to Singapore", at(11, 14, 0), at(11, 16, 30), true, model.ProviderApple),
		ev("e4", "user-789", "Grocery Stock-up", at(10, 11, 0), at(10, 12, 0), true, model.ProviderBridge),
		ev("e5", "user-123", "Gym Session", at(12, 7, 0), at(12, 8, 30), false, model.ProviderBridge),
	}

	return group, members, events
}
