package model

import (
	"testing"
	"time"
)

func TestFilterMatch(t *testing.T) {
	shared := CalendarEvent{ID: "a", IsShared: true}
	private := CalendarEvent{ID: "b"}

	cases := []struct {
		filter      Filter
		wantShared  bool
		wantPrivate bool
	}{
		{FilterAll, true, true},
		{FilterShared, true, false},
		{FilterPrivate, false, true},
	}
	for _, tc := range cases {
		t.Run(string(tc.filter), func(t *testing.T) {
			if got := tc.filter.Match(shared); got != tc.wantShared {
				t.Errorf("shared event: got %v; want %v", got, tc.wantShared)
			}
			if got := tc.filter.Match(private); got != tc.wantPrivate {
				t.Errorf("private event: got %v; want %v", got, tc.wantPrivate)
			}
		})
	}
}

func TestParseFilter(t *testing.T) {
	if f, ok := ParseFilter(""); !ok || f != FilterAll {
		t.Errorf("empty filter = %q, %v; want all", f, ok)
	}
	if _, ok := ParseFilter("public"); ok {
		t.Error("unknown filter accepted")
	}
}

func TestLocationsOn(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	u := UserProfile{
		ID: "user-456",
		BaseLocations: []BaseLocation{
			{ID: "home", City: "Singapore", Type: LocationRecurring, RecurringDays: []time.Weekday{time.Monday, time.Tuesday}},
			{ID: "trip", City: "Bangkok", Type: LocationTemporary, StartDate: &from, EndDate: &to},
		},
	}

	cases := []struct {
		name string
		day  time.Time
		want []string
	}{
		{"monday inside trip", time.Date(2026, 1, 12, 18, 0, 0, 0, time.UTC), []string{"trip", "home"}},
		{"last day of trip", time.Date(2026, 1, 15, 23, 0, 0, 0, time.UTC), []string{"trip"}},
		{"monday after trip", time.Date(2026, 1, 19, 9, 0, 0, 0, time.UTC), []string{"home"}},
		{"sunday after trip", time.Date(2026, 1, 18, 9, 0, 0, 0, time.UTC), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := u.LocationsOn(tc.day)
			if len(got) != len(tc.want) {
				t.Fatalf("LocationsOn = %v; want ids %v", got, tc.want)
			}
			for i, l := range got {
				if l.ID != tc.want[i] {
					t.Errorf("location %d = %s; want %s", i, l.ID, tc.want[i])
				}
			}
		})
	}
}

func TestIllustrationAvatar(t *testing.T) {
	a, ok := IllustrationAvatar("panda")
	if !ok || a.Type != AvatarIllustration || a.URL != Illustrations["panda"] {
		t.Errorf("IllustrationAvatar(panda) = %+v, %v", a, ok)
	}
	if _, ok := IllustrationAvatar("dragon"); ok {
		t.Error("unknown illustration accepted")
	}
	if keys := IllustrationKeys(); len(keys) != 6 || keys[0] != "bear" {
		t.Errorf("IllustrationKeys = %v", keys)
	}
}
