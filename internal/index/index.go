// Package index groups calendar events by the calendar day they start on.
package index

import (
	"fmt"
	"sort"
	"time"

	"bridgecal/internal/model"
)

// DayKey identifies a calendar day independent of time of day and zone
// formatting.
type DayKey struct {
	Year  int
	Month time.Month
	Day   int
}

// KeyOf returns the day key of t in t's own location. Callers convert to
// the display location first; grid cells already carry it.
func KeyOf(t time.Time) DayKey {
	y, m, d := t.Date()
	return DayKey{Year: y, Month: m, Day: d}
}

func (k DayKey) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", k.Year, int(k.Month), k.Day)
}

// Time returns midnight of the day in loc.
func (k DayKey) Time(loc *time.Location) time.Time {
	return time.Date(k.Year, k.Month, k.Day, 0, 0, 0, 0, loc)
}

// Less orders keys chronologically.
func (k DayKey) Less(o DayKey) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	if k.Month != o.Month {
		return k.Month < o.Month
	}
	return k.Day < o.Day
}

// ParseDayKey parses a YYYY-MM-DD string.
func ParseDayKey(s string) (DayKey, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return DayKey{}, fmt.Errorf("parse day key %q: %w", s, err)
	}
	return KeyOf(t), nil
}

// Order is the ordering policy for events within a day.
type Order int

const (
	// OrderStart sorts each day by start time; ties keep input order.
	OrderStart Order = iota
	// OrderInput keeps the input order.
	OrderInput
)

// ParseOrder maps a config value ("start", "input") to an Order.
func ParseOrder(s string) (Order, error) {
	switch s {
	case "", "start":
		return OrderStart, nil
	case "input":
		return OrderInput, nil
	}
	return OrderStart, fmt.Errorf("unknown event order %q", s)
}

// Index maps day keys to the events starting on that day. It is never
// patched: build a new one whenever the event collection changes.
type Index struct {
	loc    *time.Location
	byDay  map[DayKey][]model.CalendarEvent
	events int
}

// Build indexes events by the calendar day of their start time in loc.
// A nil loc means UTC.
func Build(events []model.CalendarEvent, loc *time.Location, order Order) Index {
	if loc == nil {
		loc = time.UTC
	}

	src := events
	if order == OrderStart {
		src = make([]model.CalendarEvent, len(events))
		copy(src, events)
		sort.SliceStable(src, func(i, j int) bool {
			return src[i].StartTime.Before(src[j].StartTime)
		})
	}

	byDay := make(map[DayKey][]model.CalendarEvent)
	for _, e := range src {
		k := KeyOf(e.StartTime.In(loc))
		byDay[k] = append(byDay[k], e)
	}

	return Index{loc: loc, byDay: byDay, events: len(events)}
}

// Day returns a copy of the events on k. Days without events yield an
// empty, non-nil slice.
func (x Index) Day(k DayKey) []model.CalendarEvent {
	src := x.byDay[k]
	out := make([]model.CalendarEvent, len(src))
	copy(out, src)
	return out
}

// Lookup returns the events on the calendar day of t in the index location.
func (x Index) Lookup(t time.Time) []model.CalendarEvent {
	return x.Day(KeyOf(t.In(x.location())))
}

// Count returns the number of events on k without copying them.
func (x Index) Count(k DayKey) int {
	return len(x.byDay[k])
}

// Len returns the number of indexed events.
func (x Index) Len() int {
	return x.events
}

// Keys returns the days that have events, in chronological order.
func (x Index) Keys() []DayKey {
	keys := make([]DayKey, 0, len(x.byDay))
	for k := range x.byDay {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

func (x Index) location() *time.Location {
	if x.loc == nil {
		return time.UTC
	}
	return x.loc
}
