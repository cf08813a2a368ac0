package ics

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"bridgecal/internal/log"
)

const defaultMaxPerSeries = 2000

// Window is the span occurrences are materialised for.
type Window struct {
	From time.Time
	To   time.Time
	// Location occurrences are converted to. Nil means UTC.
	Location *time.Location
	// MaxPerSeries caps the instances of one recurring event.
	MaxPerSeries int
}

// Occurrence is one concrete instance of a VEVENT.
type Occurrence struct {
	UID         string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Public      bool
}

// Expand materialises events inside w: single events that overlap it,
// RRULE series minus EXDATEs, with RECURRENCE-ID overrides replacing the
// instance they name. The result is ordered by start, then UID.
func Expand(events []VEvent, w Window) ([]Occurrence, error) {
	if w.To.Before(w.From) {
		return nil, errors.New("expand: window ends before it starts")
	}
	if w.Location == nil {
		w.Location = time.UTC
	}
	if w.MaxPerSeries <= 0 {
		w.MaxPerSeries = defaultMaxPerSeries
	}

	var masters []VEvent
	overrides := make(map[string][]VEvent)
	for _, ev := range events {
		if ev.RecurrenceID != nil {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		masters = append(masters, ev)
	}

	var out []Occurrence
	for _, ev := range masters {
		if ev.RRule == "" {
			if overlaps(ev.Start, ev.End, w) {
				out = append(out, occurrenceOf(ev, ev.Start, ev.End, w.Location))
			}
			continue
		}
		occ, err := expandSeries(ev, overrides[ev.UID], w)
		if err != nil {
			log.Warn("recurrence skipped", "uid", ev.UID, "err", err.Error())
			continue
		}
		out = append(out, occ...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].UID < out[j].UID
	})
	return out, nil
}

func expandSeries(ev VEvent, overrides []VEvent, w Window) ([]Occurrence, error) {
	opt, err := rrule.StrToROption(ev.RRule)
	if err != nil {
		return nil, fmt.Errorf("rrule %q: %w", ev.RRule, err)
	}
	opt.Dtstart = ev.Start
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("rrule %q: %w", ev.RRule, err)
	}

	set := rrule.Set{}
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex)
	}

	dur := ev.End.Sub(ev.Start)
	loc := ev.Start.Location()
	// Widen the lower bound by the duration so instances that started
	// before the window but are still running are kept.
	starts := set.Between(w.From.Add(-dur).In(loc), w.To.In(loc), true)
	if len(starts) > w.MaxPerSeries {
		log.Warn("recurrence truncated", "uid", ev.UID, "cap", w.MaxPerSeries)
		starts = starts[:w.MaxPerSeries]
	}

	out := make([]Occurrence, 0, len(starts))
	for _, s := range starts {
		e := s.Add(dur)
		if ev.AllDay {
			s = time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, loc)
			e = s.AddDate(0, 0, 1)
		}
		if o, ok := overrideFor(overrides, s); ok {
			if overlaps(o.Start, o.End, w) {
				out = append(out, occurrenceOf(o, o.Start, o.End, w.Location))
			}
			continue
		}
		if overlaps(s, e, w) {
			out = append(out, occurrenceOf(ev, s, e, w.Location))
		}
	}
	return out, nil
}

func overrideFor(overrides []VEvent, start time.Time) (VEvent, bool) {
	for _, o := range overrides {
		if o.RecurrenceID.Equal(start) {
			return o, true
		}
	}
	return VEvent{}, false
}

// overlaps reports whether [start, end] touches the window. Zero-length
// events on the boundary count.
func overlaps(start, end time.Time, w Window) bool {
	return !end.Before(w.From) && !start.After(w.To)
}

// occurrenceOf converts to loc. All-day instances keep their calendar dates
// instead of shifting with the offset.
func occurrenceOf(ev VEvent, start, end time.Time, loc *time.Location) Occurrence {
	if ev.AllDay {
		start = sameDate(start, loc)
		end = sameDate(end, loc)
	}
	return Occurrence{
		UID:         ev.UID,
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       start.In(loc),
		End:         end.In(loc),
		AllDay:      ev.AllDay,
		Public:      ev.Public,
	}
}

func sameDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
