// Package grid builds the day cells shown by the week and month calendar
// views. Everything here is a pure function of its arguments: the grid
// shape never depends on the wall clock, and "today" is only ever passed in
// for highlighting.
package grid

import (
	"fmt"
	"time"
)

// Mode is the calendar view mode.
type Mode string

const (
	ModeWeek  Mode = "week"
	ModeMonth Mode = "month"
)

// ParseMode maps a query value to a Mode. Empty means ModeMonth.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeMonth:
		return ModeMonth, nil
	case ModeWeek:
		return ModeWeek, nil
	}
	return "", fmt.Errorf("unknown view mode %q", s)
}

// Cell is one day in the grid. InPeriod is false for filler days borrowed
// from the neighbouring months in month view; in week view every cell is in
// period.
type Cell struct {
	Date     time.Time
	InPeriod bool
}

// Build returns the cells for ref's week or month. Dates are midnight in
// ref's location.
//
// Month grids are padded on both sides to whole weeks, so they hold 28, 35
// or 42 cells depending on how the month falls.
func Build(ref time.Time, mode Mode, weekStart time.Weekday) []Cell {
	if mode == ModeWeek {
		days := WeekDays(ref, weekStart)
		cells := make([]Cell, len(days))
		for i, d := range days {
			cells[i] = Cell{Date: d, InPeriod: true}
		}
		return cells
	}
	return buildMonth(ref, weekStart)
}

func buildMonth(ref time.Time, weekStart time.Weekday) []Cell {
	year, month, _ := ref.Date()
	loc := ref.Location()

	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	lead := offset(first.Weekday(), weekStart)
	n := DaysIn(year, month)

	total := lead + n
	if rem := total % 7; rem != 0 {
		total += 7 - rem
	}

	cells := make([]Cell, 0, total)

	// Day 0 of a month is the last day of the previous one, so counting
	// backwards from day 1 crosses month and year boundaries correctly.
	for i := lead; i > 0; i-- {
		cells = append(cells, Cell{Date: time.Date(year, month, 1-i, 0, 0, 0, 0, loc)})
	}
	for d := 1; d <= n; d++ {
		cells = append(cells, Cell{Date: time.Date(year, month, d, 0, 0, 0, 0, loc), InPeriod: true})
	}
	for d := 1; len(cells) < total; d++ {
		cells = append(cells, Cell{Date: time.Date(year, month+1, d, 0, 0, 0, 0, loc)})
	}
	return cells
}

// WeekDays returns the seven consecutive dates of the week containing ref.
func WeekDays(ref time.Time, weekStart time.Weekday) []time.Time {
	year, month, day := ref.Date()
	start := day - offset(ref.Weekday(), weekStart)

	days := make([]time.Time, 7)
	for i := range days {
		days[i] = time.Date(year, month, start+i, 0, 0, 0, 0, ref.Location())
	}
	return days
}

// Weekdays returns the column order for a week starting on weekStart.
func Weekdays(weekStart time.Weekday) []time.Weekday {
	out := make([]time.Weekday, 7)
	for i := range out {
		out[i] = time.Weekday((int(weekStart) + i) % 7)
	}
	return out
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsToday reports whether d and today fall on the same calendar day. today
// is converted to d's location first.
func IsToday(d, today time.Time) bool {
	y1, m1, d1 := d.Date()
	y2, m2, d2 := today.In(d.Location()).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// offset is the column index of wd in a week that starts on weekStart.
func offset(wd, weekStart time.Weekday) int {
	return (int(wd) - int(weekStart) + 7) % 7
}
