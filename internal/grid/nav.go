package grid

import "time"

// Step moves ref by delta weeks or months. Month steps keep the day of the
// month where possible and clamp to the last day otherwise, so Jan 31 moves
// to Feb 28 (or 29) rather than spilling into March. Time of day is kept.
func Step(ref time.Time, mode Mode, delta int) time.Time {
	if mode == ModeWeek {
		return ref.AddDate(0, 0, 7*delta)
	}
	year, month, _ := ref.Date()
	target := time.Date(year, month+time.Month(delta), 1, 0, 0, 0, 0, ref.Location())
	return JumpTo(ref, target.Year(), target.Month())
}

// JumpTo moves ref to the given month and year, keeping the day of the
// month (clamped) and the time of day.
func JumpTo(ref time.Time, year int, month time.Month) time.Time {
	day := ref.Day()
	if n := DaysIn(year, month); day > n {
		day = n
	}
	h, m, s := ref.Clock()
	return time.Date(year, month, day, h, m, s, ref.Nanosecond(), ref.Location())
}

// Title is the header label for the period shown, e.g. "Jan 2026".
func Title(ref time.Time) string {
	return ref.Format("Jan 2006")
}
