package grid

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBuildMonthShape(t *testing.T) {
	cases := []struct {
		name      string
		ref       time.Time
		weekStart time.Weekday
		wantLen   int
		wantFirst time.Time
		wantLast  time.Time
		wantLead  int
	}{
		{"jan 2026 sunday start", date(2026, 1, 10), time.Sunday, 35, date(2025, 12, 28), date(2026, 1, 31), 4},
		{"jan 2026 monday start", date(2026, 1, 10), time.Monday, 35, date(2025, 12, 29), date(2026, 2, 1), 3},
		{"feb 2026 starts on sunday", date(2026, 2, 14), time.Sunday, 28, date(2026, 2, 1), date(2026, 2, 28), 0},
		{"feb 2024 leap year", date(2024, 2, 29), time.Sunday, 35, date(2024, 1, 28), date(2024, 3, 2), 4},
		{"aug 2026 needs six rows", date(2026, 8, 20), time.Sunday, 42, date(2026, 7, 26), date(2026, 9, 5), 6},
		{"dec 2025 into next year", date(2025, 12, 31), time.Sunday, 35, date(2025, 11, 30), date(2026, 1, 3), 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cells := Build(tc.ref, ModeMonth, tc.weekStart)
			if len(cells) != tc.wantLen {
				t.Fatalf("len = %d; want %d", len(cells), tc.wantLen)
			}
			if !cells[0].Date.Equal(tc.wantFirst) {
				t.Errorf("first = %s; want %s", cells[0].Date, tc.wantFirst)
			}
			if last := cells[len(cells)-1].Date; !last.Equal(tc.wantLast) {
				t.Errorf("last = %s; want %s", last, tc.wantLast)
			}
			lead := 0
			for _, c := range cells {
				if c.InPeriod {
					break
				}
				lead++
			}
			if lead != tc.wantLead {
				t.Errorf("leading filler = %d; want %d", lead, tc.wantLead)
			}
			if cells[0].Date.Weekday() != tc.weekStart {
				t.Errorf("grid starts on %s; want %s", cells[0].Date.Weekday(), tc.weekStart)
			}
		})
	}
}

func TestBuildMonthProperties(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.FixedZone("EST", -5*3600)
	}

	for ref := time.Date(2023, 1, 1, 15, 30, 0, 0, loc); ref.Year() < 2029; ref = ref.AddDate(0, 0, 1) {
		for _, ws := range []time.Weekday{time.Sunday, time.Monday} {
			cells := Build(ref, ModeMonth, ws)
			if len(cells)%7 != 0 {
				t.Fatalf("%s: len %d not a multiple of 7", ref, len(cells))
			}

			year, month, _ := ref.Date()
			seen := make(map[int]int)
			for i, c := range cells {
				cy, cm, cd := c.Date.Date()
				inMonth := cy == year && cm == month
				if c.InPeriod != inMonth {
					t.Fatalf("%s: cell %d (%s) InPeriod=%v", ref, i, c.Date, c.InPeriod)
				}
				if inMonth {
					seen[cd]++
				}
				if i > 0 {
					y0, m0, d0 := cells[i-1].Date.Date()
					next := time.Date(y0, m0, d0+1, 0, 0, 0, 0, loc)
					if !next.Equal(c.Date) {
						t.Fatalf("%s: cell %d = %s; want %s", ref, i, c.Date, next)
					}
				}
				if h, m, s := c.Date.Clock(); h != 0 || m != 0 || s != 0 {
					t.Fatalf("%s: cell %d not at midnight: %s", ref, i, c.Date)
				}
			}

			n := DaysIn(year, month)
			if len(seen) != n {
				t.Fatalf("%s: %d distinct in-month days; want %d", ref, len(seen), n)
			}
			for d, count := range seen {
				if count != 1 {
					t.Fatalf("%s: day %d appears %d times", ref, d, count)
				}
			}
			if !cells[6].InPeriod || !cells[len(cells)-7].InPeriod {
				t.Fatalf("%s: grid has a full filler row", ref)
			}
		}
	}
}

func TestLeapFebruary(t *testing.T) {
	cases := []struct {
		year int
		want int
	}{
		{2024, 29},
		{2026, 28},
		{2000, 29},
		{2100, 28},
	}
	for _, tc := range cases {
		count := 0
		for _, c := range Build(date(tc.year, 2, 10), ModeMonth, time.Sunday) {
			if c.InPeriod {
				count++
			}
		}
		if count != tc.want {
			t.Errorf("feb %d: %d in-month cells; want %d", tc.year, count, tc.want)
		}
	}
}

func TestBuildWeek(t *testing.T) {
	cases := []struct {
		name      string
		ref       time.Time
		weekStart time.Weekday
		wantStart time.Time
	}{
		{"saturday fixture", date(2026, 1, 10), time.Sunday, date(2026, 1, 4)},
		{"sunday is first day", date(2026, 1, 11), time.Sunday, date(2026, 1, 11)},
		{"spans new year", date(2026, 1, 1), time.Sunday, date(2025, 12, 28)},
		{"monday start on a sunday", date(2026, 1, 11), time.Monday, date(2026, 1, 5)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cells := Build(tc.ref.Add(13*time.Hour), ModeWeek, tc.weekStart)
			if len(cells) != 7 {
				t.Fatalf("len = %d; want 7", len(cells))
			}
			for i, c := range cells {
				want := tc.wantStart.AddDate(0, 0, i)
				if !c.Date.Equal(want) {
					t.Errorf("cell %d = %s; want %s", i, c.Date, want)
				}
				if !c.InPeriod {
					t.Errorf("cell %d not in period", i)
				}
			}
		})
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	ref := date(2026, 3, 17)
	a := Build(ref, ModeMonth, time.Sunday)
	b := Build(ref, ModeMonth, time.Sunday)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if !a[i].Date.Equal(b[i].Date) || a[i].InPeriod != b[i].InPeriod {
			t.Fatalf("cell %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(""); err != nil || m != ModeMonth {
		t.Errorf("ParseMode(\"\") = %q, %v", m, err)
	}
	if m, err := ParseMode("week"); err != nil || m != ModeWeek {
		t.Errorf("ParseMode(week) = %q, %v", m, err)
	}
	if _, err := ParseMode("day"); err == nil {
		t.Error("ParseMode(day) should fail")
	}
}

func TestWeekdaysAndIsToday(t *testing.T) {
	wd := Weekdays(time.Monday)
	if wd[0] != time.Monday || wd[6] != time.Sunday {
		t.Errorf("Weekdays(Monday) = %v", wd)
	}

	today := time.Date(2026, 1, 10, 23, 30, 0, 0, time.UTC)
	if !IsToday(date(2026, 1, 10), today) {
		t.Error("same day not reported as today")
	}
	if IsToday(date(2025, 1, 10), today) {
		t.Error("same day of a different year reported as today")
	}
}
