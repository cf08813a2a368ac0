package assistant

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeGen struct {
	reply string
	err   error
	calls int
	last  Request
}

func (f *fakeGen) Generate(ctx context.Context, req Request) (string, error) {
	f.calls++
	f.last = req
	return f.reply, f.err
}

func TestParseExtractsDraft(t *testing.T) {
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	gen := &fakeGen{reply: `{"title":"Coffee with Sarah","start_time":"2026-01-11T09:00:00","end_time":"2026-01-11T10:00:00","is_shared":true}`}
	p := NewParser(gen)

	d, err := p.Parse(context.Background(), "  Coffee with Sarah at 9am tomorrow, mark as shared ", now)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if gen.calls != 1 {
		t.Errorf("generator called %d times; want 1", gen.calls)
	}
	if gen.last.Text != "Coffee with Sarah at 9am tomorrow, mark as shared" {
		t.Errorf("text not trimmed: %q", gen.last.Text)
	}
	if !gen.last.Now.Equal(now) {
		t.Errorf("now anchor = %s", gen.last.Now)
	}

	want := Draft{
		Title:     "Coffee with Sarah",
		StartTime: time.Date(2026, 1, 11, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 1, 11, 10, 0, 0, 0, time.UTC),
		IsShared:  true,
	}
	if d.Title != want.Title || !d.StartTime.Equal(want.StartTime) || !d.EndTime.Equal(want.EndTime) || d.IsShared != want.IsShared {
		t.Errorf("draft = %+v; want %+v", d, want)
	}
}

func TestParseTimestampForms(t *testing.T) {
	sgt := time.FixedZone("SGT", 8*3600)
	now := time.Date(2026, 1, 10, 8, 0, 0, 0, sgt)

	cases := []struct {
		name  string
		start string
		want  time.Time
	}{
		{"zone-less uses now's location", "2026-01-12T18:30:00", time.Date(2026, 1, 12, 18, 30, 0, 0, sgt)},
		{"minutes only", "2026-01-12T18:30", time.Date(2026, 1, 12, 18, 30, 0, 0, sgt)},
		{"explicit offset", "2026-01-12T10:30:00Z", time.Date(2026, 1, 12, 18, 30, 0, 0, sgt)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := &fakeGen{reply: `{"title":"Dinner","start_time":"` + tc.start + `","end_time":"2026-01-12T20:00:00","is_shared":false}`}
			d, err := NewParser(gen).Parse(context.Background(), "dinner monday", now)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if !d.StartTime.Equal(tc.want) {
				t.Errorf("start = %s; want %s", d.StartTime, tc.want)
			}
			if d.IsShared {
				t.Error("is_shared false decoded as true")
			}
		})
	}
}

func TestParseCodeFence(t *testing.T) {
	gen := &fakeGen{reply: "```json\n{\"title\":\"Gym\",\"start_time\":\"2026-01-12T07:00:00\",\"end_time\":\"2026-01-12T08:00:00\",\"is_shared\":false}\n```"}
	d, err := NewParser(gen).Parse(context.Background(), "gym monday 7am", time.Now())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.Title != "Gym" {
		t.Errorf("title = %q", d.Title)
	}
}

func TestParseFailureKinds(t *testing.T) {
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		gen       Generator
		text      string
		want      Kind
		wantCalls int
	}{
		{"no generator", nil, "lunch", KindUnavailable, 0},
		{"empty input", &fakeGen{}, "   \n", KindEmpty, 0},
		{"transport", &fakeGen{err: errors.New("connection reset")}, "lunch", KindTransport, 1},
		{"generator not configured", &fakeGen{err: ErrNotConfigured}, "lunch", KindUnavailable, 1},
		{"missing start_time", &fakeGen{reply: `{"title":"Lunch","end_time":"2026-01-10T13:00:00","is_shared":false}`}, "lunch", KindNotUnderstood, 1},
		{"missing is_shared", &fakeGen{reply: `{"title":"Lunch","start_time":"2026-01-10T12:00:00","end_time":"2026-01-10T13:00:00"}`}, "lunch", KindNotUnderstood, 1},
		{"blank title", &fakeGen{reply: `{"title":"  ","start_time":"2026-01-10T12:00:00","end_time":"2026-01-10T13:00:00","is_shared":false}`}, "lunch", KindNotUnderstood, 1},
		{"bad timestamp", &fakeGen{reply: `{"title":"Lunch","start_time":"noon","end_time":"2026-01-10T13:00:00","is_shared":false}`}, "lunch", KindNotUnderstood, 1},
		{"not json", &fakeGen{reply: "Sure! Lunch is at noon."}, "lunch", KindNotUnderstood, 1},
		{"empty reply", &fakeGen{reply: ""}, "lunch", KindNotUnderstood, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewParser(tc.gen).Parse(context.Background(), tc.text, now)
			if err == nil {
				t.Fatal("Parse succeeded")
			}
			if got := KindOf(err); got != tc.want {
				t.Errorf("kind = %s; want %s (%v)", got, tc.want, err)
			}
			if f, ok := tc.gen.(*fakeGen); ok && f.calls != tc.wantCalls {
				t.Errorf("generator called %d times; want %d", f.calls, tc.wantCalls)
			}
		})
	}
}

func TestParseCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := &fakeGen{err: context.Canceled}

	_, err := NewParser(gen).Parse(ctx, "lunch", time.Now())
	if KindOf(err) != KindCanceled {
		t.Errorf("kind = %s; want canceled", KindOf(err))
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("cause not preserved")
	}
}

func TestKindMessagesDistinct(t *testing.T) {
	seen := make(map[string]Kind)
	for _, k := range []Kind{KindUnavailable, KindEmpty, KindTransport, KindNotUnderstood, KindCanceled} {
		m := k.Message()
		if prev, dup := seen[m]; dup {
			t.Errorf("%s and %s share message %q", prev, k, m)
		}
		seen[m] = k
	}
	if KindOf(errors.New("plain")) != 0 {
		t.Error("KindOf(plain error) != 0")
	}
}
