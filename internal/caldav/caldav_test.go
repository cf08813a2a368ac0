package caldav

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bridgecal/internal/ics"
	"bridgecal/internal/model"
)

const flightObject = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Apple Inc.//iCloud//EN
BEGIN:VEVENT
UID:flight-sq@icloud
DTSTAMP:20260101T000000Z
DTSTART;TZID=Asia/Singapore:20260111T220000
DTEND;TZID=Asia/Singapore:20260112T003000
SUMMARY:Flight to Singapore
LOCATION:Changi
CLASS:PUBLIC
END:VEVENT
END:VCALENDAR
`

const yogaObject = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Apple Inc.//iCloud//EN
BEGIN:VEVENT
UID:yoga@icloud
DTSTAMP:20260101T000000Z
DTSTART:20260105T070000Z
DURATION:PT1H
RRULE:FREQ=WEEKLY;COUNT=4
EXDATE:20260112T070000Z
SUMMARY:Yoga
END:VEVENT
END:VCALENDAR
`

func multistatus(objects map[string]string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	b.WriteString(`<d:multistatus xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">`)
	for href, data := range objects {
		b.WriteString(`<d:response><d:href>` + href + `</d:href><d:propstat><d:prop>`)
		b.WriteString(`<d:getetag>"1"</d:getetag>`)
		b.WriteString(`<c:calendar-data>` + data + `</c:calendar-data>`)
		b.WriteString(`</d:prop><d:status>HTTP/1.1 200 OK</d:status></d:propstat></d:response>`)
	}
	b.WriteString(`</d:multistatus>`)
	return b.String()
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New(Config{Username: "alex"}, nil); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v; want ErrNotConfigured", err)
	}
}

func TestEventsQueriesAndMaps(t *testing.T) {
	type seen struct{ method, user, body string }
	reqs := make(chan seen, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, _ := r.BasicAuth()
		body, _ := io.ReadAll(r.Body)
		reqs <- seen{r.Method, user, string(body)}

		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		w.WriteHeader(http.StatusMultiStatus)
		_, _ = io.WriteString(w, multistatus(map[string]string{
			"/alex/calendars/home/flight.ics": flightObject,
		}))
	}))
	defer srv.Close()

	s, err := New(Config{URL: srv.URL, Username: "alex", Password: "app-pass", Calendar: "/alex/calendars/home/", OwnerID: "user-456"}, srv.Client())
	if err != nil {
		t.Fatal(err)
	}

	w := ics.Window{
		From:     time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC),
		To:       time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Location: time.UTC,
	}
	events, err := s.Events(context.Background(), "bridge-core-group", w)
	if err != nil {
		t.Fatal(err)
	}

	got := <-reqs
	if got.method != "REPORT" || got.user != "alex" {
		t.Errorf("request = %s as %q", got.method, got.user)
	}
	if !strings.Contains(got.body, "calendar-query") || !strings.Contains(got.body, "VEVENT") {
		t.Errorf("query body = %s", got.body)
	}

	if len(events) != 1 {
		t.Fatalf("events = %d; want 1", len(events))
	}
	e := events[0]
	// 22:00 in Singapore is 14:00 UTC.
	if want := time.Date(2026, 1, 11, 14, 0, 0, 0, time.UTC); !e.StartTime.Equal(want) {
		t.Errorf("start = %s; want %s", e.StartTime, want)
	}
	if e.Provider != model.ProviderApple || e.OwnerID != "user-456" || !e.IsShared || e.Location != "Changi" {
		t.Errorf("event = %+v", e)
	}
	if !strings.HasPrefix(e.ID, SourceID+":flight-sq@icloud@") {
		t.Errorf("id = %q", e.ID)
	}
}

func TestEventsExpandsSeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		w.WriteHeader(http.StatusMultiStatus)
		_, _ = io.WriteString(w, multistatus(map[string]string{"/cal/yoga.ics": yogaObject}))
	}))
	defer srv.Close()

	s, err := New(Config{URL: srv.URL, Username: "u", Password: "p", Calendar: "/cal/"}, srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	events, err := s.Events(context.Background(), "g", ics.Window{
		From: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	// Four weekly instances, one excluded.
	if len(events) != 3 {
		t.Fatalf("events = %d; want 3", len(events))
	}
	for _, e := range events {
		if e.EndTime.Sub(e.StartTime) != time.Hour {
			t.Errorf("%s lasts %s", e.ID, e.EndTime.Sub(e.StartTime))
		}
		if e.StartTime.Day() == 12 {
			t.Error("EXDATE instance present")
		}
		if e.IsShared {
			t.Error("event without CLASS shared")
		}
	}
}

func TestSupportsEvents(t *testing.T) {
	cases := []struct {
		comps []string
		want  bool
	}{
		{nil, true},
		{[]string{"VTODO"}, false},
		{[]string{"VTODO", "vevent"}, true},
	}
	for _, tc := range cases {
		if got := supportsEvents(tc.comps); got != tc.want {
			t.Errorf("supportsEvents(%v) = %v", tc.comps, got)
		}
	}
}
