// Package caldav reads events from a CalDAV server such as iCloud.
package caldav

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"

	"bridgecal/internal/ics"
	"bridgecal/internal/log"
	"bridgecal/internal/model"
)

// DefaultURL is Apple's iCloud CalDAV endpoint.
const DefaultURL = "https://caldav.icloud.com"

// SourceID identifies CalDAV events on the board.
const SourceID = "caldav"

var ErrNotConfigured = errors.New("caldav: username or password missing")

type Config struct {
	URL      string
	Username string
	Password string
	// Calendar is the collection path. Empty means the first calendar of
	// the principal that holds events.
	Calendar string
	// OwnerID is the member the calendar belongs to.
	OwnerID string
}

// Source pulls one CalDAV calendar.
type Source struct {
	cfg    Config
	client *caldav.Client
	path   string
}

// New returns a Source. httpClient may be nil.
func New(cfg Config, httpClient *http.Client) (*Source, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, ErrNotConfigured
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	hc := webdav.HTTPClientWithBasicAuth(httpClient, cfg.Username, cfg.Password)
	c, err := caldav.NewClient(hc, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("caldav client: %w", err)
	}
	return &Source{cfg: cfg, client: c, path: cfg.Calendar}, nil
}

// calendarPath returns the configured collection or discovers one.
func (s *Source) calendarPath(ctx context.Context) (string, error) {
	if s.path != "" {
		return s.path, nil
	}

	principal, err := s.client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("find principal: %w", err)
	}
	home, err := s.client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("find home set: %w", err)
	}
	cals, err := s.client.FindCalendars(ctx, home)
	if err != nil {
		return "", fmt.Errorf("find calendars: %w", err)
	}
	for _, c := range cals {
		if supportsEvents(c.SupportedComponentSet) {
			log.Info("caldav calendar discovered", "path", c.Path, "name", c.Name)
			s.path = c.Path
			return c.Path, nil
		}
	}
	return "", errors.New("caldav: no calendar with events found")
}

func supportsEvents(comps []string) bool {
	if len(comps) == 0 {
		return true
	}
	for _, c := range comps {
		if strings.EqualFold(c, ical.CompEvent) {
			return true
		}
	}
	return false
}

// Events returns the events overlapping w as Apple calendar events, with
// recurring series expanded.
func (s *Source) Events(ctx context.Context, groupID string, w ics.Window) ([]model.CalendarEvent, error) {
	path, err := s.calendarPath(ctx)
	if err != nil {
		return nil, err
	}

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     ical.CompCalendar,
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: w.From.UTC(),
				End:   w.To.UTC(),
			}},
		},
	}
	objects, err := s.client.QueryCalendar(ctx, path, query)
	if err != nil {
		return nil, fmt.Errorf("query calendar: %w", err)
	}

	var vevents []ics.VEvent
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		for _, comp := range obj.Data.Children {
			if comp.Name != ical.CompEvent {
				continue
			}
			ev, err := toVEvent(comp, w.Location)
			if err != nil {
				log.Debug("caldav object skipped", "path", obj.Path, "err", err.Error())
				continue
			}
			vevents = append(vevents, ev)
		}
	}

	occ, err := ics.Expand(vevents, w)
	if err != nil {
		return nil, err
	}
	src := ics.Source{ID: SourceID, Name: "Apple Calendar", Provider: model.ProviderApple, OwnerID: s.cfg.OwnerID}
	return ics.ToEvents(src, groupID, occ), nil
}

// toVEvent reads a go-ical VEVENT into the shape ics.Expand works on.
// Floating times are read in loc.
func toVEvent(comp *ical.Component, loc *time.Location) (ics.VEvent, error) {
	var ev ics.VEvent
	if loc == nil {
		loc = time.UTC
	}

	ev.UID = text(comp, ical.PropUID)
	if ev.UID == "" {
		return ev, errors.New("missing UID")
	}
	ev.Summary = text(comp, ical.PropSummary)
	ev.Description = text(comp, ical.PropDescription)
	ev.Location = text(comp, ical.PropLocation)
	ev.Public = strings.EqualFold(text(comp, ical.PropClass), "PUBLIC")
	ev.RRule = text(comp, ical.PropRecurrenceRule)

	start := comp.Props.Get(ical.PropDateTimeStart)
	if start == nil {
		return ev, fmt.Errorf("%s: missing DTSTART", ev.UID)
	}
	t, err := start.DateTime(loc)
	if err != nil {
		return ev, fmt.Errorf("%s: DTSTART: %w", ev.UID, err)
	}
	ev.Start = t
	ev.AllDay = start.ValueType() == ical.ValueDate

	ev.End = ev.Start
	if ev.AllDay {
		ev.End = ev.Start.AddDate(0, 0, 1)
	}
	if end := comp.Props.Get(ical.PropDateTimeEnd); end != nil {
		if t, err := end.DateTime(loc); err == nil && !t.Before(ev.Start) {
			ev.End = t
		}
	} else if dur := comp.Props.Get(ical.PropDuration); dur != nil {
		if d, err := dur.Duration(); err == nil && d > 0 {
			ev.End = ev.Start.Add(d)
		}
	}

	for _, p := range comp.Props.Values(ical.PropExceptionDates) {
		for _, part := range strings.Split(p.Value, ",") {
			one := ical.Prop{Name: p.Name, Params: p.Params, Value: strings.TrimSpace(part)}
			if t, err := one.DateTime(loc); err == nil {
				ev.ExDates = append(ev.ExDates, t)
			}
		}
	}
	if rid := comp.Props.Get(ical.PropRecurrenceID); rid != nil {
		if t, err := rid.DateTime(loc); err == nil {
			ev.RecurrenceID = &t
		}
	}
	return ev, nil
}

func text(comp *ical.Component, name string) string {
	if p := comp.Props.Get(name); p != nil {
		return strings.TrimSpace(p.Value)
	}
	return ""
}
