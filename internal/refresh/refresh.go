// Package refresh keeps imported provider events on the board current.
package refresh

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"bridgecal/internal/ics"
	"bridgecal/internal/log"
	"bridgecal/internal/model"
)

// Board receives refreshed events.
type Board interface {
	Group() model.Group
	ReplaceSource(source string, events []model.CalendarEvent) (int, error)
}

// Fetcher downloads one ICS feed.
type Fetcher interface {
	Fetch(ctx context.Context, src ics.Source) (ics.Feed, error)
}

// EventSource yields events directly, e.g. a CalDAV calendar.
type EventSource interface {
	Events(ctx context.Context, groupID string, w ics.Window) ([]model.CalendarEvent, error)
}

type Options struct {
	Location     *time.Location
	BackfillDays int
	HorizonDays  int
	// Now is the clock. Nil means time.Now.
	Now func() time.Time
}

// Status is the outcome of the last refresh of one source.
type Status struct {
	Source   string    `json:"source"`
	Provider string    `json:"provider"`
	Events   int       `json:"events"`
	Cached   bool      `json:"cached,omitempty"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

// Refresher pulls every configured source into the board. A failing
// source keeps whatever events it contributed last time.
type Refresher struct {
	board   Board
	fetcher Fetcher
	feeds   []ics.Source

	direct     map[string]EventSource
	directKind map[string]model.Provider

	opts Options

	run      sync.Mutex
	statusMu sync.Mutex
	status   map[string]Status
}

func New(board Board, fetcher Fetcher, feeds []ics.Source, opts Options) *Refresher {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Refresher{
		board:      board,
		fetcher:    fetcher,
		feeds:      feeds,
		direct:     make(map[string]EventSource),
		directKind: make(map[string]model.Provider),
		opts:       opts,
		status:     make(map[string]Status),
	}
}

// AddSource registers a non-ICS source under id.
func (r *Refresher) AddSource(id string, p model.Provider, src EventSource) {
	r.direct[id] = src
	r.directKind[id] = p
}

// RunOnce refreshes every source once. It returns the number of sources
// that failed; a run already in progress makes it return immediately.
func (r *Refresher) RunOnce(ctx context.Context) int {
	if !r.run.TryLock() {
		log.Debug("refresh already running")
		return 0
	}
	defer r.run.Unlock()

	w := ics.Span(r.opts.Now(), r.opts.Location, r.opts.BackfillDays, r.opts.HorizonDays)
	groupID := r.board.Group().ID
	failed := 0

	for _, src := range r.feeds {
		if ctx.Err() != nil {
			return failed
		}
		n, cached, err := r.refreshFeed(ctx, src, groupID, w)
		r.record(src.ID, src.Provider, n, cached, err)
		if err != nil {
			failed++
		}
	}

	ids := make([]string, 0, len(r.direct))
	for id := range r.direct {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if ctx.Err() != nil {
			return failed
		}
		events, err := r.direct[id].Events(ctx, groupID, w)
		n := 0
		if err == nil {
			n, err = r.board.ReplaceSource(id, events)
		}
		r.record(id, r.directKind[id], n, false, err)
		if err != nil {
			failed++
		}
	}
	return failed
}

func (r *Refresher) refreshFeed(ctx context.Context, src ics.Source, groupID string, w ics.Window) (int, bool, error) {
	feed, err := r.fetcher.Fetch(ctx, src)
	if err != nil {
		return 0, false, err
	}
	vevents, err := ics.Parse(src, feed.Body)
	if err != nil {
		return 0, feed.Cached, err
	}
	occ, err := ics.Expand(vevents, w)
	if err != nil {
		return 0, feed.Cached, err
	}
	n, err := r.board.ReplaceSource(src.ID, ics.ToEvents(src, groupID, occ))
	return n, feed.Cached, err
}

func (r *Refresher) record(id string, p model.Provider, n int, cached bool, err error) {
	st := Status{Source: id, Provider: string(p), Events: n, Cached: cached, At: r.opts.Now()}
	if err != nil {
		st.Error = err.Error()
		log.Error("source refresh failed", err, "source", id)
	} else {
		log.Info("source refreshed", "source", id, "events", n, "cached", cached)
	}

	r.statusMu.Lock()
	defer r.statusMu.Unlock()
	if err != nil {
		// Keep the count of what is still on the board from the last success.
		st.Events = r.status[id].Events
	}
	r.status[id] = st
}

// Statuses returns the last outcome per source, sorted by source id.
func (r *Refresher) Statuses() []Status {
	r.statusMu.Lock()
	defer r.statusMu.Unlock()
	out := make([]Status, 0, len(r.status))
	for _, st := range r.status {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

// Start runs RunOnce on the cron schedule spec until ctx is done. Jobs in
// flight are waited for before it returns.
func (r *Refresher) Start(ctx context.Context, spec string) error {
	c := cron.New(cron.WithLocation(r.opts.Location))
	if _, err := c.AddFunc(spec, func() { r.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("refresh schedule %q: %w", spec, err)
	}
	c.Start()
	log.Info("refresh scheduler started", "spec", spec, "tz", r.opts.Location.String())

	<-ctx.Done()
	<-c.Stop().Done()
	log.Info("refresh scheduler stopped")
	return nil
}
