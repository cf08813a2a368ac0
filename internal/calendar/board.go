// Package calendar owns the group's event and member collections.
//
// Collections are never modified in place: each mutation builds a new
// slice and swaps it in under the lock, so slices handed to readers stay
// valid. Day indexes are cached per filter until the next mutation.
package calendar

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"bridgecal/internal/assistant"
	"bridgecal/internal/index"
	"bridgecal/internal/log"
	"bridgecal/internal/model"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrInvalid   = errors.New("invalid")
)

// SourceLocal marks events created inside Bridge rather than imported.
const SourceLocal = "local"

type entry struct {
	event  model.CalendarEvent
	source string
}

type memo struct {
	version uint64
	idx     index.Index
}

// Options configures a Board.
type Options struct {
	// Location is used for day bucketing. Nil means UTC.
	Location *time.Location
	Order    index.Order
}

// Board is the in-memory state of one group calendar. It is safe for
// concurrent use.
type Board struct {
	mu      sync.RWMutex
	group   model.Group
	entries []entry
	members []model.UserProfile
	version uint64

	loc   *time.Location
	order index.Order

	memoMu sync.Mutex
	memos  map[model.Filter]memo

	newID func() string
	pick  func(n int) int
}

// NewBoard returns a Board seeded with members and local events.
func NewBoard(group model.Group, members []model.UserProfile, events []model.CalendarEvent, opts Options) *Board {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	entries := make([]entry, len(events))
	for i, e := range events {
		entries[i] = entry{event: e, source: SourceLocal}
	}
	ms := make([]model.UserProfile, len(members))
	copy(ms, members)

	return &Board{
		group:   group,
		entries: entries,
		members: ms,
		loc:     loc,
		order:   opts.Order,
		memos:   make(map[model.Filter]memo),
		newID:   uuid.NewString,
		pick:    rand.IntN,
	}
}

func (b *Board) Group() model.Group {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.group
}

// Location returns the location used for day bucketing.
func (b *Board) Location() *time.Location {
	return b.loc
}

// Version increases with every mutation.
func (b *Board) Version() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// Events returns the events passing f, in collection order.
func (b *Board) Events(f model.Filter) []model.CalendarEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return filterEntries(b.entries, f)
}

func filterEntries(entries []entry, f model.Filter) []model.CalendarEvent {
	out := make([]model.CalendarEvent, 0, len(entries))
	for _, en := range entries {
		if f.Match(en.event) {
			out = append(out, en.event)
		}
	}
	return out
}

// Event returns the event with the given id.
func (b *Board) Event(id string) (model.CalendarEvent, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, en := range b.entries {
		if en.event.ID == id {
			return en.event, nil
		}
	}
	return model.CalendarEvent{}, errors.Wrapf(ErrNotFound, "event %q", id)
}

// Index returns the day index of the events passing f. The index is
// rebuilt only when the board changed since the last call for f.
func (b *Board) Index(f model.Filter) index.Index {
	b.mu.RLock()
	version := b.version
	entries := b.entries
	b.mu.RUnlock()

	b.memoMu.Lock()
	defer b.memoMu.Unlock()
	if m, ok := b.memos[f]; ok && m.version == version {
		return m.idx
	}
	idx := index.Build(filterEntries(entries, f), b.loc, b.order)
	b.memos[f] = memo{version: version, idx: idx}
	return idx
}

// ToggleShare flips the visibility of one event and returns the result.
func (b *Board) ToggleShare(id string) (model.CalendarEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos := -1
	for i, en := range b.entries {
		if en.event.ID == id {
			pos = i
			break
		}
	}
	if pos < 0 {
		return model.CalendarEvent{}, errors.Wrapf(ErrNotFound, "event %q", id)
	}

	next := make([]entry, len(b.entries))
	copy(next, b.entries)
	next[pos].event.IsShared = !next[pos].event.IsShared
	b.swapEntries(next)
	return next[pos].event, nil
}

// AddDraft turns an assistant draft into a Bridge event owned by ownerID.
// New events go to the front of the collection.
func (b *Board) AddDraft(d assistant.Draft, ownerID string) (model.CalendarEvent, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return model.CalendarEvent{}, errors.Wrap(ErrInvalid, "draft has no title")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.memberIndex(ownerID) < 0 {
		return model.CalendarEvent{}, errors.Wrapf(ErrNotFound, "member %q", ownerID)
	}

	e := model.CalendarEvent{
		ID:          b.newID(),
		OwnerID:     ownerID,
		GroupID:     b.group.ID,
		Title:       title,
		Description: d.Description,
		StartTime:   d.StartTime,
		EndTime:     d.EndTime,
		IsShared:    d.IsShared,
		Provider:    model.ProviderBridge,
	}

	next := make([]entry, 0, len(b.entries)+1)
	next = append(next, entry{event: e, source: SourceLocal})
	next = append(next, b.entries...)
	b.swapEntries(next)
	log.Info("calendar: event added", "id", e.ID, "owner", ownerID, "shared", e.IsShared)
	return e, nil
}

// ReplaceSource swaps every event previously imported from source for
// events. Share flags the group already set on an imported occurrence
// (same external id and start) carry over. It returns the number of events
// now held for source.
func (b *Board) ReplaceSource(source string, events []model.CalendarEvent) (int, error) {
	if source == "" || source == SourceLocal {
		return 0, errors.Wrapf(ErrInvalid, "source %q", source)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	shared := make(map[string]bool)
	next := make([]entry, 0, len(b.entries)+len(events))
	for _, en := range b.entries {
		if en.source == source {
			shared[occurrenceKey(en.event)] = en.event.IsShared
			continue
		}
		next = append(next, en)
	}
	for _, e := range events {
		if e.GroupID == "" {
			e.GroupID = b.group.ID
		}
		if s, ok := shared[occurrenceKey(e)]; ok {
			e.IsShared = s
		}
		next = append(next, entry{event: e, source: source})
	}
	b.swapEntries(next)
	return len(events), nil
}

func occurrenceKey(e model.CalendarEvent) string {
	return e.ExternalID + "|" + e.StartTime.UTC().Format(time.RFC3339)
}

// swapEntries installs next as the event collection. Caller holds b.mu.
func (b *Board) swapEntries(next []entry) {
	b.entries = next
	b.version++
}
