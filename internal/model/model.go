package model

import "time"

// Provider identifies where an event came from.
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderApple  Provider = "apple"
	ProviderBridge Provider = "bridge"
)

// Valid reports whether p is one of the known providers.
func (p Provider) Valid() bool {
	switch p {
	case ProviderGoogle, ProviderApple, ProviderBridge:
		return true
	}
	return false
}

// CalendarEvent is a single event in the group calendar.
//
// EndTime is expected to be at or after StartTime but this is not enforced.
// The only in-place mutation is the share toggle; everything else replaces
// the collection that holds the event.
type CalendarEvent struct {
	ID      string `json:"id"`
	OwnerID string `json:"user_id"`
	GroupID string `json:"group_id"`

	// ExternalID is the provider's identifier (ICS UID, CalDAV UID) for
	// imported events. Empty for events created in Bridge.
	ExternalID string `json:"external_provider_id,omitempty"`

	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	IsShared bool     `json:"is_shared"`
	Provider Provider `json:"provider"`
}

// Group is the household/team that shares a calendar.
type Group struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	OwnerID     string `json:"owner_id"`
}

// Filter selects events by visibility, matching the calendar's layer switch.
type Filter string

const (
	FilterAll     Filter = "all"
	FilterShared  Filter = "shared"
	FilterPrivate Filter = "private"
)

// ParseFilter maps a query value to a Filter. Empty means FilterAll.
func ParseFilter(s string) (Filter, bool) {
	switch Filter(s) {
	case "", FilterAll:
		return FilterAll, true
	case FilterShared:
		return FilterShared, true
	case FilterPrivate:
		return FilterPrivate, true
	}
	return "", false
}

// Match reports whether e passes the filter.
func (f Filter) Match(e CalendarEvent) bool {
	switch f {
	case FilterShared:
		return e.IsShared
	case FilterPrivate:
		return !e.IsShared
	default:
		return true
	}
}
