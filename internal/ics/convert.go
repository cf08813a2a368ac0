package ics

import (
	"strings"
	"time"

	"bridgecal/internal/model"
)

// ToEvents turns occurrences from src into calendar events. IDs are
// derived from the source, UID and instance start so they stay the same
// across refreshes. Imported events are private unless the feed marked
// them CLASS:PUBLIC.
func ToEvents(src Source, groupID string, occ []Occurrence) []model.CalendarEvent {
	provider := src.Provider
	if !provider.Valid() {
		provider = model.ProviderGoogle
	}

	out := make([]model.CalendarEvent, 0, len(occ))
	for _, o := range occ {
		title := strings.TrimSpace(o.Summary)
		if title == "" {
			title = "(busy)"
		}
		out = append(out, model.CalendarEvent{
			ID:          src.ID + ":" + o.UID + "@" + o.Start.UTC().Format("20060102T150405Z"),
			OwnerID:     src.OwnerID,
			GroupID:     groupID,
			ExternalID:  o.UID,
			Title:       title,
			Description: o.Description,
			Location:    o.Location,
			StartTime:   o.Start,
			EndTime:     o.End,
			IsShared:    o.Public,
			Provider:    provider,
		})
	}
	return out
}

// Span returns the refresh window around now: backfill days before today
// and horizon days after it, in loc.
func Span(now time.Time, loc *time.Location, backfillDays, horizonDays int) Window {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return Window{
		From:     today.AddDate(0, 0, -backfillDays),
		To:       today.AddDate(0, 0, horizonDays+1),
		Location: loc,
	}
}
