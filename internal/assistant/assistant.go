// Package assistant turns a free-text request ("dinner with Sarah friday
// at 7, shared") into a draft calendar event using a generative model.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"bridgecal/internal/log"
	"bridgecal/internal/validate"
)

// Draft is an event proposal extracted from user text. It is not yet part
// of any calendar.
type Draft struct {
	Title       string    `json:"title"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	IsShared    bool      `json:"is_shared"`
	Description string    `json:"description,omitempty"`
}

// Kind classifies parse failures so callers can show the right message.
type Kind int

const (
	KindUnavailable Kind = iota + 1
	KindEmpty
	KindTransport
	KindNotUnderstood
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindEmpty:
		return "empty"
	case KindTransport:
		return "transport"
	case KindNotUnderstood:
		return "not_understood"
	case KindCanceled:
		return "canceled"
	}
	return "unknown"
}

// Message is the user-facing text for the failure kind.
func (k Kind) Message() string {
	switch k {
	case KindUnavailable:
		return "The assistant is not available right now."
	case KindEmpty:
		return "Tell me what you'd like to schedule."
	case KindTransport:
		return "Sync interrupted. Please try again."
	case KindNotUnderstood:
		return "I couldn't work out the event details. Try adding a day and time."
	case KindCanceled:
		return "Request cancelled."
	}
	return "Something went wrong."
}

// Error is returned by Parser.Parse.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "assistant: " + e.Kind.String()
	}
	return fmt.Sprintf("assistant: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind carried by err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return 0
}

var (
	// ErrNotConfigured means no API key was provided.
	ErrNotConfigured = errors.New("assistant: API key not configured")
	ErrEmptyInput    = errors.New("assistant: empty input")
)

// Request is what a Generator receives: the user's text plus the moment
// relative phrases ("tomorrow", "next friday") resolve against.
type Request struct {
	Text string
	Now  time.Time
}

// Generator produces the raw JSON reply for a request. One call is one
// network round trip; implementations must not retry.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Parser validates input, calls the Generator once and decodes its reply.
type Parser struct {
	gen Generator
}

// NewParser returns a Parser. A nil gen yields a Parser whose every call
// fails with KindUnavailable.
func NewParser(gen Generator) *Parser {
	return &Parser{gen: gen}
}

// Available reports whether a Generator is configured.
func (p *Parser) Available() bool {
	return p != nil && p.gen != nil
}

// Parse extracts a Draft from text. now anchors relative dates, and its
// location is used for timestamps the model returns without an offset.
func (p *Parser) Parse(ctx context.Context, text string, now time.Time) (Draft, error) {
	if !p.Available() {
		return Draft{}, &Error{Kind: KindUnavailable, Err: ErrNotConfigured}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Draft{}, &Error{Kind: KindEmpty, Err: ErrEmptyInput}
	}

	start := time.Now()
	raw, err := p.gen.Generate(ctx, Request{Text: text, Now: now})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotConfigured):
			return Draft{}, &Error{Kind: KindUnavailable, Err: err}
		case ctx.Err() != nil && errors.Is(err, context.Canceled):
			return Draft{}, &Error{Kind: KindCanceled, Err: err}
		}
		log.Warn("assistant: generate failed", "err", err.Error(), "elapsed", time.Since(start).Round(time.Millisecond))
		return Draft{}, &Error{Kind: KindTransport, Err: err}
	}

	d, err := decodeDraft(raw, now.Location())
	if err != nil {
		log.Info("assistant: reply not understood", "err", err.Error())
		return Draft{}, &Error{Kind: KindNotUnderstood, Err: err}
	}
	log.Debug("assistant: draft parsed", "title", d.Title, "start", d.StartTime.Format(time.RFC3339), "shared", d.IsShared)
	return d, nil
}

// wireDraft is the JSON object the model is asked to produce.
type wireDraft struct {
	Title       string `json:"title" validate:"required"`
	StartTime   string `json:"start_time" validate:"required"`
	EndTime     string `json:"end_time" validate:"required"`
	IsShared    *bool  `json:"is_shared" validate:"required"`
	Description string `json:"description"`
}

var timeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func decodeDraft(raw string, loc *time.Location) (Draft, error) {
	raw = stripFence(raw)
	if raw == "" {
		return Draft{}, errors.New("empty reply")
	}

	var w wireDraft
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return Draft{}, fmt.Errorf("decode reply: %w", err)
	}
	w.Title = strings.TrimSpace(w.Title)
	w.StartTime = strings.TrimSpace(w.StartTime)
	w.EndTime = strings.TrimSpace(w.EndTime)
	if err := validate.Struct(w); err != nil {
		return Draft{}, fmt.Errorf("incomplete reply: %w", err)
	}

	start, err := parseTime(w.StartTime, loc)
	if err != nil {
		return Draft{}, fmt.Errorf("start_time: %w", err)
	}
	end, err := parseTime(w.EndTime, loc)
	if err != nil {
		return Draft{}, fmt.Errorf("end_time: %w", err)
	}

	return Draft{
		Title:       w.Title,
		StartTime:   start,
		EndTime:     end,
		IsShared:    *w.IsShared,
		Description: strings.TrimSpace(w.Description),
	}, nil
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// stripFence removes a ```json ... ``` wrapper some models add even when
// asked for bare JSON.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
