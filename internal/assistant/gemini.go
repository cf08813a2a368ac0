package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"bridgecal/internal/log"
)

const (
	DefaultModel   = "gemini-3-flash-preview"
	DefaultTimeout = 30 * time.Second
)

// GeminiConfig configures the Gemini generator.
type GeminiConfig struct {
	APIKey   string
	Model    string
	Endpoint string
	Timeout  time.Duration
}

// Gemini is a Generator backed by the Generative Language API with a JSON
// response schema.
type Gemini struct {
	svc     *generativelanguage.Service
	model   string
	timeout time.Duration
}

// NewGemini builds a Gemini generator. It returns ErrNotConfigured when
// cfg.APIKey is empty. Extra options are applied last, so tests can point
// the client at a local server.
func NewGemini(ctx context.Context, cfg GeminiConfig, opts ...option.ClientOption) (*Gemini, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, ErrNotConfigured
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	o := []option.ClientOption{option.WithAPIKey(key)}
	if ep := strings.TrimSpace(cfg.Endpoint); ep != "" {
		if !strings.HasSuffix(ep, "/") {
			ep += "/"
		}
		o = append(o, option.WithEndpoint(ep))
	}
	o = append(o, opts...)

	svc, err := generativelanguage.NewService(ctx, o...)
	if err != nil {
		return nil, fmt.Errorf("generativelanguage client: %w", err)
	}
	return &Gemini{svc: svc, model: model, timeout: timeout}, nil
}

// Generate sends one generateContent request and returns the text of the
// first candidate. An empty string is returned when the model produced no
// text; the Parser treats that as not understood.
func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	body := &generativelanguage.GenerateContentRequest{
		SystemInstruction: &generativelanguage.Content{
			Parts: []*generativelanguage.Part{{Text: systemPrompt(req.Now)}},
		},
		Contents: []*generativelanguage.Content{{
			Role:  "user",
			Parts: []*generativelanguage.Part{{Text: req.Text}},
		}},
		GenerationConfig: &generativelanguage.GenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   draftSchema(),
		},
	}

	resp, err := g.svc.Models.GenerateContent(g.model, body).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			log.Warn("gemini: api error", "model", g.model, "status", gerr.Code)
		}
		return "", fmt.Errorf("generate content: %w", err)
	}
	return firstText(resp), nil
}

func firstText(resp *generativelanguage.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range c.Content.Parts {
			if p != nil {
				b.WriteString(p.Text)
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}

// systemPrompt tells the model which moment "today" is, including the
// weekday, and the timestamp shape expected back.
func systemPrompt(now time.Time) string {
	return fmt.Sprintf(`You turn short requests into one calendar event.
The current local date and time is %s (%s, time zone %s).
Resolve relative dates such as "tomorrow" or "next Friday" against it.
Return start_time and end_time as local timestamps in the form YYYY-MM-DDTHH:MM:SS without an offset.
If no end is given, make the event one hour long.
Set is_shared to true only when the request asks to share the event with the group.
Use a short title and put any extra detail in description.`,
		now.Format("2006-01-02T15:04:05"), now.Weekday(), now.Location())
}

func draftSchema() *generativelanguage.Schema {
	return &generativelanguage.Schema{
		Type: "OBJECT",
		Properties: map[string]generativelanguage.Schema{
			"title":       {Type: "STRING", Description: "Short event title."},
			"start_time":  {Type: "STRING", Description: "Local start, YYYY-MM-DDTHH:MM:SS."},
			"end_time":    {Type: "STRING", Description: "Local end, YYYY-MM-DDTHH:MM:SS."},
			"is_shared":   {Type: "BOOLEAN", Description: "Whether the group can see the event."},
			"description": {Type: "STRING", Description: "Optional details."},
		},
		Required: []string{"title", "start_time", "end_time", "is_shared"},
	}
}
