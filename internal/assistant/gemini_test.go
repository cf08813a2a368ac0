package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/api/option"
)

func newTestGemini(t *testing.T, h http.HandlerFunc) *Gemini {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	g, err := NewGemini(context.Background(),
		GeminiConfig{APIKey: "test-key", Model: "gemini-test", Endpoint: srv.URL},
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("NewGemini: %v", err)
	}
	return g
}

func TestNewGeminiRequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), GeminiConfig{APIKey: "  "})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v; want ErrNotConfigured", err)
	}
}

func TestGeminiRoundTrip(t *testing.T) {
	type captured struct {
		path string
		body map[string]any
	}
	reqs := make(chan captured, 1)

	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		reqs <- captured{path: r.URL.Path, body: body}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"title\":\"Coffee with Sarah\",\"start_time\":\"2026-01-11T09:00:00\",\"end_time\":\"2026-01-11T10:00:00\",\"is_shared\":true}"}]}}]}`))
	})

	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	d, err := NewParser(g).Parse(context.Background(), "Coffee with Sarah at 9am tomorrow, mark as shared", now)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !d.StartTime.Equal(time.Date(2026, 1, 11, 9, 0, 0, 0, time.UTC)) || !d.IsShared {
		t.Errorf("draft = %+v", d)
	}

	got := <-reqs
	gotPath, body := got.path, got.body
	if !strings.HasSuffix(gotPath, "/models/gemini-test:generateContent") {
		t.Errorf("path = %q", gotPath)
	}

	cfg, _ := body["generationConfig"].(map[string]any)
	if cfg["responseMimeType"] != "application/json" {
		t.Errorf("responseMimeType = %v", cfg["responseMimeType"])
	}
	schema, _ := cfg["responseSchema"].(map[string]any)
	req, _ := schema["required"].([]any)
	if len(req) != 4 {
		t.Errorf("schema required = %v", req)
	}

	sys, _ := json.Marshal(body["systemInstruction"])
	if !strings.Contains(string(sys), "2026-01-10T00:00:00") || !strings.Contains(string(sys), "Saturday") {
		t.Errorf("system instruction lacks the now anchor: %s", sys)
	}
	contents, _ := json.Marshal(body["contents"])
	if !strings.Contains(string(contents), "mark as shared") {
		t.Errorf("contents = %s", contents)
	}
}

func TestGeminiAPIErrorIsTransport(t *testing.T) {
	var calls atomic.Int32
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"code":400,"message":"API key not valid"}}`, http.StatusBadRequest)
	})

	_, err := NewParser(g).Parse(context.Background(), "lunch tomorrow", time.Now())
	if KindOf(err) != KindTransport {
		t.Errorf("kind = %s; want transport (%v)", KindOf(err), err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server hit %d times; want exactly 1", n)
	}
}

func TestGeminiIncompleteReplyIsNotUnderstood(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"title\":\"Lunch\",\"end_time\":\"2026-01-10T13:00:00\",\"is_shared\":false}"}]}}]}`))
	})

	_, err := NewParser(g).Parse(context.Background(), "lunch", time.Now())
	if KindOf(err) != KindNotUnderstood {
		t.Errorf("kind = %s; want not_understood (%v)", KindOf(err), err)
	}
}

func TestGeminiNoCandidates(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := NewParser(g).Parse(context.Background(), "lunch", time.Now())
	if KindOf(err) != KindNotUnderstood {
		t.Errorf("kind = %s; want not_understood", KindOf(err))
	}
}
