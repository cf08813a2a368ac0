package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"bridgecal/internal/log"
	"bridgecal/internal/model"
)

// maxFeedBytes caps a single feed download.
const maxFeedBytes = 16 << 20

// Source is one subscribed calendar feed.
type Source struct {
	ID       string
	Name     string
	URL      string
	Provider model.Provider
	// OwnerID is the member whose calendar the feed mirrors.
	OwnerID string
}

// Feed is the body of a fetched source.
type Feed struct {
	Source Source
	Body   []byte
	// Cached is true when Body came from disk, either after a 304 or
	// because the server could not be reached.
	Cached bool
}

type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// Fetcher downloads feeds with conditional requests, keeping the last good
// body per URL on disk so a flaky provider does not blank the calendar.
type Fetcher struct {
	client   *http.Client
	cacheDir string
	maxBytes int
}

// NewFetcher returns a Fetcher caching under cacheDir. A nil client gets a
// 15s timeout default.
func NewFetcher(cacheDir string, client *http.Client) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./var/feed-cache"
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{client: client, cacheDir: cacheDir, maxBytes: maxFeedBytes}
}

// Fetch downloads src. On network failure or a non-2xx status it falls
// back to the cached body when there is one.
func (f *Fetcher) Fetch(ctx context.Context, src Source) (Feed, error) {
	if src.URL == "" {
		return Feed{}, fmt.Errorf("feed %s: empty url", src.ID)
	}

	dir := f.cacheDirFor(src.URL)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Feed{}, fmt.Errorf("feed cache dir: %w", err)
	}
	meta, _ := readMeta(dir)
	cached, _ := os.ReadFile(filepath.Join(dir, "body.ics"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return Feed{}, fmt.Errorf("feed %s: %w", src.ID, scrubURL(err))
	}
	if len(cached) > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		err = fmt.Errorf("get %s: %w", redactURL(src.URL), scrubURL(err))
		if len(cached) > 0 && ctx.Err() == nil {
			log.Error("feed fetch failed, serving cache", err, "feed", src.ID, "url", redactURL(src.URL))
			return Feed{Source: src, Body: cached, Cached: true}, nil
		}
		return Feed{}, fmt.Errorf("feed %s: %w", src.ID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified && len(cached) > 0:
		log.Debug("feed not modified", "feed", src.ID)
		return Feed{Source: src, Body: cached, Cached: true}, nil

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(io.LimitReader(resp.Body, int64(f.maxBytes)+1))
		if err != nil {
			return Feed{}, fmt.Errorf("feed %s: read body: %w", src.ID, scrubURL(err))
		}
		if len(body) > f.maxBytes {
			sizeErr := fmt.Errorf("feed %s: body exceeds %d bytes", src.ID, f.maxBytes)
			if len(cached) > 0 {
				log.Error("feed too large, serving cache", sizeErr, "url", redactURL(src.URL))
				return Feed{Source: src, Body: cached, Cached: true}, nil
			}
			return Feed{}, sizeErr
		}
		meta := cacheMeta{
			URL:          src.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			FetchedAt:    time.Now().UTC(),
		}
		if err := writeCache(dir, meta, body); err != nil {
			log.Error("feed cache write failed", err, "feed", src.ID)
		}
		log.Info("feed fetched", "feed", src.ID, "url", redactURL(src.URL), "bytes", len(body))
		return Feed{Source: src, Body: body}, nil

	default:
		statusErr := fmt.Errorf("feed %s: unexpected status %s", src.ID, resp.Status)
		if len(cached) > 0 {
			log.Error("feed fetch rejected, serving cache", statusErr, "url", redactURL(src.URL))
			return Feed{Source: src, Body: cached, Cached: true}, nil
		}
		return Feed{}, statusErr
	}
}

func (f *Fetcher) cacheDirFor(u string) string {
	sum := sha256.Sum256([]byte(u))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func readMeta(dir string) (cacheMeta, error) {
	var m cacheMeta
	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(data, &m)
	return m, err
}

// writeCache stores the body before the metadata so an ETag never refers
// to a body that was not written.
func writeCache(dir string, m cacheMeta, body []byte) error {
	if err := os.WriteFile(filepath.Join(dir, "body.ics"), body, 0o600); err != nil {
		return err
	}
	data, err := json.MarshalIndent(&m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "meta.json"), data, 0o600)
}

// scrubURL drops the request URL that net/http puts into its errors.
func scrubURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}

// redactURL keeps scheme and host only. Private feed URLs carry secrets in
// the path or query.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "feed://(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/(redacted)"
}
