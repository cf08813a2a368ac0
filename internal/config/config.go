package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"bridgecal/internal/caldav"
	"bridgecal/internal/calendar"
	"bridgecal/internal/validate"
)

const (
	defaultListen    = "127.0.0.1:8080"
	defaultTimezone  = "UTC"
	defaultRefresh   = "*/15 * * * *"
	defaultHorizon   = 60
	defaultBackfill  = 31
	defaultWeekStart = "sunday"
)

// FeedConfig is one subscribed ICS feed.
type FeedConfig struct {
	ID   string `yaml:"id" json:"id" validate:"required"`
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url" validate:"required,url"`
	// Provider is google, apple or bridge. Defaults to google.
	Provider string `yaml:"provider" json:"provider" validate:"provider"`
	// Owner is the member the feed belongs to.
	Owner string `yaml:"owner" json:"owner"`
}

// CalDAVConfig points at an Apple (or other CalDAV) calendar. The password
// is usually supplied through CALDAV_PASSWORD instead of the file.
type CalDAVConfig struct {
	URL      string `yaml:"url" json:"url"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password,omitempty" json:"-"`
	Calendar string `yaml:"calendar" json:"calendar"`
	Owner    string `yaml:"owner" json:"owner"`
}

// Enabled reports whether credentials are present.
func (c CalDAVConfig) Enabled() bool {
	return c.Username != "" && c.Password != ""
}

type AssistantConfig struct {
	Model    string `yaml:"model" json:"model"`
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	// APIKey only ever comes from the environment.
	APIKey string `yaml:"-" json:"-"`
}

type GroupConfig struct {
	ID          string `yaml:"id" json:"id" validate:"required"`
	Name        string `yaml:"name" json:"name" validate:"required"`
	Description string `yaml:"description" json:"description"`
}

// MemberConfig seeds the roster at startup.
type MemberConfig struct {
	ID           string `yaml:"id" json:"id" validate:"required"`
	Email        string `yaml:"email" json:"email" validate:"required,email"`
	FullName     string `yaml:"full_name" json:"full_name" validate:"required"`
	Role         string `yaml:"role" json:"role" validate:"oneof=owner member"`
	Illustration string `yaml:"illustration" json:"illustration" validate:"illustration"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone days are bucketed and displayed in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is "sunday" (default) or "monday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// EventOrder is "start" (default) or "input".
	EventOrder string `yaml:"event_order" json:"event_order"`

	// RefreshCron is the feed refresh schedule.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	HorizonDays  int `yaml:"horizon_days" json:"horizon_days"`
	BackfillDays int `yaml:"backfill_days" json:"backfill_days"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// CacheDir holds downloaded feed bodies.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	Group   GroupConfig    `yaml:"group" json:"group"`
	Members []MemberConfig `yaml:"members" json:"members"`

	Feeds     []FeedConfig    `yaml:"feeds" json:"feeds"`
	CalDAV    CalDAVConfig    `yaml:"caldav" json:"caldav"`
	Assistant AssistantConfig `yaml:"assistant" json:"assistant"`

	// BasicAuth, if non-nil, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() *Config {
	c := &Config{
		Group: GroupConfig{ID: "household", Name: "Household", Description: "Shared calendar for coordination"},
		Members: []MemberConfig{{
			ID: "owner", Email: "owner@example.com", FullName: "Calendar Owner", Role: "owner", Illustration: "fox",
		}},
	}
	c.Normalize()
	return c
}

// Normalize fills zero values with defaults so older or partial files
// still load.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	c.WeekStart = strings.ToLower(strings.TrimSpace(c.WeekStart))
	if c.WeekStart != "monday" && c.WeekStart != "sunday" {
		c.WeekStart = defaultWeekStart
	}
	if c.EventOrder == "" {
		c.EventOrder = "start"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefresh
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = defaultHorizon
	}
	if c.BackfillDays < 0 {
		c.BackfillDays = 0
	} else if c.BackfillDays == 0 {
		c.BackfillDays = defaultBackfill
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.CacheDir == "" {
		c.CacheDir = "./var/feed-cache"
	}
	if c.Feeds == nil {
		c.Feeds = []FeedConfig{}
	}
	for i := range c.Feeds {
		if c.Feeds[i].Provider == "" {
			c.Feeds[i].Provider = "google"
		}
		if c.Feeds[i].Name == "" {
			c.Feeds[i].Name = c.Feeds[i].ID
		}
	}
	for i := range c.Members {
		if c.Members[i].Role == "" {
			c.Members[i].Role = "member"
		}
		if c.Members[i].Illustration == "" {
			c.Members[i].Illustration = "bear"
		}
	}
}

// Validate checks values Normalize cannot repair.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return errors.Wrapf(err, "timezone %q", c.Timezone)
	}
	if c.EventOrder != "start" && c.EventOrder != "input" {
		return errors.Errorf("event_order %q: want start or input", c.EventOrder)
	}
	if err := validate.Struct(c.Group); err != nil {
		return errors.Wrap(err, "group")
	}

	owners := 0
	seen := make(map[string]bool)
	for _, m := range c.Members {
		if err := validate.Struct(m); err != nil {
			return errors.Wrapf(err, "member %q", m.ID)
		}
		if seen[m.ID] {
			return errors.Errorf("member %q listed twice", m.ID)
		}
		seen[m.ID] = true
		if m.Role == "owner" {
			owners++
		}
	}
	if len(c.Members) > 0 && owners != 1 {
		return errors.Errorf("members: want exactly one owner, have %d", owners)
	}

	feeds := make(map[string]bool)
	for _, f := range c.Feeds {
		if err := validate.Struct(f); err != nil {
			return errors.Wrapf(err, "feed %q", f.ID)
		}
		if f.ID == calendar.SourceLocal || f.ID == caldav.SourceID {
			return errors.Errorf("feed %q: id is reserved", f.ID)
		}
		if feeds[f.ID] {
			return errors.Errorf("feed %q listed twice", f.ID)
		}
		feeds[f.ID] = true
	}
	return nil
}

// Location returns the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "timezone %q", c.Timezone)
	}
	return loc, nil
}

// FirstWeekday returns the weekday calendar rows start on.
func (c *Config) FirstWeekday() time.Weekday {
	if c.WeekStart == "monday" {
		return time.Monday
	}
	return time.Sunday
}

// Load reads the YAML file at path. When the file does not exist a default
// config is written there (0600) and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, errors.Wrap(err, "read config")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions. The assistant API key is never written.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "config dir")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}

	tmp, err := os.CreateTemp(dir, ".bridgecal-config-*.tmp")
	if err != nil {
		return errors.Wrap(err, "temp config")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write config")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "sync config")
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}
