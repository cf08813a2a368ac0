package config

import (
	"errors"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"bridgecal/internal/log"
)

// Env holds the settings that come from the process environment (and an
// optional .env file) rather than the YAML file.
type Env struct {
	GeminiAPIKey   string `env:"GEMINI_API_KEY"`
	APIKey         string `env:"API_KEY"`
	CalDAVPassword string `env:"CALDAV_PASSWORD"`
	Listen         string `env:"BRIDGE_LISTEN"`
	LogLevel       string `env:"BRIDGE_LOG_LEVEL"`
}

// ReadEnv loads dotenvPath if it exists, then parses the environment.
// Variables already set in the environment win over the file.
func ReadEnv(dotenvPath string) (Env, error) {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warn("unable to load env file", "path", dotenvPath, "err", err.Error())
		}
	}

	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, err
	}
	return e, nil
}

// Apply overlays non-empty environment values onto c.
func (e Env) Apply(c *Config) {
	switch {
	case e.GeminiAPIKey != "":
		c.Assistant.APIKey = e.GeminiAPIKey
	case e.APIKey != "":
		c.Assistant.APIKey = e.APIKey
	}
	if e.CalDAVPassword != "" {
		c.CalDAV.Password = e.CalDAVPassword
	}
	if e.Listen != "" {
		c.Listen = e.Listen
	}
	if e.LogLevel != "" {
		c.LogLevel = e.LogLevel
	}
}
