package app

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/gridkit/internal/logging"
)

// Config holds what an App needs before any configuration file is read.
type Config struct {
	// ConfigPaths are files or directories handed to the loader.
	ConfigPaths []string
	// WatchConfig re-reads the configuration when a file under ConfigPaths
	// changes and runs the configuration hooks again.
	WatchConfig bool

	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("invalid log-level: %w", err)
	}
	switch strings.ToLower(cfg.LogFormat) {
	case "", "text", "json":
	default:
		return nil, fmt.Errorf("invalid log-format '%s': must be 'text' or 'json'", cfg.LogFormat)
	}
	return &cfg, nil
}
