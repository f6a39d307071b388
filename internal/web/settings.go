package web

import (
	"fmt"
	"time"
)

// Section is the configuration section read by the web feature.
const Section = "web"

// Settings configures the HTTP server.
type Settings struct {
	Address         string `hcl:"address,optional" yaml:"address"`
	ShutdownTimeout string `hcl:"shutdown_timeout,optional" yaml:"shutdown_timeout"`
}

// DefaultSettings listens on :8080 and waits up to ten seconds for
// in-flight requests on shutdown.
func DefaultSettings() Settings {
	return Settings{Address: ":8080", ShutdownTimeout: "10s"}
}

// Timeout parses ShutdownTimeout.
func (s Settings) Timeout() (time.Duration, error) {
	if s.ShutdownTimeout == "" {
		return 10 * time.Second, nil
	}
	d, err := time.ParseDuration(s.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid shutdown_timeout '%s': %w", s.ShutdownTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("shutdown_timeout must not be negative, got %s", d)
	}
	return d, nil
}
