// Package logging builds the application's slog loggers and lets
// configuration adjust their levels at runtime, globally or per named
// logger.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// ParseLevel converts a level name to a slog.Level. Names are case
// insensitive; "warning" is accepted as an alias of "warn".
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level '%s'", s)
	}
}

// Settings is the "logging" configuration section.
type Settings struct {
	Level   string            `hcl:"level,optional" yaml:"level"`
	Format  string            `hcl:"format,optional" yaml:"format"`
	Loggers map[string]string `hcl:"loggers,optional" yaml:"loggers"`
}

// Factory hands out loggers named after their users.
type Factory interface {
	For(name string) *slog.Logger
}

// Logging owns the output handler and the level of every logger built from
// it.
type Logging struct {
	handler slog.Handler
	root    *slog.LevelVar
	format  string

	mu    sync.Mutex
	named map[string]*slog.LevelVar
}

// New creates a Logging writing to w in the given format ("json" or
// "text") at the given level.
func New(level, format string, w io.Writer) (*Logging, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	root := new(slog.LevelVar)
	root.Set(lvl)

	// The handler lets everything through; levelHandler filters per logger.
	handlerOpts := &slog.HandlerOptions{Level: slog.LevelDebug}
	var handler slog.Handler
	format = strings.ToLower(format)
	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, handlerOpts)
	case "text", "":
		format = "text"
		handler = slog.NewTextHandler(w, handlerOpts)
	default:
		return nil, fmt.Errorf("unknown log format '%s'", format)
	}

	return &Logging{handler: handler, root: root, format: format, named: make(map[string]*slog.LevelVar)}, nil
}

// Logger returns the root logger.
func (l *Logging) Logger() *slog.Logger {
	return slog.New(&levelHandler{next: l.handler, level: l.root})
}

// For returns a logger carrying logger=name whose level can be set
// separately through Settings.Loggers.
func (l *Logging) For(name string) *slog.Logger {
	return slog.New(&levelHandler{next: l.handler, level: l.levelFor(name)}).With("logger", name)
}

// Level returns the current root level.
func (l *Logging) Level() slog.Level { return l.root.Level() }

// SetLevel changes the root level.
func (l *Logging) SetLevel(level slog.Level) { l.root.Set(level) }

// Apply sets the levels found in s. The format cannot change after New;
// a different one is reported as an error.
func (l *Logging) Apply(s Settings) error {
	if s.Format != "" && !strings.EqualFold(s.Format, l.format) {
		return fmt.Errorf("log format is fixed at startup ('%s'), cannot switch to '%s'", l.format, s.Format)
	}
	if s.Level != "" {
		lvl, err := ParseLevel(s.Level)
		if err != nil {
			return err
		}
		l.root.Set(lvl)
	}
	for name, level := range s.Loggers {
		lvl, err := ParseLevel(level)
		if err != nil {
			return fmt.Errorf("logger '%s': %w", name, err)
		}
		l.mu.Lock()
		v, ok := l.named[name]
		if !ok {
			v = new(slog.LevelVar)
			l.named[name] = v
		}
		v.Set(lvl)
		l.mu.Unlock()
	}
	return nil
}

// namedLevel follows the root level until a level is set for the name.
type namedLevel struct {
	l    *Logging
	name string
}

func (n namedLevel) Level() slog.Level {
	n.l.mu.Lock()
	v, ok := n.l.named[n.name]
	n.l.mu.Unlock()
	if ok {
		return v.Level()
	}
	return n.l.root.Level()
}

func (l *Logging) levelFor(name string) slog.Leveler {
	return namedLevel{l: l, name: name}
}

// levelHandler drops records below its level before they reach next.
type levelHandler struct {
	next  slog.Handler
	level slog.Leveler
}

func (h *levelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level() && h.next.Enabled(ctx, level)
}

func (h *levelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.next.Handle(ctx, r)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{next: h.next.WithAttrs(attrs), level: h.level}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{next: h.next.WithGroup(name), level: h.level}
}
