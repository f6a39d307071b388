package logging

import (
	"context"
	"log/slog"

	"github.com/specialistvlad/gridkit/internal/config"
	"github.com/specialistvlad/gridkit/internal/di"
)

// Section is the configuration section read by Feature.
const Section = "logging"

// Feature declares the shared *slog.Logger, the *Logging and a Factory.
// Levels from the "logging" section are applied as soon as configuration is
// loaded, so services already log at the configured level when they start.
type Feature struct {
	logging *Logging
}

// NewFeature returns the logging feature around l.
func NewFeature(l *Logging) *Feature {
	return &Feature{logging: l}
}

func (f *Feature) ID() string          { return "gridkit-logging" }
func (f *Feature) Name() string        { return "Logging" }
func (f *Feature) Description() string { return "Provides structured loggers to components" }

func (f *Feature) ConfigSections() []string { return []string{Section} }

// Install declares the logging components.
func (f *Feature) Install(env *di.Environment) error {
	if err := di.ProvideValue(env, f.logging); err != nil {
		return err
	}
	if err := di.ProvideValue(env, f.logging.Logger()); err != nil {
		return err
	}
	return di.Provide(env, func(context.Context, *di.Scope) (Factory, error) {
		return f.logging, nil
	})
}

// OnConfigurationLoaded applies the "logging" section.
func (f *Feature) OnConfigurationLoaded(ctx context.Context, root *config.Root) error {
	var s Settings
	if err := root.Section(ctx, Section, &s); err != nil {
		return err
	}
	return f.logging.Apply(s)
}

// LoggerFor resolves the Factory through s and returns a logger named after
// the component being constructed.
func LoggerFor(ctx context.Context, s *di.Scope) (*slog.Logger, error) {
	factory, err := di.Resolve[Factory](ctx, s)
	if err != nil {
		return nil, err
	}
	return factory.For(s.ID().String()), nil
}
