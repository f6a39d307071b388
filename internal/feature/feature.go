// Package feature defines the unit applications are assembled from. A
// feature declares components into an environment; it may also own
// configuration sections and react once configuration is loaded.
package feature

import (
	"context"

	"github.com/specialistvlad/gridkit/internal/config"
	"github.com/specialistvlad/gridkit/internal/di"
	"github.com/specialistvlad/gridkit/internal/registry"
)

// Feature is a named bundle of declarations.
type Feature interface {
	ID() string
	Name() string
	Description() string
	Install(env *di.Environment) error
}

// Configurable is implemented by features that own configuration sections.
type Configurable interface {
	ConfigSections() []string
}

// ConfigurationHook is implemented by features that act after configuration
// is loaded and the environment is built, but before any service starts.
type ConfigurationHook interface {
	OnConfigurationLoaded(ctx context.Context, root *config.Root) error
}

// ID identifies a feature in a Set.
type ID string

func (id ID) String() string { return string(id) }

// Set is an ordered collection of features with unique ids.
type Set struct {
	features *registry.Registry[ID, Feature]
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{features: registry.New[ID, Feature]()}
}

// Add appends f. A feature whose id is already present is rejected with a
// *registry.DuplicateError.
func (s *Set) Add(f Feature) error {
	return s.features.Register(ID(f.ID()), f)
}

// Has reports whether a feature with the given id was added.
func (s *Set) Has(id string) bool {
	return s.features.Contains(ID(id))
}

// All returns the features in the order they were added.
func (s *Set) All() []Feature {
	return s.features.Values()
}

// Sections returns the configuration sections owned by the features.
func (s *Set) Sections() []string {
	var out []string
	for _, f := range s.features.Values() {
		if c, ok := f.(Configurable); ok {
			out = append(out, c.ConfigSections()...)
		}
	}
	return out
}

// InstallAll installs every feature into env, in order.
func (s *Set) InstallAll(env *di.Environment) error {
	for _, f := range s.features.Values() {
		if err := f.Install(env); err != nil {
			return &InstallError{Feature: f.ID(), Err: err}
		}
	}
	return nil
}

// ConfigurationLoaded runs the configuration hooks in feature order.
func (s *Set) ConfigurationLoaded(ctx context.Context, root *config.Root) error {
	for _, f := range s.features.Values() {
		if h, ok := f.(ConfigurationHook); ok {
			if err := h.OnConfigurationLoaded(ctx, root); err != nil {
				return &InstallError{Feature: f.ID(), Err: err}
			}
		}
	}
	return nil
}

// InstallError reports the feature that failed.
type InstallError struct {
	Feature string
	Err     error
}

func (e *InstallError) Error() string {
	return "feature '" + e.Feature + "': " + e.Err.Error()
}

func (e *InstallError) Unwrap() error { return e.Err }

// DecodeSection decodes the named configuration section into target when a
// *config.Root is declared in the scope's environment. Without one, target
// keeps its defaults.
func DecodeSection(ctx context.Context, s *di.Scope, name string, target any) error {
	if !s.Environment().Has(di.ID[*config.Root]()) {
		return nil
	}
	root, err := di.Resolve[*config.Root](ctx, s)
	if err != nil {
		return err
	}
	return root.Section(ctx, name, target)
}
