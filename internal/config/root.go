package config

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Section is one named part of the configuration, still in its source
// format.
type Section interface {
	// Decode fills target, a pointer to a struct, from the section. Fields
	// the section does not mention keep their current values.
	Decode(ctx context.Context, target any) error
	// Source names the file the section came from.
	Source() string
}

// Root holds every section read by a Loader. It is safe for concurrent use.
type Root struct {
	mu       sync.RWMutex
	sections map[string]Section
	order    []string
	overlays map[string][]func(target any) error
}

// NewRoot returns an empty Root.
func NewRoot() *Root {
	return &Root{sections: make(map[string]Section), overlays: make(map[string][]func(any) error)}
}

// Overlay registers fn to run on the target every time section name is
// decoded, after the section itself, whether or not the section exists.
// Command-line flags use it to take precedence over files.
func (r *Root) Overlay(name string, fn func(target any) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overlays[name] = append(r.overlays[name], fn)
}

// Add stores a section. A section added under a name that already exists
// replaces it, so later files override earlier ones.
func (r *Root) Add(name string, s Section) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sections[name]; !ok {
		r.order = append(r.order, name)
	}
	r.sections[name] = s
}

// Merge adds every section of other to r.
func (r *Root) Merge(other *Root) {
	if other == nil {
		return
	}
	other.mu.RLock()
	names := slices.Clone(other.order)
	sections := make([]Section, len(names))
	for i, name := range names {
		sections[i] = other.sections[name]
	}
	other.mu.RUnlock()

	for i, name := range names {
		r.Add(name, sections[i])
	}
}

// Has reports whether a section called name exists.
func (r *Root) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sections[name]
	return ok
}

// Names returns the section names in the order they first appeared.
func (r *Root) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Section decodes the section called name into target, then applies the
// overlays registered for it. A missing section is not an error and leaves
// target untouched apart from overlays.
func (r *Root) Section(ctx context.Context, name string, target any) error {
	r.mu.RLock()
	s, ok := r.sections[name]
	overlays := slices.Clone(r.overlays[name])
	r.mu.RUnlock()

	if ok {
		if err := s.Decode(ctx, target); err != nil {
			return fmt.Errorf("decode section '%s' from %s: %w", name, s.Source(), err)
		}
	}
	for _, fn := range overlays {
		if err := fn(target); err != nil {
			return fmt.Errorf("apply overrides to section '%s': %w", name, err)
		}
	}
	return nil
}
