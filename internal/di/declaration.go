package di

import "context"

// Factory constructs the instance for a declaration. The scope may be used
// to resolve further identifiers while the factory runs.
type Factory func(ctx context.Context, s *Scope) (any, error)

// Declaration is an identifier and the factory producing it.
type Declaration struct {
	ID      Identifier
	Factory Factory

	lazy       bool
	startAfter []Identifier
}

// Lazy reports whether the declaration is skipped by Build.
func (d *Declaration) Lazy() bool { return d.lazy }

// StartsAfter returns the identifiers that must be started before this one.
func (d *Declaration) StartsAfter() []Identifier {
	out := make([]Identifier, len(d.startAfter))
	copy(out, d.startAfter)
	return out
}

// Option customizes a declaration.
type Option func(*Declaration)

// Lazy excludes the declaration from Build; it is constructed on first
// resolution instead.
func Lazy() Option {
	return func(d *Declaration) { d.lazy = true }
}

// StartAfter declares that the component must be started after the given
// identifiers have been started, whether or not it resolves them during
// construction.
func StartAfter(ids ...Identifier) Option {
	return func(d *Declaration) { d.startAfter = append(d.startAfter, ids...) }
}
