package di

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Scope is handed to a factory. Resolutions made through it while the
// factory runs are recorded as dependencies of the component being built
// and take part in cycle detection. A Scope must not be used from other
// goroutines while its factory is still running.
type Scope struct {
	env    *Environment
	res    *resolution
	id     Identifier
	active atomic.Bool
}

// Environment returns the environment the component is declared in.
func (s *Scope) Environment() *Environment { return s.env }

// ID returns the identifier of the component being constructed.
func (s *Scope) ID() Identifier { return s.id }

// Resolve returns the instance for id. After the factory has returned, the
// scope keeps working as a plain lookup into its environment.
func (s *Scope) Resolve(ctx context.Context, id Identifier) (any, error) {
	if s.active.Load() {
		return s.env.resolve(ctx, s.res, id)
	}
	return s.env.Resolve(ctx, id)
}

// Accessor is a deferred reference to a component. Nothing is resolved
// until Get is called, which makes accessors the way to express mutual
// references between components.
type Accessor[T any] struct {
	env   *Environment
	scope *Scope
	id    Identifier

	mu       sync.Mutex
	resolved bool
	value    T
}

// Inject returns an accessor for T in the scope's environment.
func Inject[T any](s *Scope) *Accessor[T] {
	return &Accessor[T]{env: s.env, scope: s, id: ID[T]()}
}

// InjectNamed returns an accessor for the qualified identifier of T.
func InjectNamed[T any](s *Scope, qualifier string) *Accessor[T] {
	return &Accessor[T]{env: s.env, scope: s, id: Named[T](qualifier)}
}

// Ref returns an accessor for T in env.
func Ref[T any](env *Environment) *Accessor[T] {
	return &Accessor[T]{env: env, id: ID[T]()}
}

// ID returns the identifier the accessor points at.
func (a *Accessor[T]) ID() Identifier { return a.id }

// Get resolves the component on first call and caches it afterwards. While
// the factory that injected the accessor is still running, Get takes part in
// that factory's resolution, so a cycle through accessors fails with a
// *CyclicDependencyError.
func (a *Accessor[T]) Get(ctx context.Context) (T, error) {
	a.mu.Lock()
	if a.resolved {
		v := a.value
		a.mu.Unlock()
		return v, nil
	}
	a.mu.Unlock()

	// Resolving without holding mu lets two components that reference each
	// other through accessors resolve concurrently.
	var instance any
	var err error
	if a.scope != nil {
		instance, err = a.scope.Resolve(ctx, a.id)
	} else {
		instance, err = a.env.Resolve(ctx, a.id)
	}
	if err != nil {
		var zero T
		return zero, err
	}
	v, ok := instance.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("component '%s' has unexpected type %T", a.id, instance)
	}

	a.mu.Lock()
	a.resolved = true
	a.value = v
	a.mu.Unlock()
	return v, nil
}

// MustGet is like Get but panics on error.
func (a *Accessor[T]) MustGet(ctx context.Context) T {
	v, err := a.Get(ctx)
	if err != nil {
		panic(err)
	}
	return v
}
