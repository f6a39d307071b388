// Package di is gridkit's injection environment.
//
// An Environment holds factory declarations keyed by Identifier and turns
// them into a live object graph on demand. Every identifier is constructed at
// most once per environment, even under concurrent first access, and the
// resulting instance is shared by everyone who resolves it.
//
// Declaring components:
//
//	env := di.New()
//	di.Provide(env, func(ctx context.Context, s *di.Scope) (*Store, error) {
//		return NewStore(), nil
//	})
//	di.Provide(env, func(ctx context.Context, s *di.Scope) (*API, error) {
//		return &API{store: di.Inject[*Store](s)}, nil
//	})
//
// Factories receive a Scope. Resolving through the scope while the factory
// runs records a dependency edge (the lifecycle manager uses these edges to
// order start hooks) and participates in cycle detection: a factory that
// needs its own identifier, directly or transitively, fails with a
// *CyclicDependencyError instead of hanging.
//
// Inject returns an Accessor, a lazy handle that only resolves on its first
// Get. Two components may hold accessors to each other as long as neither
// factory calls Get on the other while it is being constructed.
//
// Every environment owns a meta environment (Meta) that is built strictly
// before it. Structural extensions such as the lifecycle manager and the
// module installer are declared there so they exist before any ordinary
// component is constructed.
package di
