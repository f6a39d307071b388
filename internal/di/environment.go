package di

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/specialistvlad/gridkit/internal/ctxlog"
	"github.com/specialistvlad/gridkit/internal/dag"
	"github.com/specialistvlad/gridkit/internal/registry"
)

// Tag marks instances that expose a capability, such as "service" or
// "module". Tags are assigned by probes when an instance is first cached.
type Tag string

// Component is a constructed instance together with its declaration data.
type Component struct {
	ID       Identifier
	Index    int
	Instance any
}

type probe struct {
	tag   Tag
	match func(any) bool
}

// entry is the cache slot of one identifier. While the factory runs, owner
// is the resolution constructing it and done is open.
type entry struct {
	done     chan struct{}
	owner    *resolution
	instance any
	err      error
	tags     map[Tag]bool
}

// Environment owns a set of declarations and the instances built from them.
// It is safe for concurrent use.
type Environment struct {
	id     string
	name   string
	parent *Environment

	decls *registry.Registry[Identifier, *Declaration]
	graph *dag.Graph

	metaOnce sync.Once
	meta     *Environment

	mu      sync.Mutex
	entries map[Identifier]*entry
	probes  []probe
	order   []Identifier
}

// New creates an empty main environment.
func New() *Environment {
	return newEnvironment("main", nil)
}

func newEnvironment(name string, parent *Environment) *Environment {
	return &Environment{
		id:      uuid.NewString(),
		name:    name,
		parent:  parent,
		decls:   registry.New[Identifier, *Declaration](),
		graph:   dag.New(),
		entries: make(map[Identifier]*entry),
	}
}

// ID returns the unique id of this environment instance.
func (e *Environment) ID() string { return e.id }

// Name returns "main" or "meta".
func (e *Environment) Name() string { return e.name }

// Parent returns the environment this meta environment belongs to, or nil
// for a main environment.
func (e *Environment) Parent() *Environment { return e.parent }

// Meta returns the meta environment, creating it on first use. It is built
// before e by Build.
func (e *Environment) Meta() *Environment {
	e.metaOnce.Do(func() {
		e.meta = newEnvironment("meta", e)
	})
	return e.meta
}

// Put declares id with the given factory. It fails with a
// *DuplicateDeclarationError if id is already declared.
func (e *Environment) Put(id Identifier, factory Factory, opts ...Option) error {
	if id.IsZero() {
		return errors.New("cannot declare the zero identifier")
	}
	if factory == nil {
		return fmt.Errorf("factory for '%s' cannot be nil", id)
	}

	decl := &Declaration{ID: id, Factory: factory}
	for _, opt := range opts {
		opt(decl)
	}
	for _, dep := range decl.startAfter {
		if dep.IsZero() || dep == id {
			return fmt.Errorf("declare '%s': cannot start after '%s'", id, dep)
		}
	}

	if err := e.decls.Register(id, decl); err != nil {
		var dup *registry.DuplicateError
		if errors.As(err, &dup) {
			return &DuplicateDeclarationError{ID: id, Environment: e.name}
		}
		return err
	}

	e.graph.AddNode(id.key())
	for _, dep := range decl.startAfter {
		if err := e.graph.Link(dep.key(), id.key()); err != nil {
			return fmt.Errorf("declare '%s': %w", id, err)
		}
	}
	return nil
}

// Declaration returns the declaration for id.
func (e *Environment) Declaration(id Identifier) (*Declaration, error) {
	decl, err := e.decls.Lookup(id)
	if err != nil {
		return nil, &UnknownDeclarationError{ID: id, Environment: e.name}
	}
	return decl, nil
}

// Declarations returns all declared identifiers in registration order.
func (e *Environment) Declarations() []Identifier {
	return e.decls.Keys()
}

// Has reports whether id is declared.
func (e *Environment) Has(id Identifier) bool {
	return e.decls.Contains(id)
}

// Index returns the registration index of id, or -1.
func (e *Environment) Index(id Identifier) int {
	return e.decls.Index(id)
}

// Build resolves the meta environment (if one was created) and then every
// non-lazy declaration of e, in registration order.
func (e *Environment) Build(ctx context.Context) error {
	if e.meta != nil {
		if err := e.meta.Build(ctx); err != nil {
			return fmt.Errorf("build meta environment: %w", err)
		}
	}

	ctx = ctxlog.With(ctx, "env", e.name, "env_id", e.id)
	logger := ctxlog.FromContext(ctx)

	logger.Debug("Building environment.", "declarations", e.decls.Len())
	for _, decl := range e.decls.Values() {
		if decl.lazy {
			continue
		}
		if _, err := e.Resolve(ctx, decl.ID); err != nil {
			return err
		}
	}
	logger.Debug("Environment built.")
	return nil
}

// Resolve returns the instance for id, constructing it if needed.
func (e *Environment) Resolve(ctx context.Context, id Identifier) (any, error) {
	return e.resolve(ctx, &resolution{}, id)
}

// Resolved reports whether id has been successfully constructed.
func (e *Environment) Resolved(id Identifier) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, ok := e.entries[id]
	return ok && ent.owner == nil && ent.err == nil
}

// AddProbe registers a capability probe. Every instance constructed from now
// on, and every instance already cached, is checked once and tagged when
// match returns true.
func (e *Environment) AddProbe(tag Tag, match func(any) bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.probes = append(e.probes, probe{tag: tag, match: match})
	for _, ent := range e.entries {
		if ent.owner == nil && ent.err == nil && match(ent.instance) {
			ent.tags[tag] = true
		}
	}
}

// Components returns the constructed instances carrying tag, in
// registration order.
func (e *Environment) Components(tag Tag) []Component {
	ids := e.decls.Keys()

	e.mu.Lock()
	defer e.mu.Unlock()

	var out []Component
	for i, id := range ids {
		ent, ok := e.entries[id]
		if !ok || ent.owner != nil || ent.err != nil || !ent.tags[tag] {
			continue
		}
		out = append(out, Component{ID: id, Index: i, Instance: ent.instance})
	}
	return out
}

// ConstructionOrder returns identifiers in the order their construction
// completed.
func (e *Environment) ConstructionOrder() []Identifier {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Identifier, len(e.order))
	copy(out, e.order)
	return out
}

// Dependencies returns the identifiers id was seen to depend on, either
// through resolution during its construction or through StartAfter.
func (e *Environment) Dependencies(id Identifier) []Identifier {
	keys, err := e.graph.Dependencies(id.key())
	if err != nil {
		return nil
	}
	byKey := make(map[string]Identifier)
	for _, declared := range e.decls.Keys() {
		byKey[declared.key()] = declared
	}
	var out []Identifier
	for _, k := range keys {
		if dep, ok := byKey[k]; ok {
			out = append(out, dep)
		}
	}
	return out
}

// Order arranges ids so that every identifier comes after the ones it
// depends on, keeping the given order among independent identifiers.
// Dependencies through identifiers that are not part of ids still count, so
// a service reached through a plain component is ordered before its user.
func (e *Environment) Order(ids []Identifier) ([]Identifier, error) {
	keys := make([]string, len(ids))
	byKey := make(map[string]Identifier, len(ids))
	for i, id := range ids {
		keys[i] = id.key()
		byKey[keys[i]] = id
	}

	local := dag.New()
	for _, k := range keys {
		local.AddNode(k)
		for _, dep := range e.reachable(k, byKey) {
			if err := local.Link(dep, k); err != nil {
				return nil, err
			}
		}
	}

	sorted, err := local.Sort(keys)
	if err != nil {
		var cycle *dag.CycleError
		if errors.As(err, &cycle) {
			id := byKey[cycle.Node]
			return nil, &CyclicDependencyError{ID: id, Path: []Identifier{id}}
		}
		return nil, err
	}

	out := make([]Identifier, len(sorted))
	for i, k := range sorted {
		out[i] = byKey[k]
	}
	return out, nil
}

// reachable returns the members that key depends on, directly or through
// non-member nodes.
func (e *Environment) reachable(key string, members map[string]Identifier) []string {
	var out []string
	seen := map[string]bool{key: true}
	queue := []string{key}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		deps, err := e.graph.Dependencies(cur)
		if err != nil {
			continue
		}
		for _, dep := range deps {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			if _, ok := members[dep]; ok {
				out = append(out, dep)
				continue
			}
			queue = append(queue, dep)
		}
	}
	return out
}
