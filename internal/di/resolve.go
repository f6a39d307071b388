package di

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/specialistvlad/gridkit/internal/ctxlog"
)

// resolution is one chain of nested factory calls. stack holds the
// identifiers currently being constructed by it, innermost last. waiting is
// the entry this resolution is blocked on, if any; following waiting.owner
// links across resolutions reveals cycles that span goroutines.
type resolution struct {
	stack   []Identifier
	waiting *entry
}

func (r *resolution) requester() Identifier {
	if len(r.stack) == 0 {
		return Identifier{}
	}
	return r.stack[len(r.stack)-1]
}

func (e *Environment) resolve(ctx context.Context, r *resolution, id Identifier) (any, error) {
	requester := r.requester()

	e.mu.Lock()
	if ent, ok := e.entries[id]; ok {
		if ent.owner == nil {
			e.mu.Unlock()
			e.recordEdge(id, requester)
			return ent.instance, nil
		}
		if err := e.detectCycleLocked(r, ent, id); err != nil {
			e.mu.Unlock()
			return nil, err
		}

		r.waiting = ent
		e.mu.Unlock()

		select {
		case <-ent.done:
		case <-ctx.Done():
			e.mu.Lock()
			r.waiting = nil
			e.mu.Unlock()
			return nil, fmt.Errorf("waiting for '%s': %w", id, ctx.Err())
		}

		e.mu.Lock()
		r.waiting = nil
		e.mu.Unlock()

		if ent.err != nil {
			return nil, ent.err
		}
		e.recordEdge(id, requester)
		return ent.instance, nil
	}

	decl, err := e.decls.Lookup(id)
	if err != nil {
		e.mu.Unlock()
		return nil, &UnknownDeclarationError{ID: id, Requester: requester, Environment: e.name}
	}

	ent := &entry{done: make(chan struct{}), owner: r, tags: make(map[Tag]bool)}
	e.entries[id] = ent
	e.mu.Unlock()

	r.stack = append(r.stack, id)
	instance, err := e.construct(ctx, r, decl)
	r.stack = r.stack[:len(r.stack)-1]

	e.mu.Lock()
	if err != nil {
		delete(e.entries, id)
		ent.err = err
	} else {
		ent.instance = instance
		for _, p := range e.probes {
			if p.match(instance) {
				ent.tags[p.tag] = true
			}
		}
		e.order = append(e.order, id)
	}
	ent.owner = nil
	close(ent.done)
	e.mu.Unlock()

	if err != nil {
		return nil, err
	}
	e.recordEdge(id, requester)
	return instance, nil
}

// detectCycleLocked reports a cycle when id is already being constructed by
// r itself, or by a resolution that is (transitively) waiting on r.
func (e *Environment) detectCycleLocked(r *resolution, ent *entry, id Identifier) error {
	if ent.owner == r {
		i := slices.Index(r.stack, id)
		path := append(slices.Clone(r.stack[i:]), id)
		return &CyclicDependencyError{ID: id, Path: path}
	}

	seen := map[*resolution]bool{}
	for owner := ent.owner; owner != nil && !seen[owner]; {
		seen[owner] = true
		if owner.waiting == nil {
			return nil
		}
		next := owner.waiting.owner
		if next == r {
			path := append(slices.Clone(r.stack), id)
			return &CyclicDependencyError{ID: id, Path: path}
		}
		owner = next
	}
	return nil
}

func (e *Environment) construct(ctx context.Context, r *resolution, decl *Declaration) (instance any, err error) {
	logger := ctxlog.FromContext(ctx)
	scope := &Scope{env: e, res: r, id: decl.ID}
	scope.active.Store(true)

	defer func() {
		scope.active.Store(false)
		if rec := recover(); rec != nil {
			err = &ConstructionError{ID: decl.ID, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()

	logger.Debug("Constructing component.", "component", decl.ID.String())
	instance, err = decl.Factory(ctx, scope)
	if err != nil {
		var cyc *CyclicDependencyError
		var unknown *UnknownDeclarationError
		if errors.As(err, &cyc) || errors.As(err, &unknown) {
			return nil, err
		}
		return nil, &ConstructionError{ID: decl.ID, Err: err}
	}
	if instance == nil {
		return nil, &ConstructionError{ID: decl.ID, Err: errors.New("factory returned nil")}
	}
	if got := reflect.TypeOf(instance); !got.AssignableTo(decl.ID.typ) {
		return nil, &TypeMismatchError{ID: decl.ID, Want: decl.ID.typ, Got: got}
	}
	return instance, nil
}

// recordEdge notes that requester used id during its construction.
func (e *Environment) recordEdge(id, requester Identifier) {
	if requester.IsZero() || requester == id {
		return
	}
	if err := e.graph.Link(id.key(), requester.key()); err != nil {
		ctxlog.FromContext(context.Background()).Warn("Could not record dependency.", "from", id.String(), "to", requester.String(), "error", err)
	}
}
