package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/specialistvlad/gridkit/internal/ctxlog"
	"github.com/specialistvlad/gridkit/internal/di"
)

// Tag marks components implementing Service.
const Tag di.Tag = "service"

// Service is a component with a start and a stop hook.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Observer is notified after every start and stop hook.
type Observer interface {
	ServiceStarted(id di.Identifier, d time.Duration)
	ServiceStopped(id di.Identifier, d time.Duration, err error)
}

type started struct {
	env *di.Environment
	id  di.Identifier
	svc Service
}

// Manager starts and stops the services of an environment and its meta
// environment. Its methods must not be called concurrently with each other.
type Manager struct {
	env *di.Environment

	mu        sync.Mutex
	observers []Observer
	started   []started
	running   map[runKey]bool
}

type runKey struct {
	env *di.Environment
	id  di.Identifier
}

// Use declares the Manager in env's meta environment and registers the
// probes that discover services. It is a no-op if the Manager is already
// declared.
func Use(env *di.Environment) error {
	meta := env.Meta()
	if meta.Has(di.ID[*Manager]()) {
		return nil
	}

	isService := func(v any) bool {
		_, ok := v.(Service)
		return ok
	}
	env.AddProbe(Tag, isService)
	meta.AddProbe(Tag, isService)

	return di.ProvideValue(meta, NewManager(env))
}

// NewManager returns a Manager for env. Use is preferred; NewManager exists
// for callers that manage probes themselves.
func NewManager(env *di.Environment) *Manager {
	return &Manager{env: env, running: make(map[runKey]bool)}
}

// FromEnvironment returns the Manager declared by Use.
func FromEnvironment(ctx context.Context, env *di.Environment) (*Manager, error) {
	return di.Get[*Manager](ctx, env.Meta())
}

// Observe adds an observer.
func (m *Manager) Observe(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

// Started returns the identifiers of the running services in start order.
func (m *Manager) Started() []di.Identifier {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]di.Identifier, len(m.started))
	for i, s := range m.started {
		out[i] = s.id
	}
	return out
}

// StartAll starts every discovered service that is not running yet. On the
// first failure it stops the services it started, in reverse, and returns a
// *StartError, joined with a *ShutdownError if the rollback failed too.
func (m *Manager) StartAll(ctx context.Context) error {
	ctx = ctxlog.With(ctx, "env_id", m.env.ID())
	logger := ctxlog.FromContext(ctx)

	m.mu.Lock()
	mark := len(m.started)
	m.mu.Unlock()

	for _, env := range []*di.Environment{m.env.Meta(), m.env} {
		plan, err := m.plan(env)
		if err != nil {
			return fmt.Errorf("order services of %s environment: %w", env.Name(), err)
		}

		for _, s := range plan {
			if m.isRunning(s) {
				continue
			}

			logger.Debug("Starting service.", "id", s.id.String(), "env", env.Name())
			begin := time.Now()
			if err := s.svc.Start(ctx); err != nil {
				startErr := &StartError{ID: s.id, Err: err}
				logger.Error("Service failed to start, rolling back.", "id", s.id.String(), "error", err)
				if rbErr := m.stopFrom(ctx, mark); rbErr != nil {
					return errors.Join(startErr, rbErr)
				}
				return startErr
			}
			elapsed := time.Since(begin)

			m.mu.Lock()
			m.started = append(m.started, s)
			m.running[runKey{s.env, s.id}] = true
			observers := append([]Observer(nil), m.observers...)
			m.mu.Unlock()

			for _, o := range observers {
				o.ServiceStarted(s.id, elapsed)
			}
			logger.Info("Service started.", "id", s.id.String(), "duration", elapsed)
		}
	}
	return nil
}

// StopAll stops every running service in reverse start order. All stop
// hooks are called even if some fail; failures come back as a
// *ShutdownError.
func (m *Manager) StopAll(ctx context.Context) error {
	ctx = ctxlog.With(ctx, "env_id", m.env.ID())
	return m.stopFrom(ctx, 0)
}

func (m *Manager) stopFrom(ctx context.Context, mark int) error {
	logger := ctxlog.FromContext(ctx)

	m.mu.Lock()
	if mark > len(m.started) {
		mark = len(m.started)
	}
	toStop := append([]started(nil), m.started[mark:]...)
	m.started = m.started[:mark]
	for _, s := range toStop {
		delete(m.running, runKey{s.env, s.id})
	}
	observers := append([]Observer(nil), m.observers...)
	m.mu.Unlock()

	var failures []StopFailure
	for i := len(toStop) - 1; i >= 0; i-- {
		s := toStop[i]
		logger.Debug("Stopping service.", "id", s.id.String())

		begin := time.Now()
		err := s.svc.Stop(ctx)
		elapsed := time.Since(begin)
		for _, o := range observers {
			o.ServiceStopped(s.id, elapsed, err)
		}

		if err != nil {
			logger.Error("Service failed to stop.", "id", s.id.String(), "error", err)
			failures = append(failures, StopFailure{ID: s.id, Err: err})
			continue
		}
		logger.Info("Service stopped.", "id", s.id.String(), "duration", elapsed)
	}

	if len(failures) > 0 {
		return &ShutdownError{Failures: failures}
	}
	return nil
}

func (m *Manager) isRunning(s started) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running[runKey{s.env, s.id}]
}

// plan returns env's services in start order.
func (m *Manager) plan(env *di.Environment) ([]started, error) {
	components := env.Components(Tag)
	ids := make([]di.Identifier, len(components))
	byID := make(map[di.Identifier]Service, len(components))
	for i, c := range components {
		ids[i] = c.ID
		byID[c.ID] = c.Instance.(Service)
	}

	ordered, err := env.Order(ids)
	if err != nil {
		return nil, err
	}

	plan := make([]started, len(ordered))
	for i, id := range ordered {
		plan[i] = started{env: env, id: id, svc: byID[id]}
	}
	return plan, nil
}
