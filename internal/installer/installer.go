package installer

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/specialistvlad/gridkit/internal/ctxlog"
	"github.com/specialistvlad/gridkit/internal/di"
)

// DefaultPriority is the priority of modules that do not declare one.
const DefaultPriority = 500

// Module attaches itself to a host of type H.
type Module[H any] interface {
	Install(host H) error
}

// Prioritized is implemented by modules that want a priority other than
// DefaultPriority. Higher priorities install first.
type Prioritized interface {
	InstallPriority() int
}

// PriorityOf returns the install priority of m.
func PriorityOf(m any) int {
	if p, ok := m.(Prioritized); ok {
		return p.InstallPriority()
	}
	return DefaultPriority
}

// Tag returns the tag carried by modules for host type H.
func Tag[H any]() di.Tag {
	return di.Tag("module:" + di.ID[H]().String())
}

// Installer installs the modules of the main environment into the host. It
// implements the Start/Stop pair expected by the lifecycle manager.
type Installer[H any] struct {
	env    *di.Environment
	hostID di.Identifier

	mu        sync.Mutex
	installed map[di.Identifier]bool
	order     []di.Identifier
}

// Use declares an Installer for host type H in env's meta environment and
// registers the probe that discovers modules. The host is resolved from env
// under hostID when the Installer starts.
func Use[H any](env *di.Environment, hostID di.Identifier) error {
	env.AddProbe(Tag[H](), func(v any) bool {
		_, ok := v.(Module[H])
		return ok
	})
	return di.ProvideValue(env.Meta(), New[H](env, hostID))
}

// New returns an Installer for the modules of env.
func New[H any](env *di.Environment, hostID di.Identifier) *Installer[H] {
	return &Installer[H]{env: env, hostID: hostID, installed: make(map[di.Identifier]bool)}
}

// Installed returns the identifiers of the installed modules in install order.
func (i *Installer[H]) Installed() []di.Identifier {
	i.mu.Lock()
	defer i.mu.Unlock()
	return slices.Clone(i.order)
}

// Start resolves the host and installs every discovered module. Starting
// again once modules are installed fails with a *DuplicateInstallationError
// naming the first module that is already installed.
func (i *Installer[H]) Start(ctx context.Context) error {
	hostAny, err := i.env.Resolve(ctx, i.hostID)
	if err != nil {
		return fmt.Errorf("resolve module host: %w", err)
	}
	host, ok := hostAny.(H)
	if !ok {
		return fmt.Errorf("module host '%s' has type %T", i.hostID, hostAny)
	}

	components := Sorted(i.env.Components(Tag[H]()))

	i.mu.Lock()
	for _, c := range components {
		if i.installed[c.ID] {
			i.mu.Unlock()
			return &DuplicateInstallationError{ID: c.ID}
		}
	}
	i.mu.Unlock()

	return i.install(ctx, host, components)
}

// Stop does nothing; installed modules live as long as their host.
func (i *Installer[H]) Stop(context.Context) error { return nil }

// Install installs the given components into host in order, failing on the
// first error or on a component that is already installed.
func (i *Installer[H]) Install(ctx context.Context, host H, components []di.Component) error {
	return i.install(ctx, host, components)
}

func (i *Installer[H]) install(ctx context.Context, host H, components []di.Component) error {
	logger := ctxlog.FromContext(ctx)

	for _, c := range components {
		mod, ok := c.Instance.(Module[H])
		if !ok {
			return fmt.Errorf("component '%s' is not a module for %s", c.ID, i.hostID)
		}
		priority := PriorityOf(mod)

		i.mu.Lock()
		if i.installed[c.ID] {
			i.mu.Unlock()
			return &DuplicateInstallationError{ID: c.ID}
		}
		i.mu.Unlock()

		logger.Debug("Installing module.", "id", c.ID.String(), "priority", priority)
		if err := mod.Install(host); err != nil {
			return &ModuleInstallationError{ID: c.ID, Priority: priority, Err: err}
		}

		i.mu.Lock()
		i.installed[c.ID] = true
		i.order = append(i.order, c.ID)
		i.mu.Unlock()
	}

	logger.Info("Modules installed.", "count", len(components), "host", i.hostID.String())
	return nil
}

// Sorted returns components ordered by descending priority, then by
// ascending registration index.
func Sorted(components []di.Component) []di.Component {
	out := slices.Clone(components)
	slices.SortStableFunc(out, func(a, b di.Component) int {
		pa, pb := PriorityOf(a.Instance), PriorityOf(b.Instance)
		if pa != pb {
			if pa > pb {
				return -1
			}
			return 1
		}
		return a.Index - b.Index
	})
	return out
}
