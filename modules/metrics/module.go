package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/specialistvlad/gridkit/internal/ctxlog"
	"github.com/specialistvlad/gridkit/internal/di"
	"github.com/specialistvlad/gridkit/internal/feature"
	"github.com/specialistvlad/gridkit/internal/services"
	"github.com/specialistvlad/gridkit/internal/web"
)

// Section is the configuration section read by the metrics feature.
const Section = "metrics"

// Settings configures the metrics endpoint.
type Settings struct {
	Path      string `hcl:"path,optional" yaml:"path"`
	Namespace string `hcl:"namespace,optional" yaml:"namespace"`
}

// DefaultSettings serves /metrics with the "gridkit" namespace.
func DefaultSettings() Settings {
	return Settings{Path: "/metrics", Namespace: "gridkit"}
}

// Module mounts the scrape endpoint and the request middleware. It keeps
// the default install priority.
type Module struct {
	metrics *Metrics
	path    string
}

// NewModule returns a Module exposing m on path.
func NewModule(m *Metrics, path string) *Module {
	return &Module{metrics: m, path: path}
}

// Install adds the middleware and the GET route.
func (mod *Module) Install(app *web.Application) error {
	app.Router().Use(mod.metrics.Middleware())
	app.Router().Handle(mod.path, promhttp.HandlerFor(mod.metrics.Registry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return nil
}

// Feature declares *Metrics, registers it as a lifecycle observer, and
// declares the module.
type Feature struct{}

func (Feature) ID() string               { return "gridkit-metrics" }
func (Feature) Name() string             { return "Metrics" }
func (Feature) Description() string      { return "Exposes Prometheus metrics on the web application" }
func (Feature) ConfigSections() []string { return []string{Section} }

// Install declares the metrics components.
func (Feature) Install(env *di.Environment) error {
	err := di.Provide(env, func(ctx context.Context, s *di.Scope) (*Metrics, error) {
		settings := DefaultSettings()
		if err := feature.DecodeSection(ctx, s, Section, &settings); err != nil {
			return nil, err
		}
		m, err := New(settings.Namespace)
		if err != nil {
			return nil, err
		}
		manager, err := services.FromEnvironment(ctx, s.Environment())
		if err != nil {
			return nil, err
		}
		manager.Observe(m)
		ctxlog.FromContext(ctx).Debug("Metrics observer registered.", "namespace", settings.Namespace)
		return m, nil
	})
	if err != nil {
		return err
	}

	return di.Provide(env, func(ctx context.Context, s *di.Scope) (*Module, error) {
		settings := DefaultSettings()
		if err := feature.DecodeSection(ctx, s, Section, &settings); err != nil {
			return nil, err
		}
		m, err := di.Resolve[*Metrics](ctx, s)
		if err != nil {
			return nil, err
		}
		return NewModule(m, settings.Path), nil
	})
}
