// Package health serves a liveness endpoint listing the running services.
package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/specialistvlad/gridkit/internal/ctxlog"
	"github.com/specialistvlad/gridkit/internal/di"
	"github.com/specialistvlad/gridkit/internal/feature"
	"github.com/specialistvlad/gridkit/internal/services"
	"github.com/specialistvlad/gridkit/internal/web"
)

// Section is the configuration section read by the health feature.
const Section = "health"

// Priority makes the health endpoint the first route installed.
const Priority = 1000

// Settings configures the endpoint.
type Settings struct {
	Path string `hcl:"path,optional" yaml:"path"`
}

// Report is the body returned by the endpoint.
type Report struct {
	Status   string   `json:"status"`
	Services []string `json:"services"`
}

// Module installs the health endpoint.
type Module struct {
	path    string
	manager *services.Manager
}

// NewModule returns a Module serving on path and reporting the services of
// manager.
func NewModule(path string, manager *services.Manager) *Module {
	if path == "" {
		path = "/health"
	}
	return &Module{path: path, manager: manager}
}

func (m *Module) InstallPriority() int { return Priority }

// Install registers the GET route.
func (m *Module) Install(app *web.Application) error {
	app.Router().HandleFunc(m.path, m.handle).Methods(http.MethodGet)
	return nil
}

func (m *Module) handle(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(r.Context())
	logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)

	report := Report{Status: "ok", Services: []string{}}
	for _, id := range m.manager.Started() {
		report.Services = append(report.Services, id.String())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(report); err != nil {
		logger.Warn("Failed to write health report.", "error", err)
	}
}

// Feature declares the health module.
type Feature struct{}

func (Feature) ID() string               { return "gridkit-health" }
func (Feature) Name() string             { return "Health" }
func (Feature) Description() string      { return "Serves a liveness endpoint on the web application" }
func (Feature) ConfigSections() []string { return []string{Section} }

// Install declares the module.
func (Feature) Install(env *di.Environment) error {
	return di.Provide(env, func(ctx context.Context, s *di.Scope) (*Module, error) {
		settings := Settings{Path: "/health"}
		if err := feature.DecodeSection(ctx, s, Section, &settings); err != nil {
			return nil, err
		}
		manager, err := services.FromEnvironment(ctx, s.Environment())
		if err != nil {
			return nil, err
		}
		return NewModule(settings.Path, manager), nil
	})
}
