package web

import (
	"context"

	"github.com/specialistvlad/gridkit/internal/di"
	"github.com/specialistvlad/gridkit/internal/feature"
	"github.com/specialistvlad/gridkit/internal/installer"
	"github.com/specialistvlad/gridkit/internal/services"
)

// Module is a module for the web application.
type Module = installer.Module[*Application]

// Feature declares the *Application, the lifecycle manager and the module
// installer for it.
type Feature struct{}

func (Feature) ID() string          { return "gridkit-web" }
func (Feature) Name() string        { return "Web" }
func (Feature) Description() string { return "Hosts an HTTP application that modules install into" }

func (Feature) ConfigSections() []string { return []string{Section} }

// Install declares the web components.
func (Feature) Install(env *di.Environment) error {
	if err := services.Use(env); err != nil {
		return err
	}
	if err := installer.Use[*Application](env, di.ID[*Application]()); err != nil {
		return err
	}
	return di.Provide(env, func(ctx context.Context, s *di.Scope) (*Application, error) {
		settings := DefaultSettings()
		if err := feature.DecodeSection(ctx, s, Section, &settings); err != nil {
			return nil, err
		}
		return NewApplication(settings)
	})
}
