package realtime

import (
	"context"

	"github.com/specialistvlad/gridkit/internal/di"
	"github.com/specialistvlad/gridkit/internal/feature"
)

// Section is the configuration section read by the realtime feature.
const Section = "realtime"

// Settings configures the socket.io endpoint.
type Settings struct {
	Path string `hcl:"path,optional" yaml:"path"`
}

// DefaultSettings mounts the endpoint on the conventional socket.io path.
func DefaultSettings() Settings {
	return Settings{Path: "/socket.io/"}
}

// Feature declares the socket.io server.
type Feature struct{}

func (Feature) ID() string               { return "gridkit-realtime" }
func (Feature) Name() string             { return "Realtime" }
func (Feature) Description() string      { return "Serves socket.io connections on the web application" }
func (Feature) ConfigSections() []string { return []string{Section} }

// Install declares the server.
func (Feature) Install(env *di.Environment) error {
	return di.Provide(env, func(ctx context.Context, s *di.Scope) (*Server, error) {
		settings := DefaultSettings()
		if err := feature.DecodeSection(ctx, s, Section, &settings); err != nil {
			return nil, err
		}
		return NewServer(settings.Path), nil
	})
}
