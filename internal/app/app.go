package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/specialistvlad/gridkit/internal/config"
	"github.com/specialistvlad/gridkit/internal/ctxlog"
	"github.com/specialistvlad/gridkit/internal/di"
	"github.com/specialistvlad/gridkit/internal/feature"
	"github.com/specialistvlad/gridkit/internal/logging"
	"github.com/specialistvlad/gridkit/internal/services"
)

// App encapsulates the application's environment, configuration, and
// lifecycle.
type App struct {
	config   *Config
	loader   config.Loader
	logging  *logging.Logging
	logger   *slog.Logger
	features *feature.Set
	env      *di.Environment

	mu       sync.Mutex
	built    bool
	overlays []overlay
	manager  *services.Manager

	rootMu sync.RWMutex
	root   *config.Root
}

type overlay struct {
	section string
	fn      func(any) error
}

// New creates an App logging to outW. The logging feature is always
// installed; further features are added with Use. loader may be nil when
// cfg names no configuration paths.
func New(outW io.Writer, cfg *Config, loader config.Loader, features ...feature.Feature) (*App, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	l, err := logging.New(cfg.LogLevel, cfg.LogFormat, outW)
	if err != nil {
		return nil, err
	}

	a := &App{
		config:   cfg,
		loader:   loader,
		logging:  l,
		logger:   l.Logger(),
		features: feature.NewSet(),
		env:      di.New(),
	}
	a.logger.Debug("Logger configured successfully.")

	if err := a.Use(logging.NewFeature(l)); err != nil {
		return nil, err
	}
	if err := a.Use(features...); err != nil {
		return nil, err
	}
	return a, nil
}

// Use adds features. It fails once the App has started.
func (a *App) Use(features ...feature.Feature) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.built {
		return errors.New("features cannot be added after the app has started")
	}
	for _, f := range features {
		if err := a.features.Add(f); err != nil {
			return fmt.Errorf("add feature: %w", err)
		}
	}
	return nil
}

// Override registers fn to adjust the named configuration section after it
// is decoded. Overrides take precedence over configuration files.
func (a *App) Override(section string, fn func(target any) error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.overlays = append(a.overlays, overlay{section: section, fn: fn})
}

// Environment returns the application's injection environment.
func (a *App) Environment() *di.Environment { return a.env }

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Context returns ctx carrying the application logger.
func (a *App) Context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

// Start installs the features, loads configuration, builds the environment,
// runs the configuration hooks and starts every service. Calling Start again
// after Stop restarts the services without rebuilding anything, unless a
// feature installs modules into a host: modules are installed once per
// environment, so that restart fails with an
// *installer.DuplicateInstallationError.
func (a *App) Start(ctx context.Context) error {
	ctx = a.Context(ctx)
	logger := ctxlog.FromContext(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.built {
		if err := a.build(ctx); err != nil {
			return err
		}
		a.built = true
	}

	logger.Debug("Starting services.")
	if err := a.manager.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start services: %w", err)
	}
	logger.Info("Application started.", "services", len(a.manager.Started()))
	return nil
}

func (a *App) build(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	if err := services.Use(a.env); err != nil {
		return err
	}
	if err := a.features.InstallAll(a.env); err != nil {
		return fmt.Errorf("failed to install features: %w", err)
	}
	logger.Debug("Features installed.", "count", len(a.features.All()))

	root, err := a.loadConfig(ctx)
	if err != nil {
		return err
	}
	if err := di.ProvideValue(a.env, root); err != nil {
		return err
	}
	if a.config.WatchConfig && len(a.config.ConfigPaths) > 0 {
		if err := di.ProvideValue(a.env, a.newWatcher()); err != nil {
			return err
		}
	}

	if err := a.env.Build(ctx); err != nil {
		return fmt.Errorf("failed to build environment: %w", err)
	}
	logger.Debug("Environment built.", "declarations", len(a.env.Declarations()), "env_id", a.env.ID())

	if err := a.features.ConfigurationLoaded(ctx, root); err != nil {
		return fmt.Errorf("configuration hook failed: %w", err)
	}

	manager, err := services.FromEnvironment(ctx, a.env)
	if err != nil {
		return err
	}
	a.setRoot(root)
	a.manager = manager
	return nil
}

// extensionLister is implemented by loaders that know which files they read.
type extensionLister interface {
	Extensions() []string
}

func (a *App) newWatcher() *config.Watcher {
	var exts []string
	if l, ok := a.loader.(extensionLister); ok {
		exts = l.Extensions()
	}
	return config.NewWatcher(a.config.ConfigPaths, exts, config.DefaultDebounce, a.reload)
}

// reload reads the configuration again and runs the configuration hooks
// with it. Components that are already built keep the settings they were
// built with.
func (a *App) reload(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	root, err := a.loadConfig(ctx)
	if err != nil {
		return err
	}
	if err := a.features.ConfigurationLoaded(ctx, root); err != nil {
		return fmt.Errorf("configuration hook failed: %w", err)
	}
	a.setRoot(root)
	logger.Info("Configuration reloaded.", "sections", root.Names())
	return nil
}

func (a *App) setRoot(root *config.Root) {
	a.rootMu.Lock()
	defer a.rootMu.Unlock()
	a.root = root
}

func (a *App) loadConfig(ctx context.Context) (*config.Root, error) {
	logger := ctxlog.FromContext(ctx)

	root := config.NewRoot()
	if len(a.config.ConfigPaths) > 0 {
		if a.loader == nil {
			return nil, errors.New("configuration paths given but no loader configured")
		}
		loaded, err := a.loader.Load(ctx, a.config.ConfigPaths...)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		root.Merge(loaded)
		logger.Debug("Configuration loaded.", "sections", root.Names())
	}

	known := make(map[string]bool)
	for _, name := range a.features.Sections() {
		known[name] = true
	}
	for _, name := range root.Names() {
		if !known[name] {
			logger.Warn("Configuration section is not used by any feature.", "section", name)
		}
	}

	for _, o := range a.overlays {
		root.Overlay(o.section, o.fn)
	}
	return root, nil
}

// Stop stops every running service in reverse start order.
func (a *App) Stop(ctx context.Context) error {
	ctx = a.Context(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.manager == nil {
		return nil
	}
	if err := a.manager.StopAll(ctx); err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Info("Application stopped.")
	return nil
}

// Run starts the App, blocks until ctx is cancelled, then stops it. The stop
// phase gets a fresh context so that shutdown hooks are not cut short by
// the cancellation that triggered them.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		// Whatever did start was already rolled back by the manager.
		return err
	}
	<-ctx.Done()
	a.logger.Info("Shutdown requested.", "reason", context.Cause(ctx))
	return a.Stop(context.WithoutCancel(ctx))
}

// Config returns the most recently loaded configuration, or nil before
// Start.
func (a *App) Config() *config.Root {
	a.rootMu.RLock()
	defer a.rootMu.RUnlock()
	return a.root
}
