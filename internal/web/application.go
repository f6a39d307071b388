// Package web hosts the HTTP application that modules install into.
package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/specialistvlad/gridkit/internal/ctxlog"
)

// Application is an HTTP server with a gorilla/mux router. Routes are added
// by modules before Start; it serves until Stop.
type Application struct {
	settings Settings
	timeout  time.Duration
	router   *mux.Router

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

// NewApplication validates s and returns an Application that is not yet
// listening.
func NewApplication(s Settings) (*Application, error) {
	if s.Address == "" {
		s.Address = DefaultSettings().Address
	}
	timeout, err := s.Timeout()
	if err != nil {
		return nil, err
	}
	return &Application{settings: s, timeout: timeout, router: mux.NewRouter()}, nil
}

// Router returns the router modules register their routes on.
func (a *Application) Router() *mux.Router { return a.router }

// Settings returns the settings the Application was created with.
func (a *Application) Settings() Settings { return a.settings }

// ServeHTTP dispatches to the router.
func (a *Application) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Addr returns the address the server listens on, or "" before Start. With
// a ":0" address this is where the chosen port can be read.
func (a *Application) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Start binds the address and serves in the background. Binding errors are
// returned; errors while serving are logged.
func (a *Application) Start(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		return errors.New("web application is already running")
	}

	ln, err := net.Listen("tcp", a.settings.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.settings.Address, err)
	}

	server := &http.Server{
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctxlog.WithLogger(context.Background(), logger) },
	}
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Web server failed unexpectedly.", "error", err)
		}
	}()

	a.server, a.listener, a.done = server, ln, done
	logger.Info("Web server listening.", "address", ln.Addr().String())
	return nil
}

// Stop shuts the server down gracefully, waiting at most the configured
// shutdown timeout for in-flight requests.
func (a *Application) Stop(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	a.mu.Lock()
	server, done := a.server, a.done
	a.server, a.listener, a.done = nil, nil, nil
	a.mu.Unlock()

	if server == nil {
		logger.Debug("Web server was not running.")
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	logger.Debug("Shutting down web server.", "timeout", a.timeout)
	if err := server.Shutdown(shutdownCtx); err != nil {
		_ = server.Close()
		<-done
		return fmt.Errorf("web server shutdown: %w", err)
	}
	<-done
	logger.Info("Web server stopped.")
	return nil
}
