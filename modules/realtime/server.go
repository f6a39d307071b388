// Package realtime hosts a socket.io endpoint on the web application and
// provides a small client for talking to one.
package realtime

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/specialistvlad/gridkit/internal/ctxlog"
	"github.com/specialistvlad/gridkit/internal/web"
	"github.com/zishang520/socket.io/v2/socket"
)

// Priority installs the socket.io handler after the default modules.
const Priority = 10

// Events the server answers on every connection.
const (
	EventPing = "ping"
	EventPong = "pong"
)

// Server is a socket.io server mounted on the web application. It is both a
// module of the application and a service, so it is closed when the
// application stops.
type Server struct {
	path      string
	io        *socket.Server
	connected atomic.Int64
	started   atomic.Bool
}

// NewServer returns a Server for path. Each connection gets a ping handler
// that answers with a pong carrying the same arguments.
func NewServer(path string) *Server {
	if path == "" {
		path = DefaultSettings().Path
	}
	s := &Server{path: path, io: socket.NewServer(nil, nil)}
	s.io.On("connection", func(clients ...any) {
		client, ok := clients[0].(*socket.Socket)
		if !ok {
			return
		}
		s.connected.Add(1)
		client.On(EventPing, func(args ...any) {
			client.Emit(EventPong, args...)
		})
		client.On("disconnect", func(...any) {
			s.connected.Add(-1)
		})
	})
	return s
}

// Path returns the prefix the handler is mounted on.
func (s *Server) Path() string { return s.path }

// Connected returns the number of open connections.
func (s *Server) Connected() int { return int(s.connected.Load()) }

// Broadcast emits event to every connected client.
func (s *Server) Broadcast(event string, args ...any) {
	s.io.Emit(event, args...)
}

// Handler returns the HTTP handler serving the socket.io protocol.
func (s *Server) Handler() http.Handler {
	return s.io.ServeHandler(nil)
}

func (s *Server) InstallPriority() int { return Priority }

// Install mounts the handler under the configured path.
func (s *Server) Install(app *web.Application) error {
	app.Router().PathPrefix(s.path).Handler(s.Handler())
	return nil
}

// Start only records that the server is accepting connections; the web
// application does the listening.
func (s *Server) Start(ctx context.Context) error {
	s.started.Store(true)
	ctxlog.FromContext(ctx).Info("Socket.io endpoint ready.", "path", s.path)
	return nil
}

// Stop disconnects every client and closes the server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.started.Swap(false) {
		return nil
	}
	s.io.Close(nil)
	ctxlog.FromContext(ctx).Info("Socket.io endpoint closed.")
	return nil
}
