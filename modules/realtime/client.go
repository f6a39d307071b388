package realtime

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/gridkit/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultTimeout bounds a Request whose options carry no timeout.
const DefaultTimeout = 10 * time.Second

// DefaultNamespace is the namespace a Request joins when none is given.
const DefaultNamespace = "/"

// RequestOptions describe a single emit and the event awaited in reply.
type RequestOptions struct {
	URL string
	// Namespace defaults to DefaultNamespace.
	Namespace          string
	EmitEvent          string
	EmitData           []any
	OnEvent            string
	Timeout            time.Duration
	InsecureSkipVerify bool
	// Polling forces the long-polling transport instead of websocket.
	Polling bool
}

type result struct {
	data []any
	err  error
}

// Request connects to the socket.io server at opts.URL, emits
// opts.EmitEvent once connected and returns the arguments of the first
// opts.OnEvent received. The connection is closed before returning.
func Request(ctx context.Context, opts RequestOptions) ([]any, error) {
	logger := ctxlog.FromContext(ctx).With("url", opts.URL, "emit", opts.EmitEvent, "on", opts.OnEvent)

	if opts.EmitEvent == "" || opts.OnEvent == "" {
		return nil, errors.New("both the event to emit and the event to await are required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	namespace := opts.Namespace
	if namespace == "" {
		namespace = DefaultNamespace
	}

	parsed, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("URL '%s' must be absolute", opts.URL)
	}

	clientOpts := socket.DefaultOptions()
	if parsed.Path != "" && parsed.Path != "/" {
		clientOpts.SetPath(parsed.Path)
	}
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		clientOpts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	if opts.Polling {
		clientOpts.SetTransports(types.NewSet(transports.Polling))
	} else {
		clientOpts.SetTransports(types.NewSet(transports.WebSocket))
	}

	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var connected atomic.Bool
	done := make(chan result, 1)
	deliver := func(r result) {
		select {
		case done <- r:
		default:
		}
	}

	baseURL := fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
	manager := socket.NewManager(baseURL, clientOpts)
	io := manager.Socket(namespace, clientOpts)
	defer func() {
		logger.Debug("Disconnecting socket client")
		io.Disconnect()
	}()

	io.On(types.EventName(opts.OnEvent), func(data ...any) {
		deliver(result{data: data})
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connection failed")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		deliver(result{err: fmt.Errorf("socket.io connection failed: %w", err)})
	})
	io.Once(types.EventName("connect"), func(...any) {
		connected.Store(true)
		logger.Debug("Connected", "sid", io.Id())
		io.Emit(opts.EmitEvent, opts.EmitData...)
	})

	io.Connect()

	select {
	case <-opCtx.Done():
		if connected.Load() {
			return nil, fmt.Errorf("timed out after %v waiting for event '%s'", timeout, opts.OnEvent)
		}
		return nil, fmt.Errorf("timed out after %v waiting for connection", timeout)
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		logger.Info("Received response event", "args", len(res.data))
		return res.data, nil
	}
}
