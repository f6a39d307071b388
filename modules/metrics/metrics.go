// Package metrics exposes Prometheus metrics for the application: service
// lifecycle timings, the number of running services, and HTTP request
// statistics of the web application.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/specialistvlad/gridkit/internal/di"
)

// Metrics owns a Prometheus registry and the collectors recorded into it.
type Metrics struct {
	registry *prometheus.Registry

	serviceStart    *prometheus.HistogramVec
	serviceStop     *prometheus.HistogramVec
	serviceFailures *prometheus.CounterVec
	running         prometheus.Gauge

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
}

// New creates the collectors under namespace and registers them, together
// with the Go runtime and process collectors, in a fresh registry.
func New(namespace string) (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		serviceStart: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "service_start_seconds",
			Help:      "Time spent in service start hooks.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service"}),
		serviceStop: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "service_stop_seconds",
			Help:      "Time spent in service stop hooks.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service"}),
		serviceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "service_stop_failures_total",
			Help:      "Stop hooks that returned an error.",
		}, []string{"service"}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "services_running",
			Help:      "Services currently started.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests being served.",
		}),
	}

	toRegister := []prometheus.Collector{
		m.serviceStart, m.serviceStop, m.serviceFailures, m.running,
		m.requests, m.requestDuration, m.inFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ServiceStarted records a successful start hook.
func (m *Metrics) ServiceStarted(id di.Identifier, d time.Duration) {
	m.serviceStart.WithLabelValues(id.String()).Observe(d.Seconds())
	m.running.Inc()
}

// ServiceStopped records a stop hook. The service counts as no longer
// running even when the hook failed.
func (m *Metrics) ServiceStopped(id di.Identifier, d time.Duration, err error) {
	m.serviceStop.WithLabelValues(id.String()).Observe(d.Seconds())
	m.running.Dec()
	if err != nil {
		m.serviceFailures.WithLabelValues(id.String()).Inc()
	}
}

// Middleware records request count, latency and concurrency. Requests are
// labelled with the route template when the router matched one.
func (m *Metrics) Middleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.inFlight.Inc()
			defer m.inFlight.Dec()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			route := "unmatched"
			if current := mux.CurrentRoute(r); current != nil {
				if tpl, err := current.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			m.requests.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
			m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// responseWriter captures the status code written by the handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Hijack lets websocket upgrades pass through the middleware.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.written = true
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
