package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/nested/pkg/nested"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "nested").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "nested",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus collectors for registries and the HTTP
// surface. It implements nested.Observer.
type Metrics struct {
	operations     *prometheus.CounterVec
	sessionsActive prometheus.Gauge
	notifications  *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec

	registry prometheus.Registerer
}

// NewMetrics registers the collectors.
//
// Metrics collected:
//   - nested_operations_total: registry operations by op and changed
//   - nested_sessions_active: sessions currently held by the server
//   - nested_notifications_total: change notifications by kind
//   - nested_http_request_duration_seconds: request latency by route and status
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "operations_total",
			Help:        "Total number of registry operations",
			ConstLabels: config.ConstLabels,
		}, []string{"op", "changed"}),

		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "sessions_active",
			Help:        "Number of live sessions",
			ConstLabels: config.ConstLabels,
		}),

		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notifications_total",
			Help:        "Total number of change notifications delivered",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route", "status"}),

		registry: config.Registry,
	}
}

var _ nested.Observer = (*Metrics)(nil)

// ObserveOp implements nested.Observer.
func (m *Metrics) ObserveOp(op nested.Op, _ string, changed bool) {
	m.operations.WithLabelValues(string(op), strconv.FormatBool(changed)).Inc()
}

// ObserveChange counts a change notification. Pass it to
// Registry.Subscribe.
func (m *Metrics) ObserveChange(c nested.Change) {
	m.notifications.WithLabelValues(string(c.Kind)).Inc()
}

// SessionOpened increments the live session gauge.
func (m *Metrics) SessionOpened() {
	m.sessionsActive.Inc()
}

// SessionClosed decrements the live session gauge.
func (m *Metrics) SessionClosed() {
	m.sessionsActive.Dec()
}

// Handler exposes the metrics. A custom *prometheus.Registry is served
// directly; otherwise the default gatherer is used.
func (m *Metrics) Handler() http.Handler {
	if g, ok := m.registry.(prometheus.Gatherer); ok && m.registry != prometheus.DefaultRegisterer {
		return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}

// Instrument records the duration of every request, labelled with the chi
// route pattern and the response status.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpDuration.
			WithLabelValues(routePattern(r), strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}

// routePattern returns the matched chi pattern, keeping label cardinality
// bounded. Unmatched requests share one label.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
