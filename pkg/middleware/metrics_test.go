package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/vango-dev/nested/pkg/nested"
)

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func metricGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	return m.GetGauge().GetValue()
}

func metricHistogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	if m.Histogram == nil {
		t.Fatal("expected histogram metric to have Histogram field")
	}
	return m.GetHistogram().GetSampleCount()
}

func TestMetricsObservesRegistry(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))

	r := nested.New(nested.WithObserver(m))
	r.Subscribe(m.ObserveChange)

	r.Register("g", "", true)
	r.Register("g", "", true)
	r.Register("a", "g", false)
	r.Select("a", true, nil)
	r.Open("g", true, nil)

	if got := metricCounterValue(t, m.operations.WithLabelValues("register", "true")); got != 2 {
		t.Errorf("operations_total(register,true) = %v, want 2", got)
	}
	if got := metricCounterValue(t, m.operations.WithLabelValues("register", "false")); got != 1 {
		t.Errorf("operations_total(register,false) = %v, want 1", got)
	}
	if got := metricCounterValue(t, m.operations.WithLabelValues("select", "true")); got != 1 {
		t.Errorf("operations_total(select,true) = %v, want 1", got)
	}
	if got := metricCounterValue(t, m.notifications.WithLabelValues("selected")); got != 1 {
		t.Errorf("notifications_total(selected) = %v, want 1", got)
	}
	if got := metricCounterValue(t, m.notifications.WithLabelValues("opened")); got != 1 {
		t.Errorf("notifications_total(opened) = %v, want 1", got)
	}
}

func TestMetricsSessions(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))

	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	if got := metricGaugeValue(t, m.sessionsActive); got != 1 {
		t.Errorf("sessions_active = %v, want 1", got)
	}
}

func TestInstrumentUsesRoutePattern(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))

	router := chi.NewRouter()
	router.Use(m.Instrument)
	router.Get("/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/sessions/a", "/sessions/b", "/health"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := metricHistogramCount(t, m.httpDuration.WithLabelValues("/sessions/{id}", "404")); got != 2 {
		t.Errorf("duration count(/sessions/{id},404) = %d, want 2", got)
	}
	if got := metricHistogramCount(t, m.httpDuration.WithLabelValues("/health", "200")); got != 1 {
		t.Errorf("duration count(/health,200) = %d, want 1", got)
	}
}

func TestHandlerServesCustomRegistry(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()), WithNamespace("tree"))
	m.SessionOpened()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "tree_sessions_active 1") {
		t.Errorf("metrics output missing gauge:\n%s", body)
	}
}

func TestConstLabelsAndSubsystem(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(
		WithRegistry(reg),
		WithSubsystem("api"),
		WithConstLabels(prometheus.Labels{"region": "eu"}),
		WithBuckets([]float64{0.1, 1}),
	)
	m.SessionOpened()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "nested_api_sessions_active" {
			found = true
			if got := f.GetMetric()[0].GetLabel()[0].GetValue(); got != "eu" {
				t.Errorf("region label = %q, want eu", got)
			}
		}
	}
	if !found {
		t.Error("nested_api_sessions_active not gathered")
	}
}
