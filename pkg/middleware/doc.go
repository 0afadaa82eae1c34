// Package middleware provides Prometheus metrics and OpenTelemetry tracing
// for nested registries and the HTTP surface that serves them.
//
// # Prometheus Metrics
//
// Metrics implements nested.Observer, so one value both counts registry
// operations and times HTTP requests:
//
//	m := middleware.NewMetrics(middleware.WithNamespace("menus"))
//	reg := nested.New(nested.WithObserver(m))
//	reg.Subscribe(m.ObserveChange)
//
//	r := chi.NewRouter()
//	r.Use(m.Instrument)
//	r.Handle("/metrics", m.Handler())
//
// Request durations are labelled with the chi route pattern rather than the
// raw path.
//
// # OpenTelemetry
//
// OpenTelemetry opens a server span per request and stores it in the
// request context:
//
//	r.Use(middleware.OpenTelemetry(middleware.WithTracerName("menus")))
//
// Handlers reach the span with SpanFromContext(r.Context()).
package middleware
