package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func remoteParent(t *testing.T) (context.Context, trace.SpanContext) {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	if err != nil {
		t.Fatal(err)
	}
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	if err != nil {
		t.Fatal(err)
	}
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	return trace.ContextWithRemoteSpanContext(context.Background(), sc), sc
}

func TestOpenTelemetryPropagatesSpan(t *testing.T) {
	parentCtx, parent := remoteParent(t)

	var seen trace.Span
	extracted := false
	router := chi.NewRouter()
	router.Use(OpenTelemetry(
		WithTracerName("test"),
		WithAttributeExtractor(func(*http.Request) []attribute.KeyValue {
			extracted = true
			return nil
		}),
	))
	router.Get("/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		seen = SpanFromContext(r.Context())
		w.WriteHeader(http.StatusInternalServerError)
	})

	req := httptest.NewRequest(http.MethodGet, "/sessions/abc", nil).WithContext(parentCtx)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if seen == nil {
		t.Fatal("SpanFromContext returned nil inside the handler")
	}
	if seen.SpanContext().TraceID() != parent.TraceID() {
		t.Errorf("trace id = %s, want %s", seen.SpanContext().TraceID(), parent.TraceID())
	}
	if !extracted {
		t.Error("attribute extractor was not called")
	}
}

func TestOpenTelemetryFilterSkips(t *testing.T) {
	called := false
	mw := OpenTelemetry(WithRequestFilter(func(r *http.Request) bool {
		return r.URL.Path != "/health"
	}))
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if SpanFromContext(r.Context()) != nil {
			t.Error("filtered request carries a span")
		}
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	if !called {
		t.Error("filtered request did not reach the handler")
	}
}

func TestSpanFromContextEmpty(t *testing.T) {
	if span := SpanFromContext(context.Background()); span != nil {
		t.Errorf("SpanFromContext(background) = %v, want nil", span)
	}
}
