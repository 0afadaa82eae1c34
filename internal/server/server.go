package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/vango-dev/nested/internal/logging"
	"github.com/vango-dev/nested/pkg/middleware"
	"github.com/vango-dev/nested/pkg/nested"
)

// Options configures a Server.
type Options struct {
	// Addr is the listen address for Run.
	Addr string

	// SessionTTL is the idle timeout. Zero disables expiry.
	SessionTTL time.Duration

	// OpenStrategy and SelectStrategy apply to sessions whose definition
	// names none.
	OpenStrategy   nested.OpenStrategy
	SelectStrategy nested.SelectStrategy

	// Metrics enables /metrics and request instrumentation when set.
	Metrics *middleware.Metrics

	// TracerName enables OpenTelemetry spans when set.
	TracerName string

	// OnSession runs for every new session.
	OnSession func(*Session)

	Logger *slog.Logger
}

// Server exposes sessions of nested registries over HTTP and WebSocket.
type Server struct {
	opts     Options
	logger   *slog.Logger
	sessions *Manager
	router   chi.Router
}

// New creates a server and its routes.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		opts:   opts,
		logger: logger,
		sessions: NewManager(ManagerOptions{
			OpenStrategy:   opts.OpenStrategy,
			SelectStrategy: opts.SelectStrategy,
			TTL:            opts.SessionTTL,
			Metrics:        opts.Metrics,
			OnCreate:       opts.OnSession,
			Logger:         logger,
		}),
	}
	s.router = s.routes()
	return s
}

// Sessions returns the session manager.
func (s *Server) Sessions() *Manager {
	return s.sessions
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(s.logRequests)
	if s.opts.Metrics != nil {
		r.Use(s.opts.Metrics.Instrument)
	}
	if s.opts.TracerName != "" {
		r.Use(middleware.OpenTelemetry(middleware.WithTracerName(s.opts.TracerName)))
	}

	r.Get("/health", s.handleHealth)
	if s.opts.Metrics != nil {
		r.Handle("/metrics", s.opts.Metrics.Handler())
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.handleListSessions)
		r.Post("/", s.handleCreateSession)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)

			r.Post("/nodes", s.handleRegister)
			r.Delete("/nodes/{node}", s.handleUnregister)

			r.Post("/open", s.handleOpen)
			r.Post("/select", s.handleSelect)

			r.Put("/opened", s.handleSetOpened)
			r.Put("/selected", s.handleSetSelected)
			r.Put("/strategy", s.handleSetStrategy)

			r.Get("/ws", s.handleStream)
		})
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

// Run listens on Options.Addr and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully and
// closes every session. The idle reaper runs while serving.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	reapCtx, stopReaper := context.WithCancel(ctx)
	defer stopReaper()
	go s.reap(reapCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.sessions.CloseAll()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.sessions.CloseAll()
	err := srv.Shutdown(shutdownCtx)
	if err == nil {
		<-errCh
	}
	s.logger.Info("server stopped")
	return err
}

func (s *Server) reap(ctx context.Context) {
	if s.opts.SessionTTL <= 0 {
		return
	}
	interval := s.opts.SessionTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.Reap(); n > 0 {
				s.logger.Info("reaped idle sessions", "count", n)
			}
		}
	}
}
