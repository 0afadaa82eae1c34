package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vango-dev/nested/internal/adapters/redis"
	"github.com/vango-dev/nested/internal/config"
	"github.com/vango-dev/nested/internal/logging"
	"github.com/vango-dev/nested/internal/server"
	"github.com/vango-dev/nested/pkg/middleware"
)

// serveFlags are command-line overrides for nested.json.
type serveFlags struct {
	dir      string
	host     string
	port     int
	logLevel string
	redis    string
}

func serveCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve nested registries over HTTP and WebSocket",
		Long: `Start the session server.

Settings come from nested.json in the config directory or one of its
parents; flags override them.

Examples:
  nestedctl serve
  nestedctl serve --config ./deploy --port 8080
  nestedctl serve --redis localhost:6379`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServeConfig(flags)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, cmd.OutOrStdout(), os.Stderr)
		},
	}

	cmd.Flags().StringVarP(&flags.dir, "config", "c", ".", "Directory holding nested.json")
	cmd.Flags().StringVarP(&flags.host, "host", "H", "", "Host to bind to (default from nested.json)")
	cmd.Flags().IntVarP(&flags.port, "port", "p", 0, "Port to listen on (default from nested.json)")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.Flags().StringVar(&flags.redis, "redis", "", "Redis address for change fan-out")

	return cmd
}

func loadServeConfig(flags serveFlags) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(flags.dir)
	if err != nil {
		return nil, err
	}

	if flags.host != "" {
		cfg.Server.Host = flags.host
	}
	if flags.port > 0 {
		cfg.Server.Port = flags.port
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.redis != "" {
		cfg.Redis.Addr = flags.redis
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildServer wires the configured logger, metrics, tracing and Redis
// fan-out into a server. The returned cleanup releases the Redis client.
func buildServer(cfg *config.Config, logOut io.Writer, reg prometheus.Registerer) (*server.Server, func(), error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(level, cfg.Log.Format, logOut)

	ttl, err := cfg.SessionTTLDuration()
	if err != nil {
		return nil, nil, err
	}
	open, err := cfg.OpenStrategy()
	if err != nil {
		return nil, nil, err
	}
	sel, err := cfg.SelectStrategy()
	if err != nil {
		return nil, nil, err
	}

	opts := server.Options{
		Addr:           cfg.Address(),
		SessionTTL:     ttl,
		OpenStrategy:   open,
		SelectStrategy: sel,
		TracerName:     cfg.Tracing.TracerName,
		Logger:         logger,
	}
	if cfg.MetricsEnabled() {
		mopts := []middleware.MetricsOption{middleware.WithNamespace(cfg.Metrics.Namespace)}
		if reg != nil {
			mopts = append(mopts, middleware.WithRegistry(reg))
		}
		opts.Metrics = middleware.NewMetrics(mopts...)
	}

	cleanup := func() {}
	if cfg.Redis.Addr != "" {
		pub := redis.New(cfg.Redis.Addr, "", 0,
			redis.WithChannel(cfg.Redis.Channel),
			redis.WithLogger(logger.With("component", "redis")),
		)
		opts.OnSession = func(s *server.Session) {
			s.OnClose(pub.Attach(s.ID, s.Registry))
		}
		cleanup = func() {
			if err := pub.Close(); err != nil {
				logger.Warn("closing redis client", "error", err)
			}
		}
		logger.Info("publishing changes", "redis", cfg.Redis.Addr, "channel", pub.Channel())
	}

	return server.New(opts), cleanup, nil
}

func runServe(ctx context.Context, cfg *config.Config, out, logOut io.Writer) error {
	srv, cleanup, err := buildServer(cfg, logOut, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Fprintf(out, "nestedctl serving on http://%s\n", cfg.Address())
	return srv.Run(ctx)
}
