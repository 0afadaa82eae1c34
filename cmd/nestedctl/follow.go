package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/nested/internal/adapters/redis"
	"github.com/vango-dev/nested/internal/config"
	"github.com/vango-dev/nested/internal/errors"
	"github.com/vango-dev/nested/internal/treefile"
	"github.com/vango-dev/nested/pkg/nested"
)

// mirrorPrinter prints the tree whenever a mirrored change lands. It stays
// quiet until reg is set, so the initial state applied by Build is skipped.
type mirrorPrinter struct {
	w   io.Writer
	def *treefile.Definition
	reg *nested.Registry
}

func (p *mirrorPrinter) ObserveOp(op nested.Op, _ string, _ bool) {
	if p.reg == nil || (op != nested.OpSetOpened && op != nested.OpSetSelected) {
		return
	}
	fmt.Fprintf(p.w, "-- %s\n", op)
	renderTree(p.w, p.def, p.reg, nil)
}

func followCmd() *cobra.Command {
	var (
		session string
		dir     string
		addr    string
		channel string
	)

	cmd := &cobra.Command{
		Use:   "follow <file>",
		Short: "Mirror a served session from Redis",
		Long: `Build the tree declared in a file and mirror the open and selection
changes a server publishes for one session. The tree is printed after
every change. The Redis address and channel default to nested.json.

Examples:
  nestedctl follow menu.yaml --session 0b6f...
  nestedctl follow menu.yaml --session 0b6f... --redis localhost:6379`,
		Args: requireFile("follow <file> --session <id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if session == "" {
				return errors.New("N400").
					WithDetail("--session is required").
					WithSuggestion("List sessions with GET /sessions on the server")
			}
			cfg, err := config.LoadOrDefault(dir)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Redis.Addr
			}
			if channel == "" {
				channel = cfg.Redis.Channel
			}
			if addr == "" {
				return errors.New("N400").
					WithDetail("no Redis address").
					WithSuggestion("Pass --redis or set redis.addr in " + config.ConfigFileName)
			}

			def, err := treefile.Load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printer := &mirrorPrinter{w: out, def: def}
			reg, _, err := def.Build(nested.WithObserver(printer))
			if err != nil {
				return err
			}
			printer.reg = reg

			pub := redis.New(addr, "", 0, redis.WithChannel(channel))
			defer pub.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(out, "following session %s on %s\n", session, pub.Channel())
			renderTree(out, def, reg, nil)
			return redis.Follow(ctx, pub.Client(), pub.Channel(), session, reg)
		},
	}

	cmd.Flags().StringVar(&session, "session", "", "Session id to mirror")
	cmd.Flags().StringVarP(&dir, "config", "c", ".", "Directory holding nested.json")
	cmd.Flags().StringVar(&addr, "redis", "", "Redis address (default from nested.json)")
	cmd.Flags().StringVar(&channel, "channel", "", "Pub/sub channel (default from nested.json)")

	return cmd
}
