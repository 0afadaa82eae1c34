package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vango-dev/nested/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var noColor bool

	rootCmd := &cobra.Command{
		Use:   "nestedctl",
		Short: "Inspect, script and serve nested selection trees",
		Long: `nestedctl works with nested trees of items and groups.

A tree file (YAML or JSON) declares the forest, the strategies and an
optional script of open and select steps:

  • inspect prints the forest with open and selection markers
  • apply runs the script and prints the resulting lists
  • serve exposes registries over HTTP and WebSocket
  • follow mirrors a served session from Redis`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor || !isTerminal(os.Stderr) {
				errors.DisableColors()
			}
		},
	}

	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		inspectCmd(),
		applyCmd(),
		serveCmd(),
		followCmd(),
		versionCmd(),
	)
	return rootCmd
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// requireFile returns a cobra.Args that asks for exactly one tree file.
func requireFile(use string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		switch len(args) {
		case 1:
			return nil
		case 0:
			return errors.New("N400").
				WithDetail("no tree file given").
				WithSuggestion("Usage: nestedctl " + use)
		default:
			return errors.New("N400").
				WithDetailf("expected one tree file, got %d arguments", len(args)).
				WithSuggestion("Usage: nestedctl " + use)
		}
	}
}

// info prints an indented line.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}
