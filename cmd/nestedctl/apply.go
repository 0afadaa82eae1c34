package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/nested/internal/errors"
	"github.com/vango-dev/nested/internal/treefile"
	"github.com/vango-dev/nested/pkg/nested"
)

// applyResult is the --json output of apply.
type applyResult struct {
	Opened   []string                `json:"opened"`
	Values   []string                `json:"values"`
	Selected map[string]nested.State `json:"selected"`
	Trace    treefile.Trace          `json:"trace"`
}

func applyCmd() *cobra.Command {
	var (
		opens    []string
		closes   []string
		selects  []string
		deselect []string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "apply <file>",
		Short: "Run a tree file's steps and print the resulting state",
		Long: `Build the registry declared in a tree file, run its steps, then the
steps given as flags, and print the open list and the selection list.

Flag steps run after the file's steps in the order open, close, select,
deselect. Every flag may be repeated.

Examples:
  nestedctl apply menu.yaml
  nestedctl apply menu.yaml --select apple --open fruits
  nestedctl apply menu.yaml --json`,
		Args: requireFile("apply <file>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := treefile.Load(args[0])
			if err != nil {
				return err
			}

			steps := append([]treefile.Step(nil), def.Steps...)
			for _, group := range []struct {
				ids  []string
				step func(id string) treefile.Step
			}{
				{opens, func(id string) treefile.Step { return treefile.Step{Open: id} }},
				{closes, func(id string) treefile.Step { return treefile.Step{Close: id} }},
				{selects, func(id string) treefile.Step { return treefile.Step{Select: id} }},
				{deselect, func(id string) treefile.Step { return treefile.Step{Deselect: id} }},
			} {
				for _, id := range group.ids {
					if !def.Has(id) {
						return errors.New("N203").
							WithDetailf("node %q is not defined in %s", id, args[0]).
							WithSuggestion(errors.SuggestName(id, def.IDs()))
					}
					steps = append(steps, group.step(id))
				}
			}

			reg, _, err := def.Build()
			if err != nil {
				return err
			}
			trace, err := treefile.RunSteps(reg, steps)
			if err != nil {
				return errors.New("N204").Wrap(err)
			}

			snap := reg.Snapshot()
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(applyResult{
					Opened:   snap.Opened,
					Values:   snap.Values,
					Selected: snap.Selected,
					Trace:    trace,
				})
			}

			fmt.Fprintf(out, "%s: %d steps\n", args[0], len(trace))
			info(out, "opened:   %s", list(snap.Opened))
			info(out, "selected: %s", list(snap.Values))
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&opens, "open", nil, "Open a group after the file's steps")
	cmd.Flags().StringArrayVar(&closes, "close", nil, "Close a group after the file's steps")
	cmd.Flags().StringArrayVar(&selects, "select", nil, "Select a node after the file's steps")
	cmd.Flags().StringArrayVar(&deselect, "deselect", nil, "Deselect a node after the file's steps")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the state and step trace as JSON")

	return cmd
}

func list(ids []string) string {
	if len(ids) == 0 {
		return "(none)"
	}
	return strings.Join(ids, ", ")
}
