package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/nested/internal/treefile"
	"github.com/vango-dev/nested/pkg/nested"
)

func inspectCmd() *cobra.Command {
	var run bool

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print a tree with its open and selection state",
		Long: `Print the forest declared in a tree file.

Groups are marked ▾ when open and ▸ when closed. Selection is shown as
[x] on, [-] indeterminate and [ ] off. The state is the file's initial
opened and selected lists, or the state after its steps with --run.

Examples:
  nestedctl inspect menu.yaml
  nestedctl inspect menu.yaml --run`,
		Args: requireFile("inspect <file>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := treefile.Load(args[0])
			if err != nil {
				return err
			}
			reg, _, err := def.Build()
			if err != nil {
				return err
			}
			removed := make(map[string]bool)
			if run {
				trace, err := def.Run(reg)
				if err != nil {
					return err
				}
				for _, e := range trace {
					if e.Action == treefile.ActionUnregister {
						removed[e.ID] = true
					}
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s\n\n", args[0], def)
			renderTree(out, def, reg, removed)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&run, "run", "r", false, "Apply the file's steps first")

	return cmd
}

// renderTree writes one line per node in definition order. Removed nodes are
// skipped along with their subtrees.
func renderTree(w io.Writer, def *treefile.Definition, reg *nested.Registry, removed map[string]bool) {
	gone := make(map[string]bool)
	def.Walk(func(n treefile.Node, parent string, depth int) {
		if gone[parent] || removed[n.ID] {
			gone[n.ID] = true
			return
		}

		marker := " "
		if n.IsGroup() {
			marker = "▸"
			if reg.IsOpen(n.ID) {
				marker = "▾"
			}
		}
		fmt.Fprintf(w, "%s%s %s %s\n", strings.Repeat("  ", depth), marker, checkbox(reg.State(n.ID)), n.ID)
	})
}

func checkbox(st nested.State) string {
	switch st {
	case nested.On:
		return "[x]"
	case nested.Indeterminate:
		return "[-]"
	default:
		return "[ ]"
	}
}
