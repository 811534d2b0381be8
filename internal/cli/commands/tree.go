package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tracelight-labs/tracelight/internal/dag"
	"github.com/tracelight-labs/tracelight/internal/engine"
)

// NewTreeCommand creates the tree command.
func NewTreeCommand() *cobra.Command {
	var depth int

	cmd := &cobra.Command{
		Use:   "tree <schema.table>",
		Short: "Show the full upstream lineage tree of a table",
		Long: `Expand the transitive upstream lineage of a table. Expansion is
cycle-safe and capped by --depth; truncated and cyclic branches are
marked instead of expanded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, cleanup, err := openSession(cmd, true)
			if err != nil {
				return err
			}
			defer cleanup()

			tree, err := sess.Engine.LineageTree(cmd.Context(), args[0], depth)
			if err != nil {
				return err
			}

			if sess.Cfg.OutputFormat == "json" {
				return renderJSON(cmd.OutOrStdout(), map[string]any{tree.Name: treeJSON(tree)})
			}

			printTree(cmd.OutOrStdout(), tree)
			return nil
		},
	}

	cmd.Flags().IntVar(&depth, "depth", engine.DefaultTreeDepth, "Maximum expansion depth")

	return cmd
}

// treeJSON mirrors the stored tree shape: source leaves, truncated nodes,
// and cycle cuts are marked with sentinel keys instead of child maps.
func treeJSON(n *dag.TreeNode) any {
	switch {
	case n.Cycle:
		return map[string]any{"_cycle": true}
	case n.Truncated:
		return map[string]any{"_truncated": true}
	case len(n.Children) == 0:
		return map[string]any{"_is_source": true}
	}

	m := make(map[string]any, len(n.Children))
	for _, child := range n.Children {
		m[child.Name] = treeJSON(child)
	}
	return m
}

func printTree(w io.Writer, root *dag.TreeNode) {
	fmt.Fprintln(w, treeLabel(root))
	printChildren(w, root, "")
}

func printChildren(w io.Writer, n *dag.TreeNode, prefix string) {
	for i, child := range n.Children {
		connector, childPrefix := "├── ", prefix+"│   "
		if i == len(n.Children)-1 {
			connector, childPrefix = "└── ", prefix+"    "
		}
		fmt.Fprintf(w, "%s%s%s\n", prefix, connector, treeLabel(child))
		printChildren(w, child, childPrefix)
	}
}

func treeLabel(n *dag.TreeNode) string {
	switch {
	case n.Cycle:
		return n.Name + " (cycle)"
	case n.Truncated:
		return n.Name + " (depth capped)"
	case len(n.Children) == 0:
		return n.Name + " (source)"
	}
	return n.Name
}
