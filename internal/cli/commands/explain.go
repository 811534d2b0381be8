package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tracelight-labs/tracelight/pkg/lineage"
)

// NewExplainCommand creates the explain command.
func NewExplainCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "explain <schema.table> [column]",
		Short: "Explain where a column's value comes from",
		Long: `Look up the recorded lineage for a column. Direct copies name their
source table and column; computed columns show the verbatim expression
that produced them.`,
		Example: `  # Why does risk_level say HIGH?
  tracelight explain conformed.churn_risk risk_level

  # Every column of a table
  tracelight explain conformed.churn_risk --all`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, cleanup, err := openSession(cmd, true)
			if err != nil {
				return err
			}
			defer cleanup()

			if len(args) == 1 || all {
				edges, err := sess.Engine.ColumnLineage(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				for _, edge := range edges {
					printColumnEdge(cmd, &edge, sess.Cfg.OutputFormat)
				}
				return nil
			}

			edge, err := sess.Engine.ExplainColumn(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			printColumnEdge(cmd, edge, sess.Cfg.OutputFormat)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Explain every column of the table")

	return cmd
}

func printColumnEdge(cmd *cobra.Command, edge *lineage.ColumnEdge, format string) {
	w := cmd.OutOrStdout()

	if format == "json" {
		_ = renderJSON(w, map[string]any{
			"target_table":         edge.TargetTable,
			"target_column":        edge.TargetColumn,
			"source_table":         edge.SourceTable,
			"source_column":        edge.SourceColumn,
			"transformation_logic": edge.TransformationLogic,
			"sql_file_name":        edge.OriginFile,
		})
		return
	}

	switch edge.SourceColumn {
	case lineage.SourceComputed:
		fmt.Fprintf(w, "%s.%s is COMPUTED (defined in %s):\n    %s\n",
			edge.TargetTable, edge.TargetColumn, edge.OriginFile, edge.TransformationLogic)
	case lineage.SourceStar:
		fmt.Fprintf(w, "%s.%s passes through all columns of %s (defined in %s)\n",
			edge.TargetTable, edge.TargetColumn, edge.SourceTable, edge.OriginFile)
	default:
		fmt.Fprintf(w, "%s.%s is copied from %s.%s (defined in %s)\n",
			edge.TargetTable, edge.TargetColumn, edge.SourceTable, edge.SourceColumn, edge.OriginFile)
	}
}
