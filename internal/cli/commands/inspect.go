package commands

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/tracelight-labs/tracelight/internal/engine"
)

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <schema.table> <key-column> <value>",
		Short: "Fetch one row by key",
		Example: `  tracelight inspect silver.dim_employees emp_id 42`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, cleanup, err := openSession(cmd, true)
			if err != nil {
				return err
			}
			defer cleanup()

			row, err := sess.Engine.InspectRow(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}

			if sess.Cfg.OutputFormat == "json" {
				return renderJSON(cmd.OutOrStdout(), row)
			}

			cols := make([]string, 0, len(row))
			for col := range row {
				cols = append(cols, col)
			}
			sort.Strings(cols)

			res := &engine.QueryResult{Columns: []string{"column", "value"}}
			for _, col := range cols {
				res.Rows = append(res.Rows, []any{col, row[col]})
			}
			return renderResult(cmd.OutOrStdout(), res, sess.Cfg.OutputFormat)
		},
	}
}
