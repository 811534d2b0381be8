package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tracelight-labs/tracelight/internal/engine"
)

// NewDescribeCommand creates the describe command.
func NewDescribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <schema.table>",
		Short: "Show the columns and row count of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, cleanup, err := openSession(cmd, true)
			if err != nil {
				return err
			}
			defer cleanup()

			meta, err := sess.Engine.DescribeTable(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			res := &engine.QueryResult{Columns: []string{"column", "type", "nullable"}}
			for _, col := range meta.Columns {
				res.Rows = append(res.Rows, []any{col.Name, col.Type, col.Nullable})
			}
			if err := renderResult(cmd.OutOrStdout(), res, sess.Cfg.OutputFormat); err != nil {
				return err
			}

			if sess.Cfg.OutputFormat != "json" {
				fmt.Fprintf(cmd.OutOrStdout(), "%d row(s) in %s.%s\n", meta.RowCount, meta.Schema, meta.Name)
			}
			return nil
		},
	}
}
