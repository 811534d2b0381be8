package commands

import (
	"github.com/spf13/cobra"

	"github.com/tracelight-labs/tracelight/internal/engine"
)

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables [schema]",
		Short: "List tables with row counts",
		Long:  `List tables in one schema, or in every user schema when no schema is given.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, cleanup, err := openSession(cmd, true)
			if err != nil {
				return err
			}
			defer cleanup()

			schema := ""
			if len(args) == 1 {
				schema = args[0]
			}

			tables, err := sess.Engine.ListTables(cmd.Context(), schema)
			if err != nil {
				return err
			}

			res := &engine.QueryResult{Columns: []string{"schema", "table", "rows"}}
			for _, ti := range tables {
				res.Rows = append(res.Rows, []any{ti.Schema, ti.Name, ti.RowCount})
			}
			return renderResult(cmd.OutOrStdout(), res, sess.Cfg.OutputFormat)
		},
	}
}
