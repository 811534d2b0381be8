package commands

import (
	"github.com/spf13/cobra"

	"github.com/tracelight-labs/tracelight/internal/engine"
)

// NewSchemasCommand creates the schemas command.
func NewSchemasCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schemas",
		Short: "List schemas in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, cleanup, err := openSession(cmd, true)
			if err != nil {
				return err
			}
			defer cleanup()

			schemas, err := sess.Engine.ListSchemas(cmd.Context())
			if err != nil {
				return err
			}

			res := &engine.QueryResult{Columns: []string{"schema"}}
			for _, s := range schemas {
				res.Rows = append(res.Rows, []any{s})
			}
			return renderResult(cmd.OutOrStdout(), res, sess.Cfg.OutputFormat)
		},
	}
}
