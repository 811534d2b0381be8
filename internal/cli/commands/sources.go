package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewSourcesCommand creates the sources command.
func NewSourcesCommand() *cobra.Command {
	var showSQL bool

	cmd := &cobra.Command{
		Use:   "sources <schema.table>",
		Short: "Show the direct upstream sources of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, cleanup, err := openSession(cmd, true)
			if err != nil {
				return err
			}
			defer cleanup()

			sources, err := sess.Engine.UpstreamTables(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()

			if sess.Cfg.OutputFormat == "json" {
				out := map[string]any{"table": args[0], "sources": sources}
				if showSQL {
					if sqlText, err := sess.Engine.BuildSQL(cmd.Context(), args[0]); err == nil {
						out["sql_text"] = sqlText
					}
				}
				return renderJSON(w, out)
			}

			if len(sources) == 0 {
				fmt.Fprintf(w, "%s has no recorded upstream sources (base table)\n", args[0])
				return nil
			}

			fmt.Fprintf(w, "%s reads from:\n", args[0])
			for _, src := range sources {
				fmt.Fprintf(w, "  - %s\n", src)
			}

			if showSQL {
				sqlText, err := sess.Engine.BuildSQL(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "\nBuilt by:\n%s\n", sqlText)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showSQL, "sql", false, "Also print the statement that builds the table")

	return cmd
}
