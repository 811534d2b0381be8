package commands

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Format string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [sql]",
		Short: "Run read-only SQL against the database",
		Long: `Execute a read-only SQL query. Statements containing mutating keywords
(INSERT, UPDATE, DELETE, DROP, ALTER, CREATE, TRUNCATE) are rejected
before execution. The check is textual, not a permission system.

With no SQL argument on an interactive terminal, starts a REPL.`,
		Example: `  # One-shot query
  tracelight query "SELECT * FROM conformed.churn_risk LIMIT 5"

  # Interactive REPL
  tracelight query`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, cleanup, err := openSession(cmd, true)
			if err != nil {
				return err
			}
			defer cleanup()

			if opts.Format == "" {
				opts.Format = sess.Cfg.OutputFormat
			}

			if len(args) > 0 {
				sqlText := strings.Join(args, " ")
				res, err := sess.Engine.RunQuery(cmd.Context(), sqlText)
				if err != nil {
					return err
				}
				return renderResult(cmd.OutOrStdout(), res, opts.Format)
			}

			if !term.IsTerminal(int(os.Stdin.Fd())) {
				// Piped input: read SQL from stdin.
				return runQueryFromStdin(cmd, sess, opts)
			}

			return runQueryREPL(cmd, sess, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Result format (table|json|csv|markdown)")

	return cmd
}

func runQueryFromStdin(cmd *cobra.Command, sess *Session, opts *QueryOptions) error {
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return err
	}
	sqlText := strings.TrimSpace(string(data))
	if sqlText == "" {
		return nil
	}

	res, err := sess.Engine.RunQuery(cmd.Context(), sqlText)
	if err != nil {
		return err
	}
	return renderResult(cmd.OutOrStdout(), res, opts.Format)
}
