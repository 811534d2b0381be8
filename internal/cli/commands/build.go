package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tracelight-labs/tracelight/internal/builder"
	"github.com/tracelight-labs/tracelight/internal/engine"
)

// BuildOptions holds options for the build command.
type BuildOptions struct {
	Watch bool
}

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	opts := &BuildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Extract lineage from SQL scripts into the metadata schema",
		Long: `Scan the SQL directory for CREATE TABLE AS SELECT statements, extract
table and column lineage, and replace the lineage tables in the reserved
metadata schema. Rebuilds are idempotent.`,
		Example: `  # One-shot build
  tracelight build --database warehouse.duckdb --sql-dir sql/

  # Rebuild whenever a script changes
  tracelight build --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Rebuild when SQL files change")

	return cmd
}

func runBuild(cmd *cobra.Command, opts *BuildOptions) error {
	sess, cleanup, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer cleanup()

	if info, err := os.Stat(sess.Cfg.SQLDir); err != nil || !info.IsDir() {
		return fmt.Errorf("sql directory %s does not exist", sess.Cfg.SQLDir)
	}

	b := builder.New(sess.Store, sess.Logger)

	if opts.Watch {
		fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for changes (Ctrl-C to stop)\n\n", sess.Cfg.SQLDir)
		return b.Watch(cmd.Context(), sess.Cfg.SQLDir, func(report *builder.Report, err error) {
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Build failed: %v\n", err)
				return
			}
			printBuildReport(cmd, report, sess.Cfg.OutputFormat)
		})
	}

	report, err := b.Run(cmd.Context(), sess.Cfg.SQLDir)
	if err != nil {
		return err
	}
	printBuildReport(cmd, report, sess.Cfg.OutputFormat)
	return nil
}

func printBuildReport(cmd *cobra.Command, report *builder.Report, format string) {
	w := cmd.OutOrStdout()

	if format == "json" {
		_ = renderJSON(w, report)
		return
	}

	res := &engine.QueryResult{Columns: []string{"file", "statements", "extracted", "failed"}}
	for _, fr := range report.Files {
		res.Rows = append(res.Rows, []any{fr.File, fr.Statements, fr.Extracted, fr.Failed})
	}
	_ = renderResult(w, res, format)

	fmt.Fprintf(w, "\n%d target(s), %d table edge(s), %d column edge(s)\n",
		report.Targets, report.TableEdges, report.ColumnEdges)

	for _, diag := range report.Diagnostics {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %s\n", diag.File, diag.Message)
	}
}
