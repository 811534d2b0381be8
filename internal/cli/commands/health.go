package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tracelight-labs/tracelight/internal/engine"
)

// NewHealthCommand creates the health command.
func NewHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health <schema.table>",
		Short: "Diagnose a table and its upstream sources",
		Long: `Check whether a table exists and has rows, then check each direct
upstream source the same way. An empty or missing ancestor is the usual
root cause when a downstream table looks wrong.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, cleanup, err := openSession(cmd, true)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := sess.Engine.CheckTableHealth(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if sess.Cfg.OutputFormat == "json" {
				return renderJSON(cmd.OutOrStdout(), report)
			}

			printHealthReport(cmd, report)
			return nil
		},
	}
}

func printHealthReport(cmd *cobra.Command, report *engine.HealthReport) {
	w := cmd.OutOrStdout()

	status := "OK"
	switch {
	case !report.Exists:
		status = "MISSING"
	case report.RowCount == 0:
		status = "EMPTY"
	}
	fmt.Fprintf(w, "%s: %s (%d rows)\n", report.Table, status, report.RowCount)

	if len(report.UpstreamTables) == 0 {
		fmt.Fprintln(w, "No recorded upstream sources.")
		return
	}

	fmt.Fprintln(w, "Upstream sources:")
	missing := toSet(report.UpstreamMissing)
	empty := toSet(report.UpstreamEmpty)
	for _, src := range report.UpstreamTables {
		switch {
		case missing[src]:
			fmt.Fprintf(w, "  - %s: MISSING\n", src)
		case empty[src]:
			fmt.Fprintf(w, "  - %s: EMPTY\n", src)
		default:
			fmt.Fprintf(w, "  - %s: OK\n", src)
		}
	}

	if len(report.UpstreamMissing) > 0 || len(report.UpstreamEmpty) > 0 {
		fmt.Fprintln(w, "\nLikely root cause: fix the MISSING/EMPTY sources above, then rebuild downstream tables.")
	}
}

func toSet(slice []string) map[string]bool {
	set := make(map[string]bool, len(slice))
	for _, s := range slice {
		set[s] = true
	}
	return set
}
