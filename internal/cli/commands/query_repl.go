package commands

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/tracelight-labs/tracelight/internal/engine"
)

func runQueryREPL(cmd *cobra.Command, sess *Session, opts *QueryOptions) error {
	ctx := cmd.Context()

	// Project-local history file next to the database.
	historyFile := filepath.Join(filepath.Dir(sess.Cfg.Database), ".tracelight_history")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "tracelight> ",
		HistoryFile:     historyFile,
		AutoComplete:    newTableCompleter(cmd, sess),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Tracelight query REPL (database: %s, read-only)\n", sess.Cfg.Database)
	fmt.Fprintln(out, "Type .help for commands, .quit to exit")
	fmt.Fprintln(out)

	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			rl.SetPrompt("tracelight> ")
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") {
			if handleDotCommand(cmd, sess, line, opts.Format) {
				if line == ".quit" || line == ".exit" {
					break
				}
				continue
			}
		}

		// Accumulate multi-line SQL until semicolon.
		buf.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			buf.WriteString(" ")
			rl.SetPrompt("       ...> ")
			continue
		}
		rl.SetPrompt("tracelight> ")

		query := strings.TrimSuffix(buf.String(), ";")
		buf.Reset()

		res, err := sess.Engine.RunQuery(ctx, query)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			continue
		}
		if err := renderResult(out, res, opts.Format); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		fmt.Fprintln(out)
	}

	return nil
}

func handleDotCommand(cmd *cobra.Command, sess *Session, line, format string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	out := cmd.OutOrStdout()

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(out)
		return true

	case ".schemas":
		if err := replListSchemas(cmd, sess, format); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		return true

	case ".tables":
		schema := ""
		if len(parts) > 1 {
			schema = parts[1]
		}
		if err := replListTables(cmd, sess, schema, format); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		return true

	case ".describe":
		if len(parts) < 2 {
			fmt.Fprintln(cmd.ErrOrStderr(), "Usage: .describe <schema.table>")
			return true
		}
		if err := replDescribe(cmd, sess, parts[1], format); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		return true

	case ".explain":
		if len(parts) < 3 {
			fmt.Fprintln(cmd.ErrOrStderr(), "Usage: .explain <schema.table> <column>")
			return true
		}
		edge, err := sess.Engine.ExplainColumn(cmd.Context(), parts[1], parts[2])
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			return true
		}
		printColumnEdge(cmd, edge, format)
		return true

	default:
		fmt.Fprintf(cmd.ErrOrStderr(), "Unknown command: %s (type .help for commands)\n", command)
		return true
	}
}

func replListSchemas(cmd *cobra.Command, sess *Session, format string) error {
	schemas, err := sess.Engine.ListSchemas(cmd.Context())
	if err != nil {
		return err
	}
	res := &engine.QueryResult{Columns: []string{"schema"}}
	for _, s := range schemas {
		res.Rows = append(res.Rows, []any{s})
	}
	return renderResult(cmd.OutOrStdout(), res, format)
}

func replListTables(cmd *cobra.Command, sess *Session, schema, format string) error {
	tables, err := sess.Engine.ListTables(cmd.Context(), schema)
	if err != nil {
		return err
	}
	res := &engine.QueryResult{Columns: []string{"schema", "table", "rows"}}
	for _, ti := range tables {
		res.Rows = append(res.Rows, []any{ti.Schema, ti.Name, ti.RowCount})
	}
	return renderResult(cmd.OutOrStdout(), res, format)
}

func replDescribe(cmd *cobra.Command, sess *Session, table, format string) error {
	meta, err := sess.Engine.DescribeTable(cmd.Context(), table)
	if err != nil {
		return err
	}
	res := &engine.QueryResult{Columns: []string{"column", "type", "nullable"}}
	for _, col := range meta.Columns {
		res.Rows = append(res.Rows, []any{col.Name, col.Type, col.Nullable})
	}
	return renderResult(cmd.OutOrStdout(), res, format)
}

func printREPLHelp(w io.Writer) {
	fmt.Fprintln(w, `Commands:
  .schemas                       List schemas
  .tables [schema]               List tables
  .describe <schema.table>       Show columns of a table
  .explain <schema.table> <col>  Show column lineage
  .help                          Show this help
  .quit                          Exit

Any other input is executed as read-only SQL (end with ;).`)
}

// newTableCompleter offers qualified table names for completion.
func newTableCompleter(cmd *cobra.Command, sess *Session) readline.AutoCompleter {
	var names []string
	if tables, err := sess.Engine.ListTables(cmd.Context(), ""); err == nil {
		for _, ti := range tables {
			names = append(names, ti.Schema+"."+ti.Name)
		}
	}

	items := make([]readline.PrefixCompleterInterface, 0, len(names)+6)
	for _, name := range names {
		items = append(items, readline.PcItem(name))
	}
	items = append(items,
		readline.PcItem(".schemas"),
		readline.PcItem(".tables"),
		readline.PcItem(".describe"),
		readline.PcItem(".explain"),
		readline.PcItem(".help"),
		readline.PcItem(".quit"),
	)
	return readline.NewPrefixCompleter(items...)
}
