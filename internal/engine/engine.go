// Package engine is the read side of tracelight: discovery, lineage
// queries, health diagnostics, and gated SQL execution over a database
// whose metadata tables were produced by the builder.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/tracelight-labs/tracelight/internal/adapter"
	"github.com/tracelight-labs/tracelight/internal/dag"
	"github.com/tracelight-labs/tracelight/internal/metastore"
	"github.com/tracelight-labs/tracelight/pkg/lineage"
)

// DefaultTreeDepth caps lineage tree expansion when the caller does not
// choose a depth.
const DefaultTreeDepth = 5

// forbiddenKeywords is the textual blocklist for RunQuery. It is a
// pragmatic gate, not a SQL permission system: a mutating keyword anywhere
// in the statement rejects it, even inside a string literal.
var forbiddenKeywords = regexp.MustCompile(`(?i)\b(insert|update|delete|drop|alter|create|truncate)\b`)

// TableInfo identifies a table with its current row count.
type TableInfo struct {
	Schema   string
	Name     string
	RowCount int64
}

// HealthReport diagnoses a table and its direct upstream sources.
type HealthReport struct {
	Table           string
	Exists          bool
	RowCount        int64
	UpstreamTables  []string
	UpstreamMissing []string // sources absent from the database
	UpstreamEmpty   []string // sources present but with zero rows
}

// QueryResult is a tabular result from RunQuery.
type QueryResult struct {
	Columns []string
	Rows    [][]any
}

// Engine answers lineage and introspection queries. It combines live
// database introspection through the adapter with the persisted lineage
// edges in the metadata store.
type Engine struct {
	adapter adapter.Adapter
	store   *metastore.Store
	logger  *slog.Logger
}

// New creates an Engine. A nil logger discards.
func New(a adapter.Adapter, store *metastore.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{adapter: a, store: store, logger: logger}
}

// ListSchemas returns the user schemas in the database, sorted.
func (e *Engine) ListSchemas(ctx context.Context) ([]string, error) {
	return e.adapter.ListSchemas(ctx)
}

// ListTables returns the tables in one schema, or in every user schema
// when schema is empty, with current row counts.
func (e *Engine) ListTables(ctx context.Context, schema string) ([]TableInfo, error) {
	schemas := []string{schema}
	if schema == "" {
		all, err := e.adapter.ListSchemas(ctx)
		if err != nil {
			return nil, err
		}
		schemas = all
	} else {
		known, err := e.adapter.ListSchemas(ctx)
		if err != nil {
			return nil, err
		}
		if !containsFold(known, schema) {
			return nil, &NotFoundError{Kind: "schema", Name: schema}
		}
	}

	var infos []TableInfo
	for _, s := range schemas {
		tables, err := e.adapter.ListTables(ctx, s)
		if err != nil {
			return nil, err
		}
		for _, name := range tables {
			count, err := e.adapter.RowCount(ctx, s+"."+name)
			if err != nil {
				// Views and exotic objects may not count cleanly.
				e.logger.Debug("row count failed", "table", s+"."+name, "error", err)
				count = 0
			}
			infos = append(infos, TableInfo{Schema: s, Name: name, RowCount: count})
		}
	}
	return infos, nil
}

// DescribeTable returns column metadata and row count for a table.
func (e *Engine) DescribeTable(ctx context.Context, table string) (*adapter.TableMetadata, error) {
	if !lineage.ValidIdentifier(table) {
		return nil, &NotFoundError{Kind: "table", Name: table}
	}
	meta, err := e.adapter.DescribeTable(ctx, table)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, &NotFoundError{Kind: "table", Name: table}
	}
	return meta, nil
}

// RowCount returns the number of rows in a table.
func (e *Engine) RowCount(ctx context.Context, table string) (int64, error) {
	if _, err := e.DescribeTable(ctx, table); err != nil {
		return 0, err
	}
	return e.adapter.RowCount(ctx, table)
}

// ExplainColumn answers "where does this column come from": the stored
// column lineage edge, including the verbatim transformation text for
// computed columns.
func (e *Engine) ExplainColumn(ctx context.Context, table, column string) (*lineage.ColumnEdge, error) {
	edge, err := e.store.LookupColumn(ctx, table, column)
	if err != nil {
		return nil, err
	}
	if edge == nil {
		return nil, &NotFoundError{Kind: "column", Name: table + "." + column}
	}
	return edge, nil
}

// ColumnLineage returns every stored column edge for a table.
func (e *Engine) ColumnLineage(ctx context.Context, table string) ([]lineage.ColumnEdge, error) {
	edges, err := e.store.ColumnEdges(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return nil, &NotFoundError{Kind: "table", Name: table}
	}
	return edges, nil
}

// UpstreamTables returns the distinct direct sources of a table. A table
// with no recorded lineage that also does not exist in the database is
// NotFound; a base table that merely has no upstream yields an empty set.
func (e *Engine) UpstreamTables(ctx context.Context, table string) ([]string, error) {
	edges, err := e.store.TableEdges(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		if _, err := e.DescribeTable(ctx, table); err != nil {
			return nil, err
		}
		return []string{}, nil
	}

	sources := make([]string, 0, len(edges))
	for _, edge := range edges {
		sources = append(sources, edge.SourceTable)
	}
	return sources, nil
}

// BuildSQL returns the statement text recorded for a table's build, or
// NotFound when no lineage is stored for it.
func (e *Engine) BuildSQL(ctx context.Context, table string) (string, error) {
	edges, err := e.store.TableEdges(ctx, table)
	if err != nil {
		return "", err
	}
	if len(edges) == 0 {
		return "", &NotFoundError{Kind: "table", Name: table}
	}
	return edges[0].SQL, nil
}

// LineageTree expands the transitive upstream lineage of a table into a
// tree. Expansion is cycle-safe and capped at maxDepth (DefaultTreeDepth
// when maxDepth <= 0). A table unknown to both the lineage graph and the
// database is NotFound.
func (e *Engine) LineageTree(ctx context.Context, table string, maxDepth int) (*dag.TreeNode, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultTreeDepth
	}

	graph, err := e.lineageGraph(ctx)
	if err != nil {
		return nil, err
	}

	key := strings.ToLower(table)
	if !graph.HasNode(key) {
		if _, err := e.DescribeTable(ctx, table); err != nil {
			return nil, err
		}
		// Exists but was never a build target: a base table.
		return &dag.TreeNode{Name: key}, nil
	}

	return graph.UpstreamTree(key, maxDepth), nil
}

// CheckTableHealth diagnoses why a table might be empty or wrong: does it
// exist, how many rows does it have, and is any direct upstream source
// missing or empty.
func (e *Engine) CheckTableHealth(ctx context.Context, table string) (*HealthReport, error) {
	report := &HealthReport{
		Table:           table,
		UpstreamMissing: []string{},
		UpstreamEmpty:   []string{},
	}

	meta, err := e.adapter.DescribeTable(ctx, table)
	if err != nil {
		return nil, err
	}
	if meta != nil {
		report.Exists = true
		report.RowCount = meta.RowCount
	}

	edges, err := e.store.TableEdges(ctx, table)
	if err != nil {
		return nil, err
	}
	if !report.Exists && len(edges) == 0 {
		return nil, &NotFoundError{Kind: "table", Name: table}
	}

	for _, edge := range edges {
		report.UpstreamTables = append(report.UpstreamTables, edge.SourceTable)

		srcMeta, err := e.adapter.DescribeTable(ctx, edge.SourceTable)
		if err != nil {
			return nil, err
		}
		switch {
		case srcMeta == nil:
			report.UpstreamMissing = append(report.UpstreamMissing, edge.SourceTable)
		case srcMeta.RowCount == 0:
			report.UpstreamEmpty = append(report.UpstreamEmpty, edge.SourceTable)
		}
	}

	return report, nil
}

// InspectRow fetches one row from a table by key column and value. The
// value is parameterized; table and column names are validated before
// interpolation.
func (e *Engine) InspectRow(ctx context.Context, table, column string, value any) (map[string]any, error) {
	if !lineage.ValidIdentifier(table) {
		return nil, &NotFoundError{Kind: "table", Name: table}
	}
	if !lineage.ValidIdentifier(column) || strings.Contains(column, ".") {
		return nil, &NotFoundError{Kind: "column", Name: column}
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = ? LIMIT 1", table, column) //nolint:gosec // names validated above
	rows, err := e.adapter.DB().QueryContext(ctx, query, value)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect row: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to inspect row: %w", err)
		}
		return nil, &NotFoundError{Kind: "row", Name: fmt.Sprintf("%s where %s = %v", table, column, value)}
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	row := make(map[string]any, len(cols))
	for i, name := range cols {
		row[name] = values[i]
	}
	return row, nil
}

// RunQuery executes read-only SQL and returns the tabular result. Any
// statement containing a mutating keyword as a whole word is rejected with
// ForbiddenStatement before touching the database. The check is textual
// and deliberately blunt.
func (e *Engine) RunQuery(ctx context.Context, sqlText string) (*QueryResult, error) {
	if m := forbiddenKeywords.FindString(sqlText); m != "" {
		return nil, &ForbiddenStatementError{Keyword: strings.ToUpper(m)}
	}

	rows, err := e.adapter.Query(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	result := &QueryResult{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating result: %w", err)
	}
	return result, nil
}

// lineageGraph assembles the table dependency graph from the stored edges.
func (e *Engine) lineageGraph(ctx context.Context) (*dag.Graph, error) {
	edges, err := e.store.AllTableEdges(ctx)
	if err != nil {
		return nil, err
	}

	graph := dag.NewGraph()
	for _, edge := range edges {
		graph.AddEdge(strings.ToLower(edge.SourceTable), strings.ToLower(edge.TargetTable))
	}
	return graph, nil
}

func containsFold(slice []string, s string) bool {
	for _, v := range slice {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
