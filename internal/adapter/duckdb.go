package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/tracelight-labs/tracelight/pkg/lineage"
)

func init() {
	Register("duckdb", func(logger *slog.Logger) Adapter { return NewDuckDBAdapter(logger) })
}

// systemSchemas are DuckDB catalogs hidden from schema discovery.
var systemSchemas = map[string]bool{
	"information_schema": true,
	"pg_catalog":         true,
}

// DuckDBAdapter implements the Adapter interface for DuckDB.
type DuckDBAdapter struct {
	db     *sql.DB
	config Config
	logger *slog.Logger
}

// NewDuckDBAdapter creates a new DuckDB adapter instance.
func NewDuckDBAdapter(logger *slog.Logger) *DuckDBAdapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DuckDBAdapter{logger: logger}
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" as the path for an in-memory database.
func (a *DuckDBAdapter) Connect(ctx context.Context, cfg Config) error {
	dsn := cfg.Path
	if dsn == "" {
		dsn = ":memory:"
	}

	params := url.Values{}
	if cfg.ReadOnly && dsn != ":memory:" {
		params.Set("access_mode", "read_only")
	}
	for k, v := range cfg.Options {
		params.Set(k, v)
	}
	if len(params) > 0 {
		dsn += "?" + params.Encode()
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.db = db
	a.config = cfg
	a.logger.Debug("connected to duckdb", "path", cfg.Path, "read_only", cfg.ReadOnly)

	return nil
}

// Close closes the DuckDB connection.
func (a *DuckDBAdapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// DB returns the underlying connection, or nil before Connect.
func (a *DuckDBAdapter) DB() *sql.DB {
	return a.db
}

// Name returns "duckdb".
func (a *DuckDBAdapter) Name() string {
	return "duckdb"
}

// ListSchemas returns user schemas in the current database, sorted.
func (a *DuckDBAdapter) ListSchemas(ctx context.Context) ([]string, error) {
	if a.db == nil {
		return nil, ErrNotConnected
	}

	query := `
		SELECT schema_name
		FROM information_schema.schemata
		ORDER BY schema_name
	`
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var schemas []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan schema name: %w", err)
		}
		if systemSchemas[name] {
			continue
		}
		schemas = append(schemas, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schemas: %w", err)
	}
	return schemas, nil
}

// ListTables returns the table names in a schema, sorted.
func (a *DuckDBAdapter) ListTables(ctx context.Context, schema string) ([]string, error) {
	if a.db == nil {
		return nil, ErrNotConnected
	}

	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ?
		ORDER BY table_name
	`
	rows, err := a.db.QueryContext(ctx, query, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables in %s: %w", schema, err)
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return tables, nil
}

// DescribeTable retrieves column metadata and the row count for a table.
// Unqualified names default to the main schema. A table that does not
// exist returns nil metadata and no error; callers decide whether that is
// a not-found condition.
func (a *DuckDBAdapter) DescribeTable(ctx context.Context, table string) (*TableMetadata, error) {
	if a.db == nil {
		return nil, ErrNotConnected
	}

	schema, name := splitQualified(table)

	query := `
		SELECT
			column_name,
			data_type,
			is_nullable,
			ordinal_position
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position
	`
	rows, err := a.db.QueryContext(ctx, query, schema, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []Column
	for rows.Next() {
		var col Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}

	if len(columns) == 0 {
		return nil, nil
	}

	rowCount, err := a.RowCount(ctx, table)
	if err != nil {
		// The table exists; a count failure is not fatal to describe.
		a.logger.Debug("row count failed", "table", table, "error", err)
		rowCount = 0
	}

	return &TableMetadata{
		Schema:   schema,
		Name:     name,
		Columns:  columns,
		RowCount: rowCount,
	}, nil
}

// RowCount returns the number of rows in a table. The name is validated
// before interpolation since COUNT(*) targets cannot be parameterized.
func (a *DuckDBAdapter) RowCount(ctx context.Context, table string) (int64, error) {
	if a.db == nil {
		return 0, ErrNotConnected
	}
	if !lineage.ValidIdentifier(table) {
		return 0, fmt.Errorf("invalid table name %q", table)
	}

	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table) //nolint:gosec // name validated above
	if err := a.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return count, nil
}

// Exec executes a SQL statement that doesn't return rows.
func (a *DuckDBAdapter) Exec(ctx context.Context, sqlStr string) error {
	if a.db == nil {
		return ErrNotConnected
	}
	if _, err := a.db.ExecContext(ctx, sqlStr); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// Query executes a SQL statement that returns rows.
func (a *DuckDBAdapter) Query(ctx context.Context, sqlStr string) (*sql.Rows, error) {
	if a.db == nil {
		return nil, ErrNotConnected
	}

	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := a.db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return rows, nil
}

// splitQualified splits schema.table, defaulting to the main schema.
func splitQualified(table string) (schema, name string) {
	if i := strings.Index(table, "."); i >= 0 {
		return table[:i], table[i+1:]
	}
	return "main", table
}

// Ensure DuckDBAdapter implements Adapter interface
var _ Adapter = (*DuckDBAdapter)(nil)
