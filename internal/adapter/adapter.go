// Package adapter provides database adapter interfaces and the DuckDB
// implementation backing tracelight's build and query paths.
package adapter

import (
	"context"
	"database/sql"
	"errors"
)

// ErrNotConnected is returned by adapter operations invoked before Connect.
var ErrNotConnected = errors.New("database connection not established")

// Config holds the configuration for connecting to a database.
type Config struct {
	// Path is the file path for file-based databases.
	// Use ":memory:" for an in-memory database.
	Path string

	// ReadOnly opens the database without write access. Query-side
	// operations use read-only connections; only builds write.
	ReadOnly bool

	// Options contains additional driver-specific options.
	Options map[string]string
}

// Column represents a column in a database table.
type Column struct {
	// Name is the column name
	Name string

	// Type is the data type of the column
	Type string

	// Nullable indicates whether the column allows NULL values
	Nullable bool

	// Position is the ordinal position of the column in the table
	Position int
}

// TableMetadata holds metadata about a database table.
type TableMetadata struct {
	// Schema is the schema containing the table
	Schema string

	// Name is the table name
	Name string

	// Columns contains metadata for each column
	Columns []Column

	// RowCount is the number of rows at describe time
	RowCount int64
}

// Adapter defines the interface that all database adapters must implement.
// It provides connection management, catalog discovery, and SQL execution.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// DB exposes the underlying connection for components that manage
	// their own transactions, such as the metadata store writer.
	DB() *sql.DB

	// ListSchemas returns user-visible schema names, sorted. System
	// catalogs are excluded.
	ListSchemas(ctx context.Context) ([]string, error)

	// ListTables returns the table names in a schema, sorted.
	ListTables(ctx context.Context, schema string) ([]string, error)

	// DescribeTable retrieves column metadata and the current row count
	// for a schema-qualified table.
	DescribeTable(ctx context.Context, table string) (*TableMetadata, error)

	// RowCount returns the number of rows in a schema-qualified table.
	RowCount(ctx context.Context, table string) (int64, error)

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string) error

	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string) (*sql.Rows, error)

	// Name returns the adapter's registered name (e.g. "duckdb").
	Name() string
}
