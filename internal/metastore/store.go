// Package metastore owns the lineage metadata tables. It writes extraction
// results into a reserved schema inside the target database and serves the
// read queries the lineage engine is built on. User data schemas are never
// touched.
package metastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tracelight-labs/tracelight/pkg/lineage"
)

// DefaultSchema is the reserved schema holding the lineage tables.
const DefaultSchema = "meta"

// Store reads and writes the table_lineage and column_lineage tables.
type Store struct {
	db     *sql.DB
	schema string
	logger *slog.Logger
}

// New creates a Store over an open database connection. An empty schema
// uses DefaultSchema; a nil logger discards.
func New(db *sql.DB, schema string, logger *slog.Logger) (*Store, error) {
	if schema == "" {
		schema = DefaultSchema
	}
	if !lineage.ValidIdentifier(schema) || strings.Contains(schema, ".") {
		return nil, fmt.Errorf("invalid metadata schema name %q", schema)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{db: db, schema: schema, logger: logger}, nil
}

// Schema returns the reserved schema name the store writes to.
func (s *Store) Schema() string {
	return s.schema
}

// Replace persists the extraction results, wholesale replacing both lineage
// tables in one transaction. The reserved schema is created if absent.
// Running Replace twice with the same input leaves identical tables.
// table_lineage holds one row per (target, source) pair: a pair repeated
// across extractions, as when two statements rebuild the same target,
// collapses to the first occurrence.
func (s *Store) Replace(ctx context.Context, extractions []*lineage.TargetExtraction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin metadata transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ddl := []string{
		fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", s.schema),
		fmt.Sprintf(`CREATE OR REPLACE TABLE %s.table_lineage (
			target_table VARCHAR,
			source_table VARCHAR,
			sql_text VARCHAR
		)`, s.schema),
		fmt.Sprintf(`CREATE OR REPLACE TABLE %s.column_lineage (
			target_table VARCHAR,
			target_column VARCHAR,
			source_table VARCHAR,
			source_column VARCHAR,
			transformation_logic VARCHAR,
			sql_file_name VARCHAR
		)`, s.schema),
	}
	for _, stmt := range ddl {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to prepare metadata tables: %w", err)
		}
	}

	insertTable := fmt.Sprintf(
		"INSERT INTO %s.table_lineage (target_table, source_table, sql_text) VALUES (?, ?, ?)",
		s.schema,
	)
	insertColumn := fmt.Sprintf(
		"INSERT INTO %s.column_lineage (target_table, target_column, source_table, source_column, transformation_logic, sql_file_name) VALUES (?, ?, ?, ?, ?, ?)",
		s.schema,
	)

	var tableRows, columnRows int
	seenPairs := map[string]bool{}
	for _, ex := range extractions {
		for _, src := range ex.SourceTables {
			pair := strings.ToLower(ex.TargetTable) + "\x00" + strings.ToLower(src)
			if seenPairs[pair] {
				continue
			}
			seenPairs[pair] = true
			if _, err := tx.ExecContext(ctx, insertTable, ex.TargetTable, src, ex.SQL); err != nil {
				return fmt.Errorf("failed to insert table lineage for %s: %w", ex.TargetTable, err)
			}
			tableRows++
		}
		for _, col := range ex.Columns {
			if _, err := tx.ExecContext(ctx, insertColumn,
				col.TargetTable, col.TargetColumn, col.SourceTable,
				col.SourceColumn, col.TransformationLogic, col.OriginFile,
			); err != nil {
				return fmt.Errorf("failed to insert column lineage for %s.%s: %w", col.TargetTable, col.TargetColumn, err)
			}
			columnRows++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit metadata transaction: %w", err)
	}

	s.logger.Info("lineage metadata replaced",
		"schema", s.schema,
		"targets", len(extractions),
		"table_edges", tableRows,
		"column_edges", columnRows,
	)
	return nil
}

// TableEdges returns the table-level lineage rows for one target, ordered
// by source table.
func (s *Store) TableEdges(ctx context.Context, target string) ([]lineage.TableEdge, error) {
	query := fmt.Sprintf(
		"SELECT target_table, source_table, sql_text FROM %s.table_lineage WHERE lower(target_table) = lower(?) ORDER BY source_table",
		s.schema,
	)
	rows, err := s.db.QueryContext(ctx, query, target)
	if err != nil {
		return nil, fmt.Errorf("failed to query table lineage: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var edges []lineage.TableEdge
	for rows.Next() {
		var e lineage.TableEdge
		if err := rows.Scan(&e.TargetTable, &e.SourceTable, &e.SQL); err != nil {
			return nil, fmt.Errorf("failed to scan table lineage row: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table lineage: %w", err)
	}
	return edges, nil
}

// AllTableEdges returns every table-level lineage row, ordered by target
// then source. The lineage graph is assembled from this set.
func (s *Store) AllTableEdges(ctx context.Context) ([]lineage.TableEdge, error) {
	query := fmt.Sprintf(
		"SELECT target_table, source_table, sql_text FROM %s.table_lineage ORDER BY target_table, source_table",
		s.schema,
	)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query table lineage: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var edges []lineage.TableEdge
	for rows.Next() {
		var e lineage.TableEdge
		if err := rows.Scan(&e.TargetTable, &e.SourceTable, &e.SQL); err != nil {
			return nil, fmt.Errorf("failed to scan table lineage row: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table lineage: %w", err)
	}
	return edges, nil
}

// ColumnEdges returns the column-level lineage rows for one target table,
// ordered by target column.
func (s *Store) ColumnEdges(ctx context.Context, target string) ([]lineage.ColumnEdge, error) {
	query := fmt.Sprintf(
		"SELECT target_table, target_column, source_table, source_column, transformation_logic, sql_file_name FROM %s.column_lineage WHERE lower(target_table) = lower(?) ORDER BY target_column",
		s.schema,
	)
	rows, err := s.db.QueryContext(ctx, query, target)
	if err != nil {
		return nil, fmt.Errorf("failed to query column lineage: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var edges []lineage.ColumnEdge
	for rows.Next() {
		var e lineage.ColumnEdge
		if err := rows.Scan(&e.TargetTable, &e.TargetColumn, &e.SourceTable, &e.SourceColumn, &e.TransformationLogic, &e.OriginFile); err != nil {
			return nil, fmt.Errorf("failed to scan column lineage row: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column lineage: %w", err)
	}
	return edges, nil
}

// LookupColumn returns the lineage row for one target column, or nil when
// no row is recorded. Matching is case-insensitive.
func (s *Store) LookupColumn(ctx context.Context, target, column string) (*lineage.ColumnEdge, error) {
	query := fmt.Sprintf(
		"SELECT target_table, target_column, source_table, source_column, transformation_logic, sql_file_name FROM %s.column_lineage WHERE lower(target_table) = lower(?) AND lower(target_column) = lower(?)",
		s.schema,
	)
	var e lineage.ColumnEdge
	err := s.db.QueryRowContext(ctx, query, target, column).Scan(
		&e.TargetTable, &e.TargetColumn, &e.SourceTable, &e.SourceColumn, &e.TransformationLogic, &e.OriginFile,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up column lineage: %w", err)
	}
	return &e, nil
}

// HasTarget reports whether any lineage is recorded for the table.
func (s *Store) HasTarget(ctx context.Context, table string) (bool, error) {
	query := fmt.Sprintf(
		"SELECT COUNT(*) FROM %s.table_lineage WHERE lower(target_table) = lower(?)",
		s.schema,
	)
	var count int
	if err := s.db.QueryRowContext(ctx, query, table).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check lineage for %s: %w", table, err)
	}
	return count > 0, nil
}
