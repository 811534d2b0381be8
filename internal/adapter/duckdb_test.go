package adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func newTestAdapter(t *testing.T) *DuckDBAdapter {
	t.Helper()
	ctx := context.Background()
	a := NewDuckDBAdapter(nil)
	if err := a.Connect(ctx, Config{Path: ":memory:"}); err != nil {
		t.Fatalf("failed to connect to in-memory DuckDB: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestDuckDBAdapter_ConnectFileBased(t *testing.T) {
	ctx := context.Background()
	a := NewDuckDBAdapter(nil)

	dbPath := filepath.Join(t.TempDir(), "test.duckdb")
	if err := a.Connect(ctx, Config{Path: dbPath}); err != nil {
		t.Fatalf("failed to connect to file-based DuckDB: %v", err)
	}
	defer a.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestDuckDBAdapter_ListSchemasAndTables(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)

	for _, stmt := range []string{
		`CREATE SCHEMA raw`,
		`CREATE TABLE raw.employees (emp_id INTEGER, full_name VARCHAR)`,
		`CREATE TABLE raw.salaries (emp_id INTEGER, salary DOUBLE)`,
	} {
		if err := a.Exec(ctx, stmt); err != nil {
			t.Fatalf("setup failed: %v", err)
		}
	}

	schemas, err := a.ListSchemas(ctx)
	if err != nil {
		t.Fatalf("ListSchemas failed: %v", err)
	}
	if !containsString(schemas, "raw") || !containsString(schemas, "main") {
		t.Errorf("expected raw and main in schemas, got %v", schemas)
	}
	for _, s := range schemas {
		if s == "information_schema" || s == "pg_catalog" {
			t.Errorf("system schema %s should be hidden", s)
		}
	}

	tables, err := a.ListTables(ctx, "raw")
	if err != nil {
		t.Fatalf("ListTables failed: %v", err)
	}
	if len(tables) != 2 || tables[0] != "employees" || tables[1] != "salaries" {
		t.Errorf("expected [employees salaries], got %v", tables)
	}
}

func TestDuckDBAdapter_DescribeTable(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)

	setup := []string{
		`CREATE SCHEMA raw`,
		`CREATE TABLE raw.employees (emp_id INTEGER NOT NULL, full_name VARCHAR)`,
		`INSERT INTO raw.employees VALUES (1, 'Ada'), (2, 'Grace')`,
	}
	for _, stmt := range setup {
		if err := a.Exec(ctx, stmt); err != nil {
			t.Fatalf("setup failed: %v", err)
		}
	}

	meta, err := a.DescribeTable(ctx, "raw.employees")
	if err != nil {
		t.Fatalf("DescribeTable failed: %v", err)
	}
	if meta == nil {
		t.Fatal("expected metadata, got nil")
	}
	if meta.Schema != "raw" || meta.Name != "employees" {
		t.Errorf("unexpected identity: %s.%s", meta.Schema, meta.Name)
	}
	if len(meta.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(meta.Columns))
	}
	if meta.Columns[0].Name != "emp_id" || meta.Columns[0].Nullable {
		t.Errorf("emp_id should be first and NOT NULL, got %+v", meta.Columns[0])
	}
	if meta.RowCount != 2 {
		t.Errorf("expected 2 rows, got %d", meta.RowCount)
	}
}

func TestDuckDBAdapter_DescribeTableMissing(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)

	meta, err := a.DescribeTable(ctx, "raw.nope")
	if err != nil {
		t.Fatalf("DescribeTable failed: %v", err)
	}
	if meta != nil {
		t.Errorf("expected nil metadata for missing table, got %+v", meta)
	}
}

func TestDuckDBAdapter_RowCountRejectsInvalidName(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)

	if _, err := a.RowCount(ctx, "raw.employees; DROP TABLE x"); err == nil {
		t.Error("expected error for invalid table name")
	}
}

func TestDuckDBAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	a := NewDuckDBAdapter(nil)

	if _, err := a.ListSchemas(ctx); err == nil {
		t.Error("expected error before Connect")
	}
	if err := a.Exec(ctx, "SELECT 1"); err == nil {
		t.Error("expected error before Connect")
	}
}

func TestRegistry_New(t *testing.T) {
	if !IsRegistered("duckdb") {
		t.Fatal("duckdb adapter should self-register")
	}

	a, err := New("duckdb", nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if a.Name() != "duckdb" {
		t.Errorf("expected name duckdb, got %s", a.Name())
	}

	if _, err := New("oracle", nil); err == nil {
		t.Error("expected UnknownAdapterError for unregistered type")
	}
}

func containsString(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
