package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracelight-labs/tracelight/internal/adapter"
	"github.com/tracelight-labs/tracelight/internal/metastore"
	"github.com/tracelight-labs/tracelight/pkg/lineage"
)

// newTestEngine builds a small warehouse in an in-memory DuckDB: raw
// feeds silver, silver feeds conformed, and raw.empty_src has no rows.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	ctx := context.Background()

	a := adapter.NewDuckDBAdapter(nil)
	require.NoError(t, a.Connect(ctx, adapter.Config{Path: ":memory:"}))
	t.Cleanup(func() { _ = a.Close() })

	setup := []string{
		`CREATE SCHEMA raw`,
		`CREATE SCHEMA silver`,
		`CREATE SCHEMA conformed`,
		`CREATE TABLE raw.employees (emp_id INTEGER, full_name VARCHAR)`,
		`INSERT INTO raw.employees VALUES (1, 'Ada'), (2, 'Grace')`,
		`CREATE TABLE raw.empty_src (id INTEGER)`,
		`CREATE TABLE silver.dim_employees (emp_id INTEGER, full_name VARCHAR)`,
		`INSERT INTO silver.dim_employees VALUES (1, 'Ada'), (2, 'Grace')`,
		`CREATE TABLE silver.from_empty (id INTEGER)`,
		`CREATE TABLE conformed.churn_risk (emp_id INTEGER, full_name VARCHAR, risk_level VARCHAR)`,
		`INSERT INTO conformed.churn_risk VALUES (1, 'Ada', 'LOW')`,
	}
	for _, stmt := range setup {
		require.NoError(t, a.Exec(ctx, stmt))
	}

	store, err := metastore.New(a.DB(), "meta", nil)
	require.NoError(t, err)

	statements := map[string]string{
		"silver.sql": `CREATE OR REPLACE TABLE silver.dim_employees AS
SELECT emp_id, full_name FROM raw.employees`,
		"empty.sql": `CREATE OR REPLACE TABLE silver.from_empty AS
SELECT id FROM raw.empty_src`,
		"gold.sql": `CREATE OR REPLACE TABLE conformed.churn_risk AS
SELECT e.emp_id, e.full_name,
CASE WHEN e.emp_id > 1 THEN 'HIGH' ELSE 'LOW' END AS risk_level
FROM silver.dim_employees e`,
	}
	var extractions []*lineage.TargetExtraction
	for file, stmt := range statements {
		ex, err := lineage.Extract(stmt, file)
		require.NoError(t, err)
		extractions = append(extractions, ex)
	}
	require.NoError(t, store.Replace(ctx, extractions))

	return New(a, store, nil)
}

func TestListSchemasAndTables(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	schemas, err := e.ListSchemas(ctx)
	require.NoError(t, err)
	assert.Contains(t, schemas, "raw")
	assert.Contains(t, schemas, "meta")

	tables, err := e.ListTables(ctx, "raw")
	require.NoError(t, err)
	require.Len(t, tables, 2)
	byName := map[string]TableInfo{}
	for _, ti := range tables {
		byName[ti.Name] = ti
	}
	assert.Equal(t, int64(2), byName["employees"].RowCount)
	assert.Equal(t, int64(0), byName["empty_src"].RowCount)

	_, err = e.ListTables(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDescribeTable(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	meta, err := e.DescribeTable(ctx, "raw.employees")
	require.NoError(t, err)
	require.Len(t, meta.Columns, 2)
	assert.Equal(t, "emp_id", meta.Columns[0].Name)
	assert.Equal(t, int64(2), meta.RowCount)

	_, err = e.DescribeTable(ctx, "raw.missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExplainColumn(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	edge, err := e.ExplainColumn(ctx, "conformed.churn_risk", "risk_level")
	require.NoError(t, err)
	assert.Equal(t, lineage.SourceComputed, edge.SourceColumn)
	assert.Equal(t, "CASE WHEN e.emp_id > 1 THEN 'HIGH' ELSE 'LOW' END", edge.TransformationLogic)

	direct, err := e.ExplainColumn(ctx, "conformed.churn_risk", "full_name")
	require.NoError(t, err)
	assert.Equal(t, "silver.dim_employees", direct.SourceTable)
	assert.Equal(t, "full_name", direct.SourceColumn)

	_, err = e.ExplainColumn(ctx, "conformed.churn_risk", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpstreamTables(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	sources, err := e.UpstreamTables(ctx, "conformed.churn_risk")
	require.NoError(t, err)
	assert.Equal(t, []string{"silver.dim_employees"}, sources)

	// Base table: exists, no recorded lineage.
	sources, err = e.UpstreamTables(ctx, "raw.employees")
	require.NoError(t, err)
	assert.Empty(t, sources)

	_, err = e.UpstreamTables(ctx, "raw.missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpstreamTables_DistinctAcrossRebuilds(t *testing.T) {
	ctx := context.Background()

	a := adapter.NewDuckDBAdapter(nil)
	require.NoError(t, a.Connect(ctx, adapter.Config{Path: ":memory:"}))
	t.Cleanup(func() { _ = a.Close() })

	store, err := metastore.New(a.DB(), "meta", nil)
	require.NoError(t, err)

	// The same target built twice from the same source must not duplicate
	// the upstream set.
	extractions := []*lineage.TargetExtraction{
		{TargetTable: "silver.t", SourceTables: []string{"raw.a"}, SQL: "CREATE OR REPLACE TABLE silver.t AS SELECT id FROM raw.a"},
		{TargetTable: "silver.t", SourceTables: []string{"raw.a"}, SQL: "CREATE OR REPLACE TABLE silver.t AS SELECT id, name FROM raw.a"},
	}
	require.NoError(t, store.Replace(ctx, extractions))

	e := New(a, store, nil)
	sources, err := e.UpstreamTables(ctx, "silver.t")
	require.NoError(t, err)
	assert.Equal(t, []string{"raw.a"}, sources)
}

func TestLineageTree(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	tree, err := e.LineageTree(ctx, "conformed.churn_risk", 0)
	require.NoError(t, err)
	assert.Equal(t, "conformed.churn_risk", tree.Name)
	require.Len(t, tree.Children, 1)

	silver := tree.Children[0]
	assert.Equal(t, "silver.dim_employees", silver.Name)
	require.Len(t, silver.Children, 1)

	raw := silver.Children[0]
	assert.Equal(t, "raw.employees", raw.Name)
	assert.True(t, raw.IsSource())
}

func TestLineageTree_DepthCap(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	tree, err := e.LineageTree(ctx, "conformed.churn_risk", 1)
	require.NoError(t, err)
	require.Len(t, tree.Children, 1)
	assert.True(t, tree.Children[0].Truncated)
}

func TestLineageTree_CycleSafe(t *testing.T) {
	ctx := context.Background()

	a := adapter.NewDuckDBAdapter(nil)
	require.NoError(t, a.Connect(ctx, adapter.Config{Path: ":memory:"}))
	t.Cleanup(func() { _ = a.Close() })

	store, err := metastore.New(a.DB(), "meta", nil)
	require.NoError(t, err)

	// Pathological metadata: a <-> b.
	extractions := []*lineage.TargetExtraction{
		{TargetTable: "s.a", SourceTables: []string{"s.b"}, SQL: "..."},
		{TargetTable: "s.b", SourceTables: []string{"s.a"}, SQL: "..."},
	}
	require.NoError(t, store.Replace(ctx, extractions))

	e := New(a, store, nil)
	tree, err := e.LineageTree(ctx, "s.a", 10)
	require.NoError(t, err)

	b := tree.Children[0]
	require.Equal(t, "s.b", b.Name)
	require.Len(t, b.Children, 1)
	assert.True(t, b.Children[0].Cycle)
}

func TestCheckTableHealth(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	report, err := e.CheckTableHealth(ctx, "silver.from_empty")
	require.NoError(t, err)
	assert.True(t, report.Exists)
	assert.Equal(t, []string{"raw.empty_src"}, report.UpstreamTables)
	assert.Equal(t, []string{"raw.empty_src"}, report.UpstreamEmpty)
	assert.Empty(t, report.UpstreamMissing)

	_, err = e.CheckTableHealth(ctx, "raw.missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInspectRow(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	row, err := e.InspectRow(ctx, "raw.employees", "emp_id", 1)
	require.NoError(t, err)
	assert.Equal(t, "Ada", row["full_name"])

	_, err = e.InspectRow(ctx, "raw.employees", "emp_id", 99)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.InspectRow(ctx, "raw.employees; DROP", "emp_id", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRunQuery(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	res, err := e.RunQuery(ctx, "SELECT emp_id, full_name FROM raw.employees ORDER BY emp_id")
	require.NoError(t, err)
	assert.Equal(t, []string{"emp_id", "full_name"}, res.Columns)
	require.Len(t, res.Rows, 2)

	for _, forbidden := range []string{
		"DROP TABLE raw.employees",
		"insert into raw.employees values (3, 'x')",
		"SELECT 1; DELETE FROM raw.employees",
		"Truncate raw.employees",
	} {
		_, err := e.RunQuery(ctx, forbidden)
		assert.ErrorIs(t, err, ErrForbiddenStatement, "should reject %q", forbidden)
	}
}
