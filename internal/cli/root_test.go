package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracelight-labs/tracelight/internal/cli/config"
)

// runCommand executes the root command with a fresh config load.
func runCommand(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	config.ResetConfig()

	var outBuf, errBuf bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&outBuf)
	root.SetErr(&errBuf)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return outBuf.String(), errBuf.String(), err
}

func setupProject(t *testing.T) (dbPath, sqlDir string) {
	t.Helper()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "warehouse.duckdb")
	sqlDir = filepath.Join(dir, "sql")
	require.NoError(t, os.MkdirAll(sqlDir, 0o755))

	script := `
CREATE OR REPLACE TABLE silver.dim_employees AS
SELECT emp_id, full_name FROM raw.employees;

CREATE OR REPLACE TABLE conformed.churn_risk AS
SELECT
    e.full_name,
    CASE WHEN e.emp_id >= 3 THEN 'HIGH' ELSE 'LOW' END AS risk_level
FROM silver.dim_employees e;
`
	require.NoError(t, os.WriteFile(filepath.Join(sqlDir, "models.sql"), []byte(script), 0o644))
	return dbPath, sqlDir
}

func TestBuildAndExplain(t *testing.T) {
	dbPath, sqlDir := setupProject(t)

	stdout, _, err := runCommand(t, "build", "--database", dbPath, "--sql-dir", sqlDir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "models.sql")
	assert.Contains(t, stdout, "2 target(s)")

	stdout, _, err = runCommand(t, "explain", "conformed.churn_risk", "risk_level", "--database", dbPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "COMPUTED")
	assert.Contains(t, stdout, "CASE WHEN e.emp_id >= 3 THEN 'HIGH' ELSE 'LOW' END")
}

func TestTreeCommand(t *testing.T) {
	dbPath, sqlDir := setupProject(t)

	_, _, err := runCommand(t, "build", "--database", dbPath, "--sql-dir", sqlDir)
	require.NoError(t, err)

	stdout, _, err := runCommand(t, "tree", "conformed.churn_risk", "--database", dbPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "conformed.churn_risk")
	assert.Contains(t, stdout, "silver.dim_employees")
	assert.Contains(t, stdout, "raw.employees (source)")
}

func TestQueryCommand_ForbiddenStatement(t *testing.T) {
	dbPath, sqlDir := setupProject(t)

	_, _, err := runCommand(t, "build", "--database", dbPath, "--sql-dir", sqlDir)
	require.NoError(t, err)

	_, _, err = runCommand(t, "query", "DROP TABLE raw.employees", "--database", dbPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forbidden")

	stdout, _, err := runCommand(t, "query", "SELECT 42 AS answer", "--database", dbPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "42")
}

func TestQueryCommands_RequireExistingDatabase(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.duckdb")

	_, _, err := runCommand(t, "schemas", "--database", missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}
