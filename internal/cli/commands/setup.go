// Package commands implements the tracelight subcommands.
package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tracelight-labs/tracelight/internal/adapter"
	"github.com/tracelight-labs/tracelight/internal/cli/config"
	"github.com/tracelight-labs/tracelight/internal/engine"
	"github.com/tracelight-labs/tracelight/internal/metastore"
)

// Session bundles the dependencies a command needs: configuration, logger,
// an open database connection, the metadata store, and the query engine.
type Session struct {
	Cfg     *config.Config
	Logger  *slog.Logger
	Adapter adapter.Adapter
	Store   *metastore.Store
	Engine  *engine.Engine
}

// openSession connects to the configured database and wires up the store
// and engine. Query commands open read-only; build opens read-write and
// may create the database file. The returned cleanup function must be
// called (typically via defer).
func openSession(cmd *cobra.Command, readOnly bool) (*Session, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	if cfg.Database == "" {
		return nil, nil, fmt.Errorf("no database configured (use --database, TRACELIGHT_DATABASE, or tracelight.yaml)")
	}
	if readOnly && cfg.Database != ":memory:" {
		if _, err := os.Stat(cfg.Database); err != nil {
			return nil, nil, fmt.Errorf("database %s does not exist (run build first): %w", cfg.Database, err)
		}
	}

	a, err := adapter.New("duckdb", logger)
	if err != nil {
		return nil, nil, err
	}
	if err := a.Connect(cmd.Context(), adapter.Config{Path: cfg.Database, ReadOnly: readOnly}); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", cfg.Database, err)
	}

	store, err := metastore.New(a.DB(), cfg.MetaSchema, logger)
	if err != nil {
		_ = a.Close()
		return nil, nil, err
	}

	sess := &Session{
		Cfg:     cfg,
		Logger:  logger,
		Adapter: a,
		Store:   store,
		Engine:  engine.New(a, store, logger),
	}
	cleanup := func() { _ = a.Close() }
	return sess, cleanup, nil
}

// getConfig returns the current configuration, falling back to environment
// variables when no Load has run (as in direct command tests).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	return &config.Config{
		Database:     os.Getenv("TRACELIGHT_DATABASE"),
		SQLDir:       getEnvOrDefault("TRACELIGHT_SQL_DIR", config.DefaultSQLDir),
		MetaSchema:   getEnvOrDefault("TRACELIGHT_META_SCHEMA", config.DefaultMetaSchema),
		OutputFormat: getEnvOrDefault("TRACELIGHT_OUTPUT", config.DefaultOutput),
		Verbose:      os.Getenv("TRACELIGHT_VERBOSE") == "true",
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
