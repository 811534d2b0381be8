// Package builder runs the lineage extraction pass: it walks a directory of
// SQL transformation scripts, extracts lineage from every CTAS statement,
// and replaces the metadata tables with the result.
package builder

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tracelight-labs/tracelight/internal/metastore"
	"github.com/tracelight-labs/tracelight/pkg/lineage"
)

// FileReport summarizes extraction for one SQL file.
type FileReport struct {
	File       string
	Statements int // CTAS blocks found
	Extracted  int // blocks successfully analyzed
	Failed     int // blocks that produced an extraction error
}

// Report summarizes one build pass.
type Report struct {
	Files       []FileReport
	Targets     int // tables with lineage recorded
	TableEdges  int
	ColumnEdges int
	Diagnostics []lineage.Diagnostic
}

// Builder extracts lineage from SQL files and persists it.
type Builder struct {
	store  *metastore.Store
	logger *slog.Logger
}

// New creates a Builder writing through the given store. A nil logger
// discards.
func New(store *metastore.Store, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{store: store, logger: logger}
}

// Run walks sqlDir for .sql files (sorted, recursive), extracts lineage
// from every CTAS block, and replaces the metadata tables. Statement-level
// failures become diagnostics in the report; only I/O and database errors
// abort the build.
func (b *Builder) Run(ctx context.Context, sqlDir string) (*Report, error) {
	files, err := listSQLFiles(sqlDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .sql files found in %s", sqlDir)
	}

	report := &Report{}
	var extractions []*lineage.TargetExtraction

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		name := filepath.Base(path)
		fr := FileReport{File: name}

		for stmt := range lineage.Split(string(data)) {
			fr.Statements++

			ex, err := lineage.Extract(stmt.Text, name)
			if err != nil {
				fr.Failed++
				report.Diagnostics = append(report.Diagnostics, lineage.Diagnostic{
					File:    name,
					Message: err.Error(),
				})
				b.logger.Warn("statement extraction failed", "file", name, "error", err)
				continue
			}

			fr.Extracted++
			report.Diagnostics = append(report.Diagnostics, ex.Skipped...)
			extractions = append(extractions, ex)
		}

		report.Files = append(report.Files, fr)
		b.logger.Debug("file processed",
			"file", name,
			"statements", fr.Statements,
			"extracted", fr.Extracted,
			"failed", fr.Failed,
		)
	}

	if err := b.store.Replace(ctx, extractions); err != nil {
		return nil, err
	}

	report.Targets = len(extractions)
	for _, ex := range extractions {
		report.TableEdges += len(ex.SourceTables)
		report.ColumnEdges += len(ex.Columns)
	}

	b.logger.Info("build complete",
		"files", len(report.Files),
		"targets", report.Targets,
		"table_edges", report.TableEdges,
		"column_edges", report.ColumnEdges,
		"diagnostics", len(report.Diagnostics),
	)
	return report, nil
}

// Watch runs an initial build, then rebuilds whenever a .sql file under
// sqlDir changes. Events are debounced so editors that write multiple times
// trigger one rebuild. Each pass invokes onBuild with the result. Watch
// blocks until ctx is canceled.
func (b *Builder) Watch(ctx context.Context, sqlDir string, onBuild func(*Report, error)) error {
	report, err := b.Run(ctx, sqlDir)
	onBuild(report, err)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watchDir(watcher, sqlDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", sqlDir, err)
	}

	var debounceTimer *time.Timer
	rebuild := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if strings.ToLower(filepath.Ext(event.Name)) != ".sql" {
				// A new subdirectory may bring .sql files with it.
				if info, statErr := os.Stat(event.Name); statErr != nil || !info.IsDir() {
					continue
				}
				_ = watchDir(watcher, event.Name)
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(200*time.Millisecond, func() {
				select {
				case rebuild <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			b.logger.Warn("watch error", "error", err)

		case <-rebuild:
			b.logger.Info("change detected, rebuilding", "dir", sqlDir)
			report, err := b.Run(ctx, sqlDir)
			onBuild(report, err)
		}
	}
}

// listSQLFiles returns all .sql files under dir in lexical order.
func listSQLFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.ToLower(filepath.Ext(path)) == ".sql" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	return files, nil
}

// watchDir recursively adds a directory tree to the watcher.
func watchDir(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
