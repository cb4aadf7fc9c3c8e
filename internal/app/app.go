package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/apidocs/internal/config"
	"github.com/dshills/apidocs/internal/indexer"
	"github.com/dshills/apidocs/internal/logger"
	"github.com/dshills/apidocs/internal/searcher"
	"github.com/dshills/apidocs/internal/storage"
)

// App holds the long-lived components shared by the CLI, the MCP server and
// the HTTP API
type App struct {
	Config   *config.Config
	Storage  storage.Storage
	Indexer  *indexer.Indexer
	Searcher *searcher.Searcher
}

// Open creates the storage, indexer and searcher for cfg and publishes the
// previously stored index, if any.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	dbPath, err := resolveDBPath(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	idx := indexer.New(store)

	srch, err := searcher.NewSearcher(idx, cfg.SearchOptions())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize searcher: %w", err)
	}

	// Cached results refer to the previous catalog
	idx.OnPublish(func(*indexer.Catalog) { srch.InvalidateCache() })

	loaded, err := idx.LoadFromStorage(ctx)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if !loaded {
		logger.Debug("no stored index in %s", dbPath)
	}

	return &App{
		Config:   cfg,
		Storage:  store,
		Indexer:  idx,
		Searcher: srch,
	}, nil
}

// resolveDBPath expands a leading ~ and creates the parent directory
func resolveDBPath(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, rest)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}
	return path, nil
}

// IndexOptions overrides the configured releases directory and pattern for one run
type IndexOptions struct {
	Dir      string
	Pattern  string
	Progress func(indexer.Progress)
}

// Index rebuilds the index from the configured releases directory
func (a *App) Index(ctx context.Context, opts IndexOptions) (*indexer.Statistics, error) {
	dir := opts.Dir
	if dir == "" {
		dir = a.Config.ReleasesDir
	}
	pattern := opts.Pattern
	if pattern == "" {
		pattern = a.Config.ReleasePattern
	}

	return a.Indexer.IndexReleases(ctx, dir, &indexer.Config{
		Workers:  a.Config.Workers,
		Pattern:  pattern,
		Progress: opts.Progress,
	})
}

// Close releases the storage
func (a *App) Close() error {
	return a.Storage.Close()
}
