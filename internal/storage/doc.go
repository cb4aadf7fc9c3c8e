// Package storage provides SQLite-based persistence for the computed
// lifespan index.
//
// Only derived data is stored: releases, the classes and members each
// release documents, and their since/until lifespans. Raw release documents
// are read from disk on every reindex and never cached here.
//
// # Database Schema
//
// Tables:
//   - releases: release name, priority and newest-first position
//   - classes: one row per class per release, with its lifespan
//   - members: one row per event/method/namespace per class per release
//   - index_runs: history of completed indexing runs
//   - schema_version: applied migrations
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("apidocs.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.ReplaceIndex(ctx, snapshot); err != nil {
//	    return err
//	}
//
//	l, err := db.GetSymbolLifespan(ctx, "v1.2.0", "Page", types.KindMethod, "goto")
//	if errors.Is(err, storage.ErrNotFound) {
//	    // not documented in v1.2.0
//	}
//
// # Transactions
//
// ReplaceIndex runs in its own transaction, so readers see either the old or
// the new index. Use BeginTx to read a consistent view across several calls:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	releases, _ := tx.ListReleases(ctx)
//	classes, _ := tx.ListClasses(ctx, releases[0].Name)
//
// # Build Modes
//
// The default build uses the pure Go driver modernc.org/sqlite. Building with
// the sqlite_cgo tag switches to github.com/mattn/go-sqlite3. BuildMode
// reports which one is compiled in.
package storage
