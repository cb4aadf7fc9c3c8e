package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/apidocs/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrNestedTx is returned when BeginTx is called on a transaction
	ErrNestedTx = errors.New("nested transactions not supported")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// WAL is not available for in-memory databases; the pragma is a no-op there
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite allows a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// Index operations

// ReplaceIndex atomically replaces the stored index with snap
func (s *SQLiteStorage) ReplaceIndex(ctx context.Context, snap *Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := replaceIndex(ctx, tx, snap); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func replaceIndex(ctx context.Context, q querier, snap *Snapshot) error {
	if snap == nil {
		return errors.New("snapshot is nil")
	}

	// Cascades to classes and members
	if _, err := q.ExecContext(ctx, "DELETE FROM releases"); err != nil {
		return fmt.Errorf("failed to clear releases: %w", err)
	}

	now := time.Now()
	for _, r := range snap.Releases {
		_, err := q.ExecContext(ctx, `
			INSERT INTO releases (name, priority, position, class_count, indexed_at)
			VALUES (?, ?, ?, ?, ?)
		`, r.Name, r.Priority, r.Position, r.ClassCount, now)
		if err != nil {
			return fmt.Errorf("failed to insert release %s: %w", r.Name, err)
		}
		r.IndexedAt = now
	}

	for _, c := range snap.Classes {
		_, err := q.ExecContext(ctx, `
			INSERT INTO classes (release, name, position, description, since, until)
			VALUES (?, ?, ?, ?, ?, ?)
		`, c.Release, c.Name, c.Position, c.Description, c.Since, c.Until)
		if err != nil {
			return fmt.Errorf("failed to insert class %s/%s: %w", c.Release, c.Name, err)
		}
	}

	for _, m := range snap.Members {
		if !m.Kind.IsMember() {
			return fmt.Errorf("member %s.%s: %w: %q", m.Class, m.Name, types.ErrUnknownKind, m.Kind)
		}
		_, err := q.ExecContext(ctx, `
			INSERT INTO members (release, class, kind, name, position, args, description, since, until)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, m.Release, m.Class, string(m.Kind), m.Name, m.Position, m.Args, m.Description, m.Since, m.Until)
		if err != nil {
			return fmt.Errorf("failed to insert member %s/%s.%s: %w", m.Release, m.Class, m.Name, err)
		}
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO index_runs (releases, classes, members, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, len(snap.Releases), len(snap.Classes), len(snap.Members), snap.Duration.Milliseconds(), now)
	if err != nil {
		return fmt.Errorf("failed to record index run: %w", err)
	}

	return nil
}

// LoadSnapshot reads the whole stored index back, in stored order
func (s *SQLiteStorage) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	return loadSnapshot(ctx, s.db)
}

func loadSnapshot(ctx context.Context, q querier) (*Snapshot, error) {
	releases, err := listReleases(ctx, q)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Releases: releases}

	snap.Classes, err = queryClasses(ctx, q, `
		SELECT c.release, c.name, c.position, COALESCE(c.description, ''), c.since, c.until
		FROM classes c JOIN releases r ON r.name = c.release
		ORDER BY r.position, c.position
	`)
	if err != nil {
		return nil, err
	}

	snap.Members, err = queryMembers(ctx, q, `
		SELECT m.release, m.class, m.kind, m.name, m.position,
		       COALESCE(m.args, ''), COALESCE(m.description, ''), m.since, m.until
		FROM members m
		JOIN releases r ON r.name = m.release
		JOIN classes c ON c.release = m.release AND c.name = m.class
		ORDER BY r.position, c.position, m.kind, m.position
	`)
	if err != nil {
		return nil, err
	}

	run, err := lastRun(ctx, q)
	if err != nil {
		return nil, err
	}
	if run != nil {
		snap.Duration = run.Duration
	}

	return snap, nil
}

// Release operations

func (s *SQLiteStorage) ListReleases(ctx context.Context) ([]*Release, error) {
	return listReleases(ctx, s.db)
}

func listReleases(ctx context.Context, q querier) ([]*Release, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT name, priority, position, class_count, indexed_at
		FROM releases ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list releases: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var releases []*Release
	for rows.Next() {
		r := &Release{}
		if err := rows.Scan(&r.Name, &r.Priority, &r.Position, &r.ClassCount, &r.IndexedAt); err != nil {
			return nil, err
		}
		releases = append(releases, r)
	}
	return releases, rows.Err()
}

func (s *SQLiteStorage) GetRelease(ctx context.Context, name string) (*Release, error) {
	return getRelease(ctx, s.db, name)
}

func getRelease(ctx context.Context, q querier, name string) (*Release, error) {
	r := &Release{}
	err := q.QueryRowContext(ctx, `
		SELECT name, priority, position, class_count, indexed_at
		FROM releases WHERE name = ?
	`, name).Scan(&r.Name, &r.Priority, &r.Position, &r.ClassCount, &r.IndexedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("release %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Class and member operations

func (s *SQLiteStorage) ListClasses(ctx context.Context, release string) ([]*Class, error) {
	return listClasses(ctx, s.db, release)
}

func listClasses(ctx context.Context, q querier, release string) ([]*Class, error) {
	if _, err := getRelease(ctx, q, release); err != nil {
		return nil, err
	}
	return queryClasses(ctx, q, `
		SELECT release, name, position, COALESCE(description, ''), since, until
		FROM classes WHERE release = ? ORDER BY position
	`, release)
}

func queryClasses(ctx context.Context, q querier, query string, args ...interface{}) ([]*Class, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query classes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var classes []*Class
	for rows.Next() {
		c := &Class{}
		if err := rows.Scan(&c.Release, &c.Name, &c.Position, &c.Description, &c.Since, &c.Until); err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

func (s *SQLiteStorage) ListMembers(ctx context.Context, release, class string) ([]*Member, error) {
	return listMembers(ctx, s.db, release, class)
}

func listMembers(ctx context.Context, q querier, release, class string) ([]*Member, error) {
	return queryMembers(ctx, q, `
		SELECT release, class, kind, name, position,
		       COALESCE(args, ''), COALESCE(description, ''), since, until
		FROM members WHERE release = ? AND class = ?
		ORDER BY kind, position
	`, release, class)
}

func queryMembers(ctx context.Context, q querier, query string, args ...interface{}) ([]*Member, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var members []*Member
	for rows.Next() {
		m := &Member{}
		var kind string
		if err := rows.Scan(&m.Release, &m.Class, &kind, &m.Name, &m.Position,
			&m.Args, &m.Description, &m.Since, &m.Until); err != nil {
			return nil, err
		}
		m.Kind = types.EntryKind(kind)
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *SQLiteStorage) GetClassLifespan(ctx context.Context, release, class string) (*types.ClassLifespan, error) {
	return getClassLifespan(ctx, s.db, release, class)
}

func getClassLifespan(ctx context.Context, q querier, release, class string) (*types.ClassLifespan, error) {
	var since, until string
	err := q.QueryRowContext(ctx,
		"SELECT since, until FROM classes WHERE release = ? AND name = ?",
		release, class).Scan(&since, &until)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("class %s in release %s: %w", class, release, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	cl := types.NewClassLifespan(since)
	cl.Until = until

	members, err := listMembers(ctx, q, release, class)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		sinceMap, err := cl.SinceMap(m.Kind)
		if err != nil {
			return nil, err
		}
		sinceMap[m.Name] = m.Since
		if m.Until != "" {
			untilMap, _ := cl.UntilMap(m.Kind)
			untilMap[m.Name] = m.Until
		}
	}
	return cl, nil
}

func (s *SQLiteStorage) GetSymbolLifespan(ctx context.Context, release, class string, kind types.EntryKind, name string) (types.Lifespan, error) {
	return getSymbolLifespan(ctx, s.db, release, class, kind, name)
}

func getSymbolLifespan(ctx context.Context, q querier, release, class string, kind types.EntryKind, name string) (types.Lifespan, error) {
	var l types.Lifespan
	var err error

	switch kind {
	case types.KindClass:
		err = q.QueryRowContext(ctx,
			"SELECT since, until FROM classes WHERE release = ? AND name = ?",
			release, class).Scan(&l.Since, &l.Until)
	case types.KindEvent, types.KindMethod, types.KindNamespace:
		err = q.QueryRowContext(ctx, `
			SELECT since, until FROM members
			WHERE release = ? AND class = ? AND kind = ? AND name = ?
		`, release, class, string(kind), name).Scan(&l.Since, &l.Until)
	default:
		return types.Lifespan{}, fmt.Errorf("%w: %q", types.ErrUnknownKind, kind)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return types.Lifespan{}, fmt.Errorf("%s %s.%s in release %s: %w", kind, class, name, release, ErrNotFound)
	}
	if err != nil {
		return types.Lifespan{}, err
	}
	return l, nil
}

// Status operations

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*Status, error) {
	status, err := getStatus(ctx, s.db)
	if err != nil {
		return nil, err
	}

	// Calculate database size
	var pageCount, pageSize int
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err == nil {
			status.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
		}
	}

	if v, err := SchemaVersion(ctx, s.db); err == nil {
		status.Health.SchemaVersion = v.String()
	}

	return status, nil
}

func getStatus(ctx context.Context, q querier) (*Status, error) {
	status := &Status{
		Health: HealthStatus{BuildMode: BuildMode},
	}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM releases", &status.ReleasesCount},
		{"SELECT COUNT(DISTINCT name) FROM classes", &status.ClassesCount},
		{"SELECT COUNT(*) FROM (SELECT DISTINCT class, kind, name FROM members)", &status.MembersCount},
	}
	for _, c := range counts {
		if err := q.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to count: %w", err)
		}
	}
	status.Health.DatabaseAccessible = true

	if status.ReleasesCount > 0 {
		if err := q.QueryRowContext(ctx, "SELECT name FROM releases ORDER BY position LIMIT 1").Scan(&status.NewestRelease); err != nil {
			return nil, err
		}
		if err := q.QueryRowContext(ctx, "SELECT name FROM releases ORDER BY position DESC LIMIT 1").Scan(&status.OldestRelease); err != nil {
			return nil, err
		}
	}

	run, err := lastRun(ctx, q)
	if err != nil {
		return nil, err
	}
	status.LastRun = run

	return status, nil
}

func lastRun(ctx context.Context, q querier) (*IndexRun, error) {
	run := &IndexRun{}
	var durationMS int64
	err := q.QueryRowContext(ctx, `
		SELECT id, releases, classes, members, duration_ms, created_at
		FROM index_runs ORDER BY id DESC LIMIT 1
	`).Scan(&run.ID, &run.Releases, &run.Classes, &run.Members, &durationMS, &run.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read last index run: %w", err)
	}
	run.Duration = time.Duration(durationMS) * time.Millisecond
	return run, nil
}

// Transaction implementations

func (t *sqliteTx) ReplaceIndex(ctx context.Context, snap *Snapshot) error {
	return replaceIndex(ctx, t.tx, snap)
}

func (t *sqliteTx) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	return loadSnapshot(ctx, t.tx)
}

func (t *sqliteTx) ListReleases(ctx context.Context) ([]*Release, error) {
	return listReleases(ctx, t.tx)
}

func (t *sqliteTx) GetRelease(ctx context.Context, name string) (*Release, error) {
	return getRelease(ctx, t.tx, name)
}

func (t *sqliteTx) ListClasses(ctx context.Context, release string) ([]*Class, error) {
	return listClasses(ctx, t.tx, release)
}

func (t *sqliteTx) ListMembers(ctx context.Context, release, class string) ([]*Member, error) {
	return listMembers(ctx, t.tx, release, class)
}

func (t *sqliteTx) GetClassLifespan(ctx context.Context, release, class string) (*types.ClassLifespan, error) {
	return getClassLifespan(ctx, t.tx, release, class)
}

func (t *sqliteTx) GetSymbolLifespan(ctx context.Context, release, class string, kind types.EntryKind, name string) (types.Lifespan, error) {
	return getSymbolLifespan(ctx, t.tx, release, class, kind, name)
}

func (t *sqliteTx) GetStatus(ctx context.Context) (*Status, error) {
	return getStatus(ctx, t.tx)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, ErrNestedTx
}
