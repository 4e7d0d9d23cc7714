// Package indexdb is a queryable read model of built artifacts. The artifact
// files stay the source of truth; the index can be rebuilt from them.
package indexdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schemaVersion = "1"

type SQLiteIndex struct {
	db *sql.DB
}

// ArtifactRow is the latest build of one artifact.
type ArtifactRow struct {
	Name      string
	Kind      string
	Version   string
	Digest    string
	JSON      []byte
	BuildID   string
	Source    string
	UpdatedAt time.Time
}

// BuildRow is one historical write of an artifact.
type BuildRow struct {
	BuildID string
	Name    string
	Digest  string
	BuiltAt time.Time
}

var ErrNotFound = errors.New("not found")

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteIndex{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS artifacts (
			name TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			config_version TEXT NOT NULL,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			build_id TEXT NOT NULL,
			source TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS builds (
			build_id TEXT NOT NULL,
			name TEXT NOT NULL,
			digest TEXT NOT NULL,
			built_at TEXT NOT NULL,
			PRIMARY KEY (build_id, name)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_builds_name_time ON builds(name, built_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	_, err := db.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version',?)`, schemaVersion)
	return err
}

func (s *SQLiteIndex) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// UpsertArtifact replaces the current row for r.Name and appends to builds.
func (s *SQLiteIndex) UpsertArtifact(ctx context.Context, r ArtifactRow) error {
	if s == nil {
		return nil
	}
	if r.Name == "" || r.Digest == "" || len(r.JSON) == 0 {
		return fmt.Errorf("artifact row incomplete: name=%q digest=%q", r.Name, r.Digest)
	}
	at := r.UpdatedAt.UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO artifacts(name,kind,config_version,digest,json,build_id,source,updated_at) VALUES(?,?,?,?,?,?,?,?)`,
		r.Name, r.Kind, r.Version, r.Digest, string(r.JSON), r.BuildID, r.Source, at,
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO builds(build_id,name,digest,built_at) VALUES(?,?,?,?)`,
		r.BuildID, r.Name, r.Digest, at,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteIndex) Artifact(ctx context.Context, name string) (ArtifactRow, error) {
	var (
		r  ArtifactRow
		js string
		at string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT name,kind,config_version,digest,json,build_id,source,updated_at FROM artifacts WHERE name=?`, name,
	).Scan(&r.Name, &r.Kind, &r.Version, &r.Digest, &js, &r.BuildID, &r.Source, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("artifact %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return r, err
	}
	r.JSON = []byte(js)
	r.UpdatedAt, _ = time.Parse(time.RFC3339Nano, at)
	return r, nil
}

// Builds lists the build history of name, newest first.
func (s *SQLiteIndex) Builds(ctx context.Context, name string, limit int) ([]BuildRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT build_id,name,digest,built_at FROM builds WHERE name=? ORDER BY built_at DESC LIMIT ?`, name, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BuildRow
	for rows.Next() {
		var (
			b  BuildRow
			at string
		)
		if err := rows.Scan(&b.BuildID, &b.Name, &b.Digest, &at); err != nil {
			return nil, err
		}
		b.BuiltAt, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, b)
	}
	return out, rows.Err()
}
