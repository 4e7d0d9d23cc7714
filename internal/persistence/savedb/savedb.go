// Package savedb is the save-game store. It only consumes the built engine
// settings: a new save takes its world seed and spawn point from them.
package savedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"gamecfg/internal/data/records"
)

var ErrNotFound = errors.New("save not found")

type Save struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
	WorldSeed int64
	PlayerX   float64
	PlayerY   float64
}

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
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

	if _, err := db.Exec(`PRAGMA busy_timeout=5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS Saves(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		world_seed INTEGER NOT NULL,
		player_x REAL NOT NULL,
		player_y REAL NOT NULL
	);`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Create starts a save at the centre of the configured world.
func (s *Store) Create(ctx context.Context, name string, settings records.EngineSettings, now time.Time) (Save, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Save{}, fmt.Errorf("save name must not be empty")
	}
	sv := Save{
		Name:      name,
		CreatedAt: now.UTC().Truncate(time.Second),
		UpdatedAt: now.UTC().Truncate(time.Second),
		WorldSeed: settings.WorldSeed(),
		PlayerX:   float64(settings.WorldWidth()) / 2,
		PlayerY:   float64(settings.WorldHeight()) / 2,
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO Saves(name,created_at,updated_at,world_seed,player_x,player_y) VALUES(?,?,?,?,?,?)`,
		sv.Name, sv.CreatedAt.Unix(), sv.UpdatedAt.Unix(), sv.WorldSeed, sv.PlayerX, sv.PlayerY,
	)
	if err != nil {
		return Save{}, err
	}
	sv.ID, err = res.LastInsertId()
	if err != nil {
		return Save{}, err
	}
	return sv, nil
}

func (s *Store) Get(ctx context.Context, id int64) (Save, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,name,created_at,updated_at,world_seed,player_x,player_y FROM Saves WHERE id=?`, id)
	sv, err := scanSave(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Save{}, fmt.Errorf("save %d: %w", id, ErrNotFound)
	}
	return sv, err
}

func (s *Store) List(ctx context.Context) ([]Save, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,name,created_at,updated_at,world_seed,player_x,player_y FROM Saves ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Save
	for rows.Next() {
		sv, err := scanSave(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sv)
	}
	return out, rows.Err()
}

// Latest returns the most recently updated save. Ties go to the newer id.
func (s *Store) Latest(ctx context.Context) (Save, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,name,created_at,updated_at,world_seed,player_x,player_y FROM Saves ORDER BY updated_at DESC, id DESC LIMIT 1`)
	sv, err := scanSave(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Save{}, fmt.Errorf("latest save: %w", ErrNotFound)
	}
	return sv, err
}

func (s *Store) UpdatePosition(ctx context.Context, id int64, x, y float64, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE Saves SET player_x=?, player_y=?, updated_at=? WHERE id=?`, x, y, now.UTC().Unix(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("save %d: %w", id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSave(r scanner) (Save, error) {
	var (
		sv               Save
		created, updated int64
	)
	if err := r.Scan(&sv.ID, &sv.Name, &created, &updated, &sv.WorldSeed, &sv.PlayerX, &sv.PlayerY); err != nil {
		return Save{}, err
	}
	sv.CreatedAt = time.Unix(created, 0).UTC()
	sv.UpdatedAt = time.Unix(updated, 0).UTC()
	return sv, nil
}
