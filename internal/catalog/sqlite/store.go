// Package sqlite persists the catalogue as one row per project in an
// embedded SQLite database, giving each project its own revision counter.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"pollcore/pkg/domain"
)

// Store is a per-project catalogue backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the catalogue database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "pollcore.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS projects (
		name TEXT PRIMARY KEY,
		revision INTEGER NOT NULL,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create projects table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Get returns the record and its row revision.
func (s *Store) Get(ctx context.Context, name string) (domain.ProjectRecord, int64, error) {
	var rev int64
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT revision, payload FROM projects WHERE name = ?`, name).Scan(&rev, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ProjectRecord{}, 0, domain.NotFoundError{Project: name}
	}
	if err != nil {
		return domain.ProjectRecord{}, 0, fmt.Errorf("get project %s: %w", name, err)
	}
	var rec domain.ProjectRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return domain.ProjectRecord{}, 0, fmt.Errorf("decode project %s: %w", name, err)
	}
	return rec, rev, nil
}

// Put inserts (rev 0) or updates the row guarded by its revision.
func (s *Store) Put(ctx context.Context, rec domain.ProjectRecord, rev int64) (int64, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("encode project %s: %w", rec.Name, err)
	}
	if rev == 0 {
		if _, err := s.db.ExecContext(ctx, `INSERT INTO projects (name, revision, payload) VALUES (?, 1, ?)`, rec.Name, payload); err != nil {
			_, cur, getErr := s.Get(ctx, rec.Name)
			if getErr == nil {
				return 0, domain.ConflictError{Project: rec.Name, Expected: 0, Actual: cur}
			}
			return 0, fmt.Errorf("insert project %s: %w", rec.Name, err)
		}
		return 1, nil
	}
	res, err := s.db.ExecContext(ctx, `UPDATE projects SET revision = ?, payload = ? WHERE name = ? AND revision = ?`, rev+1, payload, rec.Name, rev)
	if err != nil {
		return 0, fmt.Errorf("update project %s: %w", rec.Name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		_, cur, getErr := s.Get(ctx, rec.Name)
		if getErr != nil {
			return 0, domain.NotFoundError{Project: rec.Name}
		}
		return 0, domain.ConflictError{Project: rec.Name, Expected: rev, Actual: cur}
	}
	return rev + 1, nil
}

// Delete removes the row guarded by its revision.
func (s *Store) Delete(ctx context.Context, name string, rev int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE name = ? AND revision = ?`, name, rev)
	if err != nil {
		return fmt.Errorf("delete project %s: %w", name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		_, cur, getErr := s.Get(ctx, name)
		if getErr != nil {
			return domain.NotFoundError{Project: name}
		}
		return domain.ConflictError{Project: name, Expected: rev, Actual: cur}
	}
	return nil
}

// Snapshot decodes every row.
func (s *Store) Snapshot(ctx context.Context) (map[string]domain.ProjectRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, payload FROM projects`)
	if err != nil {
		return nil, fmt.Errorf("snapshot projects: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := map[string]domain.ProjectRecord{}
	for rows.Next() {
		var name string
		var payload []byte
		if err := rows.Scan(&name, &payload); err != nil {
			return nil, err
		}
		var rec domain.ProjectRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("decode project %s: %w", name, err)
		}
		out[name] = rec
	}
	return out, rows.Err()
}

// Reset removes every row.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM projects`)
	return err
}
