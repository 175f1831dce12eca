// Package postgres persists the catalogue as one row per project in
// PostgreSQL, mirroring the sqlite driver's per-project revision semantics.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"pollcore/pkg/domain"
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/pollcore?sslmode=disable"
)

// Store is a per-project catalogue backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore opens a Postgres-backed catalogue using the provided DSN (falls
// back to defaultDSN) and ensures the projects table exists.
func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	db, err := sql.Open(defaultDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS projects (
		name TEXT PRIMARY KEY,
		revision BIGINT NOT NULL,
		payload JSONB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create projects table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Get returns the record and its row revision.
func (s *Store) Get(ctx context.Context, name string) (domain.ProjectRecord, int64, error) {
	var rev int64
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT revision, payload FROM projects WHERE name = $1`, name).Scan(&rev, &payload)
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
		res, err := s.db.ExecContext(ctx, `INSERT INTO projects (name, revision, payload) VALUES ($1, 1, $2) ON CONFLICT (name) DO NOTHING`, rec.Name, payload)
		if err != nil {
			return 0, fmt.Errorf("insert project %s: %w", rec.Name, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		if affected == 0 {
			_, cur, getErr := s.Get(ctx, rec.Name)
			if getErr != nil {
				return 0, fmt.Errorf("insert project %s: lost conflict row", rec.Name)
			}
			return 0, domain.ConflictError{Project: rec.Name, Expected: 0, Actual: cur}
		}
		return 1, nil
	}
	res, err := s.db.ExecContext(ctx, `UPDATE projects SET revision = $1, payload = $2 WHERE name = $3 AND revision = $4`, rev+1, payload, rec.Name, rev)
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
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE name = $1 AND revision = $2`, name, rev)
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
