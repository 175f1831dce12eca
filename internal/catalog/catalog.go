// Package catalog stores the log of record: the catalogue mapping project
// name to its serialized record. Every write carries the revision token the
// caller read, so stale read-modify-write cycles surface as conflicts
// instead of silently discarding another writer's update.
package catalog

import (
	"context"
	"fmt"
	"os"

	"pollcore/internal/blob"
	"pollcore/internal/catalog/blobdoc"
	"pollcore/internal/catalog/postgres"
	"pollcore/internal/catalog/sqlite"
	"pollcore/pkg/domain"
)

// Driver identifies a concrete catalogue backend implementation.
type Driver string

const (
	// DriverBlob keeps the catalogue as one JSON document in the blob store
	// (the classic single log file, with a document-level revision token).
	DriverBlob Driver = "blob"
	// DriverSQLite keeps one row per project in an embedded sqlite file.
	DriverSQLite Driver = "sqlite"
	// DriverPostgres keeps one row per project in PostgreSQL.
	DriverPostgres Driver = "postgres"
)

// Store is the catalogue contract. Revisions are per record for the SQL
// drivers and document-wide for the blob driver; rev 0 on Put means "create,
// fail if present".
type Store interface {
	// Get returns the record and its revision token. domain.NotFoundError
	// when the project has no catalogue entry.
	Get(ctx context.Context, name string) (domain.ProjectRecord, int64, error)
	// Put writes the record if rev still matches, returning the new
	// revision. domain.ConflictError on a stale token.
	Put(ctx context.Context, rec domain.ProjectRecord, rev int64) (int64, error)
	// Delete removes the entry if rev still matches.
	Delete(ctx context.Context, name string, rev int64) error
	// Snapshot returns a copy of every record, for archiving and checks.
	Snapshot(ctx context.Context) (map[string]domain.ProjectRecord, error)
	// Reset clears all entries. Used after the snapshot has been archived.
	Reset(ctx context.Context) error
}

// Compile-time contract assertions for the drivers.
var (
	_ Store = (*blobdoc.Store)(nil)
	_ Store = (*sqlite.Store)(nil)
	_ Store = (*postgres.Store)(nil)
)

// Open selects a catalogue backend using environment variables. The blob
// driver reuses the supplied blob store; SQL drivers ignore it.
//
//	POLLCORE_CATALOG_DRIVER: blob|sqlite|postgres (default blob)
//	POLLCORE_CATALOG_BLOB_NAME: log file name when driver=blob (default log.json)
//	POLLCORE_SQLITE_PATH: path to sqlite file (default ./pollcore.db)
//	POLLCORE_POSTGRES_DSN: postgres DSN when driver=postgres
func Open(ctx context.Context, store blob.Store) (Store, error) {
	driver := os.Getenv("POLLCORE_CATALOG_DRIVER")
	if driver == "" {
		driver = string(DriverBlob)
	}
	switch Driver(driver) {
	case DriverBlob:
		name := os.Getenv("POLLCORE_CATALOG_BLOB_NAME")
		return blobdoc.Ensure(ctx, store, name)
	case DriverSQLite:
		path := os.Getenv("POLLCORE_SQLITE_PATH")
		return sqlite.NewStore(path)
	case DriverPostgres:
		dsn := os.Getenv("POLLCORE_POSTGRES_DSN")
		return postgres.NewStore(dsn)
	default:
		return nil, fmt.Errorf("unknown catalog driver %s", driver)
	}
}
