// Package core defines the hierarchical blob storage contract implemented by
// the infra drivers and consumed by the entity layer.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	// DriverFilesystem represents the local filesystem implementation.
	DriverFilesystem Driver = "fs" // local filesystem (default, dev)
	// DriverS3 represents an S3 / MinIO compatible implementation.
	DriverS3 Driver = "s3" // S3 / MinIO compatible
	// DriverMemory represents an in-memory implementation typically used in tests.
	DriverMemory Driver = "memory" // in-memory (tests)
)

// Entry describes a child of a folder, or the result of a Stat call.
type Entry struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Parent      string    `json:"parent,omitempty"`
	Folder      bool      `json:"folder"`
	Size        int64     `json:"size_bytes,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Modified    time.Time `json:"modified,omitempty"`
}

// Store is a named-object hierarchy: folders contain files and folders, and
// every object carries a store-assigned opaque identifier that stays stable
// for the object's lifetime. Creating never replaces; replacement is
// expressed by updating an existing identifier.
type Store interface {
	// CreateFolder allocates a folder under parentID ("" = store root) and
	// returns its identifier.
	CreateFolder(ctx context.Context, name, parentID string) (string, error)
	// CreateFile stores a new file under parentID and returns its identifier.
	CreateFile(ctx context.Context, name, parentID string, r io.Reader, contentType string) (string, error)
	// UpdateFile overwrites the content of an existing identifier.
	UpdateFile(ctx context.Context, id string, r io.Reader) error
	// GetFile streams the file's bytes. Drivers handle chunked transfer
	// internally; callers see one reader.
	GetFile(ctx context.Context, id string) (io.ReadCloser, error)
	// Stat returns metadata for a file or folder without content transfer.
	Stat(ctx context.Context, id string) (Entry, error)
	// DeleteFile removes a file or folder object.
	DeleteFile(ctx context.Context, id string) error
	// ListChildren returns the direct children of a folder, ordered by name.
	ListChildren(ctx context.Context, folderID string) ([]Entry, error)
	// Driver returns the configured backend driver string.
	Driver() Driver
}

// ErrNotExist is wrapped by drivers when an identifier does not resolve.
var ErrNotExist = errors.New("blobstore: object does not exist")

// ErrUnsupported is returned when an optional capability is not available.
var ErrUnsupported = errors.New("blobstore: unsupported operation")
