// Package blobdoc keeps the catalogue as a single JSON document stored at a
// well-known file in the blob store. The document carries a revision counter;
// writers re-read the document and compare tokens before writing, so a stale
// writer gets a conflict instead of clobbering the log.
package blobdoc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"pollcore/internal/blob"
	"pollcore/pkg/domain"
)

const defaultLogName = "log.json"

// Store implements the catalogue over one blob-store file.
type Store struct {
	blobs blob.Store
	// mu serializes read-modify-write cycles within this process; the
	// revision token covers cross-process writers.
	mu     sync.Mutex
	fileID string
}

// Ensure locates the catalogue file by name at the store root, creating an
// empty document when absent, and returns a Store bound to its identifier.
func Ensure(ctx context.Context, blobs blob.Store, name string) (*Store, error) {
	if name == "" {
		name = defaultLogName
	}
	children, err := blobs.ListChildren(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("locate catalogue: %w", err)
	}
	for _, child := range children {
		if !child.Folder && child.Name == name {
			return &Store{blobs: blobs, fileID: child.ID}, nil
		}
	}
	empty, err := domain.EncodeCatalogue(domain.Catalogue{})
	if err != nil {
		return nil, err
	}
	id, err := blobs.CreateFile(ctx, name, "", bytes.NewReader(empty), "application/json")
	if err != nil {
		return nil, fmt.Errorf("create catalogue: %w", err)
	}
	return &Store{blobs: blobs, fileID: id}, nil
}

// FileID returns the blob identifier of the live catalogue document.
func (s *Store) FileID() string { return s.fileID }

func (s *Store) load(ctx context.Context) (domain.Catalogue, error) {
	rc, err := s.blobs.GetFile(ctx, s.fileID)
	if err != nil {
		return domain.Catalogue{}, fmt.Errorf("read catalogue: %w", err)
	}
	defer func() { _ = rc.Close() }()
	b, err := io.ReadAll(rc)
	if err != nil {
		return domain.Catalogue{}, fmt.Errorf("read catalogue: %w", err)
	}
	return domain.DecodeCatalogue(b)
}

func (s *Store) write(ctx context.Context, doc domain.Catalogue) error {
	b, err := domain.EncodeCatalogue(doc)
	if err != nil {
		return err
	}
	if err := s.blobs.UpdateFile(ctx, s.fileID, bytes.NewReader(b)); err != nil {
		return fmt.Errorf("write catalogue: %w", err)
	}
	return nil
}

// Get returns the record plus the document revision as its token.
func (s *Store) Get(ctx context.Context, name string) (domain.ProjectRecord, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(ctx)
	if err != nil {
		return domain.ProjectRecord{}, 0, err
	}
	rec, ok := doc.Projects[name]
	if !ok {
		return domain.ProjectRecord{}, doc.Revision, domain.NotFoundError{Project: name}
	}
	return rec.Clone(), doc.Revision, nil
}

// Put writes the record under a fresh document revision. rev 0 creates, any
// other value must match the current document revision.
func (s *Store) Put(ctx context.Context, rec domain.ProjectRecord, rev int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	if rev == 0 {
		if _, exists := doc.Projects[rec.Name]; exists {
			return 0, domain.ConflictError{Project: rec.Name, Expected: 0, Actual: doc.Revision}
		}
	} else if rev != doc.Revision {
		return 0, domain.ConflictError{Project: rec.Name, Expected: rev, Actual: doc.Revision}
	}
	doc.Projects[rec.Name] = rec.Clone()
	doc.Revision++
	if err := s.write(ctx, doc); err != nil {
		return 0, err
	}
	return doc.Revision, nil
}

// Delete removes the entry under the same token discipline as Put.
func (s *Store) Delete(ctx context.Context, name string, rev int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	if _, ok := doc.Projects[name]; !ok {
		return domain.NotFoundError{Project: name}
	}
	if rev != doc.Revision {
		return domain.ConflictError{Project: name, Expected: rev, Actual: doc.Revision}
	}
	delete(doc.Projects, name)
	doc.Revision++
	return s.write(ctx, doc)
}

// Snapshot returns a deep copy of every record.
func (s *Store) Snapshot(ctx context.Context) (map[string]domain.ProjectRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.ProjectRecord, len(doc.Projects))
	for name, rec := range doc.Projects {
		out[name] = rec.Clone()
	}
	return out, nil
}

// Reset clears every entry but keeps the document (and its identifier) alive
// so the well-known file id stays valid.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	doc.Projects = map[string]domain.ProjectRecord{}
	doc.Revision++
	return s.write(ctx, doc)
}
