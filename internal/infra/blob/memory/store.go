// Package memory implements an in-memory blob Store for tests.
package memory

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"pollcore/internal/blob/core"
)

type object struct {
	entry core.Entry
	data  []byte
}

// Store implements core.Store backed by process memory. Intended for tests.
type Store struct {
	mu   sync.RWMutex
	objs map[string]*object
}

// New returns an empty in-memory blob store.
func New() *Store { return &Store{objs: make(map[string]*object)} }

// Driver returns the blob driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// CreateFolder allocates a folder object under parentID.
func (s *Store) CreateFolder(_ context.Context, name, parentID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkParent(parentID); err != nil {
		return "", err
	}
	id := newID()
	s.objs[id] = &object{entry: core.Entry{ID: id, Name: name, Parent: parentID, Folder: true, Modified: time.Now().UTC()}}
	return id, nil
}

// CreateFile stores a new file object under parentID.
func (s *Store) CreateFile(_ context.Context, name, parentID string, r io.Reader, contentType string) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkParent(parentID); err != nil {
		return "", err
	}
	id := newID()
	s.objs[id] = &object{
		entry: core.Entry{ID: id, Name: name, Parent: parentID, Size: int64(len(b)), ContentType: contentType, Modified: time.Now().UTC()},
		data:  b,
	}
	return id, nil
}

// UpdateFile overwrites the content of an existing file.
func (s *Store) UpdateFile(_ context.Context, id string, r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objs[id]
	if !ok {
		return fmt.Errorf("update %s: %w", id, core.ErrNotExist)
	}
	if obj.entry.Folder {
		return fmt.Errorf("update %s: object is a folder", id)
	}
	obj.data = b
	obj.entry.Size = int64(len(b))
	obj.entry.Modified = time.Now().UTC()
	return nil
}

// GetFile returns a reader over a copy of the file's bytes.
func (s *Store) GetFile(_ context.Context, id string) (io.ReadCloser, error) {
	s.mu.RLock()
	obj, ok := s.objs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("get %s: %w", id, core.ErrNotExist)
	}
	if obj.entry.Folder {
		return nil, fmt.Errorf("get %s: object is a folder", id)
	}
	cp := make([]byte, len(obj.data))
	copy(cp, obj.data)
	return io.NopCloser(bytes.NewReader(cp)), nil
}

// Stat returns the entry for an identifier.
func (s *Store) Stat(_ context.Context, id string) (core.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objs[id]
	if !ok {
		return core.Entry{}, fmt.Errorf("stat %s: %w", id, core.ErrNotExist)
	}
	return obj.entry, nil
}

// DeleteFile removes an object. Deleting a folder removes its subtree.
func (s *Store) DeleteFile(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objs[id]
	if !ok {
		return fmt.Errorf("delete %s: %w", id, core.ErrNotExist)
	}
	delete(s.objs, id)
	if obj.entry.Folder {
		s.deleteChildrenLocked(id)
	}
	return nil
}

func (s *Store) deleteChildrenLocked(parentID string) {
	for id, obj := range s.objs {
		if obj.entry.Parent == parentID {
			delete(s.objs, id)
			if obj.entry.Folder {
				s.deleteChildrenLocked(id)
			}
		}
	}
}

// ListChildren returns the direct children of folderID ordered by name.
func (s *Store) ListChildren(_ context.Context, folderID string) ([]core.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if folderID != "" {
		obj, ok := s.objs[folderID]
		if !ok {
			return nil, fmt.Errorf("list %s: %w", folderID, core.ErrNotExist)
		}
		if !obj.entry.Folder {
			return nil, fmt.Errorf("list %s: object is not a folder", folderID)
		}
	}
	var out []core.Entry
	for _, obj := range s.objs {
		if obj.entry.Parent == folderID {
			out = append(out, obj.entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) checkParent(parentID string) error {
	if parentID == "" {
		return nil
	}
	obj, ok := s.objs[parentID]
	if !ok {
		return fmt.Errorf("parent %s: %w", parentID, core.ErrNotExist)
	}
	if !obj.entry.Folder {
		return fmt.Errorf("parent %s is not a folder", parentID)
	}
	return nil
}

func newID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
