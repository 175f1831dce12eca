// Package fs implements a filesystem-backed blob Store.
package fs

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"pollcore/internal/blob/core"
)

// Store implements core.Store using the local filesystem. Every object lives
// in a flat namespace under root: `<id>` holds file bytes, `<id>.meta` holds
// the JSON sidecar with name, parent, and content type. Folders are sidecar
// only. Not concurrent-writer safe beyond per-file creation.
type Store struct {
	root string
}

// New returns a filesystem-backed blob store rooted at path, creating it if needed.
func New(root string) (*Store, error) {
	if root == "" {
		root = "./blobdata"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

// Driver returns the blob driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverFilesystem }

type metaFile struct {
	Name        string    `json:"name"`
	Parent      string    `json:"parent,omitempty"`
	Folder      bool      `json:"folder,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (s *Store) paths(id string) (dataPath, metaPath string, err error) {
	if strings.TrimSpace(id) == "" {
		return "", "", fmt.Errorf("empty id")
	}
	// ids are generated hex; anything path-like is rejected outright
	if strings.ContainsAny(id, "/\\.") {
		return "", "", fmt.Errorf("invalid id %q", id)
	}
	dataPath = filepath.Join(s.root, id)
	metaPath = dataPath + ".meta"
	return dataPath, metaPath, nil
}

// CreateFolder writes a folder sidecar and returns the new identifier.
func (s *Store) CreateFolder(_ context.Context, name, parentID string) (string, error) {
	if err := s.checkParent(parentID); err != nil {
		return "", err
	}
	id := newID()
	_, metaPath, err := s.paths(id)
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	mf := metaFile{Name: name, Parent: parentID, Folder: true, CreatedAt: now, UpdatedAt: now}
	if err := writeJSON(metaPath, mf); err != nil {
		return "", err
	}
	return id, nil
}

// CreateFile streams content to a new identifier under parentID.
func (s *Store) CreateFile(_ context.Context, name, parentID string, r io.Reader, contentType string) (string, error) {
	if err := s.checkParent(parentID); err != nil {
		return "", err
	}
	id := newID()
	dataPath, metaPath, err := s.paths(id)
	if err != nil {
		return "", err
	}
	size, err := writeAtomic(dataPath, r)
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	mf := metaFile{Name: name, Parent: parentID, ContentType: contentType, Size: size, CreatedAt: now, UpdatedAt: now}
	if err := writeJSON(metaPath, mf); err != nil {
		_ = os.Remove(dataPath)
		return "", err
	}
	return id, nil
}

// UpdateFile overwrites the bytes of an existing identifier.
func (s *Store) UpdateFile(_ context.Context, id string, r io.Reader) error {
	dataPath, metaPath, err := s.paths(id)
	if err != nil {
		return err
	}
	mf, err := readMeta(metaPath)
	if err != nil {
		return err
	}
	if mf.Folder {
		return fmt.Errorf("update %s: object is a folder", id)
	}
	size, err := writeAtomic(dataPath, r)
	if err != nil {
		return err
	}
	mf.Size = size
	mf.UpdatedAt = time.Now().UTC()
	return writeJSON(metaPath, mf)
}

// GetFile opens the data file for reading.
func (s *Store) GetFile(_ context.Context, id string) (io.ReadCloser, error) {
	dataPath, metaPath, err := s.paths(id)
	if err != nil {
		return nil, err
	}
	if mf, err := readMeta(metaPath); err != nil {
		return nil, err
	} else if mf.Folder {
		return nil, fmt.Errorf("get %s: object is a folder", id)
	}
	f, err := os.Open(dataPath)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, fmt.Errorf("get %s: %w", id, core.ErrNotExist)
	}
	return f, err
}

// Stat returns the sidecar metadata as an Entry.
func (s *Store) Stat(_ context.Context, id string) (core.Entry, error) {
	_, metaPath, err := s.paths(id)
	if err != nil {
		return core.Entry{}, err
	}
	mf, err := readMeta(metaPath)
	if err != nil {
		return core.Entry{}, err
	}
	return entryFromMeta(id, mf), nil
}

// DeleteFile removes the data file and sidecar. Folder subtrees are removed
// sidecar by sidecar.
func (s *Store) DeleteFile(ctx context.Context, id string) error {
	dataPath, metaPath, err := s.paths(id)
	if err != nil {
		return err
	}
	mf, err := readMeta(metaPath)
	if err != nil {
		return err
	}
	if mf.Folder {
		children, err := s.ListChildren(ctx, id)
		if err != nil {
			return err
		}
		for _, child := range children {
			if err := s.DeleteFile(ctx, child.ID); err != nil {
				return err
			}
		}
	} else if err := os.Remove(dataPath); err != nil && !errors.Is(err, iofs.ErrNotExist) {
		return err
	}
	return os.Remove(metaPath)
}

// ListChildren scans sidecars and returns entries parented at folderID,
// ordered by name.
func (s *Store) ListChildren(_ context.Context, folderID string) ([]core.Entry, error) {
	if folderID != "" {
		_, metaPath, err := s.paths(folderID)
		if err != nil {
			return nil, err
		}
		mf, err := readMeta(metaPath)
		if err != nil {
			return nil, err
		}
		if !mf.Folder {
			return nil, fmt.Errorf("list %s: object is not a folder", folderID)
		}
	}
	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	var out []core.Entry
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".meta") {
			continue
		}
		id := strings.TrimSuffix(de.Name(), ".meta")
		mf, err := readMeta(filepath.Join(s.root, de.Name()))
		if err != nil {
			return nil, err
		}
		if mf.Parent == folderID {
			out = append(out, entryFromMeta(id, mf))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) checkParent(parentID string) error {
	if parentID == "" {
		return nil
	}
	_, metaPath, err := s.paths(parentID)
	if err != nil {
		return err
	}
	mf, err := readMeta(metaPath)
	if err != nil {
		return fmt.Errorf("parent %s: %w", parentID, core.ErrNotExist)
	}
	if !mf.Folder {
		return fmt.Errorf("parent %s is not a folder", parentID)
	}
	return nil
}

func entryFromMeta(id string, mf metaFile) core.Entry {
	return core.Entry{ID: id, Name: mf.Name, Parent: mf.Parent, Folder: mf.Folder, Size: mf.Size, ContentType: mf.ContentType, Modified: mf.UpdatedAt}
}

// writeAtomic streams r to a temp file and renames it into place.
func writeAtomic(dataPath string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dataPath), ".tmp-*")
	if err != nil {
		return 0, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	size, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		return 0, err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), dataPath); err != nil {
		return 0, err
	}
	return size, nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func readMeta(path string) (metaFile, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, iofs.ErrNotExist) {
		return metaFile{}, fmt.Errorf("%s: %w", filepath.Base(path), core.ErrNotExist)
	}
	if err != nil {
		return metaFile{}, err
	}
	var mf metaFile
	if err := json.Unmarshal(b, &mf); err != nil {
		return metaFile{}, err
	}
	return mf, nil
}

func newID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
