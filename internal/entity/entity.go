// Package entity provides the Folder and File runtime types: thin handles
// over blob store identifiers with lazy content caching and replace-aware
// uploads. Entities carry identity (name, id, parent); bytes live in the
// store and are fetched on demand.
package entity

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"

	"pollcore/internal/blob"
	"pollcore/pkg/domain"
)

// Folder is a named container in the blob store.
type Folder struct {
	store blob.Store

	Name   string
	ID     string
	Parent string
}

// NewFolder creates the folder in the store eagerly and returns its handle.
func NewFolder(ctx context.Context, store blob.Store, name, parentID string) (*Folder, error) {
	id, err := store.CreateFolder(ctx, name, parentID)
	if err != nil {
		return nil, domain.StoreError{Op: "create_folder", Name: name, Err: err}
	}
	return &Folder{store: store, Name: name, ID: id, Parent: parentID}, nil
}

// FolderFromRecord rebuilds a handle from its catalogue record without any
// store call.
func FolderFromRecord(store blob.Store, rec domain.FolderRecord) *Folder {
	return &Folder{store: store, Name: rec.Name, ID: rec.ID, Parent: rec.Parent}
}

// Record returns the persisted identity of the folder.
func (f *Folder) Record() domain.FolderRecord {
	return domain.FolderRecord{Name: f.Name, ID: f.ID, Parent: f.Parent}
}

// Children lists the folder's direct children.
func (f *Folder) Children(ctx context.Context) ([]blob.Entry, error) {
	entries, err := f.store.ListChildren(ctx, f.ID)
	if err != nil {
		return nil, domain.StoreError{Op: "list_children", Name: f.Name, ID: f.ID, Err: err}
	}
	return entries, nil
}

// Delete removes the folder and everything under it from the store. The
// caller clears any catalogue references; store and catalogue are not
// transactional.
func (f *Folder) Delete(ctx context.Context) error {
	if err := f.store.DeleteFile(ctx, f.ID); err != nil {
		return domain.StoreError{Op: "delete_file", Name: f.Name, ID: f.ID, Err: err}
	}
	return nil
}

// Store exposes the backing store so aggregates can create children under
// this folder.
func (f *Folder) Store() blob.Store { return f.store }

// File is a named blob with a lazily populated content cache. Once fetched,
// content is never silently refreshed; Update rewrites both the store object
// and the cache.
type File struct {
	store blob.Store

	Name        string
	ID          string
	Parent      string
	ContentType string

	content []byte
	fetched bool
}

// Upload describes one incoming file. ReplaceID, when set, names an existing
// store object whose content the upload overwrites instead of creating a
// duplicate.
type Upload struct {
	Name        string
	Content     []byte
	ContentType string
	ReplaceID   string
}

// NewFile stores the upload under the given parent and returns its handle.
// Content type falls back to inference from the filename extension. When the
// upload carries a replace target the store call is an update and the old
// identifier stays live.
func NewFile(ctx context.Context, store blob.Store, up Upload, parentID string) (*File, error) {
	ct := up.ContentType
	if ct == "" {
		ct = ContentTypeFor(up.Name)
	}
	f := &File{
		store:       store,
		Name:        up.Name,
		Parent:      parentID,
		ContentType: ct,
		content:     up.Content,
		fetched:     true,
	}
	if up.ReplaceID != "" {
		if err := store.UpdateFile(ctx, up.ReplaceID, bytes.NewReader(up.Content)); err != nil {
			return nil, domain.StoreError{Op: "update_file", Name: up.Name, ID: up.ReplaceID, Err: err}
		}
		f.ID = up.ReplaceID
		return f, nil
	}
	id, err := store.CreateFile(ctx, up.Name, parentID, bytes.NewReader(up.Content), ct)
	if err != nil {
		return nil, domain.StoreError{Op: "create_file", Name: up.Name, Err: err}
	}
	f.ID = id
	return f, nil
}

// FileFromRecord rebuilds a handle from its catalogue record. The content
// cache starts empty; the first Fetch fills it.
func FileFromRecord(store blob.Store, rec domain.FileRecord) *File {
	return &File{
		store:       store,
		Name:        rec.Name,
		ID:          rec.ID,
		Parent:      rec.Parent,
		ContentType: ContentTypeFor(rec.Name),
	}
}

// Record returns the persisted identity of the file.
func (f *File) Record() domain.FileRecord {
	return domain.FileRecord{Name: f.Name, ID: f.ID, Parent: f.Parent}
}

// Fetched reports whether the content cache is populated.
func (f *File) Fetched() bool { return f.fetched }

// Fetch returns the file's bytes, downloading them on first call and caching
// for the handle's lifetime.
func (f *File) Fetch(ctx context.Context) ([]byte, error) {
	if f.fetched {
		return f.content, nil
	}
	rc, err := f.store.GetFile(ctx, f.ID)
	if err != nil {
		return nil, domain.StoreError{Op: "get_file", Name: f.Name, ID: f.ID, Err: err}
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, domain.StoreError{Op: "get_file", Name: f.Name, ID: f.ID, Err: err}
	}
	f.content = data
	f.fetched = true
	return f.content, nil
}

// Update overwrites the store object's bytes and rewrites the cache to the
// new content synchronously.
func (f *File) Update(ctx context.Context, content []byte) error {
	if err := f.store.UpdateFile(ctx, f.ID, bytes.NewReader(content)); err != nil {
		return domain.StoreError{Op: "update_file", Name: f.Name, ID: f.ID, Err: err}
	}
	f.content = content
	f.fetched = true
	return nil
}

// Delete removes the store object. The caller clears the catalogue slot.
func (f *File) Delete(ctx context.Context) error {
	if err := f.store.DeleteFile(ctx, f.ID); err != nil {
		return domain.StoreError{Op: "delete_file", Name: f.Name, ID: f.ID, Err: err}
	}
	return nil
}

// ContentTypeFor infers a content type from the filename extension.
func ContentTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".csv":
		return "text/csv"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".json":
		return "application/json"
	case ".sav":
		return "application/octet-stream"
	default:
		return "application/octet-stream"
	}
}
