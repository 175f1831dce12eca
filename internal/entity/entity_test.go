package entity

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"pollcore/internal/blob"
	"pollcore/pkg/domain"
)

func TestFolderLifecycle(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()

	folder, err := NewFolder(ctx, store, "NV-Gov", "")
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}
	if folder.ID == "" {
		t.Fatalf("expected store-assigned id")
	}

	rebuilt := FolderFromRecord(store, folder.Record())
	if rebuilt.Name != "NV-Gov" || rebuilt.ID != folder.ID {
		t.Fatalf("record round-trip lost identity: %+v", rebuilt.Record())
	}

	if _, err := NewFile(ctx, store, Upload{Name: "a.csv", Content: []byte("a")}, folder.ID); err != nil {
		t.Fatalf("create file: %v", err)
	}
	children, err := folder.Children(ctx)
	if err != nil {
		t.Fatalf("children: %v", err)
	}
	if len(children) != 1 || children[0].Name != "a.csv" {
		t.Fatalf("unexpected children %+v", children)
	}
}

func TestFileLazyFetch(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	root, err := store.CreateFolder(ctx, "p", "")
	if err != nil {
		t.Fatal(err)
	}

	f, err := NewFile(ctx, store, Upload{Name: "data.csv", Content: []byte("id,phone\n")}, root)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !f.Fetched() {
		t.Fatalf("freshly uploaded file should carry its content")
	}

	// Reconstruction drops the cache.
	rebuilt := FileFromRecord(store, f.Record())
	if rebuilt.Fetched() {
		t.Fatalf("rebuilt file must start content-empty")
	}
	got, err := rebuilt.Fetch(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(got) != "id,phone\n" {
		t.Fatalf("unexpected content %q", got)
	}
	if !rebuilt.Fetched() {
		t.Fatalf("fetch must populate the cache")
	}

	// The cache is monotonic: a store-side rewrite is not observed.
	if err := store.UpdateFile(ctx, f.ID, bytes.NewReader([]byte("changed"))); err != nil {
		t.Fatal(err)
	}
	got, err = rebuilt.Fetch(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "id,phone\n" {
		t.Fatalf("cache was refreshed behind the handle: %q", got)
	}
}

func TestFileReplaceTarget(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	root, err := store.CreateFolder(ctx, "p", "")
	if err != nil {
		t.Fatal(err)
	}

	first, err := NewFile(ctx, store, Upload{Name: "221077_Foo_CombinedContactList.csv", Content: []byte("v1")}, root)
	if err != nil {
		t.Fatal(err)
	}
	second, err := NewFile(ctx, store, Upload{
		Name:      "221077_Foo_CombinedContactList.csv",
		Content:   []byte("v2"),
		ReplaceID: first.ID,
	}, root)
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Fatalf("replace must keep the identifier: %s != %s", second.ID, first.ID)
	}

	children, err := store.ListChildren(ctx, root)
	if err != nil {
		t.Fatal(err)
	}
	if len(children) != 1 {
		t.Fatalf("expected one live object after replace, got %d", len(children))
	}
	got, err := FileFromRecord(store, second.Record()).Fetch(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "v2" {
		t.Fatalf("replace did not overwrite content: %q", got)
	}
}

func TestFileUpdateRewritesCache(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	root, err := store.CreateFolder(ctx, "p", "")
	if err != nil {
		t.Fatal(err)
	}
	f, err := NewFile(ctx, store, Upload{Name: "All.csv", Content: []byte("old")}, root)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Update(ctx, []byte("new")); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := f.Fetch(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new" {
		t.Fatalf("cache not rewritten: %q", got)
	}
}

func TestStoreErrorContext(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	f := FileFromRecord(store, domain.FileRecord{Name: "ghost.csv", ID: "missing"})
	_, err := f.Fetch(ctx)
	var se domain.StoreError
	if !errors.As(err, &se) {
		t.Fatalf("expected StoreError, got %v", err)
	}
	if se.Op != "get_file" || se.Name != "ghost.csv" || se.ID != "missing" {
		t.Fatalf("missing context: %+v", se)
	}
	if !errors.Is(err, blob.ErrNotExist) {
		t.Fatalf("expected ErrNotExist in chain, got %v", err)
	}
}

func TestContentTypeInference(t *testing.T) {
	cases := map[string]string{
		"data.csv":        "text/csv",
		"instrument.DOCX": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"weights.sav":     "application/octet-stream",
		"log.json":        "application/json",
		"readme":          "application/octet-stream",
	}
	for name, want := range cases {
		if got := ContentTypeFor(name); got != want {
			t.Errorf("ContentTypeFor(%q) = %q, want %q", name, got, want)
		}
	}
}
