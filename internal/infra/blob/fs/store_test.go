package fs

import (
	"bytes"
	"context"
	"testing"
)

func TestStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	store, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	folderID, err := store.CreateFolder(ctx, "NV-Gov", "")
	if err != nil {
		t.Fatal(err)
	}
	fileID, err := store.CreateFile(ctx, "data.csv", folderID, bytes.NewReader([]byte("rows")), "text/csv")
	if err != nil {
		t.Fatal(err)
	}

	reopened, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	entry, err := reopened.Stat(ctx, fileID)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Name != "data.csv" || entry.Parent != folderID || entry.ContentType != "text/csv" {
		t.Fatalf("sidecar metadata lost across reopen: %+v", entry)
	}
	children, err := reopened.ListChildren(ctx, folderID)
	if err != nil {
		t.Fatal(err)
	}
	if len(children) != 1 || children[0].ID != fileID {
		t.Fatalf("unexpected children %+v", children)
	}
}

func TestStore_RejectsPathLikeIDs(t *testing.T) {
	ctx := context.Background()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"../escape", "a/b", "nested\\id", "dot.meta"} {
		if _, err := store.GetFile(ctx, id); err == nil {
			t.Errorf("id %q must be rejected", id)
		}
	}
}
