package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"pollcore/internal/blob"
	"pollcore/internal/catalog/blobdoc"
	"pollcore/internal/catalog/sqlite"
	"pollcore/pkg/domain"
)

func openVariants(t *testing.T) map[string]Store {
	ctx := context.Background()
	doc, err := blobdoc.Ensure(ctx, blob.NewMemory(), "")
	if err != nil {
		t.Fatalf("blobdoc ensure: %v", err)
	}
	sq, err := sqlite.NewStore(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("sqlite open: %v", err)
	}
	t.Cleanup(func() { _ = sq.Close() })
	return map[string]Store{"blob": doc, "sqlite": sq}
}

func TestCatalog_CreateGetUpdate(t *testing.T) {
	ctx := context.Background()
	for name, store := range openVariants(t) {
		t.Run(name, func(t *testing.T) {
			if _, _, err := store.Get(ctx, "NV-Gov"); !errors.As(err, &domain.NotFoundError{}) {
				t.Fatalf("expected NotFoundError, got %v", err)
			}

			rec := domain.ProjectRecord{Name: "NV-Gov", ID: "folder-1"}
			rev, err := store.Put(ctx, rec, 0)
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if rev == 0 {
				t.Fatalf("expected non-zero revision")
			}

			got, gotRev, err := store.Get(ctx, "NV-Gov")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.ID != "folder-1" || gotRev != rev {
				t.Fatalf("unexpected record %+v rev %d", got, gotRev)
			}

			// Re-creating an existing project must conflict.
			if _, err := store.Put(ctx, rec, 0); err == nil {
				t.Fatalf("expected create conflict")
			}

			got.Instrument = &domain.FileRecord{Name: "instrument.docx", ID: "file-9", Parent: "folder-1"}
			rev2, err := store.Put(ctx, got, gotRev)
			if err != nil {
				t.Fatalf("update: %v", err)
			}
			if rev2 <= gotRev {
				t.Fatalf("revision must advance: %d -> %d", gotRev, rev2)
			}

			// Stale token loses.
			var conflict domain.ConflictError
			if _, err := store.Put(ctx, got, gotRev); !errors.As(err, &conflict) {
				t.Fatalf("expected ConflictError, got %v", err)
			}
		})
	}
}

func TestCatalog_DeleteSnapshotReset(t *testing.T) {
	ctx := context.Background()
	for name, store := range openVariants(t) {
		t.Run(name, func(t *testing.T) {
			rev, err := store.Put(ctx, domain.ProjectRecord{Name: "A", ID: "fa"}, 0)
			if err != nil {
				t.Fatalf("put A: %v", err)
			}
			if _, err := store.Put(ctx, domain.ProjectRecord{Name: "B", ID: "fb"}, 0); err != nil {
				t.Fatalf("put B: %v", err)
			}

			snap, err := store.Snapshot(ctx)
			if err != nil {
				t.Fatalf("snapshot: %v", err)
			}
			if len(snap) != 2 || snap["A"].ID != "fa" || snap["B"].ID != "fb" {
				t.Fatalf("unexpected snapshot %+v", snap)
			}

			// Blob driver advances the document revision on every write, so
			// re-read before deleting.
			_, rev, err = store.Get(ctx, "A")
			if err != nil {
				t.Fatalf("get A: %v", err)
			}
			if err := store.Delete(ctx, "A", rev); err != nil {
				t.Fatalf("delete A: %v", err)
			}
			if _, _, err := store.Get(ctx, "A"); !errors.As(err, &domain.NotFoundError{}) {
				t.Fatalf("expected A gone, got %v", err)
			}

			if err := store.Reset(ctx); err != nil {
				t.Fatalf("reset: %v", err)
			}
			snap, err = store.Snapshot(ctx)
			if err != nil {
				t.Fatalf("snapshot after reset: %v", err)
			}
			if len(snap) != 0 {
				t.Fatalf("expected empty catalogue, got %+v", snap)
			}
		})
	}
}

func TestBlobdoc_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory()
	doc, err := blobdoc.Ensure(ctx, blobs, "log.json")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, err := doc.Put(ctx, domain.ProjectRecord{Name: "P", ID: "f"}, 0); err != nil {
		t.Fatalf("put: %v", err)
	}

	reopened, err := blobdoc.Ensure(ctx, blobs, "log.json")
	if err != nil {
		t.Fatalf("re-ensure: %v", err)
	}
	if reopened.FileID() != doc.FileID() {
		t.Fatalf("well-known file id changed: %s != %s", reopened.FileID(), doc.FileID())
	}
	rec, _, err := reopened.Get(ctx, "P")
	if err != nil || rec.ID != "f" {
		t.Fatalf("expected persisted record, got %+v %v", rec, err)
	}
}
