package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"pollcore/internal/blob"
	"pollcore/internal/catalog/blobdoc"
	"pollcore/internal/docx"
	"pollcore/internal/docx/docxtest"
	"pollcore/internal/entity"
	"pollcore/internal/survey"
	"pollcore/pkg/domain"
)

var fixedNow = time.Date(2026, 10, 11, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T, opts ...Option) (*Service, blob.Store, *blobdoc.Store) {
	t.Helper()
	ctx := context.Background()
	blobs := blob.NewMemory()
	cat, err := blobdoc.Ensure(ctx, blobs, "")
	if err != nil {
		t.Fatal(err)
	}
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewService(blobs, cat, opts...), blobs, cat
}

func TestOpenProject_CreatesAndReloads(t *testing.T) {
	ctx := context.Background()
	svc, _, cat := newService(t)

	p, err := svc.OpenProject(ctx, "NV-Gov")
	if err != nil {
		t.Fatal(err)
	}
	if p.Folder.ID == "" || p.ContactLists == nil {
		t.Fatalf("fresh project incomplete: %+v", p)
	}
	rec, _, err := cat.Get(ctx, "NV-Gov")
	if err != nil {
		t.Fatalf("fresh project not catalogued: %v", err)
	}

	again, err := svc.OpenProject(ctx, "NV-Gov")
	if err != nil {
		t.Fatal(err)
	}
	if again.Folder.ID != rec.ID {
		t.Fatalf("reload created a new folder: %s != %s", again.Folder.ID, rec.ID)
	}
}

func TestUploadFile_SyncOnWrite(t *testing.T) {
	ctx := context.Background()
	svc, _, cat := newService(t)

	slot, err := svc.UploadFile(ctx, "NV-Gov", entity.Upload{
		Name:    "221077_Foo_CombinedContactList.csv",
		Content: []byte("rows"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if slot != domain.SlotCombined {
		t.Errorf("slot = %s", slot)
	}

	rec, _, err := cat.Get(ctx, "NV-Gov")
	if err != nil {
		t.Fatal(err)
	}
	if rec.ContactLists == nil || rec.ContactLists.Combined == nil {
		t.Fatalf("upload not persisted to catalogue: %+v", rec)
	}

	// A second upload into the slot keeps one catalogued file with the
	// same identifier.
	if _, err := svc.UploadFile(ctx, "NV-Gov", entity.Upload{
		Name:    "221078_Foo_CombinedContactList.csv",
		Content: []byte("rows2"),
	}); err != nil {
		t.Fatal(err)
	}
	rec2, _, err := cat.Get(ctx, "NV-Gov")
	if err != nil {
		t.Fatal(err)
	}
	if rec2.ContactLists.Combined.ID != rec.ContactLists.Combined.ID {
		t.Fatalf("replace changed the identifier")
	}
}

func TestUploadFile_Unroutable(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)
	_, err := svc.UploadFile(ctx, "NV-Gov", entity.Upload{Name: "notes.txt"})
	var ue domain.UnroutableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnroutableError, got %v", err)
	}
}

func TestNewVersion_SequencePersists(t *testing.T) {
	ctx := context.Background()
	svc, _, cat := newService(t)

	names := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		name, err := svc.NewVersion(ctx, "NV-Gov")
		if err != nil {
			t.Fatal(err)
		}
		names = append(names, name)
	}
	want := []string{"v01 10.11", "v02 10.11", "v03 10.11"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("version %d = %q, want %q", i, names[i], want[i])
		}
	}
	rec, _, err := cat.Get(ctx, "NV-Gov")
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.Versions) != 3 {
		t.Fatalf("catalogue has %d versions", len(rec.Versions))
	}
}

func TestParseSurvey_EndToEnd(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	payload := docxtest.MustBuild([]docx.Paragraph{
		{Text: "If the election for Governor were held today, who would you vote for?", Listed: true, Level: 0},
		{Text: "John Smith", Listed: true, Level: 1},
		{Text: "Jane Doe", Listed: true, Level: 1},
		{Text: "Undecided", Listed: true, Level: 1},
	})
	if _, err := svc.UploadFile(ctx, "NV-Gov", entity.Upload{Name: "NV-Gov instrument.docx", Content: payload}); err != nil {
		t.Fatal(err)
	}

	s, err := svc.ParseSurvey(ctx, "NV-Gov")
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Questions) != 1 {
		t.Fatalf("questions = %d", len(s.Questions))
	}
	q := s.Questions[0]
	if q.Type != survey.TypeHeadToHead || q.SubType != "Governor" {
		t.Fatalf("unexpected question %+v", q)
	}
}

func TestDeleteSlot_StoreThenCatalogue(t *testing.T) {
	ctx := context.Background()
	svc, blobs, cat := newService(t)

	if _, err := svc.UploadFile(ctx, "NV-Gov", entity.Upload{
		Name:    "221077_Foo_CellPhones.csv",
		Content: []byte("cells"),
	}); err != nil {
		t.Fatal(err)
	}
	rec, _, err := cat.Get(ctx, "NV-Gov")
	if err != nil {
		t.Fatal(err)
	}
	fileID := rec.ContactLists.Cells.ID

	if err := svc.DeleteSlot(ctx, "NV-Gov", domain.SlotCells); err != nil {
		t.Fatal(err)
	}
	if _, err := blobs.Stat(ctx, fileID); !errors.Is(err, blob.ErrNotExist) {
		t.Fatalf("store object still exists: %v", err)
	}
	rec, _, err = cat.Get(ctx, "NV-Gov")
	if err != nil {
		t.Fatal(err)
	}
	if rec.ContactLists.Cells != nil {
		t.Fatalf("catalogue slot not cleared")
	}

	if err := svc.DeleteSlot(ctx, "NV-Gov", domain.SlotCells); !errors.As(err, &domain.NotFoundError{}) {
		t.Fatalf("expected NotFoundError for empty slot, got %v", err)
	}
}

func TestArchiveCatalog(t *testing.T) {
	ctx := context.Background()
	svc, blobs, cat := newService(t)

	if _, err := svc.OpenProject(ctx, "NV-Gov"); err != nil {
		t.Fatal(err)
	}
	archiveID, err := svc.ArchiveCatalog(ctx)
	if err != nil {
		t.Fatal(err)
	}

	entry, err := blobs.Stat(ctx, archiveID)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Name != "log 2026.10.11.json" {
		t.Errorf("archive name = %q", entry.Name)
	}

	f := entity.FileFromRecord(blobs, domain.FileRecord{Name: entry.Name, ID: archiveID})
	payload, err := f.Fetch(ctx)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := domain.DecodeCatalogue(payload)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := doc.Projects["NV-Gov"]; !ok {
		t.Fatalf("archive missing project: %+v", doc.Projects)
	}

	// The live catalogue is reset.
	snap, err := cat.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap) != 0 {
		t.Fatalf("catalogue not reset: %+v", snap)
	}
}

func TestCheckProject_ReportsDangling(t *testing.T) {
	ctx := context.Background()
	svc, blobs, cat := newService(t)

	if _, err := svc.UploadFile(ctx, "NV-Gov", entity.Upload{
		Name:    "221077_Foo_LandLines.csv",
		Content: []byte("rows"),
	}); err != nil {
		t.Fatal(err)
	}
	found, err := svc.CheckProject(ctx, "NV-Gov")
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 0 {
		t.Fatalf("clean project reported %+v", found)
	}

	rec, _, err := cat.Get(ctx, "NV-Gov")
	if err != nil {
		t.Fatal(err)
	}
	if err := blobs.DeleteFile(ctx, rec.ContactLists.Landlines.ID); err != nil {
		t.Fatal(err)
	}

	all, err := svc.CheckAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all["NV-Gov"]) != 1 || all["NV-Gov"][0].Slot != domain.SlotLandlines {
		t.Fatalf("expected one landlines finding, got %+v", all)
	}
}

func TestObservability_RecordsOperations(t *testing.T) {
	ctx := context.Background()
	tracer := NewJSONTracer(nil)
	metrics := NewExpvarMetricsRecorder("")
	svc, _, _ := newService(t, WithMetricsRecorder(metrics), WithTracer(tracer))

	if _, err := svc.OpenProject(ctx, "NV-Gov"); err != nil {
		t.Fatal(err)
	}
	_, _ = svc.UploadFile(ctx, "NV-Gov", entity.Upload{Name: "notes.txt"})

	snap := metrics.Snapshot()
	if snap.Results["open_project"]["success"] != 1 {
		t.Errorf("open_project not counted: %+v", snap.Results)
	}
	if snap.Results["upload_file"]["error"] != 1 {
		t.Errorf("failed upload not counted: %+v", snap.Results)
	}

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("span count = %d", len(entries))
	}
	if entries[1].Operation != "upload_file" || entries[1].Status != "error" {
		t.Errorf("unexpected span %+v", entries[1])
	}
}
