// Package core wires the blob store and the catalogue into the service
// operations the tooling calls: opening projects, routing uploads, rounds,
// survey parsing, slot deletion, catalogue archiving and consistency checks.
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pollcore/internal/blob"
	"pollcore/internal/catalog"
	"pollcore/internal/entity"
	"pollcore/internal/project"
	"pollcore/internal/survey"
	"pollcore/pkg/domain"
)

// archiveFolderName holds dated catalogue snapshots at the store root.
const archiveFolderName = "Archive"

// Service exposes the artifact-management operations over injected stores.
// Every mutation re-reads the project record, applies the change, and writes
// it back under the revision token it read (sync-on-write with optimistic
// concurrency).
type Service struct {
	blobs   blob.Store
	catalog catalog.Store

	metrics MetricsRecorder
	tracer  Tracer
	clock   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithMetricsRecorder attaches a metrics recorder to every operation.
func WithMetricsRecorder(rec MetricsRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithTracer attaches a tracer to every operation.
func WithTracer(tr Tracer) Option {
	return func(s *Service) {
		if tr != nil {
			s.tracer = tr
		}
	}
}

// WithClock overrides the time source used for round names and archive
// stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.clock = now
		}
	}
}

// NewService constructs a service over the supplied stores.
func NewService(blobs blob.Store, cat catalog.Store, opts ...Option) *Service {
	s := &Service{
		blobs:   blobs,
		catalog: cat,
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// instrument wraps one operation with metrics and tracing.
func (s *Service) instrument(ctx context.Context, operation string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, operation)
	start := time.Now()
	err := fn(ctx)
	s.metrics.Observe(ctx, operation, err == nil, time.Since(start))
	span.End(err)
	return err
}

// open loads a project and its revision token, or reports NotFoundError.
func (s *Service) open(ctx context.Context, name string) (*project.Project, int64, error) {
	rec, rev, err := s.catalog.Get(ctx, name)
	if err != nil {
		return nil, 0, err
	}
	return project.FromRecord(s.blobs, rec), rev, nil
}

// OpenProject returns the named project, creating and cataloguing a fresh
// one when the catalogue has no entry.
func (s *Service) OpenProject(ctx context.Context, name string) (*project.Project, error) {
	var p *project.Project
	err := s.instrument(ctx, "open_project", func(ctx context.Context) error {
		existing, _, err := s.open(ctx, name)
		if err == nil {
			p = existing
			return nil
		}
		if !errors.As(err, &domain.NotFoundError{}) {
			return err
		}
		created, err := project.New(ctx, s.blobs, name)
		if err != nil {
			return err
		}
		if _, err := s.catalog.Put(ctx, created.Record(), 0); err != nil {
			return err
		}
		p = created
		return nil
	})
	return p, err
}

// mutate runs fn against the named project (creating it if absent) and
// writes the changed record back under the token it was read with.
func (s *Service) mutate(ctx context.Context, name string, fn func(*project.Project) error) error {
	p, rev, err := s.open(ctx, name)
	if err != nil {
		if !errors.As(err, &domain.NotFoundError{}) {
			return err
		}
		p, err = project.New(ctx, s.blobs, name)
		if err != nil {
			return err
		}
		if rev, err = s.catalog.Put(ctx, p.Record(), 0); err != nil {
			return err
		}
	}
	if err := fn(p); err != nil {
		return err
	}
	_, err = s.catalog.Put(ctx, p.Record(), rev)
	return err
}

// UploadFile routes one file into the named project and persists the
// result. The returned slot names where the file landed.
func (s *Service) UploadFile(ctx context.Context, projectName string, up entity.Upload) (domain.SlotKind, error) {
	var slot domain.SlotKind
	err := s.instrument(ctx, "upload_file", func(ctx context.Context) error {
		return s.mutate(ctx, projectName, func(p *project.Project) error {
			var err error
			slot, err = p.Upload(ctx, up, s.clock())
			return err
		})
	})
	return slot, err
}

// NewVersion starts the next polling round and returns its name.
func (s *Service) NewVersion(ctx context.Context, projectName string) (string, error) {
	var name string
	err := s.instrument(ctx, "new_version", func(ctx context.Context) error {
		return s.mutate(ctx, projectName, func(p *project.Project) error {
			ds, err := p.NewVersion(ctx, s.clock())
			if err != nil {
				return err
			}
			name = ds.Name
			return nil
		})
	})
	return name, err
}

// ParseSurvey fetches the project's instrument and parses it.
func (s *Service) ParseSurvey(ctx context.Context, projectName string) (*survey.Survey, error) {
	var parsed *survey.Survey
	err := s.instrument(ctx, "parse_survey", func(ctx context.Context) error {
		p, _, err := s.open(ctx, projectName)
		if err != nil {
			return err
		}
		parsed, err = p.Survey(ctx)
		return err
	})
	return parsed, err
}

// DeleteSlot removes the file occupying a slot: the store object first, then
// the catalogue reference. The two writes are not transactional; a crash
// between them leaves a dangling reference that CheckProject reports.
func (s *Service) DeleteSlot(ctx context.Context, projectName string, slot domain.SlotKind) error {
	return s.instrument(ctx, "delete_slot", func(ctx context.Context) error {
		p, rev, err := s.open(ctx, projectName)
		if err != nil {
			return err
		}
		f, clear, err := slotTarget(p, slot)
		if err != nil {
			return err
		}
		if err := f.Delete(ctx); err != nil {
			return err
		}
		clear()
		_, err = s.catalog.Put(ctx, p.Record(), rev)
		return err
	})
}

// slotTarget resolves a slot to its occupant and a func clearing it. Round
// slots address the latest round.
func slotTarget(p *project.Project, slot domain.SlotKind) (*entity.File, func(), error) {
	missing := domain.NotFoundError{Project: p.Name, Slot: slot}
	switch {
	case slot == domain.SlotInstrument:
		if p.Instrument == nil {
			return nil, nil, missing
		}
		return p.Instrument, func() { p.Instrument = nil }, nil
	case slot == domain.SlotCombined, slot == domain.SlotCells, slot == domain.SlotLandlines:
		if p.ContactLists == nil {
			return nil, nil, missing
		}
		f, err := p.ContactLists.Get(slot)
		if err != nil {
			return nil, nil, missing
		}
		clear := func() {
			switch slot {
			case domain.SlotCombined:
				p.ContactLists.Combined = nil
			case domain.SlotCells:
				p.ContactLists.Cells = nil
			case domain.SlotLandlines:
				p.ContactLists.Landlines = nil
			}
		}
		return f, clear, nil
	case slot.RoundSlot():
		if len(p.Versions) == 0 {
			return nil, nil, missing
		}
		round := p.Versions[len(p.Versions)-1]
		f, err := round.Get(slot)
		if err != nil {
			return nil, nil, missing
		}
		clear := func() {
			switch slot {
			case domain.SlotAlchemerInput:
				round.AlchemerInput = nil
			case domain.SlotBroadnetInput:
				round.BroadnetInput = nil
			case domain.SlotDataOutput:
				round.DataOutput = nil
			case domain.SlotColumnOutput:
				round.ColumnOutput = nil
			case domain.SlotXNamesOutput:
				round.XNamesOutput = nil
			}
		}
		return f, clear, nil
	default:
		return nil, nil, missing
	}
}

// ArchiveCatalog snapshots every project record into a dated JSON file under
// the Archive folder in the blob store, then resets the live catalogue. It
// returns the archive file's store identifier.
func (s *Service) ArchiveCatalog(ctx context.Context) (string, error) {
	var archiveID string
	err := s.instrument(ctx, "archive_catalog", func(ctx context.Context) error {
		snap, err := s.catalog.Snapshot(ctx)
		if err != nil {
			return err
		}
		payload, err := domain.EncodeCatalogue(domain.Catalogue{Projects: snap})
		if err != nil {
			return err
		}
		folderID, err := s.ensureArchiveFolder(ctx)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("log %s.json", s.clock().Format("2006.01.02"))
		f, err := entity.NewFile(ctx, s.blobs, entity.Upload{
			Name:        name,
			Content:     payload,
			ContentType: "application/json",
		}, folderID)
		if err != nil {
			return err
		}
		archiveID = f.ID
		return s.catalog.Reset(ctx)
	})
	return archiveID, err
}

func (s *Service) ensureArchiveFolder(ctx context.Context) (string, error) {
	children, err := s.blobs.ListChildren(ctx, "")
	if err != nil {
		return "", domain.StoreError{Op: "list_children", Name: archiveFolderName, Err: err}
	}
	for _, child := range children {
		if child.Folder && child.Name == archiveFolderName {
			return child.ID, nil
		}
	}
	folder, err := entity.NewFolder(ctx, s.blobs, archiveFolderName, "")
	if err != nil {
		return "", err
	}
	return folder.ID, nil
}

// CheckProject verifies the named project's record against the blob store.
func (s *Service) CheckProject(ctx context.Context, projectName string) ([]domain.Inconsistency, error) {
	var found []domain.Inconsistency
	err := s.instrument(ctx, "check_project", func(ctx context.Context) error {
		rec, _, err := s.catalog.Get(ctx, projectName)
		if err != nil {
			return err
		}
		found, err = project.Check(ctx, s.blobs, rec)
		return err
	})
	return found, err
}

// CheckAll walks every catalogued project and collects findings per project.
// Projects with no findings are omitted.
func (s *Service) CheckAll(ctx context.Context) (map[string][]domain.Inconsistency, error) {
	out := map[string][]domain.Inconsistency{}
	err := s.instrument(ctx, "check_all", func(ctx context.Context) error {
		snap, err := s.catalog.Snapshot(ctx)
		if err != nil {
			return err
		}
		for name, rec := range snap {
			found, err := project.Check(ctx, s.blobs, rec)
			if err != nil {
				return fmt.Errorf("check project %s: %w", name, err)
			}
			if len(found) > 0 {
				out[name] = found
			}
		}
		return nil
	})
	return out, err
}
