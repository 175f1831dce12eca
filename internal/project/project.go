package project

import (
	"context"
	"fmt"
	"time"

	"pollcore/internal/blob"
	"pollcore/internal/entity"
	"pollcore/internal/survey"
	"pollcore/pkg/domain"
)

// Project is the aggregate root: the project folder, the instrument and its
// parsed survey, the contact-list bundle, and the ordered round list.
// Mutations go through Upload/NewVersion; after any mutation the caller
// persists Record() to the catalogue before acting on the result
// (sync-on-write).
type Project struct {
	blobs blob.Store

	Name         string
	Folder       *entity.Folder
	Instrument   *entity.File
	ContactLists *ContactSet
	Versions     []*DataSet

	parsed *survey.Survey
}

// New creates a fresh project: a root folder and an empty contact set.
func New(ctx context.Context, store blob.Store, name string) (*Project, error) {
	folder, err := entity.NewFolder(ctx, store, name, "")
	if err != nil {
		return nil, err
	}
	contacts, err := NewContactSet(ctx, store, folder.ID)
	if err != nil {
		return nil, err
	}
	return &Project{blobs: store, Name: name, Folder: folder, ContactLists: contacts}, nil
}

// FromRecord reconstructs a project from its catalogue entry. Optional
// pieces stay nil; content caches start empty.
func FromRecord(store blob.Store, rec domain.ProjectRecord) *Project {
	p := &Project{
		blobs: store,
		Name:  rec.Name,
		Folder: entity.FolderFromRecord(store, domain.FolderRecord{
			Name: rec.Name, ID: rec.ID,
		}),
	}
	if rec.Instrument != nil {
		p.Instrument = entity.FileFromRecord(store, *rec.Instrument)
	}
	if rec.ContactLists != nil {
		p.ContactLists = ContactSetFromRecord(store, *rec.ContactLists)
	}
	for _, v := range rec.Versions {
		p.Versions = append(p.Versions, DataSetFromRecord(store, v))
	}
	return p
}

// Record serializes the whole project subtree, the exact shape written to
// the catalogue.
func (p *Project) Record() domain.ProjectRecord {
	rec := domain.ProjectRecord{Name: p.Name, ID: p.Folder.ID}
	if p.Instrument != nil {
		r := p.Instrument.Record()
		rec.Instrument = &r
	}
	if p.ContactLists != nil {
		r := p.ContactLists.Record()
		rec.ContactLists = &r
	}
	for _, v := range p.Versions {
		rec.Versions = append(rec.Versions, v.Record())
	}
	return rec
}

// Upload routes one file by filename: round patterns go to the latest round
// (created on demand), contact patterns to the contact set, a .docx to the
// instrument slot. Anything else is rejected with an UnroutableError. The
// returned slot names where the file landed.
func (p *Project) Upload(ctx context.Context, up entity.Upload, now time.Time) (domain.SlotKind, error) {
	slot := domain.Classify(up.Name)
	switch {
	case slot.RoundSlot():
		if len(p.Versions) == 0 {
			if _, err := p.NewVersion(ctx, now); err != nil {
				return slot, err
			}
		}
		return slot, p.Versions[len(p.Versions)-1].Upload(ctx, up)
	case slot.ContactSlot():
		if p.ContactLists == nil {
			contacts, err := NewContactSet(ctx, p.blobs, p.Folder.ID)
			if err != nil {
				return slot, err
			}
			p.ContactLists = contacts
		}
		return slot, p.ContactLists.Upload(ctx, up)
	case slot == domain.SlotInstrument:
		return slot, p.UploadInstrument(ctx, up)
	default:
		return slot, domain.UnroutableError{Project: p.Name, Filename: up.Name}
	}
}

// UploadInstrument stores the instrument document, replacing a previous one
// in place, and drops the cached survey so the next read re-parses.
func (p *Project) UploadInstrument(ctx context.Context, up entity.Upload) error {
	if p.Instrument != nil {
		up.ReplaceID = p.Instrument.ID
	}
	f, err := entity.NewFile(ctx, p.blobs, up, p.Folder.ID)
	if err != nil {
		return err
	}
	p.Instrument = f
	p.parsed = nil
	return nil
}

// NewVersion appends a new round named after the next sequence number and
// the given date. Numbering derives from the current length of Versions, so
// removing a middle round out of band renumbers later ones; that risk is
// documented, not repaired here.
func (p *Project) NewVersion(ctx context.Context, now time.Time) (*DataSet, error) {
	name := fmt.Sprintf("v%02d %s", len(p.Versions)+1, now.Format("01.02"))
	ds, err := NewDataSet(ctx, p.blobs, name, p.Folder.ID)
	if err != nil {
		return nil, err
	}
	p.Versions = append(p.Versions, ds)
	return ds, nil
}

// Survey returns the parsed instrument, fetching and parsing it on first
// call. Without an instrument it reports the slot as missing.
func (p *Project) Survey(ctx context.Context) (*survey.Survey, error) {
	if p.parsed != nil {
		return p.parsed, nil
	}
	if p.Instrument == nil {
		return nil, domain.NotFoundError{Project: p.Name, Slot: domain.SlotInstrument}
	}
	payload, err := p.Instrument.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	s, err := survey.FromDocx(payload)
	if err != nil {
		return nil, err
	}
	p.parsed = s
	return s, nil
}
