// Package project implements the aggregate layer: contact-list bundles,
// per-round data sets, and the project root that routes uploads and
// round-trips through the catalogue.
package project

import (
	"context"

	"pollcore/internal/blob"
	"pollcore/internal/entity"
	"pollcore/pkg/domain"
)

// contactFolderName is the fixed folder every ContactSet lives in.
const contactFolderName = "Contact Lists"

// ContactSet bundles a project's contact-list files: three singleton slots
// plus the raw vendor extracts, bucketed by vendor.
type ContactSet struct {
	folder *entity.Folder

	Combined  *entity.File
	Cells     *entity.File
	Landlines *entity.File

	L2Files   []*entity.File
	I360Files []*entity.File
	Misc      []*entity.File
}

// NewContactSet creates the Contact Lists folder under the project folder.
func NewContactSet(ctx context.Context, store blob.Store, parentID string) (*ContactSet, error) {
	folder, err := entity.NewFolder(ctx, store, contactFolderName, parentID)
	if err != nil {
		return nil, err
	}
	return &ContactSet{folder: folder}, nil
}

// ContactSetFromRecord rebuilds the bundle from its catalogue record,
// re-bucketing the raw files by filename.
func ContactSetFromRecord(store blob.Store, rec domain.ContactSetRecord) *ContactSet {
	cs := &ContactSet{
		folder: entity.FolderFromRecord(store, domain.FolderRecord{
			Name: contactFolderName, ID: rec.ID, Parent: rec.Parent,
		}),
	}
	if rec.Combined != nil {
		cs.Combined = entity.FileFromRecord(store, *rec.Combined)
	}
	if rec.Cells != nil {
		cs.Cells = entity.FileFromRecord(store, *rec.Cells)
	}
	if rec.Landlines != nil {
		cs.Landlines = entity.FileFromRecord(store, *rec.Landlines)
	}
	for _, raw := range rec.Raw {
		cs.bucket(entity.FileFromRecord(store, raw))
	}
	return cs
}

func (cs *ContactSet) bucket(f *entity.File) {
	switch domain.Classify(f.Name) {
	case domain.SlotL2Raw:
		cs.L2Files = append(cs.L2Files, f)
	case domain.SlotI360Raw:
		cs.I360Files = append(cs.I360Files, f)
	default:
		cs.Misc = append(cs.Misc, f)
	}
}

// ID returns the store identifier of the Contact Lists folder.
func (cs *ContactSet) ID() string { return cs.folder.ID }

// Raw returns every non-singleton file in bucket order: L2 extracts, i360
// extracts, then everything else.
func (cs *ContactSet) Raw() []*entity.File {
	out := make([]*entity.File, 0, len(cs.L2Files)+len(cs.I360Files)+len(cs.Misc))
	out = append(out, cs.L2Files...)
	out = append(out, cs.I360Files...)
	out = append(out, cs.Misc...)
	return out
}

// Upload routes one file into the bundle. Singleton slots replace their
// occupant in place; everything else lands in a vendor bucket.
func (cs *ContactSet) Upload(ctx context.Context, up entity.Upload) error {
	store := cs.folder.Store()
	slot := domain.Classify(up.Name)
	switch slot {
	case domain.SlotCombined:
		if cs.Combined != nil {
			up.ReplaceID = cs.Combined.ID
		}
		f, err := entity.NewFile(ctx, store, up, cs.folder.ID)
		if err != nil {
			return err
		}
		cs.Combined = f
	case domain.SlotCells:
		if cs.Cells != nil {
			up.ReplaceID = cs.Cells.ID
		}
		f, err := entity.NewFile(ctx, store, up, cs.folder.ID)
		if err != nil {
			return err
		}
		cs.Cells = f
	case domain.SlotLandlines:
		if cs.Landlines != nil {
			up.ReplaceID = cs.Landlines.ID
		}
		f, err := entity.NewFile(ctx, store, up, cs.folder.ID)
		if err != nil {
			return err
		}
		cs.Landlines = f
	default:
		f, err := entity.NewFile(ctx, store, up, cs.folder.ID)
		if err != nil {
			return err
		}
		cs.bucket(f)
	}
	return nil
}

// Get returns the file occupying a singleton slot.
func (cs *ContactSet) Get(kind domain.SlotKind) (*entity.File, error) {
	var f *entity.File
	switch kind {
	case domain.SlotCombined:
		f = cs.Combined
	case domain.SlotCells:
		f = cs.Cells
	case domain.SlotLandlines:
		f = cs.Landlines
	default:
		return nil, domain.NotFoundError{Slot: kind}
	}
	if f == nil {
		return nil, domain.NotFoundError{Slot: kind}
	}
	return f, nil
}

// Record serializes the bundle. Raw files keep their bucket order.
func (cs *ContactSet) Record() domain.ContactSetRecord {
	rec := domain.ContactSetRecord{ID: cs.folder.ID, Parent: cs.folder.Parent}
	if cs.Combined != nil {
		r := cs.Combined.Record()
		rec.Combined = &r
	}
	if cs.Cells != nil {
		r := cs.Cells.Record()
		rec.Cells = &r
	}
	if cs.Landlines != nil {
		r := cs.Landlines.Record()
		rec.Landlines = &r
	}
	for _, f := range cs.Raw() {
		rec.Raw = append(rec.Raw, f.Record())
	}
	return rec
}
