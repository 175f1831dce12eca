package project

import (
	"context"

	"pollcore/internal/blob"
	"pollcore/internal/entity"
	"pollcore/pkg/domain"
)

const (
	supportingFolderName = "Supporting Documents"
	inputFolderName      = "Input Files"
)

// DataSet is one polling round: a folder with two fixed sub-folders, five
// typed file slots, and any unclassified extras.
type DataSet struct {
	folder *entity.Folder

	Name                string
	SupportingDocuments *entity.Folder
	InputFiles          *entity.Folder

	AlchemerInput *entity.File
	BroadnetInput *entity.File
	DataOutput    *entity.File
	ColumnOutput  *entity.File
	XNamesOutput  *entity.File

	Extra []*entity.File
}

// NewDataSet creates the round folder and its two sub-folders.
func NewDataSet(ctx context.Context, store blob.Store, name, parentID string) (*DataSet, error) {
	folder, err := entity.NewFolder(ctx, store, name, parentID)
	if err != nil {
		return nil, err
	}
	supporting, err := entity.NewFolder(ctx, store, supportingFolderName, folder.ID)
	if err != nil {
		return nil, err
	}
	inputs, err := entity.NewFolder(ctx, store, inputFolderName, folder.ID)
	if err != nil {
		return nil, err
	}
	return &DataSet{
		folder:              folder,
		Name:                name,
		SupportingDocuments: supporting,
		InputFiles:          inputs,
	}, nil
}

// DataSetFromRecord rebuilds the round from its catalogue record.
func DataSetFromRecord(store blob.Store, rec domain.DataSetRecord) *DataSet {
	d := &DataSet{
		folder: entity.FolderFromRecord(store, domain.FolderRecord{
			Name: rec.Name, ID: rec.ID,
		}),
		Name:                rec.Name,
		SupportingDocuments: entity.FolderFromRecord(store, rec.SupportingDocuments),
		InputFiles:          entity.FolderFromRecord(store, rec.InputFiles),
	}
	file := func(r *domain.FileRecord) *entity.File {
		if r == nil {
			return nil
		}
		return entity.FileFromRecord(store, *r)
	}
	d.AlchemerInput = file(rec.AlchemerInput)
	d.BroadnetInput = file(rec.BroadnetInput)
	d.DataOutput = file(rec.DataOutput)
	d.ColumnOutput = file(rec.ColumnOutput)
	d.XNamesOutput = file(rec.XNamesOutput)
	for _, extra := range rec.Extra {
		d.Extra = append(d.Extra, entity.FileFromRecord(store, extra))
	}
	return d
}

// ID returns the store identifier of the round folder.
func (d *DataSet) ID() string { return d.folder.ID }

// slotRef maps a round slot to its field and destination folder. Inputs land
// under Input Files, derived outputs under Supporting Documents.
func (d *DataSet) slotRef(kind domain.SlotKind) (**entity.File, *entity.Folder) {
	switch kind {
	case domain.SlotAlchemerInput:
		return &d.AlchemerInput, d.InputFiles
	case domain.SlotBroadnetInput:
		return &d.BroadnetInput, d.InputFiles
	case domain.SlotDataOutput:
		return &d.DataOutput, d.SupportingDocuments
	case domain.SlotColumnOutput:
		return &d.ColumnOutput, d.SupportingDocuments
	case domain.SlotXNamesOutput:
		return &d.XNamesOutput, d.SupportingDocuments
	default:
		return nil, d.SupportingDocuments
	}
}

// Upload routes one file into the round. Typed slots replace their occupant
// in place; anything else is an extra under Supporting Documents.
func (d *DataSet) Upload(ctx context.Context, up entity.Upload) error {
	store := d.folder.Store()
	slot, dest := d.slotRef(domain.Classify(up.Name))
	if slot == nil {
		f, err := entity.NewFile(ctx, store, up, dest.ID)
		if err != nil {
			return err
		}
		d.Extra = append(d.Extra, f)
		return nil
	}
	if *slot != nil {
		up.ReplaceID = (*slot).ID
	}
	f, err := entity.NewFile(ctx, store, up, dest.ID)
	if err != nil {
		return err
	}
	*slot = f
	return nil
}

// Get returns the file occupying a typed slot.
func (d *DataSet) Get(kind domain.SlotKind) (*entity.File, error) {
	slot, _ := d.slotRef(kind)
	if slot == nil || *slot == nil {
		return nil, domain.NotFoundError{Slot: kind}
	}
	return *slot, nil
}

// Record serializes the round.
func (d *DataSet) Record() domain.DataSetRecord {
	rec := domain.DataSetRecord{
		Name:                d.Name,
		ID:                  d.folder.ID,
		SupportingDocuments: d.SupportingDocuments.Record(),
		InputFiles:          d.InputFiles.Record(),
	}
	ref := func(f *entity.File) *domain.FileRecord {
		if f == nil {
			return nil
		}
		r := f.Record()
		return &r
	}
	rec.AlchemerInput = ref(d.AlchemerInput)
	rec.BroadnetInput = ref(d.BroadnetInput)
	rec.DataOutput = ref(d.DataOutput)
	rec.ColumnOutput = ref(d.ColumnOutput)
	rec.XNamesOutput = ref(d.XNamesOutput)
	for _, f := range d.Extra {
		rec.Extra = append(rec.Extra, f.Record())
	}
	return rec
}
