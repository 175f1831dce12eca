package project

import (
	"context"
	"errors"

	"pollcore/internal/blob"
	"pollcore/pkg/domain"
)

// Check walks a catalogue record against the blob store and collects every
// divergence: catalogue references whose store object is gone (the
// delete-then-crash case) and store objects in managed folders that no
// catalogue slot claims (the replace-then-crash case). Findings are
// warnings, not failures; an error is returned only when the store itself
// cannot be queried.
func Check(ctx context.Context, store blob.Store, rec domain.ProjectRecord) ([]domain.Inconsistency, error) {
	c := checker{ctx: ctx, store: store, project: rec.Name, known: map[string]bool{}}

	c.folder(rec.ID, "project folder")
	if rec.Instrument != nil {
		c.file(*rec.Instrument, domain.SlotInstrument)
	}
	if cl := rec.ContactLists; cl != nil {
		c.folder(cl.ID, "contact folder")
		if cl.Combined != nil {
			c.file(*cl.Combined, domain.SlotCombined)
		}
		if cl.Cells != nil {
			c.file(*cl.Cells, domain.SlotCells)
		}
		if cl.Landlines != nil {
			c.file(*cl.Landlines, domain.SlotLandlines)
		}
		for _, raw := range cl.Raw {
			c.file(raw, domain.Classify(raw.Name))
		}
		c.orphans(cl.ID)
	}
	for _, v := range rec.Versions {
		c.folder(v.ID, "round folder "+v.Name)
		c.folder(v.SupportingDocuments.ID, "supporting folder of "+v.Name)
		c.folder(v.InputFiles.ID, "input folder of "+v.Name)
		slots := map[domain.SlotKind]*domain.FileRecord{
			domain.SlotAlchemerInput: v.AlchemerInput,
			domain.SlotBroadnetInput: v.BroadnetInput,
			domain.SlotDataOutput:    v.DataOutput,
			domain.SlotColumnOutput:  v.ColumnOutput,
			domain.SlotXNamesOutput:  v.XNamesOutput,
		}
		for kind, f := range slots {
			if f != nil {
				c.file(*f, kind)
			}
		}
		for _, extra := range v.Extra {
			c.file(extra, domain.SlotMisc)
		}
		c.orphans(v.SupportingDocuments.ID)
		c.orphans(v.InputFiles.ID)
	}
	return c.found, c.err
}

type checker struct {
	ctx     context.Context
	store   blob.Store
	project string
	known   map[string]bool
	found   []domain.Inconsistency
	err     error
}

func (c *checker) file(rec domain.FileRecord, kind domain.SlotKind) {
	c.known[rec.ID] = true
	if _, err := c.store.Stat(c.ctx, rec.ID); err != nil {
		if errors.Is(err, blob.ErrNotExist) {
			c.found = append(c.found, domain.Inconsistency{
				Project: c.project, Slot: kind, ID: rec.ID,
				Detail: "catalogue references a store object that does not exist",
			})
			return
		}
		c.fail(err)
	}
}

func (c *checker) folder(id, what string) {
	c.known[id] = true
	if id == "" {
		c.found = append(c.found, domain.Inconsistency{
			Project: c.project, Detail: what + " has no store identifier",
		})
		return
	}
	if _, err := c.store.Stat(c.ctx, id); err != nil {
		if errors.Is(err, blob.ErrNotExist) {
			c.found = append(c.found, domain.Inconsistency{
				Project: c.project, ID: id,
				Detail: what + " does not exist in the store",
			})
			return
		}
		c.fail(err)
	}
}

// orphans flags store objects in a managed folder that the catalogue does
// not claim. Only files count; sub-folders are tracked through their own
// records.
func (c *checker) orphans(folderID string) {
	if folderID == "" {
		return
	}
	children, err := c.store.ListChildren(c.ctx, folderID)
	if err != nil {
		if !errors.Is(err, blob.ErrNotExist) {
			c.fail(err)
		}
		return
	}
	for _, child := range children {
		if child.Folder || c.known[child.ID] {
			continue
		}
		c.found = append(c.found, domain.Inconsistency{
			Project: c.project, ID: child.ID,
			Detail: "store object " + child.Name + " is not referenced by the catalogue",
		})
	}
}

func (c *checker) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}
