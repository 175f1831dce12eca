// Package domain defines the serialized catalogue schema, the slot
// classifier, and the error taxonomy shared by pollcore packages.
package domain

import "encoding/json"

// SchemaVersion identifies the catalogue document layout. Bump on any
// incompatible change to the record shapes below.
const SchemaVersion = 1

// FolderRecord is the persisted identity of a folder in the blob store.
type FolderRecord struct {
	Name   string `json:"name"`
	ID     string `json:"id"`
	Parent string `json:"parent,omitempty"`
}

// FileRecord is the persisted identity of a file. Content is never part of
// the record; reconstructed files are content-empty until fetched.
type FileRecord struct {
	Name   string `json:"name"`
	ID     string `json:"id"`
	Parent string `json:"parent,omitempty"`
}

// ContactSetRecord bundles the contact-list files of one project.
// The three singleton slots are optional; Raw carries vendor extracts and
// anything else uploaded to the set, in upload order.
type ContactSetRecord struct {
	ID        string       `json:"id"`
	Parent    string       `json:"parent,omitempty"`
	Combined  *FileRecord  `json:"combined,omitempty"`
	Cells     *FileRecord  `json:"cells,omitempty"`
	Landlines *FileRecord  `json:"landlines,omitempty"`
	Raw       []FileRecord `json:"raw,omitempty"`
}

// DataSetRecord is one polling round: two sub-folders plus up to five typed
// file slots and any unclassified extras.
type DataSetRecord struct {
	Name                string       `json:"name"`
	ID                  string       `json:"id"`
	SupportingDocuments FolderRecord `json:"supporting_documents"`
	InputFiles          FolderRecord `json:"input_files"`
	AlchemerInput       *FileRecord  `json:"alchemer_input,omitempty"`
	BroadnetInput       *FileRecord  `json:"broadnet_input,omitempty"`
	DataOutput          *FileRecord  `json:"data_output,omitempty"`
	ColumnOutput        *FileRecord  `json:"column_output,omitempty"`
	XNamesOutput        *FileRecord  `json:"xnames_output,omitempty"`
	Extra               []FileRecord `json:"extra,omitempty"`
}

// ProjectRecord is the catalogue entry for one project. Versions is ordered
// oldest first; its length drives new-version numbering, so removing a middle
// element renumbers subsequent rounds (documented consistency risk).
type ProjectRecord struct {
	Name         string            `json:"name"`
	ID           string            `json:"id"`
	Instrument   *FileRecord       `json:"instrument,omitempty"`
	ContactLists *ContactSetRecord `json:"contact_lists,omitempty"`
	Versions     []DataSetRecord   `json:"versions,omitempty"`
}

// Catalogue is the full log-of-record document as stored by the blob-backed
// catalogue driver. Revision is a monotonically increasing write token.
type Catalogue struct {
	Schema   int                      `json:"schema"`
	Revision int64                    `json:"revision"`
	Projects map[string]ProjectRecord `json:"projects"`
}

// Clone returns a deep copy of the record.
func (p ProjectRecord) Clone() ProjectRecord {
	out := p
	out.Instrument = cloneFilePtr(p.Instrument)
	if p.ContactLists != nil {
		cl := p.ContactLists.Clone()
		out.ContactLists = &cl
	}
	if p.Versions != nil {
		out.Versions = make([]DataSetRecord, len(p.Versions))
		for i, v := range p.Versions {
			out.Versions[i] = v.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the record.
func (c ContactSetRecord) Clone() ContactSetRecord {
	out := c
	out.Combined = cloneFilePtr(c.Combined)
	out.Cells = cloneFilePtr(c.Cells)
	out.Landlines = cloneFilePtr(c.Landlines)
	if c.Raw != nil {
		out.Raw = append([]FileRecord(nil), c.Raw...)
	}
	return out
}

// Clone returns a deep copy of the record.
func (d DataSetRecord) Clone() DataSetRecord {
	out := d
	out.AlchemerInput = cloneFilePtr(d.AlchemerInput)
	out.BroadnetInput = cloneFilePtr(d.BroadnetInput)
	out.DataOutput = cloneFilePtr(d.DataOutput)
	out.ColumnOutput = cloneFilePtr(d.ColumnOutput)
	out.XNamesOutput = cloneFilePtr(d.XNamesOutput)
	if d.Extra != nil {
		out.Extra = append([]FileRecord(nil), d.Extra...)
	}
	return out
}

func cloneFilePtr(f *FileRecord) *FileRecord {
	if f == nil {
		return nil
	}
	cp := *f
	return &cp
}

// EncodeCatalogue serializes the document with stable indentation so the
// stored blob stays diffable.
func EncodeCatalogue(c Catalogue) ([]byte, error) {
	if c.Projects == nil {
		c.Projects = map[string]ProjectRecord{}
	}
	if c.Schema == 0 {
		c.Schema = SchemaVersion
	}
	return json.MarshalIndent(c, "", "  ")
}

// DecodeCatalogue parses a stored catalogue document. An empty payload
// decodes to an empty schema-current document so a freshly created log file
// is usable without seeding.
func DecodeCatalogue(b []byte) (Catalogue, error) {
	if len(b) == 0 {
		return Catalogue{Schema: SchemaVersion, Projects: map[string]ProjectRecord{}}, nil
	}
	var c Catalogue
	if err := json.Unmarshal(b, &c); err != nil {
		return Catalogue{}, err
	}
	if c.Projects == nil {
		c.Projects = map[string]ProjectRecord{}
	}
	if c.Schema == 0 {
		c.Schema = SchemaVersion
	}
	return c, nil
}
