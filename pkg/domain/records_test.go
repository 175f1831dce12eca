package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

func sampleProject() ProjectRecord {
	return ProjectRecord{
		Name: "NV-Gov",
		ID:   "folder-1",
		Instrument: &FileRecord{
			Name: "instrument.docx", ID: "file-1", Parent: "folder-1",
		},
		ContactLists: &ContactSetRecord{
			ID:       "folder-2",
			Parent:   "folder-1",
			Combined: &FileRecord{Name: "221077_Foo_CombinedContactList.csv", ID: "file-2", Parent: "folder-2"},
			Raw: []FileRecord{
				{Name: "X_AB12345678.csv", ID: "file-3", Parent: "folder-2"},
			},
		},
		Versions: []DataSetRecord{
			{
				Name:                "v01 10.11",
				ID:                  "folder-3",
				SupportingDocuments: FolderRecord{Name: "Supporting Documents", ID: "folder-4", Parent: "folder-3"},
				InputFiles:          FolderRecord{Name: "Input Files", ID: "folder-5", Parent: "folder-3"},
				AlchemerInput:       &FileRecord{Name: "20261011_SurveyExport.csv", ID: "file-4", Parent: "folder-5"},
			},
		},
	}
}

func TestProjectRecord_JSONRoundTrip(t *testing.T) {
	rec := sampleProject()
	payload, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	var back ProjectRecord
	if err := json.Unmarshal(payload, &back); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(rec, back) {
		t.Fatalf("round trip diverged:\n%+v\n%+v", rec, back)
	}
}

func TestProjectRecord_OptionalFieldsAbsent(t *testing.T) {
	minimal := ProjectRecord{Name: "Fresh", ID: "f"}
	payload, err := json.Marshal(minimal)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"instrument", "contact_lists", "versions"} {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(payload, &m); err != nil {
			t.Fatal(err)
		}
		if _, present := m[key]; present {
			t.Errorf("empty %s must be omitted: %s", key, payload)
		}
	}

	var back ProjectRecord
	if err := json.Unmarshal([]byte(`{"name":"Fresh","id":"f"}`), &back); err != nil {
		t.Fatal(err)
	}
	if back.Instrument != nil || back.ContactLists != nil || back.Versions != nil {
		t.Fatalf("absent keys must stay nil: %+v", back)
	}
}

func TestClone_IsDeep(t *testing.T) {
	rec := sampleProject()
	cp := rec.Clone()
	cp.Instrument.ID = "changed"
	cp.ContactLists.Raw[0].ID = "changed"
	cp.Versions[0].AlchemerInput.ID = "changed"
	if rec.Instrument.ID == "changed" || rec.ContactLists.Raw[0].ID == "changed" || rec.Versions[0].AlchemerInput.ID == "changed" {
		t.Fatalf("clone shares memory with original")
	}
}

func TestCatalogue_EncodeDecode(t *testing.T) {
	doc := Catalogue{
		Revision: 7,
		Projects: map[string]ProjectRecord{"NV-Gov": sampleProject()},
	}
	payload, err := EncodeCatalogue(doc)
	if err != nil {
		t.Fatal(err)
	}
	back, err := DecodeCatalogue(payload)
	if err != nil {
		t.Fatal(err)
	}
	if back.Schema != SchemaVersion || back.Revision != 7 {
		t.Fatalf("header lost: %+v", back)
	}
	if !reflect.DeepEqual(back.Projects["NV-Gov"], sampleProject()) {
		t.Fatalf("project record lost")
	}

	// An empty payload is a fresh usable document.
	fresh, err := DecodeCatalogue(nil)
	if err != nil {
		t.Fatal(err)
	}
	if fresh.Schema != SchemaVersion || fresh.Projects == nil {
		t.Fatalf("fresh document malformed: %+v", fresh)
	}
}
