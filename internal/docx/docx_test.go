package docx_test

import (
	"testing"

	"pollcore/internal/docx"
	"pollcore/internal/docx/docxtest"
)

func TestExtract_OutlineStructure(t *testing.T) {
	want := []docx.Paragraph{
		{Text: "Do you plan to vote in the upcoming election?"},
		{Text: "If the election for Governor were held today, who would you vote for?", Listed: true, Level: 0},
		{Text: "Candidate A", Listed: true, Level: 1},
		{Text: "Candidate B", Listed: true, Level: 1},
		{Text: "Undecided", Listed: true, Level: 1},
	}
	payload := docxtest.MustBuild(want)

	got, err := docx.Extract(payload)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("paragraph count = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("paragraph %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestExtract_SkipsEmptyParagraphs(t *testing.T) {
	payload := docxtest.MustBuild([]docx.Paragraph{
		{Text: "First"},
		{Text: ""},
		{Text: "Second"},
	})
	got, err := docx.Extract(payload)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(got) != 2 || got[0].Text != "First" || got[1].Text != "Second" {
		t.Fatalf("unexpected paragraphs %+v", got)
	}
}

func TestExtract_RejectsNonArchive(t *testing.T) {
	if _, err := docx.Extract([]byte("plain text, definitely not a zip")); err == nil {
		t.Fatalf("expected error for non-archive payload")
	}
}
