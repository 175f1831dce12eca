package survey

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"regexp"
	"strings"
)

// gridRows is the fixed height of the answer grid; every column is padded to
// this many rows.
const gridRows = 10

var randomOrderTag = regexp.MustCompile(`(?i) \(random order\)`)

var (
	raceBlack    = regexp.MustCompile(`(?i)african american`)
	ideoConserv  = regexp.MustCompile(`(?i)conservative`)
	eduHS        = regexp.MustCompile(`(?i)high school`)
	eduGrad      = regexp.MustCompile(`(?i)grad(|uate) degree or higher`)
	ageSixtyFive = regexp.MustCompile(`(?i)65 or older`)
)

// normalizeAnswer applies the per-type label shortening used by the crosstab
// grid so demographic answers fit report columns.
func normalizeAnswer(kind Type, answer string) string {
	answer = randomOrderTag.ReplaceAllString(answer, "")
	switch kind {
	case TypeRace:
		return raceBlack.ReplaceAllString(answer, "Black")
	case TypeIdeology:
		return ideoConserv.ReplaceAllString(answer, "Conserv.")
	case TypeEducation:
		if eduHS.MatchString(answer) {
			return "HS"
		}
		if eduGrad.MatchString(answer) {
			return "Grad+"
		}
		return answer
	case TypeAge:
		return ageSixtyFive.ReplaceAllString(answer, "65+")
	default:
		return answer
	}
}

// Grid is a column-ordered table with fixed-height string columns.
type Grid struct {
	Columns []string
	Cells   map[string][]string
}

func (g *Grid) addColumn(name string, rows []string) {
	padded := make([]string, gridRows)
	copy(padded, rows)
	if g.Cells == nil {
		g.Cells = map[string][]string{}
	}
	if _, exists := g.Cells[name]; !exists {
		g.Columns = append(g.Columns, name)
	}
	g.Cells[name] = padded
}

// CSV renders the grid with a header row.
func (g *Grid) CSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(g.Columns); err != nil {
		return nil, err
	}
	for row := 0; row < gridRows; row++ {
		record := make([]string, len(g.Columns))
		for i, col := range g.Columns {
			record[i] = g.Cells[col][row]
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// AnswerGrid projects the survey into the tabular answer grid: one column
// per question index holding its normalized answers, then the nine fixed
// crosstab columns X1..X9. Demographic X columns mirror their question's
// column and are empty when the survey lacks that question.
func (s *Survey) AnswerGrid() *Grid {
	g := &Grid{}
	for _, q := range s.Questions {
		rows := make([]string, 0, len(q.Answers))
		for _, a := range q.Answers {
			rows = append(rows, normalizeAnswer(q.Type, a))
		}
		g.addColumn(q.Index, rows)
	}

	mirror := func(x string, index Type) {
		if rows, ok := g.Cells[string(index)]; ok {
			g.addColumn(x, rows)
		} else {
			g.addColumn(x, nil)
		}
	}
	mirror("X1", TypeGender)
	mirror("X2", TypeEducation)
	mirror("X3", TypeIdeology)
	mirror("X4", TypeAge)
	mirror("X5", TypeRace)
	g.addColumn("X6", []string{"1", "2", "3", "4", "0"})
	mirror("X7", TypeParty)
	g.addColumn("X8", []string{"DMA1", "DMA2", "DMA3", "DMA4", "DMA5"})
	g.addColumn("X9", []string{"CD1", "CD2", "CD3", "CD4", "CD5"})
	return g
}

// ColumnNames is the three-column mapping from generic column ids to
// question labels and full text. The header rows ID/Method/Screen are always
// present; a Screen question fills in the full text of the Screen row
// instead of adding a new one.
type ColumnNames struct {
	Generic []string
	Label   []string
	Full    []string
}

// ColumnNames projects the survey into its column-name table.
func (s *Survey) ColumnNames() ColumnNames {
	cn := ColumnNames{
		Generic: []string{"ID", "Method", "Screen"},
		Label:   []string{"ID", "Method", "Screen"},
		Full:    []string{"ID", "Method", "Screen"},
	}
	for _, q := range s.Questions {
		if q.Type == TypeScreen {
			cn.Full[2] = q.Text
			continue
		}
		cn.Generic = append(cn.Generic, q.Index)
		cn.Label = append(cn.Label, string(q.Type))
		cn.Full = append(cn.Full, q.Text)
	}
	return cn
}

// CSV renders the column-name table.
func (cn ColumnNames) CSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Generic", "Label", "Full"}); err != nil {
		return nil, err
	}
	for i := range cn.Generic {
		if err := w.Write([]string{cn.Generic[i], cn.Label[i], cn.Full[i]}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// SPSSLabels returns the variable labels for an SPSS export: the full-text
// column of the column-name table, in column order.
func (s *Survey) SPSSLabels() []string {
	return s.ColumnNames().Full
}

// XName is one row of the demographic crosstab name map.
type XName struct {
	XX     string
	XLabel string
}

// XNames returns the fixed nine-row map from X columns to demographic
// labels. It does not depend on the survey's content.
func (s *Survey) XNames() []XName {
	return []XName{
		{"X1", "Gender"},
		{"X2", "Education Level"},
		{"X3", "Ideology"},
		{"X4", "Age"},
		{"X5", "Race"},
		{"X6", "Last 4 Generals"},
		{"X7", "Party"},
		{"X8", "DMA"},
		{"X9", "CD"},
	}
}

// XNamesCSV renders the name map as the Xnames.csv payload.
func (s *Survey) XNamesCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"XX", "xLabel"}); err != nil {
		return nil, err
	}
	for _, row := range s.XNames() {
		if err := w.Write([]string{row.XX, row.XLabel}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// IVRScript renders the phone-bank script: each question followed by one
// "For {answer} press {n}" line per answer.
func (s *Survey) IVRScript() string {
	var b strings.Builder
	for _, q := range s.Questions {
		b.WriteString(q.Text)
		b.WriteString("\n")
		for i, a := range q.Answers {
			fmt.Fprintf(&b, "For %s press %d\n", a, i+1)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// AlchemerScript renders the survey-platform import script: each question
// followed by one "() {answer}" option line per answer.
func (s *Survey) AlchemerScript() string {
	var b strings.Builder
	for _, q := range s.Questions {
		b.WriteString(q.Text)
		for _, a := range q.Answers {
			b.WriteString("\n() ")
			b.WriteString(a)
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

// QScript renders one toPage line per non-screen question for the report
// generator.
func (s *Survey) QScript() string {
	var b strings.Builder
	for _, q := range s.Questions {
		if q.Type == TypeScreen {
			continue
		}
		fmt.Fprintf(&b, "toPage(%s, %d, %s)\n", q.Type, len(q.Answers), q.Index)
	}
	return b.String()
}
