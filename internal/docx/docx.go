// Package docx extracts the outline structure of a Word instrument document:
// the ordered paragraphs of word/document.xml together with their list
// membership and indentation level. Only the pieces the survey parser needs
// are read; styling, tables and headers are ignored.
package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
)

// Paragraph is one body paragraph in document order.
type Paragraph struct {
	Text   string
	Listed bool // part of a numbered/bulleted list
	Level  int  // list indentation level, 0-based; meaningful when Listed
}

const documentPath = "word/document.xml"

// Extract parses a .docx payload and returns its body paragraphs. Empty
// paragraphs are dropped.
func Extract(data []byte) ([]Paragraph, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx archive: %w", err)
	}
	for _, f := range zr.File {
		if f.Name == documentPath {
			rc, err := f.Open()
			if err != nil {
				return nil, fmt.Errorf("open %s: %w", documentPath, err)
			}
			defer rc.Close()
			return parseDocument(rc)
		}
	}
	return nil, fmt.Errorf("docx archive has no %s", documentPath)
}

// parseDocument walks the WordprocessingML token stream. Paragraph text is
// the concatenation of its <w:t> runs; list membership comes from the
// presence of <w:numPr> in the paragraph properties and the level from its
// <w:ilvl w:val="..."> child.
func parseDocument(r io.Reader) ([]Paragraph, error) {
	dec := xml.NewDecoder(r)

	var (
		out     []Paragraph
		current *Paragraph
		buf     bytes.Buffer
		inText  bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", documentPath, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				current = &Paragraph{}
				buf.Reset()
			case "numPr":
				if current != nil {
					current.Listed = true
				}
			case "ilvl":
				if current != nil {
					current.Level = attrInt(t, "val")
				}
			case "t":
				inText = true
			}
		case xml.CharData:
			if inText && current != nil {
				buf.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if current != nil {
					current.Text = buf.String()
					if current.Text != "" {
						out = append(out, *current)
					}
					current = nil
				}
			}
		}
	}
	return out, nil
}

func attrInt(el xml.StartElement, name string) int {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			n, err := strconv.Atoi(a.Value)
			if err == nil {
				return n
			}
		}
	}
	return 0
}
