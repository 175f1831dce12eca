// Package docxtest builds minimal in-memory .docx payloads for tests.
package docxtest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"pollcore/internal/docx"
)

// Build produces a .docx archive whose body contains the given paragraphs.
// Listed paragraphs carry a numPr block with the requested indentation level.
func Build(paragraphs []docx.Paragraph) ([]byte, error) {
	var body strings.Builder
	body.WriteString(xml.Header)
	body.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		body.WriteString("<w:p>")
		if p.Listed {
			fmt.Fprintf(&body, `<w:pPr><w:numPr><w:ilvl w:val="%d"/><w:numId w:val="1"/></w:numPr></w:pPr>`, p.Level)
		}
		var text bytes.Buffer
		if err := xml.EscapeText(&text, []byte(p.Text)); err != nil {
			return nil, err
		}
		fmt.Fprintf(&body, `<w:r><w:t xml:space="preserve">%s</w:t></w:r>`, text.String())
		body.WriteString("</w:p>")
	}
	body.WriteString(`</w:body></w:document>`)

	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		return nil, err
	}
	if _, err := w.Write([]byte(body.String())); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// MustBuild is Build for test setup paths where failure is a programming
// error.
func MustBuild(paragraphs []docx.Paragraph) []byte {
	b, err := Build(paragraphs)
	if err != nil {
		panic(err)
	}
	return b
}
