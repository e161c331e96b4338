// Package docx extracts plain text from Word documents. A .docx file is a
// zip archive; the body text lives in word/document.xml as <w:t> runs
// grouped into <w:p> paragraphs.
package docx

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const documentEntry = "word/document.xml"

type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(_ context.Context, path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx archive: %w", err)
	}
	defer archive.Close()

	var entry *zip.File
	for _, f := range archive.File {
		if f.Name == documentEntry {
			entry = f
			break
		}
	}
	if entry == nil {
		return "", errors.New("docx archive has no word/document.xml")
	}

	body, err := entry.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", documentEntry, err)
	}
	defer body.Close()

	return collectRuns(body)
}

func collectRuns(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var b strings.Builder

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode document.xml: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local != "t" {
				continue
			}
			var run string
			if err := decoder.DecodeElement(&run, &t); err != nil {
				return "", fmt.Errorf("decode text run: %w", err)
			}
			b.WriteString(run)
		case xml.EndElement:
			// Paragraph boundaries become newlines.
			if t.Name.Local == "p" {
				b.WriteString("\n")
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}
