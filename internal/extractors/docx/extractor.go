// Package docx extracts text from Word (.docx) uploads.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/bidwright/internal/core/domain"
	"github.com/custodia-labs/bidwright/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// documentPart is the main body of a WordprocessingML package.
const documentPart = "word/document.xml"

// maxDocumentXML bounds the decompressed body size.
const maxDocumentXML = 64 << 20

// Extractor handles DOCX documents.
type Extractor struct{}

// New creates a DOCX extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name identifies the extractor.
func (e *Extractor) Name() string {
	return "docx"
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}
}

// SupportedExtensions returns the extensions this extractor handles.
func (e *Extractor) SupportedExtensions() []string {
	return []string{".docx"}
}

// Extract returns one line per paragraph, in document order. Paragraphs
// inside tables are included.
func (e *Extractor) Extract(_ context.Context, name string, content []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("%w: %s is not a Word document: %v", domain.ErrInvalidInput, name, err)
	}

	for _, file := range reader.File {
		if file.Name != documentPart {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("docx: open %s: %w", documentPart, err)
		}
		defer rc.Close()

		text, err := paragraphText(io.LimitReader(rc, maxDocumentXML))
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, name, err)
		}
		return text, nil
	}
	return "", fmt.Errorf("%w: %s has no %s", domain.ErrInvalidInput, name, documentPart)
}

// paragraphText walks the body XML. Text runs (w:t) are concatenated within
// a paragraph (w:p); tabs and line breaks inside a run become whitespace.
func paragraphText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var (
		lines  []string
		para   strings.Builder
		inText bool
		depth  int
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				depth++
				if depth == 1 {
					para.Reset()
				}
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "br", "cr":
				para.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if depth == 1 {
					if line := strings.TrimSpace(para.String()); line != "" {
						lines = append(lines, line)
					}
				}
				if depth > 0 {
					depth--
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}
