// Package markdown exports the response document as Markdown text.
package markdown

import (
	"github.com/custodia-labs/bidwright/internal/core/domain"
	"github.com/custodia-labs/bidwright/internal/core/ports/driven"
)

// Ensure Exporter implements the interface.
var _ driven.Exporter = (*Exporter)(nil)

// Exporter writes the composed Markdown unchanged.
type Exporter struct{}

// New creates a Markdown exporter.
func New() *Exporter {
	return &Exporter{}
}

// Format returns domain.FormatMarkdown.
func (e *Exporter) Format() domain.ExportFormat {
	return domain.FormatMarkdown
}

// Export returns the document's Markdown as UTF-8 bytes.
func (e *Exporter) Export(doc domain.Document) ([]byte, error) {
	return []byte(doc.Markdown), nil
}
