// Package plaintext reads text and Markdown uploads as they are.
package plaintext

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/bidwright/internal/core/domain"
	"github.com/custodia-labs/bidwright/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// utf8BOM is stripped from the start of uploads.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Extractor handles plain text and Markdown documents.
type Extractor struct{}

// New creates a plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name identifies the extractor.
func (e *Extractor) Name() string {
	return "plaintext"
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"text/plain", "text/markdown", "text/x-markdown", "text/csv"}
}

// SupportedExtensions returns the extensions this extractor handles.
func (e *Extractor) SupportedExtensions() []string {
	return []string{".txt", ".text", ".md", ".markdown", ".csv"}
}

// Extract returns the content with a UTF-8 byte order mark removed and
// line endings normalised. Markdown markup is kept; the model reads it.
func (e *Extractor) Extract(_ context.Context, name string, content []byte) (string, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	if !utf8.Valid(content) {
		return "", fmt.Errorf("%w: %s is not UTF-8 text", domain.ErrInvalidInput, name)
	}
	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text), nil
}
