package extractors

import (
	"fmt"
	"mime"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/bidwright/internal/core/domain"
	"github.com/custodia-labs/bidwright/internal/core/ports/driven"
	"github.com/custodia-labs/bidwright/internal/extractors/docx"
	"github.com/custodia-labs/bidwright/internal/extractors/html"
	"github.com/custodia-labs/bidwright/internal/extractors/pdf"
	"github.com/custodia-labs/bidwright/internal/extractors/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry maps MIME types and extensions to extractors.
// A later registration for the same type replaces an earlier one.
type Registry struct {
	mu         sync.RWMutex
	byMIME     map[string]driven.TextExtractor
	byExt      map[string]driven.TextExtractor
	extensions []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byMIME: make(map[string]driven.TextExtractor),
		byExt:  make(map[string]driven.TextExtractor),
	}
}

// NewDefaultRegistry creates a registry with every built-in extractor.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(pdf.New())
	r.Register(docx.New())
	r.Register(html.New())
	r.Register(plaintext.New())
	return r
}

// Register adds an extractor.
func (r *Registry) Register(e driven.TextExtractor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range e.SupportedMIMETypes() {
		r.byMIME[strings.ToLower(m)] = e
	}
	for _, ext := range e.SupportedExtensions() {
		ext = strings.ToLower(ext)
		if _, exists := r.byExt[ext]; !exists {
			r.extensions = append(r.extensions, ext)
		}
		r.byExt[ext] = e
	}
}

// Get returns the extractor for an upload. The MIME type wins when it is
// specific; browsers often send application/octet-stream, so the file
// extension decides otherwise.
func (r *Registry) Get(name, mimeType string) (driven.TextExtractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if mediaType, _, err := mime.ParseMediaType(mimeType); err == nil {
		if e, ok := r.byMIME[strings.ToLower(mediaType)]; ok {
			return e, nil
		}
	}
	ext := strings.ToLower(filepath.Ext(name))
	if e, ok := r.byExt[ext]; ok {
		return e, nil
	}

	kind := ext
	if kind == "" {
		kind = mimeType
	}
	return nil, fmt.Errorf("%w: cannot read %q (%s); supported: %s",
		domain.ErrUnsupportedType, name, kind, strings.Join(r.sortedExtensions(), ", "))
}

// Extensions returns every supported extension, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedExtensions()
}

func (r *Registry) sortedExtensions() []string {
	out := make([]string, len(r.extensions))
	copy(out, r.extensions)
	sort.Strings(out)
	return out
}
