package extractors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bidwright/internal/core/domain"
)

type stubExtractor struct {
	name  string
	mimes []string
	exts  []string
}

func (s *stubExtractor) Name() string {
	return s.name
}

func (s *stubExtractor) SupportedMIMETypes() []string {
	return s.mimes
}

func (s *stubExtractor) SupportedExtensions() []string {
	return s.exts
}

func (s *stubExtractor) Extract(context.Context, string, []byte) (string, error) {
	return s.name, nil
}

func TestNewDefaultRegistry_Get(t *testing.T) {
	r := NewDefaultRegistry()

	tests := []struct {
		name     string
		file     string
		mimeType string
		want     string
	}{
		{"pdf by MIME", "upload", "application/pdf", "pdf"},
		{"pdf by extension", "RFP.PDF", "application/octet-stream", "pdf"},
		{"docx by MIME", "rfp", domain.FormatDOCX.MIMEType(), "docx"},
		{"docx by extension", "rfp.docx", "", "docx"},
		{"MIME parameters ignored", "rfp", "text/plain; charset=utf-8", "plaintext"},
		{"markdown", "brief.md", "", "plaintext"},
		{"html", "tender.htm", "", "html"},
		{"MIME wins over extension", "notes.txt", "text/html", "html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := r.Get(tt.file, tt.mimeType)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.Name())
		})
	}
}

func TestRegistry_Get_Unsupported(t *testing.T) {
	r := NewDefaultRegistry()

	_, err := r.Get("budget.xlsx", "application/vnd.ms-excel")
	require.ErrorIs(t, err, domain.ErrUnsupportedType)
	assert.Contains(t, err.Error(), ".pdf")
	assert.Contains(t, err.Error(), "budget.xlsx")

	_, err = r.Get("", "")
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestRegistry_Extensions(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Extensions())

	r.Register(&stubExtractor{name: "a", exts: []string{".b", ".A"}})
	r.Register(&stubExtractor{name: "c", exts: []string{".b"}})

	assert.Equal(t, []string{".a", ".b"}, r.Extensions())

	e, err := r.Get("x.B", "")
	require.NoError(t, err)
	assert.Equal(t, "c", e.Name(), "later registration wins")
}

func TestNewDefaultRegistry_Extensions(t *testing.T) {
	exts := NewDefaultRegistry().Extensions()
	for _, want := range []string{".pdf", ".docx", ".txt", ".md", ".html"} {
		assert.Contains(t, exts, want)
	}
}
