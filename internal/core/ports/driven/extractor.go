package driven

import "context"

// TextExtractor converts an uploaded document into plain text.
type TextExtractor interface {
	// Name identifies the extractor in logs.
	Name() string

	// SupportedMIMETypes returns the content types this extractor handles.
	SupportedMIMETypes() []string

	// SupportedExtensions returns file extensions, lower case with the dot.
	SupportedExtensions() []string

	// Extract returns the document text. Page or paragraph text is joined
	// in document order.
	Extract(ctx context.Context, name string, content []byte) (string, error)
}

// ExtractorRegistry selects an extractor for an uploaded file.
type ExtractorRegistry interface {
	// Register adds an extractor.
	Register(e TextExtractor)

	// Get returns the extractor for a MIME type or file name.
	// Returns domain.ErrUnsupportedType when none matches.
	Get(name, mimeType string) (TextExtractor, error)

	// Extensions returns every supported extension.
	Extensions() []string
}
