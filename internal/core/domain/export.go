package domain

import (
	"fmt"
	"strings"
)

// ExportBaseName is the file name, without extension, of every download.
const ExportBaseName = "rfp_response_draft"

// ExportFormat identifies a downloadable output format.
type ExportFormat string

// Supported export formats.
const (
	FormatMarkdown ExportFormat = "markdown"
	FormatHTML     ExportFormat = "html"
	FormatDOCX     ExportFormat = "docx"
	FormatPDF      ExportFormat = "pdf"
)

// AllExportFormats returns every format in display order.
func AllExportFormats() []ExportFormat {
	return []ExportFormat{FormatMarkdown, FormatHTML, FormatDOCX, FormatPDF}
}

// ParseExportFormat resolves a format name or file extension.
// Matching is case-insensitive and ignores a leading dot.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	case "docx", "word":
		return FormatDOCX, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("%w: export format %q", ErrUnsupportedType, s)
	}
}

// IsValid returns true if the format is recognised.
func (f ExportFormat) IsValid() bool {
	switch f {
	case FormatMarkdown, FormatHTML, FormatDOCX, FormatPDF:
		return true
	default:
		return false
	}
}

// Extension returns the file extension without the dot.
func (f ExportFormat) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatHTML:
		return "html"
	case FormatDOCX:
		return "docx"
	case FormatPDF:
		return "pdf"
	default:
		return "txt"
	}
}

// MIMEType returns the content type served for the format.
func (f ExportFormat) MIMEType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// FileName returns the download file name for the format.
func (f ExportFormat) FileName() string {
	return ExportBaseName + "." + f.Extension()
}

// Description returns a human-readable name.
func (f ExportFormat) Description() string {
	switch f {
	case FormatMarkdown:
		return "Markdown"
	case FormatHTML:
		return "HTML"
	case FormatDOCX:
		return "Word"
	case FormatPDF:
		return "PDF"
	default:
		return unknownDescription
	}
}

// String returns the string representation.
func (f ExportFormat) String() string {
	return string(f)
}

// BlockKind is the structural role of one converted Markdown line.
type BlockKind string

// Block kinds produced by the line converter.
const (
	BlockHeading   BlockKind = "heading"
	BlockBullet    BlockKind = "bullet"
	BlockParagraph BlockKind = "paragraph"
)

// Block is one structured output node.
type Block struct {
	Kind BlockKind

	// Level is 1-3 for headings and 0 otherwise.
	Level int

	Text string
}

// Heading creates a heading block.
func Heading(level int, text string) Block {
	return Block{Kind: BlockHeading, Level: level, Text: text}
}

// Bullet creates a bulleted list item.
func Bullet(text string) Block {
	return Block{Kind: BlockBullet, Text: text}
}

// Paragraph creates a plain paragraph.
func Paragraph(text string) Block {
	return Block{Kind: BlockParagraph, Text: text}
}

// Document is the aggregated export source: the composed Markdown text and
// its block structure.
type Document struct {
	Markdown string
	Blocks   []Block
}

// Artifact is one generated download.
type Artifact struct {
	Format   ExportFormat
	FileName string
	MIMEType string
	Content  []byte
}
