// Package pdf exports the response document as a PDF file using go-pdf/fpdf.
package pdf

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/custodia-labs/bidwright/internal/core/domain"
	"github.com/custodia-labs/bidwright/internal/core/ports/driven"
)

// Ensure Exporter implements the interface.
var _ driven.Exporter = (*Exporter)(nil)

// Layout in millimetres; font sizes in points.
const (
	fontFamily   = "Helvetica"
	bodySize     = 11.0
	lineHeight   = 6.0
	bulletIndent = 6.0
	bulletGlyph  = "•"
)

// headingSizes holds the font size of heading levels 1-3.
var headingSizes = [4]float64{0, 18, 15, 13}

// Exporter lays out blocks on A4 pages with the core Helvetica font.
type Exporter struct {
	// Title is written to the document properties.
	Title string
}

// New creates a PDF exporter.
func New() *Exporter {
	return &Exporter{Title: "RFP Response Draft"}
}

// Format returns domain.FormatPDF.
func (e *Exporter) Format() domain.ExportFormat {
	return domain.FormatPDF
}

// Export renders the document. Text outside the core font's code page
// (cp1252) is replaced by the translator.
func (e *Exporter) Export(doc domain.Document) ([]byte, error) {
	p := fpdf.New("P", "mm", "A4", "")
	p.SetTitle(e.Title, true)
	p.SetCreator("bidwright", true)
	p.SetMargins(20, 20, 20)
	p.SetAutoPageBreak(true, 20)
	p.AddPage()

	tr := p.UnicodeTranslatorFromDescriptor("")
	for _, block := range doc.Blocks {
		switch block.Kind {
		case domain.BlockHeading:
			level := min(max(block.Level, 1), 3)
			size := headingSizes[level]
			p.Ln(lineHeight / 2)
			p.SetFont(fontFamily, "B", size)
			p.MultiCell(0, size*0.5, tr(block.Text), "", "L", false)
			p.Ln(1)
		case domain.BlockBullet:
			p.SetFont(fontFamily, "", bodySize)
			left, _, _, _ := p.GetMargins()
			p.SetX(left)
			p.CellFormat(bulletIndent, lineHeight, tr(bulletGlyph), "", 0, "L", false, 0, "")
			p.SetLeftMargin(left + bulletIndent)
			p.MultiCell(0, lineHeight, tr(block.Text), "", "L", false)
			p.SetLeftMargin(left)
		default:
			p.SetFont(fontFamily, "", bodySize)
			p.MultiCell(0, lineHeight, tr(block.Text), "", "L", false)
			p.Ln(lineHeight / 3)
		}
	}

	var buf bytes.Buffer
	if err := p.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: pdf: %v", domain.ErrExportFailed, err)
	}
	return buf.Bytes(), nil
}
