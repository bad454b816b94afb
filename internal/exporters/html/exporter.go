// Package html exports the response document as a standalone HTML page.
package html

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/custodia-labs/bidwright/internal/core/domain"
	"github.com/custodia-labs/bidwright/internal/core/ports/driven"
)

// Ensure Exporter implements the interface.
var _ driven.Exporter = (*Exporter)(nil)

// Title is the page title.
const Title = "RFP Response Draft"

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Arial, Helvetica, sans-serif; max-width: 50em; margin: 2em auto; line-height: 1.5; color: #222; }
h1, h2, h3 { color: #1f3864; }
</style>
</head>
<body>
{{- range .Groups}}
{{- if .Items}}
<ul>
{{- range .Items}}
<li>{{.}}</li>
{{- end}}
</ul>
{{- else if eq .Block.Kind "heading"}}
{{- if eq .Block.Level 1}}
<h1>{{.Block.Text}}</h1>
{{- else if eq .Block.Level 2}}
<h2>{{.Block.Text}}</h2>
{{- else}}
<h3>{{.Block.Text}}</h3>
{{- end}}
{{- else}}
<p>{{.Block.Text}}</p>
{{- end}}
{{- end}}
</body>
</html>
`))

// group is one rendered element: a single block, or a run of consecutive
// bullets rendered as one list.
type group struct {
	Block domain.Block
	Items []string
}

// Exporter renders blocks as escaped HTML elements.
type Exporter struct{}

// New creates an HTML exporter.
func New() *Exporter {
	return &Exporter{}
}

// Format returns domain.FormatHTML.
func (e *Exporter) Format() domain.ExportFormat {
	return domain.FormatHTML
}

// Export renders the document's blocks. Text is escaped; Markdown inline
// markup is shown as written.
func (e *Exporter) Export(doc domain.Document) ([]byte, error) {
	var buf bytes.Buffer
	err := page.Execute(&buf, struct {
		Title  string
		Groups []group
	}{Title: Title, Groups: groupBlocks(doc.Blocks)})
	if err != nil {
		return nil, fmt.Errorf("%w: html: %v", domain.ErrExportFailed, err)
	}
	return buf.Bytes(), nil
}

func groupBlocks(blocks []domain.Block) []group {
	var groups []group
	for _, b := range blocks {
		if b.Kind == domain.BlockBullet {
			if n := len(groups); n > 0 && groups[n-1].Items != nil {
				groups[n-1].Items = append(groups[n-1].Items, b.Text)
				continue
			}
			groups = append(groups, group{Items: []string{b.Text}})
			continue
		}
		groups = append(groups, group{Block: b})
	}
	return groups
}
