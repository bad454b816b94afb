// Package exporters renders the aggregated response document. Each
// subpackage implements driven.Exporter for one download format.
package exporters

import (
	"github.com/custodia-labs/bidwright/internal/core/ports/driven"
	"github.com/custodia-labs/bidwright/internal/exporters/docx"
	"github.com/custodia-labs/bidwright/internal/exporters/html"
	"github.com/custodia-labs/bidwright/internal/exporters/markdown"
	"github.com/custodia-labs/bidwright/internal/exporters/pdf"
)

// All returns one exporter per format, in display order.
func All() []driven.Exporter {
	return []driven.Exporter{
		markdown.New(),
		html.New(),
		docx.New(),
		pdf.New(),
	}
}
