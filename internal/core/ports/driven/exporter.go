package driven

import "github.com/custodia-labs/bidwright/internal/core/domain"

// Exporter renders an aggregated response document in one output format.
type Exporter interface {
	// Format returns the format this exporter produces.
	Format() domain.ExportFormat

	// Export renders the document. Failures wrap domain.ErrExportFailed.
	Export(doc domain.Document) ([]byte, error)
}
