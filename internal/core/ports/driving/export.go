package driving

import (
	"context"

	"github.com/custodia-labs/bidwright/internal/core/domain"
)

// ExportService aggregates a finished run into downloadable documents.
type ExportService interface {
	// Compose joins the draft and review under the response headings.
	Compose(draft, review string) domain.Document

	// Export renders a finished run in the given format.
	Export(ctx context.Context, run domain.Run, format domain.ExportFormat) (*domain.Artifact, error)

	// Formats returns the formats that have an exporter.
	Formats() []domain.ExportFormat
}
