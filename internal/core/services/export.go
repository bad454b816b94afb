package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/bidwright/internal/core/domain"
	"github.com/custodia-labs/bidwright/internal/core/ports/driven"
	"github.com/custodia-labs/bidwright/internal/core/ports/driving"
)

// Ensure ExportService implements the interface.
var _ driving.ExportService = (*ExportService)(nil)

// Headings of the aggregated response document.
const (
	responseTitle = "# RFP Response Draft"
	reviewHeading = "## Quality Review"
)

// ExportService aggregates a finished run and renders it with the
// registered exporters.
type ExportService struct {
	exporters map[domain.ExportFormat]driven.Exporter
	order     []domain.ExportFormat
}

// NewExportService creates an export service. A later exporter for the same
// format replaces an earlier one.
func NewExportService(exporters ...driven.Exporter) *ExportService {
	s := &ExportService{exporters: make(map[domain.ExportFormat]driven.Exporter)}
	for _, e := range exporters {
		if _, exists := s.exporters[e.Format()]; !exists {
			s.order = append(s.order, e.Format())
		}
		s.exporters[e.Format()] = e
	}
	return s
}

// Compose joins the draft and review under the response headings.
func (s *ExportService) Compose(draft, review string) domain.Document {
	md := ComposeMarkdown(draft, review)
	return domain.Document{Markdown: md, Blocks: ParseBlocks(md)}
}

// ComposeMarkdown returns the downloadable Markdown for a draft and review.
func ComposeMarkdown(draft, review string) string {
	return responseTitle + "\n\n" + draft + "\n\n" + reviewHeading + "\n" + review + "\n"
}

// Export renders a finished run in the given format.
func (s *ExportService) Export(_ context.Context, run domain.Run, format domain.ExportFormat) (*domain.Artifact, error) {
	if !run.Done() {
		return nil, fmt.Errorf("%w: export needs a finished run, run is %s", domain.ErrStageOutOfOrder, run.Stage)
	}
	exporter, ok := s.exporters[format]
	if !ok {
		return nil, fmt.Errorf("%w: no exporter for %s", domain.ErrUnsupportedType, format)
	}

	content, err := exporter.Export(s.Compose(run.Draft, run.Review))
	if err != nil {
		if !errors.Is(err, domain.ErrExportFailed) {
			err = fmt.Errorf("%w: %s: %w", domain.ErrExportFailed, format, err)
		}
		return nil, err
	}

	return &domain.Artifact{
		Format:   format,
		FileName: format.FileName(),
		MIMEType: format.MIMEType(),
		Content:  content,
	}, nil
}

// Formats returns the formats that have an exporter, in registration order.
func (s *ExportService) Formats() []domain.ExportFormat {
	out := make([]domain.ExportFormat, len(s.order))
	copy(out, s.order)
	return out
}
