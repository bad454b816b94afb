package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/bidwright/internal/core/domain"
	"github.com/custodia-labs/bidwright/internal/core/ports/driving"
)

var (
	_ driving.PipelineService = (*mockPipelineService)(nil)
	_ driving.ExportService   = (*mockExportService)(nil)
)

// mockPipelineService applies real run transitions to an in-memory run.
type mockPipelineService struct {
	run     domain.Run
	failAt  domain.Stage
	loadErr error
	calls   []string
}

func newMockPipeline(sessionID string) *mockPipelineService {
	run, _ := domain.NewRun(sessionID).WithDocument("rfp.txt", "We need a data platform.")
	return &mockPipelineService{run: run}
}

func (m *mockPipelineService) Load(_ context.Context, _ string) (domain.Run, error) {
	m.calls = append(m.calls, "load")
	if m.loadErr != nil {
		return domain.Run{}, m.loadErr
	}
	return m.run, nil
}

func (m *mockPipelineService) Upload(_ context.Context, _, name, _ string, content []byte) (domain.Run, error) {
	m.calls = append(m.calls, "upload")
	run, err := m.run.WithDocument(name, string(content))
	if err != nil {
		return m.run, err
	}
	m.run = run
	return run, nil
}

func (m *mockPipelineService) Start(_ context.Context, _ string) (domain.Run, error) {
	m.calls = append(m.calls, "start")
	run, err := m.run.Start()
	if err != nil {
		return m.run, err
	}
	m.run = run
	return run, nil
}

func (m *mockPipelineService) Advance(_ context.Context, _ string) (domain.Run, error) {
	m.calls = append(m.calls, "advance")
	if m.run.Stage == m.failAt {
		err := fmt.Errorf("%w: anthropic returned 529", domain.ErrUpstream)
		m.run = m.run.Halt(err)
		return m.run, err
	}

	var (
		run domain.Run
		err error
	)
	switch m.run.Stage {
	case domain.StageParsing:
		run, err = m.run.WithRequirements(domain.RequirementSet{
			Fields: map[string]any{"scope": "Data platform"},
			Keys:   []string{"scope"},
		})
	case domain.StageRetrieving:
		run, err = m.run.WithKnowledge("We have built three platforms.")
	case domain.StageDrafting:
		run, err = m.run.WithDraft("## Executive Summary\nWe can help.")
	case domain.StageReviewing:
		run, err = m.run.WithReview("- Add pricing detail")
	default:
		return m.run, domain.ErrStageOutOfOrder
	}
	if err != nil {
		return m.run, err
	}
	m.run = run
	return run, nil
}

func (m *mockPipelineService) RunToEnd(ctx context.Context, id string) (domain.Run, error) {
	m.calls = append(m.calls, "run")
	return m.run, errors.New("not used by the tui")
}

func (m *mockPipelineService) Reset(_ context.Context, _ string) (domain.Run, error) {
	m.calls = append(m.calls, "reset")
	m.run = m.run.Reset()
	return m.run, nil
}

type mockExportService struct {
	err      error
	exported []domain.ExportFormat
}

func (m *mockExportService) Compose(draft, review string) domain.Document {
	return domain.Document{Markdown: draft + "\n" + review}
}

func (m *mockExportService) Export(_ context.Context, run domain.Run, format domain.ExportFormat) (*domain.Artifact, error) {
	if m.err != nil {
		return nil, m.err
	}
	if !run.Done() {
		return nil, domain.ErrStageOutOfOrder
	}
	m.exported = append(m.exported, format)
	return &domain.Artifact{
		Format:   format,
		FileName: format.FileName(),
		MIMEType: format.MIMEType(),
		Content:  []byte(run.Draft),
	}, nil
}

func (m *mockExportService) Formats() []domain.ExportFormat {
	return domain.AllExportFormats()
}
