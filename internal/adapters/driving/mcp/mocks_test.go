package mcp

import (
	"context"
	"fmt"
	"sort"

	"github.com/custodia-labs/bidwright/internal/core/domain"
)

// mockPipelineService is a mock implementation of driving.PipelineService.
type mockPipelineService struct {
	calls    []string
	sessions []string
	name     string
	mimeType string
	content  string

	run        domain.Run
	uploadErr  error
	startErr   error
	advanceErr error
	runErr     error
	resetErr   error
}

func (m *mockPipelineService) record(call, sessionID string) {
	m.calls = append(m.calls, call)
	m.sessions = append(m.sessions, sessionID)
}

func (m *mockPipelineService) Load(_ context.Context, sessionID string) (domain.Run, error) {
	m.record("load", sessionID)
	return m.run, nil
}

func (m *mockPipelineService) Upload(
	_ context.Context,
	sessionID, name, mimeType string,
	content []byte,
) (domain.Run, error) {
	m.record("upload", sessionID)
	m.name = name
	m.mimeType = mimeType
	m.content = string(content)
	return m.run, m.uploadErr
}

func (m *mockPipelineService) Start(_ context.Context, sessionID string) (domain.Run, error) {
	m.record("start", sessionID)
	return m.run, m.startErr
}

func (m *mockPipelineService) Advance(_ context.Context, sessionID string) (domain.Run, error) {
	m.record("advance", sessionID)
	return m.run, m.advanceErr
}

func (m *mockPipelineService) RunToEnd(_ context.Context, sessionID string) (domain.Run, error) {
	m.record("run", sessionID)
	return m.run, m.runErr
}

func (m *mockPipelineService) Reset(_ context.Context, sessionID string) (domain.Run, error) {
	m.record("reset", sessionID)
	return domain.NewRun(sessionID), m.resetErr
}

// mockExportService is a mock implementation of driving.ExportService.
type mockExportService struct{}

func (m *mockExportService) Compose(draft, review string) domain.Document {
	return domain.Document{Markdown: "# RFP Response Draft\n\n" + draft + "\n\n## Quality Review\n" + review + "\n"}
}

func (m *mockExportService) Export(
	_ context.Context,
	_ domain.Run,
	format domain.ExportFormat,
) (*domain.Artifact, error) {
	return &domain.Artifact{Format: format}, nil
}

func (m *mockExportService) Formats() []domain.ExportFormat {
	return domain.AllExportFormats()
}

// mockPromptSource serves prompts from a map.
type mockPromptSource map[string]string

func (m mockPromptSource) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m mockPromptSource) Load(name string) (string, error) {
	text, ok := m[name]
	if !ok {
		return "", fmt.Errorf("prompt %q: %w", name, domain.ErrNotFound)
	}
	return text, nil
}

// finishedRun returns a run that has completed every stage.
func finishedRun(reqs domain.RequirementSet) domain.Run {
	run := domain.NewRun("finished")
	run.Stage = domain.StageDone
	run.RawText = "RFP for IT consulting"
	run.Requirements = &reqs
	run.Knowledge = "We delivered 40 consulting projects."
	run.Draft = "## Executive Summary\nWe can help."
	run.Review = "- Add pricing detail"
	return run
}

func parsedRequirements() domain.RequirementSet {
	return domain.RequirementSet{
		Fields: map[string]any{
			"requirements": []any{"IT consulting"},
			"deadlines":    []any{"2025-06-01"},
		},
		Keys: []string{"requirements", "deadlines"},
	}
}
