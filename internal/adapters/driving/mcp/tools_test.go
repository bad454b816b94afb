package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bidwright/internal/core/domain"
)

func newTestServer(t *testing.T, pipeline *mockPipelineService) *Server {
	t.Helper()
	server, err := NewServer(&Ports{Pipeline: pipeline, Export: &mockExportService{}})
	require.NoError(t, err)
	return server
}

func TestServer_handleParseRequirements(t *testing.T) {
	ctx := context.Background()

	t.Run("returns parsed requirements", func(t *testing.T) {
		pipeline := &mockPipelineService{run: finishedRun(parsedRequirements())}
		server := newTestServer(t, pipeline)

		_, output, err := server.handleParseRequirements(ctx, nil, DocumentInput{Text: "RFP for IT consulting"})

		require.NoError(t, err)
		assert.False(t, output.Fallback)
		assert.Equal(t, []string{"requirements", "deadlines"}, output.Keys)
		assert.Equal(t, []any{"2025-06-01"}, output.Requirements["deadlines"])
		assert.Equal(t, []string{"upload", "start", "advance", "reset"}, pipeline.calls)
		assert.Equal(t, "RFP for IT consulting", pipeline.content)
		assert.Equal(t, defaultDocumentName, pipeline.name)
		assert.Equal(t, "text/plain", pipeline.mimeType)
	})

	t.Run("every call uses the same fresh session", func(t *testing.T) {
		pipeline := &mockPipelineService{run: finishedRun(parsedRequirements())}
		server := newTestServer(t, pipeline)

		_, _, err := server.handleParseRequirements(ctx, nil, DocumentInput{Text: "rfp", Name: "tender.md"})
		require.NoError(t, err)

		require.Len(t, pipeline.sessions, 4)
		assert.True(t, strings.HasPrefix(pipeline.sessions[0], "mcp-"))
		for _, id := range pipeline.sessions {
			assert.Equal(t, pipeline.sessions[0], id)
		}
		assert.Equal(t, "tender.md", pipeline.name)
	})

	t.Run("reports fallback record", func(t *testing.T) {
		fallback := domain.FallbackRequirements("no JSON object in reply", "Sorry, I cannot comply.")
		pipeline := &mockPipelineService{run: finishedRun(fallback)}
		server := newTestServer(t, pipeline)

		_, output, err := server.handleParseRequirements(ctx, nil, DocumentInput{Text: "rfp"})

		require.NoError(t, err)
		assert.True(t, output.Fallback)
		assert.Equal(t, "no JSON object in reply", output.Error)
		assert.Equal(t, "Sorry, I cannot comply.", output.RawResponse)
		assert.Nil(t, output.Requirements)
	})

	t.Run("blank text is rejected", func(t *testing.T) {
		pipeline := &mockPipelineService{}
		server := newTestServer(t, pipeline)

		_, _, err := server.handleParseRequirements(ctx, nil, DocumentInput{Text: "  \n"})

		assert.ErrorIs(t, err, ErrMissingText)
		assert.Empty(t, pipeline.calls)
	})

	t.Run("upload failure", func(t *testing.T) {
		pipeline := &mockPipelineService{uploadErr: domain.ErrNoDocument}
		server := newTestServer(t, pipeline)

		_, _, err := server.handleParseRequirements(ctx, nil, DocumentInput{Text: "rfp"})

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNoDocument)
		assert.Contains(t, err.Error(), "loading text")
		assert.Equal(t, []string{"upload"}, pipeline.calls)
	})

	t.Run("stage failure still discards the session", func(t *testing.T) {
		pipeline := &mockPipelineService{advanceErr: domain.ErrUpstream}
		server := newTestServer(t, pipeline)

		_, _, err := server.handleParseRequirements(ctx, nil, DocumentInput{Text: "rfp"})

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrUpstream)
		assert.Equal(t, []string{"upload", "start", "advance", "reset"}, pipeline.calls)
	})
}

func TestServer_handleDraftResponse(t *testing.T) {
	ctx := context.Background()

	t.Run("returns every stage output", func(t *testing.T) {
		pipeline := &mockPipelineService{run: finishedRun(parsedRequirements())}
		server := newTestServer(t, pipeline)

		_, output, err := server.handleDraftResponse(ctx, nil, DocumentInput{Text: "RFP for IT consulting"})

		require.NoError(t, err)
		assert.Equal(t, []string{"requirements", "deadlines"}, output.Requirements.Keys)
		assert.Equal(t, "We delivered 40 consulting projects.", output.Knowledge)
		assert.Equal(t, "## Executive Summary\nWe can help.", output.Draft)
		assert.Equal(t, "- Add pricing detail", output.Review)
		assert.Equal(t,
			"# RFP Response Draft\n\n## Executive Summary\nWe can help.\n\n## Quality Review\n- Add pricing detail\n",
			output.Markdown)
		assert.Equal(t, []string{"upload", "run", "reset"}, pipeline.calls)
	})

	t.Run("pipeline failure", func(t *testing.T) {
		pipeline := &mockPipelineService{runErr: errors.New("anthropic: status 529")}
		server := newTestServer(t, pipeline)

		_, _, err := server.handleDraftResponse(ctx, nil, DocumentInput{Text: "rfp"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "running pipeline")
		assert.Equal(t, []string{"upload", "run", "reset"}, pipeline.calls)
	})

	t.Run("reset failure does not fail the call", func(t *testing.T) {
		pipeline := &mockPipelineService{
			run:      finishedRun(parsedRequirements()),
			resetErr: errors.New("store closed"),
		}
		server := newTestServer(t, pipeline)

		_, output, err := server.handleDraftResponse(ctx, nil, DocumentInput{Text: "rfp"})

		require.NoError(t, err)
		assert.NotEmpty(t, output.Markdown)
	})
}

func TestRequirementsOutput(t *testing.T) {
	assert.Equal(t, RequirementsOutput{}, requirementsOutput(nil))
}
