package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/bidwright/internal/core/domain"
)

// defaultDocumentName is used when a tool call does not name its text.
const defaultDocumentName = "rfp.txt"

// DocumentInput is the input schema shared by the tools.
type DocumentInput struct {
	Text string `json:"text" jsonschema:"plain text of the RFP document"`
	Name string `json:"name,omitempty" jsonschema:"optional document name used in logs (default rfp.txt)"`
}

// RequirementsOutput is the output schema for parse_requirements.
type RequirementsOutput struct {
	Requirements map[string]any `json:"requirements,omitempty"`
	Keys         []string       `json:"keys,omitempty"`
	Fallback     bool           `json:"fallback"`
	Error        string         `json:"error,omitempty"`
	RawResponse  string         `json:"raw_response,omitempty"`
}

// DraftOutput is the output schema for draft_response.
type DraftOutput struct {
	Requirements RequirementsOutput `json:"requirements"`
	Knowledge    string             `json:"knowledge"`
	Draft        string             `json:"draft"`
	Review       string             `json:"review"`
	Markdown     string             `json:"markdown"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "parse_requirements",
		Description: "Extract requirements, compliance needs, deadlines, evaluation criteria and required sections from RFP text",
	}, s.handleParseRequirements)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "draft_response",
		Description: "Run all four agents over RFP text and return the reviewed response draft as Markdown",
	}, s.handleDraftResponse)
}

// handleParseRequirements runs only the parsing stage.
func (s *Server) handleParseRequirements(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, RequirementsOutput, error) {
	sessionID, err := s.open(ctx, input)
	if err != nil {
		return nil, RequirementsOutput{}, err
	}
	defer s.discard(ctx, sessionID)

	if _, err := s.ports.Pipeline.Start(ctx, sessionID); err != nil {
		return nil, RequirementsOutput{}, fmt.Errorf("starting run: %w", err)
	}
	run, err := s.ports.Pipeline.Advance(ctx, sessionID)
	if err != nil {
		return nil, RequirementsOutput{}, fmt.Errorf("parsing requirements: %w", err)
	}

	return nil, requirementsOutput(run.Requirements), nil
}

// handleDraftResponse runs every stage and composes the response document.
func (s *Server) handleDraftResponse(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, DraftOutput, error) {
	sessionID, err := s.open(ctx, input)
	if err != nil {
		return nil, DraftOutput{}, err
	}
	defer s.discard(ctx, sessionID)

	run, err := s.ports.Pipeline.RunToEnd(ctx, sessionID)
	if err != nil {
		return nil, DraftOutput{}, fmt.Errorf("running pipeline: %w", err)
	}

	return nil, DraftOutput{
		Requirements: requirementsOutput(run.Requirements),
		Knowledge:    run.Knowledge,
		Draft:        run.Draft,
		Review:       run.Review,
		Markdown:     s.ports.Export.Compose(run.Draft, run.Review).Markdown,
	}, nil
}

// open creates a session for one tool call and loads the text into it.
func (s *Server) open(ctx context.Context, input DocumentInput) (string, error) {
	if strings.TrimSpace(input.Text) == "" {
		return "", ErrMissingText
	}
	name := input.Name
	if name == "" {
		name = defaultDocumentName
	}

	sessionID := "mcp-" + uuid.NewString()
	if _, err := s.ports.Pipeline.Upload(ctx, sessionID, name, "text/plain", []byte(input.Text)); err != nil {
		return "", fmt.Errorf("loading text: %w", err)
	}
	return sessionID, nil
}

// discard clears the call's entities. The empty run expires with the store's TTL.
func (s *Server) discard(ctx context.Context, sessionID string) {
	if _, err := s.ports.Pipeline.Reset(context.WithoutCancel(ctx), sessionID); err != nil {
		s.log.Warnw("discarding session", "session", sessionID, "error", err)
	}
}

func requirementsOutput(reqs *domain.RequirementSet) RequirementsOutput {
	if reqs == nil {
		return RequirementsOutput{}
	}
	if reqs.IsFallback() {
		return RequirementsOutput{
			Fallback:    true,
			Error:       reqs.Error,
			RawResponse: reqs.RawResponse,
		}
	}
	return RequirementsOutput{
		Requirements: reqs.Fields,
		Keys:         reqs.Keys,
	}
}
