package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// uriScheme is the custom URI scheme for bidwright resources.
const uriScheme = "bidwright://"

// registerResources registers the prompt resources when prompts are available.
func (s *Server) registerResources() {
	if s.ports.Prompts == nil {
		return
	}

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "prompts",
		Name:        "prompts",
		Description: "Names of the stage prompt templates",
		MIMEType:    "application/json",
	}, s.handlePromptsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "prompts/{name}",
		Name:        "prompt",
		Description: "Current text of one stage prompt template",
		MIMEType:    "text/plain",
	}, s.handlePromptResource)
}

// handlePromptsResource lists the prompt names.
func (s *Server) handlePromptsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(s.ports.Prompts.Names(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling prompt names: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handlePromptResource returns one prompt template.
func (s *Server) handlePromptResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	name := extractPromptName(req.Params.URI)
	if name == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	text, err := s.ports.Prompts.Load(name)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     text,
		}},
	}, nil
}

// extractPromptName extracts the name from a URI like bidwright://prompts/{name}.
func extractPromptName(uri string) string {
	const prefix = uriScheme + "prompts/"

	name, ok := strings.CutPrefix(uri, prefix)
	if !ok || strings.Contains(name, "/") {
		return ""
	}
	return name
}
