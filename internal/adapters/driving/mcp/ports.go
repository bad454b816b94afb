package mcp

import (
	"github.com/custodia-labs/bidwright/internal/core/ports/driving"
)

// PromptSource exposes the stage prompt templates as resources.
type PromptSource interface {
	Names() []string
	Load(name string) (string, error)
}

// Ports aggregates the dependencies of the MCP server.
type Ports struct {
	// Pipeline runs the stages. Each tool call uses its own session.
	Pipeline driving.PipelineService

	// Export composes the final response document.
	Export driving.ExportService

	// Prompts is optional; without it no prompt resources are listed.
	Prompts PromptSource
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Pipeline == nil {
		return ErrMissingPipelineService
	}
	if p.Export == nil {
		return ErrMissingExportService
	}
	return nil
}
