// Package tui provides a terminal view of a run as its agents execute.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/bidwright/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI needs.
type Ports struct {
	// Pipeline advances the run one agent at a time.
	Pipeline driving.PipelineService

	// Export renders the finished run.
	Export driving.ExportService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Pipeline == nil {
		return ErrMissingPipelineService
	}
	if p.Export == nil {
		return ErrMissingExportService
	}
	return nil
}
