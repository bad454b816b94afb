package driving

import (
	"context"

	"github.com/custodia-labs/bidwright/internal/core/domain"
)

// PipelineService drives a run through its stages.
// Every method takes the session ID that owns the run.
type PipelineService interface {
	// Load returns the session's run, creating an idle run if none exists.
	Load(ctx context.Context, sessionID string) (domain.Run, error)

	// Upload extracts text from a document and stores it in an idle run.
	Upload(ctx context.Context, sessionID, name, mimeType string, content []byte) (domain.Run, error)

	// Start moves an idle run with document text to the parsing stage.
	Start(ctx context.Context, sessionID string) (domain.Run, error)

	// Advance runs exactly the stage the run is at.
	Advance(ctx context.Context, sessionID string) (domain.Run, error)

	// RunToEnd starts the run if needed and advances until done.
	RunToEnd(ctx context.Context, sessionID string) (domain.Run, error)

	// Reset discards every entity and returns the run to idle.
	Reset(ctx context.Context, sessionID string) (domain.Run, error)
}
