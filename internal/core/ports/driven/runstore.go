package driven

import (
	"context"

	"github.com/custodia-labs/bidwright/internal/core/domain"
)

// RunStore persists runs keyed by session ID.
// Entries may expire; an expired run reads as domain.ErrNotFound.
type RunStore interface {
	// Get retrieves the run for a session.
	// Returns domain.ErrNotFound if none is stored.
	Get(ctx context.Context, id string) (*domain.Run, error)

	// Save stores the run under run.ID, replacing any previous value.
	Save(ctx context.Context, run domain.Run) error

	// Delete removes the run for a session. Missing runs are not an error.
	Delete(ctx context.Context, id string) error

	// Close releases resources.
	Close() error
}
