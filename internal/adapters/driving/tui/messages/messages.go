// Package messages defines Bubbletea message types for the TUI.
package messages

import (
	"time"

	"github.com/custodia-labs/bidwright/internal/core/domain"
)

// StageCompleted carries the run back after one agent has finished.
// Err is set when the stage failed or could not be called.
type StageCompleted struct {
	Stage   domain.Stage
	Run     domain.Run
	Elapsed time.Duration
	Err     error
}

// OutputsWritten is sent once the finished run has been exported.
type OutputsWritten struct {
	Files []string
	Err   error
}

// RunLoaded carries the session's run when the program starts.
type RunLoaded struct {
	Run domain.Run
	Err error
}
