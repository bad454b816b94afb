package driven

import (
	"time"

	"github.com/custodia-labs/bidwright/internal/core/domain"
)

// StageObserver is notified around each stage call.
// Implementations must not block; they are called on the request path.
type StageObserver interface {
	// StageStarted is called before the stage's model call.
	StageStarted(sessionID string, stage domain.Stage)

	// StageFinished is called after the stage completes or fails.
	StageFinished(sessionID string, stage domain.Stage, elapsed time.Duration, err error)
}

// StageObservers fans notifications out to several observers.
type StageObservers []StageObserver

// StageStarted notifies every observer.
func (o StageObservers) StageStarted(sessionID string, stage domain.Stage) {
	for _, obs := range o {
		obs.StageStarted(sessionID, stage)
	}
}

// StageFinished notifies every observer.
func (o StageObservers) StageFinished(sessionID string, stage domain.Stage, elapsed time.Duration, err error) {
	for _, obs := range o {
		obs.StageFinished(sessionID, stage, elapsed, err)
	}
}
