package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/bidwright/internal/core/domain"
	"github.com/custodia-labs/bidwright/internal/core/ports/driven"
	"github.com/custodia-labs/bidwright/internal/core/ports/driving"
	"github.com/custodia-labs/bidwright/internal/logger"
)

// Ensure PipelineService implements the interface.
var _ driving.PipelineService = (*PipelineService)(nil)

// PipelineService sequences the stages of each session's run.
// Runs live in the RunStore; the service keeps only the set of sessions
// with a call in flight.
type PipelineService struct {
	runner     *StageRunner
	store      driven.RunStore
	extractors driven.ExtractorRegistry
	observer   driven.StageObserver
	fallback   domain.FallbackPolicy

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewPipelineService creates a pipeline service.
// The extractor registry is only needed by Upload.
func NewPipelineService(
	runner *StageRunner,
	store driven.RunStore,
	extractors driven.ExtractorRegistry,
	settings domain.PipelineSettings,
) *PipelineService {
	policy := settings.Fallback
	if !policy.IsValid() {
		policy = domain.FallbackContinue
	}
	return &PipelineService{
		runner:     runner,
		store:      store,
		extractors: extractors,
		fallback:   policy,
		inFlight:   make(map[string]struct{}),
	}
}

// SetObserver installs a hook notified around every stage call.
func (s *PipelineService) SetObserver(observer driven.StageObserver) {
	s.observer = observer
}

// Load returns the session's run, creating an idle run if none exists.
func (s *PipelineService) Load(ctx context.Context, sessionID string) (domain.Run, error) {
	if sessionID == "" {
		return domain.Run{}, fmt.Errorf("%w: session ID is required", domain.ErrInvalidInput)
	}
	run, err := s.store.Get(ctx, sessionID)
	if err == nil {
		return *run, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Run{}, fmt.Errorf("load run: %w", err)
	}
	fresh := domain.NewRun(sessionID)
	if err := s.store.Save(ctx, fresh); err != nil {
		return domain.Run{}, fmt.Errorf("save run: %w", err)
	}
	return fresh, nil
}

// Upload extracts text from a document and stores it in an idle run.
func (s *PipelineService) Upload(
	ctx context.Context,
	sessionID, name, mimeType string,
	content []byte,
) (domain.Run, error) {
	if err := s.acquire(sessionID); err != nil {
		return domain.Run{}, err
	}
	defer s.release(sessionID)

	run, err := s.Load(ctx, sessionID)
	if err != nil {
		return domain.Run{}, err
	}
	if run.HasDocument() {
		return run, domain.ErrDocumentLoaded
	}
	if s.extractors == nil {
		return run, fmt.Errorf("%w: no document extractors configured", domain.ErrUnsupportedType)
	}

	extractor, err := s.extractors.Get(name, mimeType)
	if err != nil {
		return run, err
	}
	text, err := extractor.Extract(ctx, name, content)
	if err != nil {
		return run, fmt.Errorf("extract %s: %w", name, err)
	}
	if strings.TrimSpace(text) == "" {
		return run, fmt.Errorf("extract %s: %w", name, domain.ErrNoDocument)
	}

	next, err := run.WithDocument(name, text)
	if err != nil {
		return run, err
	}
	logger.Debug("session %s: extracted %d characters from %s using %s",
		sessionID, len([]rune(text)), name, extractor.Name())
	return s.save(ctx, next)
}

// Start moves an idle run with document text to the parsing stage.
func (s *PipelineService) Start(ctx context.Context, sessionID string) (domain.Run, error) {
	if err := s.acquire(sessionID); err != nil {
		return domain.Run{}, err
	}
	defer s.release(sessionID)

	run, err := s.Load(ctx, sessionID)
	if err != nil {
		return domain.Run{}, err
	}
	return s.start(ctx, run)
}

// Advance runs exactly the stage the run is at.
func (s *PipelineService) Advance(ctx context.Context, sessionID string) (domain.Run, error) {
	if err := s.acquire(sessionID); err != nil {
		return domain.Run{}, err
	}
	defer s.release(sessionID)

	run, err := s.Load(ctx, sessionID)
	if err != nil {
		return domain.Run{}, err
	}
	return s.advance(ctx, run)
}

// RunToEnd starts the run if needed and advances until done.
func (s *PipelineService) RunToEnd(ctx context.Context, sessionID string) (domain.Run, error) {
	if err := s.acquire(sessionID); err != nil {
		return domain.Run{}, err
	}
	defer s.release(sessionID)

	run, err := s.Load(ctx, sessionID)
	if err != nil {
		return domain.Run{}, err
	}
	if run.Stage == domain.StageIdle {
		if run, err = s.start(ctx, run); err != nil {
			return run, err
		}
	}
	for !run.Done() {
		if run, err = s.advance(ctx, run); err != nil {
			return run, err
		}
	}
	return run, nil
}

// Reset discards every entity and returns the run to idle.
func (s *PipelineService) Reset(ctx context.Context, sessionID string) (domain.Run, error) {
	if err := s.acquire(sessionID); err != nil {
		return domain.Run{}, err
	}
	defer s.release(sessionID)

	run, err := s.Load(ctx, sessionID)
	if err != nil {
		return domain.Run{}, err
	}
	logger.Debug("session %s: reset from %s", sessionID, run.Stage)
	return s.save(ctx, run.Reset())
}

func (s *PipelineService) start(ctx context.Context, run domain.Run) (domain.Run, error) {
	next, err := run.Start()
	if err != nil {
		return run, err
	}
	return s.save(ctx, next)
}

// advance executes the current stage and applies its transition.
// A stage failure halts the run and is saved before being returned.
func (s *PipelineService) advance(ctx context.Context, run domain.Run) (domain.Run, error) {
	if run.Halted() {
		return run, fmt.Errorf("%w: %s", domain.ErrRunHalted, run.Failure)
	}
	stage := run.Stage
	if !stage.IsAgent() {
		return run, fmt.Errorf("%w: no stage to run while %s", domain.ErrStageOutOfOrder, stage)
	}

	s.notifyStarted(run.ID, stage)
	started := time.Now()
	next, err := s.execute(ctx, run)
	s.notifyFinished(run.ID, stage, time.Since(started), err)

	if err != nil {
		if errors.Is(err, domain.ErrStageOutOfOrder) || errors.Is(err, domain.ErrRunHalted) {
			return run, err
		}
		logger.Warn("session %s: %s failed: %v", run.ID, stage.Label(), err)
		halted, saveErr := s.save(ctx, run.Halt(err))
		if saveErr != nil {
			return run, errors.Join(err, saveErr)
		}
		return halted, err
	}

	logger.Debug("session %s: %s complete in %s", run.ID, stage.Label(), time.Since(started).Round(time.Millisecond))
	return s.save(ctx, next)
}

// execute calls the stage function with the entities it reads and returns
// the run carrying the entity it writes.
func (s *PipelineService) execute(ctx context.Context, run domain.Run) (domain.Run, error) {
	switch run.Stage {
	case domain.StageParsing:
		reqs, err := s.runner.ParseDocument(ctx, run.RawText)
		if err != nil {
			return run, err
		}
		if reqs.IsFallback() {
			if s.fallback == domain.FallbackHalt {
				return run, fmt.Errorf("%w: %s", domain.ErrMalformedReply, reqs.Error)
			}
			logger.Warn("session %s: requirements fell back: %s", run.ID, reqs.Error)
		}
		return run.WithRequirements(reqs)

	case domain.StageRetrieving:
		if run.Requirements == nil {
			return run, fmt.Errorf("%w: requirements missing", domain.ErrStageOutOfOrder)
		}
		knowledge, err := s.runner.RetrieveKnowledge(ctx, *run.Requirements)
		if err != nil {
			return run, err
		}
		return run.WithKnowledge(knowledge)

	case domain.StageDrafting:
		if run.Requirements == nil {
			return run, fmt.Errorf("%w: requirements missing", domain.ErrStageOutOfOrder)
		}
		draft, err := s.runner.DraftResponse(ctx, *run.Requirements, run.Knowledge)
		if err != nil {
			return run, err
		}
		return run.WithDraft(draft)

	case domain.StageReviewing:
		if run.Requirements == nil {
			return run, fmt.Errorf("%w: requirements missing", domain.ErrStageOutOfOrder)
		}
		review, err := s.runner.ReviewDraft(ctx, run.Draft, *run.Requirements)
		if err != nil {
			return run, err
		}
		return run.WithReview(review)

	default:
		return run, fmt.Errorf("%w: no stage to run while %s", domain.ErrStageOutOfOrder, run.Stage)
	}
}

func (s *PipelineService) save(ctx context.Context, run domain.Run) (domain.Run, error) {
	if err := s.store.Save(ctx, run); err != nil {
		return run, fmt.Errorf("save run: %w", err)
	}
	return run, nil
}

// acquire marks a session busy. A second caller for the same session is
// rejected rather than queued.
func (s *PipelineService) acquire(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session ID is required", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[sessionID]; busy {
		return domain.ErrStageInProgress
	}
	s.inFlight[sessionID] = struct{}{}
	return nil
}

func (s *PipelineService) release(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, sessionID)
}

// Busy reports whether a call is in flight for the session.
func (s *PipelineService) Busy(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, busy := s.inFlight[sessionID]
	return busy
}

func (s *PipelineService) notifyStarted(sessionID string, stage domain.Stage) {
	if s.observer != nil {
		s.observer.StageStarted(sessionID, stage)
	}
}

func (s *PipelineService) notifyFinished(sessionID string, stage domain.Stage, elapsed time.Duration, err error) {
	if s.observer != nil {
		s.observer.StageFinished(sessionID, stage, elapsed, err)
	}
}
