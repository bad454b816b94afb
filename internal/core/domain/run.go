package domain

import (
	"fmt"
	"time"
)

// Run holds the entities produced for one uploaded document.
// Runs are values: transitions return a new Run and leave the receiver
// untouched. Each entity is written by exactly one transition.
type Run struct {
	// ID identifies the run's session.
	ID string `json:"id"`

	// Stage is the pipeline position.
	Stage Stage `json:"stage"`

	// DocumentName is the uploaded file name.
	DocumentName string `json:"document_name,omitempty"`

	// RawText is the extracted document text.
	RawText string `json:"raw_text,omitempty"`

	// Requirements is produced by the parsing stage.
	Requirements *RequirementSet `json:"requirements,omitempty"`

	// Knowledge is produced by the retrieving stage.
	Knowledge string `json:"knowledge,omitempty"`

	// Draft is produced by the drafting stage.
	Draft string `json:"draft,omitempty"`

	// Review is produced by the reviewing stage.
	Review string `json:"review,omitempty"`

	// Failure records the error that halted the run.
	Failure string `json:"failure,omitempty"`

	// FailedStage is the stage that was running when the run halted.
	FailedStage Stage `json:"failed_stage,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRun creates an empty idle run.
func NewRun(id string) Run {
	now := time.Now()
	return Run{
		ID:        id,
		Stage:     StageIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Halted returns true if a stage failure was recorded.
func (r Run) Halted() bool {
	return r.Failure != ""
}

// HasDocument returns true if document text has been loaded.
func (r Run) HasDocument() bool {
	return r.RawText != ""
}

// Started returns true once the run has left idle.
func (r Run) Started() bool {
	return r.Stage != StageIdle
}

// Done returns true once every entity exists.
func (r Run) Done() bool {
	return r.Stage == StageDone
}

// StatusOf reports the display state of an agent stage.
func (r Run) StatusOf(s Stage) StageStatus {
	idx := s.Index()
	if idx < 0 {
		return StatusPending
	}
	if r.Stage == StageDone {
		return StatusComplete
	}
	current := r.Stage.Index()
	switch {
	case current < 0:
		return StatusPending
	case idx < current:
		return StatusComplete
	case idx == current && r.Halted():
		return StatusFailed
	case idx == current:
		return StatusWorking
	default:
		return StatusPending
	}
}

// WithDocument loads extracted document text into an idle run.
func (r Run) WithDocument(name, text string) (Run, error) {
	if r.Stage != StageIdle {
		return r, fmt.Errorf("%w: document can only be loaded before the run starts", ErrStageOutOfOrder)
	}
	if r.HasDocument() {
		return r, ErrDocumentLoaded
	}
	if text == "" {
		return r, ErrNoDocument
	}
	r.DocumentName = name
	r.RawText = text
	return r.touch(), nil
}

// Start moves an idle run with document text to the parsing stage.
func (r Run) Start() (Run, error) {
	if err := r.expect(StageIdle); err != nil {
		return r, err
	}
	if !r.HasDocument() {
		return r, ErrNoDocument
	}
	r.Stage = StageParsing
	return r.touch(), nil
}

// WithRequirements records the parsing stage's result.
func (r Run) WithRequirements(reqs RequirementSet) (Run, error) {
	if err := r.expect(StageParsing); err != nil {
		return r, err
	}
	r.Requirements = &reqs
	r.Stage = StageRetrieving
	return r.touch(), nil
}

// WithKnowledge records the retrieving stage's result.
func (r Run) WithKnowledge(knowledge string) (Run, error) {
	if err := r.expect(StageRetrieving); err != nil {
		return r, err
	}
	r.Knowledge = knowledge
	r.Stage = StageDrafting
	return r.touch(), nil
}

// WithDraft records the drafting stage's result.
func (r Run) WithDraft(draft string) (Run, error) {
	if err := r.expect(StageDrafting); err != nil {
		return r, err
	}
	r.Draft = draft
	r.Stage = StageReviewing
	return r.touch(), nil
}

// WithReview records the reviewing stage's result.
func (r Run) WithReview(review string) (Run, error) {
	if err := r.expect(StageReviewing); err != nil {
		return r, err
	}
	r.Review = review
	r.Stage = StageDone
	return r.touch(), nil
}

// Halt records a stage failure. The stage does not advance.
func (r Run) Halt(err error) Run {
	if err == nil || r.Halted() {
		return r
	}
	r.Failure = err.Error()
	r.FailedStage = r.Stage
	return r.touch()
}

// Reset discards every entity and returns to idle, keeping the ID.
func (r Run) Reset() Run {
	fresh := NewRun(r.ID)
	fresh.CreatedAt = r.CreatedAt
	return fresh
}

func (r Run) expect(stage Stage) error {
	if r.Halted() {
		return fmt.Errorf("%w: %s", ErrRunHalted, r.Failure)
	}
	if r.Stage != stage {
		return fmt.Errorf("%w: run is %s, want %s", ErrStageOutOfOrder, r.Stage, stage)
	}
	return nil
}

func (r Run) touch() Run {
	r.UpdatedAt = time.Now()
	return r
}
