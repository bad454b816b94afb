package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown document or export format.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// Pipeline Errors.

	// ErrStageOutOfOrder indicates a stage was requested before the stage
	// producing its input completed, or after it already ran.
	ErrStageOutOfOrder = errors.New("stage out of order")

	// ErrRunHalted indicates an earlier stage failed. Only a reset clears it.
	ErrRunHalted = errors.New("run halted")

	// ErrStageInProgress indicates a stage is already running for the session.
	ErrStageInProgress = errors.New("stage in progress")

	// ErrNoDocument indicates no document text is available to process.
	ErrNoDocument = errors.New("no document loaded")

	// ErrDocumentLoaded indicates the run already holds document text.
	// Document text is immutable until the run is reset.
	ErrDocumentLoaded = errors.New("document already loaded")

	// ErrMalformedReply indicates the model reply could not be used and the
	// fallback policy halts the run.
	ErrMalformedReply = errors.New("malformed model reply")

	// Output Errors.

	// ErrExportFailed indicates a document could not be generated.
	ErrExportFailed = errors.New("export failed")

	// ErrUpstream indicates the language-model API failed.
	ErrUpstream = errors.New("upstream API failure")
)

// UpstreamError describes a non-success reply from a language-model API.
// It matches ErrUpstream with errors.Is.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: API returned status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: API returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Is reports whether target is ErrUpstream.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}
