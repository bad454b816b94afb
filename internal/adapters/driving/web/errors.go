package web

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/custodia-labs/bidwright/internal/core/domain"
)

// statusFor maps an error to the HTTP status shown with it.
func statusFor(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, domain.ErrStageOutOfOrder),
		errors.Is(err, domain.ErrRunHalted),
		errors.Is(err, domain.ErrStageInProgress),
		errors.Is(err, domain.ErrDocumentLoaded):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrNoDocument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrUpstream),
		errors.Is(err, domain.ErrLLMUnavailable),
		errors.Is(err, domain.ErrMalformedReply):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// userMessage is the inline text shown for an error.
func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrDocumentLoaded):
		return "A document is already loaded. Start over to upload another."
	case errors.Is(err, domain.ErrStageInProgress):
		return "An agent is still working on this session. Wait for it to finish."
	case errors.Is(err, domain.ErrRunHalted):
		return "This run stopped after an error. Start over to try again."
	case errors.Is(err, domain.ErrUpstream), errors.Is(err, domain.ErrLLMUnavailable):
		return "Error calling the language model: " + err.Error()
	case errors.Is(err, domain.ErrExportFailed):
		return "Error generating document: " + err.Error()
	default:
		return err.Error()
	}
}
