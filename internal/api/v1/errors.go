package v1

import (
	"errors"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/agileboard/internal/domain"
)

// ErrorBody is the wire shape of every error response: {"error": "..."}.
type ErrorBody struct {
	status  int
	Message string `json:"error" doc:"Human readable error message"`
}

func (e *ErrorBody) Error() string  { return e.Message }
func (e *ErrorBody) GetStatus() int { return e.status }

//nolint:gochecknoinits // huma exposes its error constructor as a package variable
func init() {
	huma.NewError = newError
}

// newError replaces huma's problem+json model. Causes of 5xx errors are
// logged and kept out of the response; 4xx details are appended so
// validation failures stay readable.
func newError(status int, msg string, errs ...error) huma.StatusError {
	if status >= 500 {
		if len(errs) > 0 {
			log.Error().Err(errors.Join(errs...)).Int("status", status).Msg(msg)
		}
		return &ErrorBody{status: status, Message: msg}
	}

	details := make([]string, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			details = append(details, err.Error())
		}
	}
	if len(details) > 0 {
		msg += ": " + strings.Join(details, "; ")
	}
	return &ErrorBody{status: status, Message: msg}
}

// storeError maps a repository error to an HTTP error. what names the
// resource in not-found messages; action describes the failed operation.
func storeError(err error, what, action string) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound(what + " not found")
	case errors.Is(err, domain.ErrForbidden):
		return huma.Error403Forbidden("not a member of this project")
	case errors.Is(err, domain.ErrConflict):
		return huma.Error409Conflict(what + " conflicts with an existing record")
	case errors.Is(err, domain.ErrExpired):
		return huma.Error410Gone(what + " has expired")
	default:
		return huma.Error500InternalServerError("failed to "+action, err)
	}
}
