package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/showstart-scout/internal/search"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var verr *ErrValidation
	switch {
	case errors.As(err, &verr), errors.Is(err, search.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, search.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse is the envelope for every error answer.
type ErrorResponse struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message"`
	ErrorCode    string `json:"error_code"`
	RetryAfter   int    `json:"retry_after,omitempty"`
}

// CodeInternal is the error code for unexpected failures.
const CodeInternal = "INTERNAL_SERVER_ERROR"

// errorCode returns HTTP_<status> for handled statuses.
func errorCode(status int) string {
	return fmt.Sprintf("HTTP_%d", status)
}
