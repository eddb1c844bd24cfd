package insight

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeInvalidRequest      Code = "INVALID_REQUEST"
	CodeNotFound            Code = "NOT_FOUND"
	CodeRateLimited         Code = "RATE_LIMITED"
	CodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"
	CodeProcessingError     Code = "PROCESSING_ERROR"
	CodeLLMTimeout          Code = "LLM_TIMEOUT"
	CodeDatabaseError       Code = "DATABASE_ERROR"
)

// Error is a classified failure safe to show to API clients. Err keeps the
// underlying cause for logs only.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// AsError classifies err. Unclassified errors become PROCESSING_ERROR with a
// generic message.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return newError(CodeProcessingError, "failed to process request", err)
}
