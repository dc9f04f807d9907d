package respond

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrCallbackRequired is returned when no configured callback parameter is
	// present and the callback is not optional.
	ErrCallbackRequired = errors.New("callback name is required")

	// ErrInvalidCallback is returned when the callback is not a dotted
	// JavaScript identifier.
	ErrInvalidCallback = errors.New("invalid callback name")

	// ErrUnsupportedPayload is returned when a payload cannot be rendered in
	// the requested mode, e.g. a bare string for ndjson.
	ErrUnsupportedPayload = errors.New("unsupported payload type")

	// ErrInvalidJSON is returned when a RawMessage in the payload does not
	// hold exactly one JSON value.
	ErrInvalidJSON = errors.New("invalid JSON")
)

// Error is returned by a View to answer with a JSON error body.
type Error struct {
	Status int
	Data   map[string]any
}

// NewError returns an Error with the given status and body fields.
func NewError(status int, data map[string]any) *Error {
	return &Error{Status: status, Data: data}
}

// Errorf returns an Error whose body carries a single "error" field.
func Errorf(status int, format string, args ...any) *Error {
	return &Error{Status: status, Data: map[string]any{"error": fmt.Sprintf(format, args...)}}
}

func (e *Error) Error() string {
	if msg, ok := e.Data["error"].(string); ok && msg != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), msg)
	}
	return fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status))
}

// StatusCode maps an error returned by a handler to an HTTP status.
func StatusCode(err error) int {
	var jerr *Error
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &jerr):
		if jerr.Status == 0 {
			return http.StatusInternalServerError
		}
		return jerr.Status
	case errors.Is(err, ErrCallbackRequired), errors.Is(err, ErrInvalidCallback):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func asError(err error) (*Error, bool) {
	var jerr *Error
	if errors.As(err, &jerr) {
		return jerr, true
	}
	return nil, false
}
