package files

import (
	"fmt"
	"net/http"
)

// Error carries an HTTP status plus a client-safe message. The wrapped cause
// is logged server-side and never reaches the response body.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Client-input and authorization failures. Absent and not-owned records both
// map to ErrNotFound so callers cannot probe for existence.
var (
	ErrUnauthorized    = &Error{Status: http.StatusUnauthorized, Message: "Unauthorized"}
	ErrMissingName     = &Error{Status: http.StatusBadRequest, Message: "Missing name"}
	ErrMissingType     = &Error{Status: http.StatusBadRequest, Message: "Missing type"}
	ErrMissingData     = &Error{Status: http.StatusBadRequest, Message: "Missing data"}
	ErrInvalidData     = &Error{Status: http.StatusBadRequest, Message: "Invalid data"}
	ErrParentNotFound  = &Error{Status: http.StatusBadRequest, Message: "Parent not found"}
	ErrParentNotFolder = &Error{Status: http.StatusBadRequest, Message: "Parent is not a folder"}
	ErrNotFound        = &Error{Status: http.StatusNotFound, Message: "Not found"}
	ErrFolderNoContent = &Error{Status: http.StatusBadRequest, Message: "A folder doesn't have content"}
	ErrInvalidSize     = &Error{Status: http.StatusBadRequest, Message: "Invalid size"}
)

// internalErr wraps a backend fault. The caller sees a generic server error;
// the cause travels with the error for logging.
func internalErr(msg string, err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: "Internal server error", Err: fmt.Errorf("%s: %w", msg, err)}
}
