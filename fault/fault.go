package fault

import (
	"errors"
	"fmt"
	"net/http"
)

// Code tags an operational error with the failure family a client can act on.
type Code string

const (
	BadRequest       Code = "BadRequest"
	NotFound         Code = "NotFound"
	Unauthorized     Code = "Unauthorized"
	Conflict         Code = "Conflict"
	MaxPagesExceeded Code = "MaxPagesExceeded"
)

// Fault is an operational error: expected, client-caused, safe to translate
// into an HTTP response. Anything else bubbling out of a use case is treated
// as fatal by the boundary.
type Fault struct {
	Code    Code
	Message string
	Err     error
}

func (e *Fault) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Fault) Unwrap() error {
	return e.Err
}

// Status maps the error code to its HTTP status.
func (e *Fault) Status() int {
	switch e.Code {
	case NotFound:
		return http.StatusNotFound
	case Unauthorized:
		return http.StatusUnauthorized
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func New(code Code, msg string) error {
	return &Fault{Code: code, Message: msg}
}

func Newf(code Code, format string, args ...any) error {
	return &Fault{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, msg string, err error) error {
	return &Fault{Code: code, Message: msg, Err: err}
}

// NotFoundf builds a NotFound fault for an entity and its lookup key.
func NotFoundf(entity string, id any) error {
	return Newf(NotFound, "%s not found (%v)", entity, id)
}

// As extracts a Fault from an error chain.
func As(err error) (*Fault, bool) {
	var f *Fault
	ok := errors.As(err, &f)
	return f, ok
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	if f, ok := As(err); ok {
		return f.Code == code
	}
	return false
}
