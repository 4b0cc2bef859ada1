package types

import (
	"fmt"
	"net/http"
	"time"
)

// Meta carries optional envelope metadata.
type Meta struct {
	Total     *int       `json:"total,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Affected  *int       `json:"affected,omitempty"`
	Page      *int       `json:"page,omitempty"`
}

// Envelope is the uniform result of every driver and service operation.
// A 2xx Status implies an empty Error. Data holds its zero value only on
// not-found or failure.
type Envelope[T any] struct {
	Data   T      `json:"data"`
	Error  string `json:"error,omitempty"`
	Status int    `json:"status"`
	Meta   *Meta  `json:"meta,omitempty"`
}

// OK reports whether Status is in the 2xx range.
func (e Envelope[T]) OK() bool {
	return e.Status >= 200 && e.Status < 300
}

// Err returns nil for a 2xx envelope, otherwise a *StatusError that matches the
// sentinel for its status via errors.Is.
func (e Envelope[T]) Err() error {
	if e.OK() {
		return nil
	}
	return &StatusError{Status: e.Status, Message: e.Error}
}

// Success builds a 2xx envelope.
func Success[T any](status int, data T) Envelope[T] {
	return Envelope[T]{Data: data, Status: status}
}

// Failure builds an envelope for a non-2xx outcome with Data at its zero value.
// A nil err falls back to the HTTP status text.
func Failure[T any](status int, err error) Envelope[T] {
	var zero T
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	return Envelope[T]{Data: zero, Status: status, Error: msg}
}

// ListMeta returns the metadata attached to list results.
func ListMeta(total int, now time.Time) *Meta {
	return &Meta{Total: &total, Timestamp: &now}
}

// AffectedMeta returns metadata reporting how many records an operation touched.
func AffectedMeta(n int) *Meta {
	return &Meta{Affected: &n}
}

// StatusError is the error form of a non-2xx Envelope.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.Status)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// Is matches the sentinel error that corresponds to the status code.
func (e *StatusError) Is(target error) bool {
	s := StatusSentinel(e.Status)
	return s != nil && s == target
}

// StatusSentinel maps an envelope status to its sentinel error, or nil for
// statuses without one.
func StatusSentinel(status int) error {
	switch status {
	case http.StatusBadRequest:
		return ErrInvalidDocument
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusConflict:
		return ErrConflict
	case http.StatusServiceUnavailable:
		return ErrNoProvider
	case http.StatusInternalServerError:
		return ErrRequestFailed
	}
	return nil
}
