// Package apperr defines the closed error taxonomy for API operations.
// Every failure surfaced to a caller is one of these kinds; the HTTP layer
// maps kinds to status codes and decides whether detail is returned.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an operation failure.
type Kind int

const (
	// KindInvalidInput indicates a malformed address, amount, or parameter.
	KindInvalidInput Kind = iota

	// KindNotFound indicates a requested resource does not exist.
	KindNotFound

	// KindUnauthorized indicates the caller is not allowed to perform the operation.
	KindUnauthorized

	// KindTransport indicates a blockchain RPC failure. Most causes are
	// client-supplied bad state (insufficient funds, bad authority), so the
	// detail is returned to the caller.
	KindTransport

	// KindStorage indicates a database failure. Detail is logged, never returned.
	KindStorage

	// KindInternal is the catch-all for unexpected failures.
	KindInternal
)

// Error is a classified operation error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with the given kind and message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error wrapping a cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind from err. Unclassified errors are KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// HTTPStatus maps a kind to its response status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindTransport:
		return http.StatusBadRequest
	case KindStorage, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show the caller.
// Storage and internal errors withhold detail.
func PublicMessage(err error) string {
	var ae *Error
	if !errors.As(err, &ae) {
		return "internal server error"
	}

	switch ae.Kind {
	case KindStorage:
		return "storage error"
	case KindInternal:
		return "internal server error"
	default:
		if ae.Err != nil {
			return fmt.Sprintf("%s: %v", ae.Msg, ae.Err)
		}
		return ae.Msg
	}
}
