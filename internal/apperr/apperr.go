// Package apperr defines the error kinds surfaced to HTTP clients.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthorization
	KindInsufficientCredits
	KindAuthentication
	KindConfiguration
	KindUpstream
	KindParse
	KindSchema
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindInsufficientCredits:
		return "insufficient_credits"
	case KindAuthentication:
		return "authentication"
	case KindConfiguration:
		return "configuration"
	case KindUpstream:
		return "upstream"
	case KindParse:
		return "parse"
	case KindSchema:
		return "schema"
	case KindPersistence:
		return "persistence"
	default:
		return "internal"
	}
}

func (k Kind) status() int {
	switch k {
	case KindValidation, KindAuthentication:
		return http.StatusBadRequest
	case KindAuthorization, KindInsufficientCredits:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error is a client-facing failure. Message is safe to return to the caller;
// Err holds the internal cause and is only logged.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Status: kind.status(), Err: err}
}

func Validation(msg string) *Error { return New(KindValidation, msg, nil) }

func Authorization(msg string) *Error { return New(KindAuthorization, msg, nil) }

func InsufficientCredits(msg string) *Error { return New(KindInsufficientCredits, msg, nil) }

func Authentication(msg string, err error) *Error { return New(KindAuthentication, msg, err) }

func Configuration(msg string) *Error { return New(KindConfiguration, msg, nil) }

func Parse(msg string, err error) *Error { return New(KindParse, msg, err) }

func Schema(msg string) *Error { return New(KindSchema, msg, nil) }

func Persistence(msg string, err error) *Error { return New(KindPersistence, msg, err) }

// Upstream reports a failed collaborator call. A status outside the 4xx/5xx
// range falls back to 500.
func Upstream(msg string, status int, err error) *Error {
	e := New(KindUpstream, msg, err)
	if status >= 400 && status < 600 {
		e.Status = status
	}
	return e
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// StatusOf returns the HTTP status for err, defaulting to 500.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}

// MessageOf returns the client-facing message for err.
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return "An unexpected error occurred"
}
