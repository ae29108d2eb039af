package session

import (
	"errors"
	"fmt"

	"github.com/findosh/audioguide/internal/services/identity"
)

// Kind classifies a failed session operation
type Kind int

const (
	// KindInvalidCredentials means the email/password pair was not accepted
	KindInvalidCredentials Kind = iota + 1
	// KindRejected means the provider refused the request (duplicate email, weak password)
	KindRejected
	// KindProvider means the identity provider could not be reached or failed
	KindProvider
	// KindSuperseded means a later sign-in, sign-up or sign-out started before this attempt finished
	KindSuperseded
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindRejected:
		return "rejected"
	case KindProvider:
		return "provider"
	case KindSuperseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// ErrSuperseded is wrapped by errors of KindSuperseded
var ErrSuperseded = errors.New("attempt superseded by a newer one")

// Error is the failure variant of every session operation
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("session %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a session error, or 0 when err is not one
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

func classify(err error) *Error {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		return &Error{Kind: KindInvalidCredentials, Err: err}
	case errors.Is(err, identity.ErrEmailExists),
		errors.Is(err, identity.ErrWeakPassword),
		errors.Is(err, identity.ErrInvalidEmail):
		return &Error{Kind: KindRejected, Err: err}
	default:
		return &Error{Kind: KindProvider, Err: err}
	}
}
