package api

import (
	"errors"
	"fmt"
)

// ErrConfiguration means the solver endpoint was absent at construction
// time. Fatal, never retried.
var ErrConfiguration = errors.New("solver endpoint not configured")

// ErrServiceUnavailable wraps a transient failure once the retry budget is
// exhausted.
var ErrServiceUnavailable = errors.New("solver unavailable")

// ChallengeError means the solver answered but reported a non-success solve
// status. Transient: the challenge layer sometimes needs a fresh attempt.
type ChallengeError struct {
	Status  string
	Message string
}

func (e *ChallengeError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("challenge solve failed: %s (%s)", e.Status, e.Message)
	}
	return fmt.Sprintf("challenge solve failed: %s", e.Status)
}

// MalformedError means the solver succeeded but the embedded payload is
// unusable. A data-shape problem, not a transient one: never retried.
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed solver payload: %s", e.Reason)
}

// TransportError covers network, timeout, and connection failures talking
// to the solver itself.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("solver transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether an error belongs to the transient class
// (challenge or transport). Malformed and configuration errors are final.
func IsRetryable(err error) bool {
	var challenge *ChallengeError
	var transport *TransportError
	return errors.As(err, &challenge) || errors.As(err, &transport)
}
