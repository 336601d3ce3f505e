package syncstate

import "errors"

var (
	// ErrNotFound is returned when a state row does not exist.
	ErrNotFound = errors.New("syncstate: not found")

	// ErrNoActiveCredential is returned when no active credential set is
	// configured. This is a configuration error: fatal to the run, no
	// partial processing is attempted.
	ErrNoActiveCredential = errors.New("syncstate: no active credential configured")

	// ErrSessionLimitReached is returned when Acumatica rejects a login
	// because its concurrent API session limit is exhausted. Callers surface
	// a remediation message instead of retrying blindly.
	ErrSessionLimitReached = errors.New("syncstate: concurrent API login limit reached")

	// ErrLoginFailed is returned when Acumatica rejects the credentials.
	ErrLoginFailed = errors.New("syncstate: login rejected")
)
