package acumatica

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamFormat indicates the ERP returned a body that is not JSON
	// (typically an HTML login page). The body is a session/error signal and
	// must never be parsed as data.
	ErrUpstreamFormat = errors.New("acumatica: upstream returned non-JSON body")

	// ErrUnauthorized indicates the session cookie was rejected (401). The
	// caller should invalidate the cached session and renew.
	ErrUnauthorized = errors.New("acumatica: session rejected")

	// ErrNotFound indicates a direct-by-key detail fetch matched nothing.
	ErrNotFound = errors.New("acumatica: entity not found")
)

// StatusError is an upstream HTTP error with its status code attached, so
// retry policies can distinguish transient 5xx failures from terminal 4xx.
type StatusError struct {
	Code int
	Body string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("acumatica: upstream HTTP %d: %s", e.Code, e.Body)
}

// IsRetryable reports whether the error is a transient upstream failure
// (5xx-class) worth retrying with backoff.
func IsRetryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500
	}
	return false
}
