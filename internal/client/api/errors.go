package api

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable means no usable response was received: connection
	// refused, timeout, or a malformed body. Always retryable.
	ErrUnavailable = errors.New("server unavailable")

	// ErrUnauthorized means the server rejected the bearer token, or the
	// token was detected as expired before the request was sent.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrLegacyNeedsPassword is returned by Login when the server reports
	// that the account predates password support (HTTP 403 on login).
	ErrLegacyNeedsPassword = errors.New("account has no password set")
)

// APIError is a structured business failure: any non-2xx response that is
// not an authorization failure. Detail carries the server-provided
// human-readable reason when present.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("api error %d", e.Status)
}
