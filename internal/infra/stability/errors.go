package stability

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey means the Stability credential was never configured. The
// client fails before making any network call.
var ErrMissingAPIKey = errors.New("stability: API key not configured")

// ErrMalformedResponse means the provider answered 200 but the payload held
// no media field in any known shape. Treated as a provider defect, never
// retried.
var ErrMalformedResponse = errors.New("stability: response missing media payload")

// RejectedError is a non-success status from the provider. The raw body is
// kept for diagnostics but never shown to end users.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("stability: provider rejected request (status %d): %s", e.StatusCode, e.Message)
}

// TransportError is a network-level failure (timeout, connection reset).
// The only error class callers may retry.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("stability: transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
