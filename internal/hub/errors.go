package hub

import "errors"

// Domain-specific errors for hub REST operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrRequestFailed is returned when a request cannot reach the hub.
	ErrRequestFailed = errors.New("hub: request failed")

	// ErrStatusNotOK is returned when the hub answers with a non-2xx status.
	ErrStatusNotOK = errors.New("hub: unexpected response status")

	// ErrEntityNotFound is returned when the hub reports no such entity.
	ErrEntityNotFound = errors.New("hub: entity not found")

	// ErrDecodeFailed is returned when a hub response cannot be decoded.
	ErrDecodeFailed = errors.New("hub: decoding response failed")
)
