package eventstream

import "errors"

// Domain-specific errors for the event feed connection.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrConnectionFailed is returned when the WebSocket transport cannot
	// be established.
	ErrConnectionFailed = errors.New("eventstream: connection failed")

	// ErrProtocolViolation is returned when the feed sends something other
	// than the expected handshake message. The attempt is abandoned and
	// retried from scratch.
	ErrProtocolViolation = errors.New("eventstream: protocol violation")

	// ErrAuthFailed is returned when the feed rejects the credential or the
	// auth-ok reply does not arrive within the configured timeout.
	ErrAuthFailed = errors.New("eventstream: authentication failed")

	// ErrSubscribeFailed is returned when a subscription request cannot be sent.
	ErrSubscribeFailed = errors.New("eventstream: subscribe failed")

	// ErrMaxAttemptsReached is returned by Run when the configured reconnect
	// attempt cap is exceeded. The feed stays down; cached reads degrade to
	// TTL-only freshness but the process keeps serving.
	ErrMaxAttemptsReached = errors.New("eventstream: maximum reconnect attempts reached")
)
