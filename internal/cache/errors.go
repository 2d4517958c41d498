package cache

import "errors"

// Domain-specific errors for cache operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrUnknownNamespace is returned when operating on a namespace that was
	// not declared at construction. Namespaces are never created implicitly;
	// hitting this error indicates a configuration or programming mistake.
	ErrUnknownNamespace = errors.New("cache: unknown namespace")

	// ErrInvalidNamespace is returned by New when a namespace declaration
	// is unusable (empty name, non-positive TTL or entry bound).
	ErrInvalidNamespace = errors.New("cache: invalid namespace declaration")

	// ErrDuplicateNamespace is returned by New when the same namespace name
	// is declared twice.
	ErrDuplicateNamespace = errors.New("cache: duplicate namespace")

	// ErrEmptyKey is returned when an empty key is provided.
	ErrEmptyKey = errors.New("cache: key cannot be empty")
)
