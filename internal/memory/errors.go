package memory

import "errors"

var (
	// ErrClientNotFound is returned for operations on unknown client ids.
	ErrClientNotFound = errors.New("client not found")

	// ErrInvalidDelete is returned when a deletion request is missing the
	// argument its scope requires.
	ErrInvalidDelete = errors.New("invalid delete request")
)
