package schedule

import "errors"

var (
	// ErrNotFound is returned when a route, trip or stop referenced
	// by ID does not exist in the feed. An existing entity with no
	// matching data is not an error; those queries return empty
	// slices.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned for malformed arguments (bad date
	// strings, unknown day types). The query never reaches storage.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoActiveFeed is returned when storage holds no feed whose
	// calendar covers the requested point in time.
	ErrNoActiveFeed = errors.New("no active feed found")
)
