package search

import "errors"

var (
	// ErrBackendUnavailable is returned when the search backend cannot be reached.
	ErrBackendUnavailable = errors.New("search backend unavailable")
	// ErrIndexingFailed is returned when a document could not be indexed.
	ErrIndexingFailed = errors.New("failed to index document")
	// ErrNotFound is returned when the index does not exist.
	ErrNotFound = errors.New("index not found")
)

// Error records a failed search operation.
type Error struct {
	Op  string
	Err error
	Msg string
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Op + ": " + e.Msg + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
