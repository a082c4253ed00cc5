package git

import (
	"fmt"
)

// The location does not exist or does not hold a git repository.
type RepositoryNotFoundError struct {
	Location string
	Err      error
}

func (e *RepositoryNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("repository not found at %q: %v", e.Location, e.Err)
	}

	return fmt.Sprintf("repository not found at %q", e.Location)
}

func (e *RepositoryNotFoundError) Unwrap() error {
	return e.Err
}

// The history could not be read or a record in it could not be parsed.
//
// Record names the failing commit when known; otherwise Ordinal gives its
// position in the stream (1-based, 0 when unknown).
type CorruptHistoryError struct {
	Record  string
	Ordinal int
	Err     error
}

func (e *CorruptHistoryError) Error() string {
	switch {
	case e.Record != "":
		return fmt.Sprintf("corrupt history at commit %s: %v", e.Record, e.Err)
	case e.Ordinal > 0:
		return fmt.Sprintf("corrupt history at record #%d: %v", e.Ordinal, e.Err)
	default:
		return fmt.Sprintf("corrupt history: %v", e.Err)
	}
}

func (e *CorruptHistoryError) Unwrap() error {
	return e.Err
}
