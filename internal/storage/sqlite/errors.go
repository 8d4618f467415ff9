package sqlite

import "errors"

var (
	// ErrNotFound is returned when the referenced row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyClaimed is returned when a conditional status transition
	// affected zero rows because another runner got there first (or the item
	// is no longer in the expected state). Callers treat this as a skip, not
	// a failure.
	ErrAlreadyClaimed = errors.New("work item already claimed")

	// ErrInvalidTransition is returned when a work item is completed or
	// failed without being in_progress. Terminal states are never reachable
	// again without an explicit new enqueue.
	ErrInvalidTransition = errors.New("invalid work item transition")
)
