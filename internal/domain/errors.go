package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// Faults only. Expected business refusals (no level, task pending, out of
// range jump) are reported as rejected outcomes, never as errors.
// -----------------------------------------------------------------------------

// Curriculum errors
var (
	ErrUnknownLevel   = errors.New("unknown level")
	ErrLessonNotFound = errors.New("lesson not found")
	// ErrContentIntegrity marks a curriculum lookup that failed after the
	// engine had already validated the bounds.
	ErrContentIntegrity = errors.New("content integrity fault")
)

// Learner state errors
var (
	ErrInvalidTask = errors.New("invalid task state")
	ErrPersistence = errors.New("persistence fault")
)

// General errors
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)
