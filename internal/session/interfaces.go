package session

import (
	"context"

	"github.com/felixgeelhaar/chatty/internal/progression"
)

// Commands defines the learner operations used by transports
type Commands interface {
	// SetLevel chooses the learner's level
	SetLevel(ctx context.Context, learnerID, level string) (*Result, error)

	// StartLesson presents the lesson at the cursor
	StartLesson(ctx context.Context, learnerID string) (*Result, error)

	// RepeatLesson presents the cursor lesson again
	RepeatLesson(ctx context.Context, learnerID string) (*Result, error)

	// ReviewPrev and ReviewNext present a neighbouring lesson for review
	ReviewPrev(ctx context.Context, learnerID string) (*Result, error)
	ReviewNext(ctx context.Context, learnerID string) (*Result, error)

	// JumpTo moves the cursor to a 1-based lesson number
	JumpTo(ctx context.Context, learnerID string, n int) (*Result, error)

	// SubmitAnswer checks an answer to the pending task
	SubmitAnswer(ctx context.Context, learnerID, answer string) (*Result, error)

	// ProgressSnapshot reports the learner's position
	ProgressSnapshot(ctx context.Context, learnerID string) (*Result, error)

	// SetGoals replaces the learner's goals
	SetGoals(ctx context.Context, learnerID string, goals []string) (*Result, error)

	// Reset returns the learner to the initial state
	Reset(ctx context.Context, learnerID string) (*Result, error)

	// Levels lists the ladder with lesson counts
	Levels() ([]progression.LevelSummary, error)
}

// Ensure Service implements Commands
var _ Commands = (*Service)(nil)
