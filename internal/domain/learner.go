package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// TaskState is the pending-task state of a learner
type TaskState int

const (
	TaskIdle      TaskState = iota // no answer awaited
	TaskCanonical                  // awaiting an answer for the cursor lesson
	TaskReview                     // awaiting an answer for a review lesson
)

// MarshalText encodes the state by name
func (s TaskState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s TaskState) String() string {
	switch s {
	case TaskIdle:
		return "idle"
	case TaskCanonical:
		return "awaiting_canonical"
	case TaskReview:
		return "awaiting_review"
	default:
		return "unknown"
	}
}

// Task is the tagged variant Idle | AwaitingCanonical | AwaitingReview(index).
// The zero value is Idle. Fields are unexported so a review without an index
// cannot be built.
type Task struct {
	state       TaskState
	reviewIndex int
}

// IdleTask returns the no-pending-task state.
func IdleTask() Task { return Task{state: TaskIdle} }

// CanonicalTask returns the state awaiting an answer for the cursor lesson.
func CanonicalTask() Task { return Task{state: TaskCanonical} }

// ReviewTask returns the state awaiting an answer for the lesson at index.
func ReviewTask(index int) Task { return Task{state: TaskReview, reviewIndex: index} }

// State returns the variant tag.
func (t Task) State() TaskState { return t.state }

// Pending reports whether an answer is awaited.
func (t Task) Pending() bool { return t.state != TaskIdle }

// IsReview reports whether the pending task is a review.
func (t Task) IsReview() bool { return t.state == TaskReview }

// ReviewIndex returns the reviewed lesson index when the task is a review.
func (t Task) ReviewIndex() (int, bool) {
	if t.state != TaskReview {
		return 0, false
	}
	return t.reviewIndex, true
}

// Flags flattens the task into the persisted pendingAnswer/reviewMode/reviewIndex form.
func (t Task) Flags() (pending, review bool, reviewIndex *int) {
	switch t.state {
	case TaskCanonical:
		return true, false, nil
	case TaskReview:
		idx := t.reviewIndex
		return true, true, &idx
	default:
		return false, false, nil
	}
}

// TaskFromFlags rebuilds a task from persisted flags, rejecting combinations
// the variant cannot represent.
func TaskFromFlags(pending, review bool, reviewIndex *int) (Task, error) {
	switch {
	case review && reviewIndex == nil:
		return Task{}, fmt.Errorf("%w: review mode without review index", ErrInvalidTask)
	case !review && reviewIndex != nil:
		return Task{}, fmt.Errorf("%w: review index without review mode", ErrInvalidTask)
	case review && !pending:
		return Task{}, fmt.Errorf("%w: review mode without pending answer", ErrInvalidTask)
	case review && *reviewIndex < 0:
		return Task{}, fmt.Errorf("%w: negative review index %d", ErrInvalidTask, *reviewIndex)
	case review:
		return ReviewTask(*reviewIndex), nil
	case pending:
		return CanonicalTask(), nil
	default:
		return IdleTask(), nil
	}
}

// LearnerRecord is the per-learner progression state.
// Only the progression engine mutates it.
type LearnerRecord struct {
	LearnerID string
	// Level is empty until the learner has been onboarded.
	Level       Level
	LessonIndex int
	Task        Task

	Goals         []string
	AcceptedCount int
	UpdatedAt     time.Time
}

// NewLearnerRecord returns the initial, not-onboarded record.
func NewLearnerRecord(learnerID string) *LearnerRecord {
	return &LearnerRecord{
		LearnerID: learnerID,
		Task:      IdleTask(),
	}
}

// Onboarded reports whether a level has been chosen.
func (r *LearnerRecord) Onboarded() bool {
	return r.Level != ""
}

// Clone returns a deep copy of the record.
func (r *LearnerRecord) Clone() *LearnerRecord {
	c := *r
	if r.Goals != nil {
		c.Goals = append([]string(nil), r.Goals...)
	}
	return &c
}

// learnerRecordJSON is the persisted layout of a learner record
type learnerRecordJSON struct {
	LearnerID          string    `json:"learner_id"`
	CurrentLevel       *string   `json:"current_level"`
	CurrentLessonIndex int       `json:"current_lesson_index"`
	PendingAnswer      bool      `json:"pending_answer"`
	ReviewMode         bool      `json:"review_mode"`
	ReviewIndex        *int      `json:"review_index"`
	Goals              []string  `json:"goals,omitempty"`
	AcceptedCount      int       `json:"accepted_count"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// MarshalJSON encodes the record in the flat persisted layout.
func (r LearnerRecord) MarshalJSON() ([]byte, error) {
	pending, review, reviewIndex := r.Task.Flags()
	out := learnerRecordJSON{
		LearnerID:          r.LearnerID,
		CurrentLessonIndex: r.LessonIndex,
		PendingAnswer:      pending,
		ReviewMode:         review,
		ReviewIndex:        reviewIndex,
		Goals:              r.Goals,
		AcceptedCount:      r.AcceptedCount,
		UpdatedAt:          r.UpdatedAt,
	}
	if r.Level != "" {
		level := string(r.Level)
		out.CurrentLevel = &level
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the flat persisted layout and validates the task flags.
func (r *LearnerRecord) UnmarshalJSON(data []byte) error {
	var in learnerRecordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	task, err := TaskFromFlags(in.PendingAnswer, in.ReviewMode, in.ReviewIndex)
	if err != nil {
		return fmt.Errorf("learner %s: %w", in.LearnerID, err)
	}

	*r = LearnerRecord{
		LearnerID:     in.LearnerID,
		LessonIndex:   in.CurrentLessonIndex,
		Task:          task,
		Goals:         in.Goals,
		AcceptedCount: in.AcceptedCount,
		UpdatedAt:     in.UpdatedAt,
	}
	if in.CurrentLevel != nil {
		r.Level = Level(*in.CurrentLevel)
	}
	return nil
}
