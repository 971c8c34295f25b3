package progression

import (
	"fmt"

	"github.com/felixgeelhaar/chatty/internal/domain"
)

// Kind discriminates engine outcomes
type Kind int

const (
	// KindRejected is an expected business refusal; the record is unchanged.
	KindRejected Kind = iota
	// KindPresented means a lesson is shown and an answer is now awaited.
	KindPresented
	// KindAdvanced means a canonical answer was accepted and the cursor moved.
	KindAdvanced
	// KindAccepted covers every other successful operation.
	KindAccepted
)

// MarshalText encodes the kind by name
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k Kind) String() string {
	switch k {
	case KindRejected:
		return "rejected"
	case KindPresented:
		return "presented"
	case KindAdvanced:
		return "advanced"
	case KindAccepted:
		return "accepted"
	default:
		return "unknown"
	}
}

// Reason explains a rejection
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonNoLevel       Reason = "no_level"
	ReasonUnknownLevel  Reason = "unknown_level"
	ReasonTaskPending   Reason = "task_pending"
	ReasonNoPendingTask Reason = "no_pending_task"
	ReasonNoPrevious    Reason = "no_previous_lesson"
	ReasonNoNext        Reason = "no_next_lesson"
	ReasonOutOfRange    Reason = "out_of_range"
	ReasonWrongAnswer   Reason = "wrong_answer"
)

// Event names what a successful operation did
type Event string

const (
	EventNone                Event = ""
	EventLevelSet            Event = "level_set"
	EventLessonStarted       Event = "lesson_started"
	EventLessonRepeated      Event = "lesson_repeated"
	EventReviewStarted       Event = "review_started"
	EventJumped              Event = "jumped"
	EventReviewPassed        Event = "review_passed"
	EventNextLesson          Event = "next_lesson"
	EventLevelCompleted      Event = "level_completed"
	EventCurriculumCompleted Event = "curriculum_completed"
	EventReset               Event = "reset"
	EventGoalsSet            Event = "goals_set"
	EventSnapshot            Event = "snapshot"
)

// Range is an inclusive 1-based lesson number range
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func (r Range) String() string {
	return fmt.Sprintf("%d..%d", r.Min, r.Max)
}

// Outcome is the structured result of one engine operation
type Outcome struct {
	Kind   Kind
	Reason Reason
	Event  Event

	// Lesson is the presented lesson, or for a wrong answer the lesson the
	// answer was checked against.
	Lesson *domain.Lesson
	Review bool

	// Level and LessonIndex are the cursor after the operation.
	Level       domain.Level
	LessonIndex int
	// PreviousLevel is set when a level was completed.
	PreviousLevel domain.Level

	ValidRange *Range
	Progress   *Progress

	// Changed reports whether the record was mutated and must be persisted.
	Changed bool
}

// Rejected reports whether the operation was refused
func (o Outcome) Rejected() bool {
	return o.Kind == KindRejected
}

// Progress is a read-only summary of a learner's position
type Progress struct {
	Onboarded    bool             `json:"onboarded"`
	Level        domain.Level     `json:"level,omitempty"`
	LevelNumber  int              `json:"level_number,omitempty"` // 1-based position on the ladder
	LevelCount   int              `json:"level_count"`
	LessonNumber int              `json:"lesson_number,omitempty"` // 1-based cursor
	LessonCount  int              `json:"lesson_count,omitempty"`
	Task         domain.TaskState `json:"task"`
	ReviewNumber int              `json:"review_number,omitempty"` // 1-based reviewed lesson, 0 when not reviewing
	Goals        []string         `json:"goals,omitempty"`
	Accepted     int              `json:"accepted_count"`
}

// LevelSummary describes one rung of the ladder
type LevelSummary struct {
	Level   domain.Level `json:"level"`
	Number  int          `json:"number"`
	Lessons int          `json:"lessons"`
}
