package session

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/chatty/internal/domain"
	"github.com/felixgeelhaar/chatty/internal/progression"
)

// Result is the response descriptor handed to a transport for rendering
type Result struct {
	Kind    progression.Kind   `json:"kind"`
	Reason  progression.Reason `json:"reason,omitempty"`
	Event   progression.Event  `json:"event,omitempty"`
	Message string             `json:"message"`

	Lesson *LessonView `json:"lesson,omitempty"`
	Review bool        `json:"review,omitempty"`

	Level         domain.Level `json:"level,omitempty"`
	LessonNumber  int          `json:"lesson_number,omitempty"`
	PreviousLevel domain.Level `json:"previous_level,omitempty"`

	ValidRange *progression.Range    `json:"valid_range,omitempty"`
	Progress   *progression.Progress `json:"progress,omitempty"`
}

// LessonView is the learner-facing part of a lesson. Acceptance keywords are
// not exposed.
type LessonView struct {
	Level       domain.Level `json:"level"`
	Number      int          `json:"number"`
	Title       string       `json:"title"`
	Explanation string       `json:"explanation,omitempty"`
	Examples    []string     `json:"examples,omitempty"`
	Task        string       `json:"task"`
}

func newLessonView(l *domain.Lesson) *LessonView {
	if l == nil {
		return nil
	}
	return &LessonView{
		Level:       l.Level,
		Number:      l.Number(),
		Title:       l.Title,
		Explanation: l.Explanation,
		Examples:    append([]string(nil), l.Examples...),
		Task:        l.TaskText,
	}
}

func newResult(out progression.Outcome, ladder domain.Ladder) *Result {
	r := &Result{
		Kind:          out.Kind,
		Reason:        out.Reason,
		Event:         out.Event,
		Lesson:        newLessonView(out.Lesson),
		Review:        out.Review,
		Level:         out.Level,
		PreviousLevel: out.PreviousLevel,
		ValidRange:    out.ValidRange,
		Progress:      out.Progress,
	}
	if out.Level != "" {
		r.LessonNumber = out.LessonIndex + 1
	}
	r.Message = describe(out, ladder)
	return r
}

// describe renders the learner-facing message for an outcome
func describe(out progression.Outcome, ladder domain.Ladder) string {
	if out.Rejected() {
		return describeRejection(out, ladder)
	}

	number := out.LessonIndex + 1
	switch out.Event {
	case progression.EventLevelSet:
		return fmt.Sprintf("Level set to %s. Start lesson 1 when you are ready.", out.Level)
	case progression.EventLessonStarted, progression.EventLessonRepeated:
		return fmt.Sprintf("Lesson %d: %s", out.Lesson.Number(), out.Lesson.Title)
	case progression.EventReviewStarted:
		return fmt.Sprintf("Review of lesson %d: %s", out.Lesson.Number(), out.Lesson.Title)
	case progression.EventJumped:
		return fmt.Sprintf("Moved to lesson %d. Start it when you are ready.", number)
	case progression.EventReviewPassed:
		return fmt.Sprintf("Good review! You are still on lesson %d.", number)
	case progression.EventNextLesson:
		return fmt.Sprintf("Correct! Lesson %d is ready.", number)
	case progression.EventLevelCompleted:
		return fmt.Sprintf("Level %s completed! You moved up to %s.", out.PreviousLevel, out.Level)
	case progression.EventCurriculumCompleted:
		return fmt.Sprintf("You completed %s, the last level. Review any lesson you like.", out.PreviousLevel)
	case progression.EventReset:
		return "Progress reset. Choose a level to start again."
	case progression.EventGoalsSet:
		return "Goals updated."
	case progression.EventSnapshot:
		p := out.Progress
		if p == nil || !p.Onboarded {
			return "No level chosen yet."
		}
		return fmt.Sprintf("Level %s (%d of %d), lesson %d of %d.",
			p.Level, p.LevelNumber, p.LevelCount, p.LessonNumber, p.LessonCount)
	default:
		return "Done."
	}
}

func describeRejection(out progression.Outcome, ladder domain.Ladder) string {
	switch out.Reason {
	case progression.ReasonNoLevel:
		return "Choose your level first."
	case progression.ReasonUnknownLevel:
		names := make([]string, len(ladder))
		for i, l := range ladder {
			names[i] = string(l)
		}
		return "Unknown level. Available levels: " + strings.Join(names, ", ") + "."
	case progression.ReasonTaskPending:
		return "Finish the current task first: send your answer, or repeat the lesson to see it again."
	case progression.ReasonNoPendingTask:
		return "No task is waiting for an answer. Start a lesson first."
	case progression.ReasonNoPrevious:
		return "There is no previous lesson."
	case progression.ReasonNoNext:
		return "There is no next lesson in this level."
	case progression.ReasonOutOfRange:
		if out.ValidRange != nil {
			return fmt.Sprintf("Lesson numbers for this level are %s.", out.ValidRange)
		}
		return "That lesson number is out of range."
	case progression.ReasonWrongAnswer:
		return "Not quite. Use the pattern from the lesson and try again."
	default:
		return "That is not possible right now."
	}
}
