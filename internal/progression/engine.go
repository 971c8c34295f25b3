// Package progression implements the lesson state machine. The engine is
// the only code that mutates a learner record.
package progression

import (
	"fmt"
	"slices"
	"strings"

	"github.com/felixgeelhaar/chatty/internal/curriculum"
	"github.com/felixgeelhaar/chatty/internal/domain"
	"github.com/felixgeelhaar/chatty/internal/validator"
)

// Engine computes state transitions for a learner record.
// It holds no per-learner state and is safe for concurrent use; callers
// serialize operations on the same record.
type Engine struct {
	lessons   curriculum.Store
	validator validator.AnswerValidator
}

// NewEngine creates an engine over a curriculum and an answer validator
func NewEngine(lessons curriculum.Store, v validator.AnswerValidator) *Engine {
	return &Engine{lessons: lessons, validator: v}
}

// Ladder returns the level ladder of the curriculum
func (e *Engine) Ladder() domain.Ladder {
	return e.lessons.Ladder()
}

// Levels lists the ladder with the lesson count of each level
func (e *Engine) Levels() ([]LevelSummary, error) {
	ladder := e.lessons.Ladder()
	out := make([]LevelSummary, 0, len(ladder))
	for i, level := range ladder {
		count, err := e.lessonCount(level)
		if err != nil {
			return nil, err
		}
		out = append(out, LevelSummary{Level: level, Number: i + 1, Lessons: count})
	}
	return out, nil
}

// SetLevel moves the learner to the first lesson of level and clears any
// pending task.
func (e *Engine) SetLevel(rec *domain.LearnerRecord, level domain.Level) (Outcome, error) {
	if !e.lessons.Ladder().Contains(level) {
		return e.reject(rec, ReasonUnknownLevel), nil
	}

	rec.Level = level
	rec.LessonIndex = 0
	rec.Task = domain.IdleTask()

	return e.accepted(rec, EventLevelSet), nil
}

// StartLesson presents the lesson at the cursor
func (e *Engine) StartLesson(rec *domain.LearnerRecord) (Outcome, error) {
	if !rec.Onboarded() {
		return e.reject(rec, ReasonNoLevel), nil
	}
	if rec.Task.Pending() {
		return e.reject(rec, ReasonTaskPending), nil
	}

	lesson, err := e.lessonAt(rec.Level, rec.LessonIndex)
	if err != nil {
		return Outcome{}, err
	}

	rec.Task = domain.CanonicalTask()
	return e.presented(rec, lesson, EventLessonStarted), nil
}

// Repeat re-presents the lesson at the cursor. It replaces a pending review
// and clamps a cursor left past the end of the level.
func (e *Engine) Repeat(rec *domain.LearnerRecord) (Outcome, error) {
	if !rec.Onboarded() {
		return e.reject(rec, ReasonNoLevel), nil
	}

	count, err := e.lessonCount(rec.Level)
	if err != nil {
		return Outcome{}, err
	}
	if rec.LessonIndex >= count {
		rec.LessonIndex = count - 1
	}
	if rec.LessonIndex < 0 {
		rec.LessonIndex = 0
	}

	lesson, err := e.lessonAt(rec.Level, rec.LessonIndex)
	if err != nil {
		return Outcome{}, err
	}

	rec.Task = domain.CanonicalTask()
	return e.presented(rec, lesson, EventLessonRepeated), nil
}

// ReviewPrev presents the lesson before the cursor without moving it
func (e *Engine) ReviewPrev(rec *domain.LearnerRecord) (Outcome, error) {
	if out, ok := e.requireIdle(rec); !ok {
		return out, nil
	}
	if rec.LessonIndex <= 0 {
		return e.reject(rec, ReasonNoPrevious), nil
	}
	return e.review(rec, rec.LessonIndex-1)
}

// ReviewNext presents the lesson after the cursor without moving it
func (e *Engine) ReviewNext(rec *domain.LearnerRecord) (Outcome, error) {
	if out, ok := e.requireIdle(rec); !ok {
		return out, nil
	}

	count, err := e.lessonCount(rec.Level)
	if err != nil {
		return Outcome{}, err
	}
	if rec.LessonIndex+1 >= count {
		return e.reject(rec, ReasonNoNext), nil
	}
	return e.review(rec, rec.LessonIndex+1)
}

func (e *Engine) review(rec *domain.LearnerRecord, index int) (Outcome, error) {
	lesson, err := e.lessonAt(rec.Level, index)
	if err != nil {
		return Outcome{}, err
	}

	rec.Task = domain.ReviewTask(index)
	return e.presented(rec, lesson, EventReviewStarted), nil
}

// JumpTo moves the cursor to the 1-based lesson number n. The lesson is not
// presented.
func (e *Engine) JumpTo(rec *domain.LearnerRecord, n int) (Outcome, error) {
	if out, ok := e.requireIdle(rec); !ok {
		return out, nil
	}

	count, err := e.lessonCount(rec.Level)
	if err != nil {
		return Outcome{}, err
	}
	if n < 1 || n > count {
		out := e.reject(rec, ReasonOutOfRange)
		out.ValidRange = &Range{Min: 1, Max: count}
		return out, nil
	}

	rec.LessonIndex = n - 1
	return e.accepted(rec, EventJumped), nil
}

// SubmitAnswer scores an answer against the pending task. A wrong answer
// leaves the record untouched. An accepted review answer only clears the
// task; an accepted canonical answer advances the cursor.
func (e *Engine) SubmitAnswer(rec *domain.LearnerRecord, answer string) (Outcome, error) {
	if !rec.Onboarded() || !rec.Task.Pending() {
		return e.reject(rec, ReasonNoPendingTask), nil
	}

	index := rec.LessonIndex
	reviewIndex, reviewing := rec.Task.ReviewIndex()
	if reviewing {
		index = reviewIndex
	}

	lesson, err := e.lessonAt(rec.Level, index)
	if err != nil {
		return Outcome{}, err
	}

	if !e.validator.Score(answer, lesson.AcceptanceKeywords) {
		out := e.reject(rec, ReasonWrongAnswer)
		out.Lesson = &lesson
		out.Review = reviewing
		return out, nil
	}

	rec.Task = domain.IdleTask()
	rec.AcceptedCount++

	if reviewing {
		out := e.accepted(rec, EventReviewPassed)
		out.Review = true
		return out, nil
	}

	return e.advance(rec)
}

// advance moves the cursor after an accepted canonical answer: to the next
// lesson, else to the first lesson of the next level. At the top of the
// ladder the cursor stays on the last lesson.
func (e *Engine) advance(rec *domain.LearnerRecord) (Outcome, error) {
	count, err := e.lessonCount(rec.Level)
	if err != nil {
		return Outcome{}, err
	}

	if next := rec.LessonIndex + 1; next < count {
		rec.LessonIndex = next
		return e.advanced(rec, EventNextLesson), nil
	}

	completed := rec.Level
	nextLevel, ok := e.lessons.Ladder().Next(completed)
	if !ok {
		rec.LessonIndex = count - 1
		out := e.advanced(rec, EventCurriculumCompleted)
		out.PreviousLevel = completed
		return out, nil
	}

	if _, err := e.lessonAt(nextLevel, 0); err != nil {
		return Outcome{}, err
	}

	rec.Level = nextLevel
	rec.LessonIndex = 0
	out := e.advanced(rec, EventLevelCompleted)
	out.PreviousLevel = completed
	return out, nil
}

// Reset returns the record to the not-onboarded state
func (e *Engine) Reset(rec *domain.LearnerRecord) (Outcome, error) {
	*rec = *domain.NewLearnerRecord(rec.LearnerID)
	return e.accepted(rec, EventReset), nil
}

// SetGoals replaces the learner's goals with a trimmed, de-duplicated list
func (e *Engine) SetGoals(rec *domain.LearnerRecord, goals []string) (Outcome, error) {
	cleaned := normalizeGoals(goals)

	out := e.accepted(rec, EventGoalsSet)
	out.Changed = !slices.Equal(rec.Goals, cleaned)
	rec.Goals = cleaned
	return out, nil
}

// Snapshot reports the learner's progress without changing the record
func (e *Engine) Snapshot(rec *domain.LearnerRecord) (Outcome, error) {
	ladder := e.lessons.Ladder()
	progress := &Progress{
		Onboarded:  rec.Onboarded(),
		LevelCount: len(ladder),
		Task:       rec.Task.State(),
		Goals:      append([]string(nil), rec.Goals...),
		Accepted:   rec.AcceptedCount,
	}

	if rec.Onboarded() {
		count, err := e.lessonCount(rec.Level)
		if err != nil {
			return Outcome{}, err
		}
		progress.Level = rec.Level
		progress.LevelNumber = ladder.Position(rec.Level) + 1
		progress.LessonNumber = rec.LessonIndex + 1
		progress.LessonCount = count
		if idx, ok := rec.Task.ReviewIndex(); ok {
			progress.ReviewNumber = idx + 1
		}
	}

	out := Outcome{
		Kind:        KindAccepted,
		Event:       EventSnapshot,
		Level:       rec.Level,
		LessonIndex: rec.LessonIndex,
		Progress:    progress,
	}
	return out, nil
}

// requireIdle rejects when the learner has no level or a task is pending
func (e *Engine) requireIdle(rec *domain.LearnerRecord) (Outcome, bool) {
	if !rec.Onboarded() {
		return e.reject(rec, ReasonNoLevel), false
	}
	if rec.Task.Pending() {
		return e.reject(rec, ReasonTaskPending), false
	}
	return Outcome{}, true
}

// lessonAt looks up a lesson whose bounds the engine already checked, so a
// miss is a content fault.
func (e *Engine) lessonAt(level domain.Level, index int) (domain.Lesson, error) {
	lesson, err := e.lessons.LessonAt(level, index)
	if err != nil {
		return domain.Lesson{}, fmt.Errorf("%w: %w", domain.ErrContentIntegrity, err)
	}
	return lesson, nil
}

func (e *Engine) lessonCount(level domain.Level) (int, error) {
	count, err := e.lessons.LessonCount(level)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrContentIntegrity, err)
	}
	if count == 0 {
		return 0, fmt.Errorf("%w: level %s has no lessons", domain.ErrContentIntegrity, level)
	}
	return count, nil
}

func (e *Engine) reject(rec *domain.LearnerRecord, reason Reason) Outcome {
	return Outcome{
		Kind:        KindRejected,
		Reason:      reason,
		Level:       rec.Level,
		LessonIndex: rec.LessonIndex,
	}
}

func (e *Engine) accepted(rec *domain.LearnerRecord, event Event) Outcome {
	return Outcome{
		Kind:        KindAccepted,
		Event:       event,
		Level:       rec.Level,
		LessonIndex: rec.LessonIndex,
		Changed:     true,
	}
}

func (e *Engine) advanced(rec *domain.LearnerRecord, event Event) Outcome {
	out := e.accepted(rec, event)
	out.Kind = KindAdvanced
	return out
}

func (e *Engine) presented(rec *domain.LearnerRecord, lesson domain.Lesson, event Event) Outcome {
	return Outcome{
		Kind:        KindPresented,
		Event:       event,
		Lesson:      &lesson,
		Review:      rec.Task.IsReview(),
		Level:       rec.Level,
		LessonIndex: rec.LessonIndex,
		Changed:     true,
	}
}

func normalizeGoals(goals []string) []string {
	seen := make(map[string]bool, len(goals))
	var out []string
	for _, g := range goals {
		g = strings.Join(strings.Fields(g), " ")
		key := strings.ToLower(g)
		if g == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, g)
	}
	return out
}
