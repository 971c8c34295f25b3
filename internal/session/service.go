// Package session is the command-shaped entry point used by transports.
// Each command runs the learner's read-modify-write cycle under a
// per-learner lock.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/felixgeelhaar/chatty/internal/domain"
	"github.com/felixgeelhaar/chatty/internal/events"
	"github.com/felixgeelhaar/chatty/internal/learner"
	"github.com/felixgeelhaar/chatty/internal/progression"
)

// Service runs learner commands against the engine and the learner store
type Service struct {
	engine    *progression.Engine
	store     learner.Store
	locks     *KeyedMutex
	publisher events.Publisher
}

// NewService creates a new session service
func NewService(engine *progression.Engine, store learner.Store) *Service {
	return &Service{
		engine:    engine,
		store:     store,
		locks:     NewKeyedMutex(),
		publisher: events.NopPublisher{},
	}
}

// SetPublisher sets where progress events go. Publishing is best effort.
func (s *Service) SetPublisher(p events.Publisher) {
	if p == nil {
		p = events.NopPublisher{}
	}
	s.publisher = p
}

// operation mutates a working copy of a learner record
type operation func(rec *domain.LearnerRecord) (progression.Outcome, error)

// SetLevel chooses the learner's level. Level names match case-insensitively.
func (s *Service) SetLevel(ctx context.Context, learnerID, level string) (*Result, error) {
	resolved := s.resolveLevel(level)
	return s.run(ctx, learnerID, "set_level", func(rec *domain.LearnerRecord) (progression.Outcome, error) {
		return s.engine.SetLevel(rec, resolved)
	})
}

// StartLesson presents the lesson at the learner's cursor
func (s *Service) StartLesson(ctx context.Context, learnerID string) (*Result, error) {
	return s.run(ctx, learnerID, "start_lesson", s.engine.StartLesson)
}

// RepeatLesson presents the cursor lesson again
func (s *Service) RepeatLesson(ctx context.Context, learnerID string) (*Result, error) {
	return s.run(ctx, learnerID, "repeat_lesson", s.engine.Repeat)
}

// ReviewPrev presents the lesson before the cursor for review
func (s *Service) ReviewPrev(ctx context.Context, learnerID string) (*Result, error) {
	return s.run(ctx, learnerID, "review_prev", s.engine.ReviewPrev)
}

// ReviewNext presents the lesson after the cursor for review
func (s *Service) ReviewNext(ctx context.Context, learnerID string) (*Result, error) {
	return s.run(ctx, learnerID, "review_next", s.engine.ReviewNext)
}

// JumpTo moves the cursor to the 1-based lesson number n
func (s *Service) JumpTo(ctx context.Context, learnerID string, n int) (*Result, error) {
	return s.run(ctx, learnerID, "jump_to", func(rec *domain.LearnerRecord) (progression.Outcome, error) {
		return s.engine.JumpTo(rec, n)
	})
}

// SubmitAnswer checks an answer to the pending task
func (s *Service) SubmitAnswer(ctx context.Context, learnerID, answer string) (*Result, error) {
	return s.run(ctx, learnerID, "submit_answer", func(rec *domain.LearnerRecord) (progression.Outcome, error) {
		return s.engine.SubmitAnswer(rec, answer)
	})
}

// ProgressSnapshot reports the learner's position
func (s *Service) ProgressSnapshot(ctx context.Context, learnerID string) (*Result, error) {
	return s.run(ctx, learnerID, "progress", s.engine.Snapshot)
}

// SetGoals replaces the learner's free-text goals
func (s *Service) SetGoals(ctx context.Context, learnerID string, goals []string) (*Result, error) {
	return s.run(ctx, learnerID, "set_goals", func(rec *domain.LearnerRecord) (progression.Outcome, error) {
		return s.engine.SetGoals(rec, goals)
	})
}

// Reset returns the learner to the not-onboarded state
func (s *Service) Reset(ctx context.Context, learnerID string) (*Result, error) {
	return s.run(ctx, learnerID, "reset", s.engine.Reset)
}

// Levels lists the ladder with lesson counts
func (s *Service) Levels() ([]progression.LevelSummary, error) {
	return s.engine.Levels()
}

// run executes op under the learner's lock: fetch, mutate a copy, persist
// when changed. Progress events are published after the lock is released.
func (s *Service) run(ctx context.Context, learnerID, name string, op operation) (*Result, error) {
	if err := learner.ValidateID(learnerID); err != nil {
		return nil, err
	}

	out, rec, err := s.apply(ctx, learnerID, name, op)
	if err != nil {
		return nil, err
	}

	if out.Rejected() {
		slog.Debug("command rejected", "learner_id", learnerID, "command", name, "reason", out.Reason)
	} else {
		slog.Debug("command applied", "learner_id", learnerID, "command", name, "event", out.Event)
		s.publish(ctx, out, rec)
	}

	return newResult(out, s.engine.Ladder()), nil
}

func (s *Service) apply(ctx context.Context, learnerID, name string, op operation) (progression.Outcome, *domain.LearnerRecord, error) {
	unlock := s.locks.Lock(learnerID)
	defer unlock()

	stored, err := s.store.Get(ctx, learnerID)
	if err != nil {
		slog.Error("failed to load learner", "learner_id", learnerID, "command", name, "error", err)
		return progression.Outcome{}, nil, persistenceFault("load learner", err)
	}

	working := stored.Clone()
	out, err := op(working)
	if err != nil {
		slog.Error("command failed", "learner_id", learnerID, "command", name, "error", err)
		return progression.Outcome{}, nil, err
	}

	if out.Changed {
		if err := s.store.Put(ctx, working); err != nil {
			slog.Error("failed to save learner", "learner_id", learnerID, "command", name, "error", err)
			return progression.Outcome{}, nil, persistenceFault("save learner", err)
		}
	}

	return out, working, nil
}

// publish emits the progress event for an outcome, if any. Failures are
// logged and never reach the learner.
func (s *Service) publish(ctx context.Context, out progression.Outcome, rec *domain.LearnerRecord) {
	var t events.Type
	switch out.Event {
	case progression.EventNextLesson, progression.EventReviewPassed:
		t = events.TypeLessonAccepted
	case progression.EventLevelCompleted:
		t = events.TypeLevelCompleted
	case progression.EventCurriculumCompleted:
		t = events.TypeCurriculumCompleted
	default:
		return
	}

	event := events.New(t, rec.LearnerID)
	event.Level = string(rec.Level)
	event.LessonIndex = rec.LessonIndex
	event.PreviousLevel = string(out.PreviousLevel)
	event.Review = out.Review
	event.AcceptedCount = rec.AcceptedCount

	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.Warn("failed to publish progress event", "learner_id", rec.LearnerID, "type", t, "error", err)
	}
}

// resolveLevel maps a level name onto the ladder ignoring case and
// surrounding space. Unknown names are passed through for the engine to
// reject.
func (s *Service) resolveLevel(name string) domain.Level {
	name = strings.TrimSpace(name)
	for _, level := range s.engine.Ladder() {
		if strings.EqualFold(string(level), name) {
			return level
		}
	}
	return domain.Level(name)
}

func persistenceFault(action string, err error) error {
	if errors.Is(err, domain.ErrPersistence) || errors.Is(err, domain.ErrInvalidInput) {
		return fmt.Errorf("%s: %w", action, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrPersistence, action, err)
}
