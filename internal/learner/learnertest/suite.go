// Package learnertest provides behaviour tests shared by every learner.Store
// implementation.
package learnertest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/felixgeelhaar/chatty/internal/domain"
	"github.com/felixgeelhaar/chatty/internal/learner"
)

// RunStoreTests exercises the learner.Store contract against stores built by
// newStore. Each subtest gets a fresh store.
func RunStoreTests(t *testing.T, newStore func(t *testing.T) learner.Store) {
	t.Helper()

	t.Run("GetInsertsDefault", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		rec, err := s.Get(ctx, "learner-1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if rec.LearnerID != "learner-1" {
			t.Errorf("LearnerID = %q, want learner-1", rec.LearnerID)
		}
		if rec.Onboarded() {
			t.Errorf("Level = %q, want unset", rec.Level)
		}
		if rec.LessonIndex != 0 || rec.Task.Pending() {
			t.Errorf("fresh record = %+v, want cursor 0 and idle", rec)
		}
	})

	t.Run("PutThenGet", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		rec, _ := s.Get(ctx, "learner-2")
		rec.Level = domain.LevelElementary
		rec.LessonIndex = 2
		rec.Task = domain.ReviewTask(1)
		rec.Goals = []string{"travel", "work"}
		rec.AcceptedCount = 7

		if err := s.Put(ctx, rec); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		got, err := s.Get(ctx, "learner-2")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Level != domain.LevelElementary || got.LessonIndex != 2 {
			t.Errorf("position = %s/%d, want Elementary/2", got.Level, got.LessonIndex)
		}
		if idx, ok := got.Task.ReviewIndex(); !ok || idx != 1 {
			t.Errorf("Task = %v (index %d), want review of 1", got.Task.State(), idx)
		}
		if len(got.Goals) != 2 || got.Goals[0] != "travel" {
			t.Errorf("Goals = %v, want [travel work]", got.Goals)
		}
		if got.AcceptedCount != 7 {
			t.Errorf("AcceptedCount = %d, want 7", got.AcceptedCount)
		}
		if got.UpdatedAt.IsZero() {
			t.Error("UpdatedAt not set")
		}
	})

	t.Run("CanonicalTaskSurvives", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		rec, _ := s.Get(ctx, "learner-3")
		rec.Level = domain.LevelBeginner
		rec.Task = domain.CanonicalTask()
		if err := s.Put(ctx, rec); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		got, _ := s.Get(ctx, "learner-3")
		if got.Task.State() != domain.TaskCanonical {
			t.Errorf("Task = %v, want awaiting_canonical", got.Task.State())
		}
	})

	t.Run("ReturnsCopies", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		rec, _ := s.Get(ctx, "learner-4")
		rec.Level = domain.LevelAdvanced

		again, _ := s.Get(ctx, "learner-4")
		if again.Onboarded() {
			t.Error("mutating a returned record changed the store")
		}
	})

	t.Run("LearnersAreIndependent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		a, _ := s.Get(ctx, "a")
		a.Level = domain.LevelIntermediate
		s.Put(ctx, a)

		b, _ := s.Get(ctx, "b")
		if b.Onboarded() {
			t.Errorf("learner b Level = %q, want unset", b.Level)
		}
	})

	t.Run("RejectsEmptyID", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		if _, err := s.Get(ctx, " "); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("Get() error = %v, want ErrInvalidInput", err)
		}
		if err := s.Put(ctx, &domain.LearnerRecord{}); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("Put() error = %v, want ErrInvalidInput", err)
		}
	})

	t.Run("ConcurrentLearners", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				id := fmt.Sprintf("learner-%d", n)
				rec, err := s.Get(ctx, id)
				if err != nil {
					t.Errorf("Get(%s) error = %v", id, err)
					return
				}
				rec.Level = domain.LevelBeginner
				rec.LessonIndex = n % 3
				if err := s.Put(ctx, rec); err != nil {
					t.Errorf("Put(%s) error = %v", id, err)
				}
			}(i)
		}
		wg.Wait()

		for i := 0; i < 8; i++ {
			id := fmt.Sprintf("learner-%d", i)
			rec, err := s.Get(ctx, id)
			if err != nil {
				t.Fatalf("Get(%s) error = %v", id, err)
			}
			if rec.LessonIndex != i%3 {
				t.Errorf("%s LessonIndex = %d, want %d", id, rec.LessonIndex, i%3)
			}
		}
	})
}
