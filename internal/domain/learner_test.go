package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func intPtr(i int) *int { return &i }

func TestTaskFromFlags(t *testing.T) {
	tests := []struct {
		name        string
		pending     bool
		review      bool
		reviewIndex *int
		want        TaskState
		wantErr     bool
	}{
		{"idle", false, false, nil, TaskIdle, false},
		{"canonical", true, false, nil, TaskCanonical, false},
		{"review", true, true, intPtr(2), TaskReview, false},
		{"review without index", true, true, nil, 0, true},
		{"index without review", true, false, intPtr(1), 0, true},
		{"review not pending", false, true, intPtr(1), 0, true},
		{"negative review index", true, true, intPtr(-1), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := TaskFromFlags(tt.pending, tt.review, tt.reviewIndex)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTask) {
					t.Fatalf("TaskFromFlags() error = %v, want ErrInvalidTask", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("TaskFromFlags() error = %v", err)
			}
			if task.State() != tt.want {
				t.Errorf("State() = %v, want %v", task.State(), tt.want)
			}
		})
	}
}

func TestTask_Flags(t *testing.T) {
	pending, review, idx := ReviewTask(3).Flags()
	if !pending || !review || idx == nil || *idx != 3 {
		t.Errorf("ReviewTask(3).Flags() = %v, %v, %v", pending, review, idx)
	}

	pending, review, idx = CanonicalTask().Flags()
	if !pending || review || idx != nil {
		t.Errorf("CanonicalTask().Flags() = %v, %v, %v", pending, review, idx)
	}

	var zero Task
	if zero.Pending() {
		t.Error("zero Task should be idle")
	}
	if _, ok := zero.ReviewIndex(); ok {
		t.Error("zero Task should have no review index")
	}
}

func TestLearnerRecord_JSONNullLevel(t *testing.T) {
	rec := NewLearnerRecord("42")

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"current_level":null`) {
		t.Errorf("expected null current_level, got %s", s)
	}
	if !strings.Contains(s, `"review_index":null`) {
		t.Errorf("expected null review_index, got %s", s)
	}
}

func TestLearnerRecord_JSONRejectsInvalidFlags(t *testing.T) {
	data := `{"learner_id":"7","current_level":"Beginner","current_lesson_index":1,
		"pending_answer":true,"review_mode":true,"review_index":null}`

	var rec LearnerRecord
	err := json.Unmarshal([]byte(data), &rec)
	if !errors.Is(err, ErrInvalidTask) {
		t.Fatalf("Unmarshal() error = %v, want ErrInvalidTask", err)
	}
}

func TestLearnerRecord_JSONReview(t *testing.T) {
	rec := NewLearnerRecord("7")
	rec.Level = LevelElementary
	rec.LessonIndex = 2
	rec.Task = ReviewTask(1)
	rec.Goals = []string{"travel"}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got LearnerRecord
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	idx, ok := got.Task.ReviewIndex()
	if !ok || idx != 1 {
		t.Errorf("ReviewIndex() = %d, %v, want 1, true", idx, ok)
	}
	if got.Level != LevelElementary || got.LessonIndex != 2 {
		t.Errorf("got level %q index %d", got.Level, got.LessonIndex)
	}
}

func TestLearnerRecord_Clone(t *testing.T) {
	rec := NewLearnerRecord("1")
	rec.Goals = []string{"grammar"}

	c := rec.Clone()
	c.Goals[0] = "speaking"

	if rec.Goals[0] != "grammar" {
		t.Error("Clone() shares the goals slice")
	}
}
