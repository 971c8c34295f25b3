package learner

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/chatty/internal/domain"
)

// Row is the flat column layout shared by the SQL backends
type Row struct {
	LearnerID     string
	Level         *string
	LessonIndex   int
	Pending       bool
	Review        bool
	ReviewIndex   *int
	Goals         string // JSON array
	AcceptedCount int
	UpdatedAt     time.Time
}

// RowFromRecord flattens a record for storage
func RowFromRecord(rec *domain.LearnerRecord) (Row, error) {
	goals := rec.Goals
	if goals == nil {
		goals = []string{}
	}
	goalsJSON, err := json.Marshal(goals)
	if err != nil {
		return Row{}, fmt.Errorf("marshal goals: %w", err)
	}

	pending, review, reviewIndex := rec.Task.Flags()
	row := Row{
		LearnerID:     rec.LearnerID,
		LessonIndex:   rec.LessonIndex,
		Pending:       pending,
		Review:        review,
		ReviewIndex:   reviewIndex,
		Goals:         string(goalsJSON),
		AcceptedCount: rec.AcceptedCount,
		UpdatedAt:     rec.UpdatedAt,
	}
	if rec.Onboarded() {
		level := string(rec.Level)
		row.Level = &level
	}
	return row, nil
}

// Record rebuilds the record, rejecting flag combinations the task variant
// cannot represent.
func (r Row) Record() (*domain.LearnerRecord, error) {
	task, err := domain.TaskFromFlags(r.Pending, r.Review, r.ReviewIndex)
	if err != nil {
		return nil, fmt.Errorf("learner %s: %w", r.LearnerID, err)
	}

	rec := &domain.LearnerRecord{
		LearnerID:     r.LearnerID,
		LessonIndex:   r.LessonIndex,
		Task:          task,
		AcceptedCount: r.AcceptedCount,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.Level != nil {
		rec.Level = domain.Level(*r.Level)
	}
	if r.Goals != "" {
		if err := json.Unmarshal([]byte(r.Goals), &rec.Goals); err != nil {
			return nil, fmt.Errorf("learner %s: unmarshal goals: %w", r.LearnerID, err)
		}
		if len(rec.Goals) == 0 {
			rec.Goals = nil
		}
	}
	return rec, nil
}
