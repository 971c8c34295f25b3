// Package events publishes learner progress notifications after state changes
// have been persisted.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type identifies a progress event
type Type string

const (
	TypeLessonAccepted      Type = "lesson.accepted"
	TypeLevelCompleted      Type = "level.completed"
	TypeCurriculumCompleted Type = "curriculum.completed"
)

// Event is a progress notification. It is emitted only after the learner
// record it describes was written.
type Event struct {
	ID            uuid.UUID `json:"id"`
	Type          Type      `json:"type"`
	LearnerID     string    `json:"learner_id"`
	Level         string    `json:"level"`
	LessonIndex   int       `json:"lesson_index"`
	PreviousLevel string    `json:"previous_level,omitempty"`
	Review        bool      `json:"review,omitempty"`
	AcceptedCount int       `json:"accepted_count"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// New creates an event with a fresh ID and timestamp
func New(t Type, learnerID string) Event {
	return Event{
		ID:         uuid.New(),
		Type:       t,
		LearnerID:  learnerID,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers progress events
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event
type NopPublisher struct{}

// Publish implements Publisher
func (NopPublisher) Publish(context.Context, Event) error { return nil }
