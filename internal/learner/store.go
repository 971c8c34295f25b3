// Package learner persists per-learner progression records.
package learner

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/chatty/internal/domain"
)

// Store maps learner ids to progression records.
//
// Get has read-with-default-insert semantics: an unknown learner gets a fresh
// record which is persisted before it is returned. Put replaces the stored
// record in a single atomic write. Both return copies, so callers may mutate
// what they receive without affecting the store.
type Store interface {
	Get(ctx context.Context, learnerID string) (*domain.LearnerRecord, error)
	Put(ctx context.Context, rec *domain.LearnerRecord) error
}

// ValidateID rejects ids that cannot key a record
func ValidateID(learnerID string) error {
	if strings.TrimSpace(learnerID) == "" {
		return fmt.Errorf("%w: empty learner id", domain.ErrInvalidInput)
	}
	return nil
}

// ValidateRecord checks a record before it is written
func ValidateRecord(rec *domain.LearnerRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: nil learner record", domain.ErrInvalidInput)
	}
	if err := ValidateID(rec.LearnerID); err != nil {
		return err
	}
	if rec.LessonIndex < 0 {
		return fmt.Errorf("%w: negative lesson index %d", domain.ErrInvalidInput, rec.LessonIndex)
	}
	return nil
}
