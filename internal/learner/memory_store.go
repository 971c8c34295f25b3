package learner

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/chatty/internal/domain"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is a non-durable store for tests and throwaway sessions
type MemoryStore struct {
	mu       sync.Mutex
	learners map[string]*domain.LearnerRecord
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{learners: make(map[string]*domain.LearnerRecord)}
}

// Get returns the learner's record, inserting a default one when absent
func (s *MemoryStore) Get(ctx context.Context, learnerID string) (*domain.LearnerRecord, error) {
	if err := ValidateID(learnerID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.learners[learnerID]
	if !ok {
		rec = domain.NewLearnerRecord(learnerID)
		rec.UpdatedAt = time.Now().UTC()
		s.learners[learnerID] = rec
	}
	return rec.Clone(), nil
}

// Put replaces the learner's record
func (s *MemoryStore) Put(ctx context.Context, rec *domain.LearnerRecord) error {
	if err := ValidateRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec.UpdatedAt = time.Now().UTC()
	s.learners[rec.LearnerID] = rec.Clone()
	return nil
}
