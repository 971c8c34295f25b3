package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/felixgeelhaar/chatty/internal/domain"
	"github.com/felixgeelhaar/chatty/internal/learner"
)

var _ learner.Store = (*LearnerStore)(nil)

// LearnerStore persists learner records in PostgreSQL
type LearnerStore struct {
	conn *Connection
	now  func() time.Time
}

// NewLearnerStore creates a store on a connection whose schema is in place
func NewLearnerStore(conn *Connection) *LearnerStore {
	return &LearnerStore{conn: conn, now: time.Now}
}

// Get returns the learner's record, inserting the default row on first
// contact.
func (s *LearnerStore) Get(ctx context.Context, learnerID string) (*domain.LearnerRecord, error) {
	if err := learner.ValidateID(learnerID); err != nil {
		return nil, err
	}
	pool, err := s.conn.Pool()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	now := s.now().UTC()
	if _, err := pool.Exec(ctx,
		`INSERT INTO learners (learner_id, created_at, updated_at) VALUES ($1, $2, $2)
		ON CONFLICT (learner_id) DO NOTHING`,
		learnerID, now,
	); err != nil {
		return nil, fmt.Errorf("%w: insert learner: %w", domain.ErrPersistence, err)
	}

	var r learner.Row
	err = pool.QueryRow(ctx,
		`SELECT learner_id, current_level, lesson_index, pending_answer, review_mode,
			review_index, goals::text, accepted_count, updated_at
		FROM learners WHERE learner_id = $1`,
		learnerID,
	).Scan(&r.LearnerID, &r.Level, &r.LessonIndex, &r.Pending, &r.Review,
		&r.ReviewIndex, &r.Goals, &r.AcceptedCount, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: learner row vanished", domain.ErrPersistence)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: select learner: %w", domain.ErrPersistence, err)
	}

	rec, err := r.Record()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return rec, nil
}

// Put upserts the whole record
func (s *LearnerStore) Put(ctx context.Context, rec *domain.LearnerRecord) error {
	if err := learner.ValidateRecord(rec); err != nil {
		return err
	}
	pool, err := s.conn.Pool()
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	row, err := learner.RowFromRecord(rec)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	row.UpdatedAt = s.now().UTC()

	_, err = pool.Exec(ctx, `
		INSERT INTO learners (learner_id, current_level, lesson_index, pending_answer,
			review_mode, review_index, goals, accepted_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $9)
		ON CONFLICT (learner_id) DO UPDATE SET
			current_level = EXCLUDED.current_level,
			lesson_index = EXCLUDED.lesson_index,
			pending_answer = EXCLUDED.pending_answer,
			review_mode = EXCLUDED.review_mode,
			review_index = EXCLUDED.review_index,
			goals = EXCLUDED.goals,
			accepted_count = EXCLUDED.accepted_count,
			updated_at = EXCLUDED.updated_at`,
		row.LearnerID, row.Level, row.LessonIndex, row.Pending, row.Review,
		row.ReviewIndex, row.Goals, row.AcceptedCount, row.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: upsert learner %s: %w", domain.ErrPersistence, rec.LearnerID, err)
	}

	rec.UpdatedAt = row.UpdatedAt
	return nil
}
