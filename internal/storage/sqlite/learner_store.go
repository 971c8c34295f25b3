package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/chatty/internal/domain"
	"github.com/felixgeelhaar/chatty/internal/learner"
)

var _ learner.Store = (*LearnerStore)(nil)

// LearnerStore persists learner records in the learners table
type LearnerStore struct {
	db  *DB
	now func() time.Time
}

// NewLearnerStore creates a learner store on a migrated database
func NewLearnerStore(db *DB) *LearnerStore {
	return &LearnerStore{db: db, now: time.Now}
}

const selectLearner = `SELECT learner_id, current_level, lesson_index, pending_answer,
	review_mode, review_index, goals, accepted_count, updated_at
	FROM learners WHERE learner_id = ?`

// Get returns the learner's record, inserting the default record on first
// contact.
func (s *LearnerStore) Get(ctx context.Context, learnerID string) (*domain.LearnerRecord, error) {
	if err := learner.ValidateID(learnerID); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx: %w", domain.ErrPersistence, err)
	}
	defer tx.Rollback()

	now := s.now().UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO learners (learner_id, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(learner_id) DO NOTHING`,
		learnerID, now, now,
	); err != nil {
		return nil, fmt.Errorf("%w: insert learner: %w", domain.ErrPersistence, err)
	}

	rec, err := scanLearner(tx.QueryRowContext(ctx, selectLearner, learnerID))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %w", domain.ErrPersistence, err)
	}
	return rec, nil
}

// Put writes the whole record
func (s *LearnerStore) Put(ctx context.Context, rec *domain.LearnerRecord) error {
	if err := learner.ValidateRecord(rec); err != nil {
		return err
	}

	row, err := learner.RowFromRecord(rec)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	row.UpdatedAt = s.now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO learners (learner_id, current_level, lesson_index, pending_answer,
			review_mode, review_index, goals, accepted_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(learner_id) DO UPDATE SET
			current_level = excluded.current_level,
			lesson_index = excluded.lesson_index,
			pending_answer = excluded.pending_answer,
			review_mode = excluded.review_mode,
			review_index = excluded.review_index,
			goals = excluded.goals,
			accepted_count = excluded.accepted_count,
			updated_at = excluded.updated_at`,
		row.LearnerID, row.Level, row.LessonIndex, row.Pending,
		row.Review, row.ReviewIndex, row.Goals, row.AcceptedCount, row.UpdatedAt, row.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: upsert learner %s: %w", domain.ErrPersistence, rec.LearnerID, err)
	}

	rec.UpdatedAt = row.UpdatedAt
	return nil
}

// Count returns the number of stored learners
func (s *LearnerStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM learners").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count learners: %w", domain.ErrPersistence, err)
	}
	return n, nil
}

func scanLearner(row *sql.Row) (*domain.LearnerRecord, error) {
	var (
		r           learner.Row
		level       sql.NullString
		reviewIndex sql.NullInt64
	)
	err := row.Scan(&r.LearnerID, &level, &r.LessonIndex, &r.Pending,
		&r.Review, &reviewIndex, &r.Goals, &r.AcceptedCount, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: learner row vanished", domain.ErrPersistence)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scan learner: %w", domain.ErrPersistence, err)
	}

	if level.Valid {
		r.Level = &level.String
	}
	if reviewIndex.Valid {
		idx := int(reviewIndex.Int64)
		r.ReviewIndex = &idx
	}

	rec, err := r.Record()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return rec, nil
}
