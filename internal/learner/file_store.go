package learner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/felixgeelhaar/chatty/internal/domain"
	"github.com/felixgeelhaar/chatty/internal/storage/local"
)

// tableName is the document holding every learner record
const tableName = "learners"

// lockRetryDelay is how often a blocked caller retries the table lock
const lockRetryDelay = 10 * time.Millisecond

var _ Store = (*FileStore)(nil)

// documents is the slice of local.Store the file store needs
type documents interface {
	Load(name string, data any) error
	Save(name string, data any) error
}

// FileStore keeps the whole learner table in one JSON document.
//
// Every call takes an exclusive lock on a sibling lock file, reads the table
// from disk, applies at most one record and replaces the document
// atomically. Processes sharing the directory therefore never overwrite each
// other's learners, and a failed write leaves the previous table in place.
type FileStore struct {
	docs documents
	path string
	lock *flock.Flock
	now  func() time.Time

	// flock is per handle, not per goroutine
	mu sync.Mutex
}

// NewFileStore opens (or creates) the learner table in dir
func NewFileStore(dir string) (*FileStore, error) {
	docs, err := local.NewStore(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	s := newFileStore(docs, docs.Path(tableName), filepath.Join(dir, tableName+".lock"))

	n, err := s.Count(context.Background())
	if err != nil {
		return nil, err
	}
	slog.Debug("learner table opened", "path", s.path, "learners", n)

	return s, nil
}

func newFileStore(docs documents, path, lockPath string) *FileStore {
	return &FileStore{
		docs: docs,
		path: path,
		lock: flock.New(lockPath),
		now:  time.Now,
	}
}

// Path returns the location of the learner table
func (s *FileStore) Path() string {
	return s.path
}

// Get returns the learner's record, inserting a default one when absent
func (s *FileStore) Get(ctx context.Context, learnerID string) (*domain.LearnerRecord, error) {
	if err := ValidateID(learnerID); err != nil {
		return nil, err
	}

	var out *domain.LearnerRecord
	err := s.locked(ctx, func(table map[string]domain.LearnerRecord) error {
		if rec, ok := table[learnerID]; ok {
			out = rec.Clone()
			return nil
		}

		fresh := domain.NewLearnerRecord(learnerID)
		fresh.UpdatedAt = s.now().UTC()
		if err := s.save(table, fresh); err != nil {
			return err
		}
		out = fresh.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Put replaces the learner's record
func (s *FileStore) Put(ctx context.Context, rec *domain.LearnerRecord) error {
	if err := ValidateRecord(rec); err != nil {
		return err
	}

	stored := rec.Clone()
	stored.UpdatedAt = s.now().UTC()

	err := s.locked(ctx, func(table map[string]domain.LearnerRecord) error {
		return s.save(table, stored)
	})
	if err != nil {
		return err
	}
	rec.UpdatedAt = stored.UpdatedAt
	return nil
}

// Count returns the number of stored learners
func (s *FileStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.locked(ctx, func(table map[string]domain.LearnerRecord) error {
		n = len(table)
		return nil
	})
	return n, err
}

// locked runs fn on the current on-disk table while holding the table lock
func (s *FileStore) locked(ctx context.Context, fn func(table map[string]domain.LearnerRecord) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("%w: lock learner table: %w", domain.ErrPersistence, err)
	}
	if !ok {
		return fmt.Errorf("%w: lock learner table: %s is held", domain.ErrPersistence, s.lock.Path())
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			slog.Warn("failed to unlock learner table", "path", s.lock.Path(), "error", err)
		}
	}()

	table, err := s.load()
	if err != nil {
		return err
	}
	return fn(table)
}

func (s *FileStore) load() (map[string]domain.LearnerRecord, error) {
	table := make(map[string]domain.LearnerRecord)
	if err := s.docs.Load(tableName, &table); err != nil && !errors.Is(err, local.ErrNotFound) {
		return nil, fmt.Errorf("%w: load learner table: %w", domain.ErrPersistence, err)
	}
	if table == nil {
		table = make(map[string]domain.LearnerRecord)
	}
	return table, nil
}

// save writes table with rec applied. Callers must hold the table lock.
func (s *FileStore) save(table map[string]domain.LearnerRecord, rec *domain.LearnerRecord) error {
	table[rec.LearnerID] = *rec.Clone()
	if err := s.docs.Save(tableName, table); err != nil {
		return fmt.Errorf("%w: save learner %s: %w", domain.ErrPersistence, rec.LearnerID, err)
	}
	return nil
}
