// Package redis stores learner records as JSON documents in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/chatty/internal/domain"
	"github.com/felixgeelhaar/chatty/internal/learner"
)

// DefaultKeyPrefix namespaces learner keys
const DefaultKeyPrefix = "chatty:learner:"

var _ learner.Store = (*LearnerStore)(nil)

// Config holds the connection settings. URL uses the redis:// scheme.
type Config struct {
	URL          string
	KeyPrefix    string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns settings for the given URL
func DefaultConfig(url string) Config {
	return Config{
		URL:          url,
		KeyPrefix:    DefaultKeyPrefix,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

func (c Config) options() (*redis.Options, error) {
	opts, err := redis.ParseURL(c.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if c.DialTimeout > 0 {
		opts.DialTimeout = c.DialTimeout
	}
	if c.ReadTimeout > 0 {
		opts.ReadTimeout = c.ReadTimeout
	}
	if c.WriteTimeout > 0 {
		opts.WriteTimeout = c.WriteTimeout
	}
	return opts, nil
}

// LearnerStore keeps one JSON document per learner
type LearnerStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// Connect opens a client and pings the server
func Connect(ctx context.Context, cfg Config) (*LearnerStore, error) {
	opts, err := cfg.options()
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return NewLearnerStore(client, cfg.KeyPrefix), nil
}

// NewLearnerStore wraps an existing client
func NewLearnerStore(client *redis.Client, prefix string) *LearnerStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &LearnerStore{client: client, prefix: prefix, now: time.Now}
}

func (s *LearnerStore) key(learnerID string) string {
	return s.prefix + learnerID
}

// Get returns the learner's record. A missing key is initialized with SETNX
// so concurrent first contacts agree on one default document.
func (s *LearnerStore) Get(ctx context.Context, learnerID string) (*domain.LearnerRecord, error) {
	if err := learner.ValidateID(learnerID); err != nil {
		return nil, err
	}

	rec, err := s.load(ctx, learnerID)
	if err == nil || !errors.Is(err, redis.Nil) {
		return rec, err
	}

	fresh := domain.NewLearnerRecord(learnerID)
	fresh.UpdatedAt = s.now().UTC()
	data, err := json.Marshal(fresh)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal learner: %w", domain.ErrPersistence, err)
	}

	created, err := s.client.SetNX(ctx, s.key(learnerID), data, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: insert learner: %w", domain.ErrPersistence, err)
	}
	if created {
		return fresh, nil
	}

	rec, err = s.load(ctx, learnerID)
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: learner %s vanished", domain.ErrPersistence, learnerID)
	}
	return rec, err
}

// load reads a record. redis.Nil is passed through unwrapped.
func (s *LearnerStore) load(ctx context.Context, learnerID string) (*domain.LearnerRecord, error) {
	data, err := s.client.Get(ctx, s.key(learnerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get learner: %w", domain.ErrPersistence, err)
	}

	var rec domain.LearnerRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: decode learner %s: %w", domain.ErrPersistence, learnerID, err)
	}
	return &rec, nil
}

// Put overwrites the learner's document
func (s *LearnerStore) Put(ctx context.Context, rec *domain.LearnerRecord) error {
	if err := learner.ValidateRecord(rec); err != nil {
		return err
	}

	stored := rec.Clone()
	stored.UpdatedAt = s.now().UTC()
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("%w: marshal learner: %w", domain.ErrPersistence, err)
	}

	if err := s.client.Set(ctx, s.key(rec.LearnerID), data, 0).Err(); err != nil {
		return fmt.Errorf("%w: set learner %s: %w", domain.ErrPersistence, rec.LearnerID, err)
	}

	rec.UpdatedAt = stored.UpdatedAt
	return nil
}

// Health pings the server
func (s *LearnerStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client
func (s *LearnerStore) Close() error {
	return s.client.Close()
}
