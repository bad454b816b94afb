// Package redis provides a Redis-backed RunStore so several web server
// replicas can share sessions.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/bidwright/internal/core/domain"
	"github.com/custodia-labs/bidwright/internal/core/ports/driven"
)

// Ensure RunStore implements the interface.
var _ driven.RunStore = (*RunStore)(nil)

// KeyPrefix namespaces run keys.
const KeyPrefix = "bidwright:run:"

// DefaultAddr is used when Config.Addr is empty.
const DefaultAddr = "localhost:6379"

// Config holds connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int

	// TTL is how long a run lives after its last save. Zero keeps runs
	// until they are deleted.
	TTL time.Duration
}

// RunStore keeps each run as one JSON string under bidwright:run:<id>.
// Expiry is delegated to Redis key TTLs.
type RunStore struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewRunStore connects to Redis.
// The connection is checked lazily; call Ping to verify it up front.
func NewRunStore(cfg Config) *RunStore {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RunStore{client: client, ttl: cfg.TTL}
}

// Key returns the Redis key holding a session's run.
func Key(id string) string {
	return KeyPrefix + id
}

// Ping checks the server is reachable.
func (s *RunStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping %s: %w", s.client.Options().Addr, err)
	}
	return nil
}

// Get retrieves the run for a session.
func (s *RunStore) Get(ctx context.Context, id string) (*domain.Run, error) {
	data, err := s.client.Get(ctx, Key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get run %s: %w", id, err)
	}

	var run domain.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("redis: decode run %s: %w", id, err)
	}
	return &run, nil
}

// Save stores the run and resets its TTL.
func (s *RunStore) Save(ctx context.Context, run domain.Run) error {
	if run.ID == "" {
		return fmt.Errorf("%w: run ID is required", domain.ErrInvalidInput)
	}
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("redis: encode run %s: %w", run.ID, err)
	}
	if err := s.client.Set(ctx, Key(run.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis: save run %s: %w", run.ID, err)
	}
	return nil
}

// Delete removes the run for a session.
func (s *RunStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, Key(id)).Err(); err != nil {
		return fmt.Errorf("redis: delete run %s: %w", id, err)
	}
	return nil
}

// TTL returns the remaining lifetime of a session's run.
// A negative duration means the key has no expiry or does not exist.
func (s *RunStore) TTL(ctx context.Context, id string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, Key(id)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: ttl %s: %w", id, err)
	}
	return ttl, nil
}

// Close closes the client.
func (s *RunStore) Close() error {
	return s.client.Close()
}
