package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/bidwright/internal/core/domain"
	"github.com/custodia-labs/bidwright/internal/core/ports/driven"
)

// Ensure RunStore implements the interface.
var _ driven.RunStore = (*RunStore)(nil)

// RunStore persists one row per session: the run as JSON plus its expiry.
// Expiry times are unix milliseconds; NULL never expires.
type RunStore struct {
	store *Store
	ttl   time.Duration
	now   func() time.Time
}

// RunStore returns a run store backed by this database. Runs expire ttl
// after their last save; a zero ttl keeps them until deleted.
func (s *Store) RunStore(ttl time.Duration) *RunStore {
	return &RunStore{store: s, ttl: ttl, now: time.Now}
}

// Get retrieves the run for a session. Expired rows are deleted on read.
func (r *RunStore) Get(ctx context.Context, id string) (*domain.Run, error) {
	var (
		payload string
		expires sql.NullInt64
	)
	row := r.store.db.QueryRowContext(ctx, "SELECT payload, expires_at FROM runs WHERE id = ?", id)
	if err := row.Scan(&payload, &expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: get run %s: %w", id, err)
	}

	if expires.Valid && expires.Int64 <= r.now().UnixMilli() {
		if err := r.Delete(ctx, id); err != nil {
			return nil, err
		}
		return nil, domain.ErrNotFound
	}

	var run domain.Run
	if err := json.Unmarshal([]byte(payload), &run); err != nil {
		return nil, fmt.Errorf("sqlite: decode run %s: %w", id, err)
	}
	return &run, nil
}

// Save upserts the run and refreshes its expiry.
func (r *RunStore) Save(ctx context.Context, run domain.Run) error {
	if run.ID == "" {
		return fmt.Errorf("%w: run ID is required", domain.ErrInvalidInput)
	}
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("sqlite: encode run %s: %w", run.ID, err)
	}

	now := r.now()
	var expires sql.NullInt64
	if r.ttl > 0 {
		expires = sql.NullInt64{Int64: now.Add(r.ttl).UnixMilli(), Valid: true}
	}

	_, err = r.store.db.ExecContext(ctx, `
		INSERT INTO runs (id, stage, payload, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			stage = excluded.stage,
			payload = excluded.payload,
			updated_at = excluded.updated_at,
			expires_at = excluded.expires_at
	`, run.ID, run.Stage.String(), string(payload), now.UnixMilli(), expires)
	if err != nil {
		return fmt.Errorf("sqlite: save run %s: %w", run.ID, err)
	}
	return nil
}

// Delete removes the run for a session.
func (r *RunStore) Delete(ctx context.Context, id string) error {
	if _, err := r.store.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id); err != nil {
		return fmt.Errorf("sqlite: delete run %s: %w", id, err)
	}
	return nil
}

// Sweep deletes every expired run and returns how many were removed.
func (r *RunStore) Sweep(ctx context.Context) (int64, error) {
	res, err := r.store.db.ExecContext(ctx,
		"DELETE FROM runs WHERE expires_at IS NOT NULL AND expires_at <= ?", r.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("sqlite: sweep runs: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of stored rows, expired or not.
func (r *RunStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count runs: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (r *RunStore) Close() error {
	return r.store.Close()
}
