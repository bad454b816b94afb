package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/bidwright/internal/core/domain"
	"github.com/custodia-labs/bidwright/internal/core/ports/driven"
)

// Ensure RunStore implements the interface.
var _ driven.RunStore = (*RunStore)(nil)

type runEntry struct {
	run     domain.Run
	expires time.Time
}

// RunStore is an in-memory implementation of driven.RunStore.
// Entries expire ttl after their last save; expired entries are dropped
// when read or swept.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]runEntry
	ttl  time.Duration
	now  func() time.Time
}

// NewRunStore creates a new in-memory run store.
// A zero ttl keeps runs until they are deleted.
func NewRunStore(ttl time.Duration) *RunStore {
	return &RunStore{
		runs: make(map[string]runEntry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Get retrieves the run for a session.
func (s *RunStore) Get(_ context.Context, id string) (*domain.Run, error) {
	s.mu.RLock()
	entry, ok := s.runs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	if s.expired(entry) {
		s.mu.Lock()
		if current, still := s.runs[id]; still && s.expired(current) {
			delete(s.runs, id)
		}
		s.mu.Unlock()
		return nil, domain.ErrNotFound
	}
	run := entry.run
	return &run, nil
}

// Save stores the run under run.ID and refreshes its expiry.
func (s *RunStore) Save(_ context.Context, run domain.Run) error {
	if run.ID == "" {
		return domain.ErrInvalidInput
	}
	entry := runEntry{run: run}
	if s.ttl > 0 {
		entry.expires = s.now().Add(s.ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = entry
	return nil
}

// Delete removes the run for a session.
func (s *RunStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, id)
	return nil
}

// Sweep drops every expired run and returns how many were removed.
func (s *RunStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, entry := range s.runs {
		if s.expired(entry) {
			delete(s.runs, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored runs, expired or not.
func (s *RunStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

// Close releases resources (no-op for memory store).
func (s *RunStore) Close() error {
	return nil
}

func (s *RunStore) expired(entry runEntry) bool {
	return !entry.expires.IsZero() && !s.now().Before(entry.expires)
}
