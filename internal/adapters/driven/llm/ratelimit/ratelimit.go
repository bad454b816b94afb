// Package ratelimit wraps an LLM service with a request rate limit.
package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/bidwright/internal/core/domain"
	"github.com/custodia-labs/bidwright/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// DefaultBackoff is how long calls pause after the provider answers 429.
const DefaultBackoff = 60 * time.Second

// Config holds rate limiting configuration.
type Config struct {
	// RequestsPerMinute is the sustained rate.
	RequestsPerMinute int

	// Burst is the maximum burst size (default: 1).
	Burst int

	// Backoff is the pause after a 429 reply (default: DefaultBackoff).
	Backoff time.Duration
}

// LLMService limits calls to the wrapped service with a token bucket and
// pauses all calls after the provider reports it is rate limited.
type LLMService struct {
	next    driven.LLMService
	limiter *rate.Limiter
	backoff time.Duration

	mu      sync.Mutex
	retryAt time.Time
	now     func() time.Time
}

// Wrap returns next limited to cfg. A non-positive rate returns next unchanged.
func Wrap(next driven.LLMService, cfg Config) driven.LLMService {
	if cfg.RequestsPerMinute <= 0 {
		return next
	}
	return New(next, cfg)
}

// New creates a rate-limited LLM service.
func New(next driven.LLMService, cfg Config) *LLMService {
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	perSecond := rate.Limit(float64(cfg.RequestsPerMinute) / 60)
	return &LLMService{
		next:    next,
		limiter: rate.NewLimiter(perSecond, cfg.Burst),
		backoff: cfg.Backoff,
		now:     time.Now,
	}
}

// Generate waits for a token, then calls the wrapped service.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	if err := s.Wait(ctx); err != nil {
		return "", err
	}
	reply, err := s.next.Generate(ctx, prompt, opts)

	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) && upstream.StatusCode == http.StatusTooManyRequests {
		s.RecordRateLimited()
	}
	return reply, err
}

// Wait blocks until a call can be made without exceeding the rate limit.
// It also respects any backoff period set by RecordRateLimited.
func (s *LLMService) Wait(ctx context.Context) error {
	s.mu.Lock()
	retryAt := s.retryAt
	now := s.now()
	s.mu.Unlock()

	if now.Before(retryAt) {
		timer := time.NewTimer(retryAt.Sub(now))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return s.limiter.Wait(ctx)
}

// RecordRateLimited starts a backoff period.
func (s *LLMService) RecordRateLimited() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retryAt = s.now().Add(s.backoff)
}

// ModelName returns the wrapped service's model name.
func (s *LLMService) ModelName() string {
	return s.next.ModelName()
}

// Ping is not rate limited.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// Close closes the wrapped service.
func (s *LLMService) Close() error {
	return s.next.Close()
}
