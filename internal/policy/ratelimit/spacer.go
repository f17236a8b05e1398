package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/JakeFAU/statute-crawler/internal/metrics"
)

// DefaultMinDelay is the floor between two fetches from one scraper instance.
const DefaultMinDelay = 2 * time.Second

// Clock is the time source a Spacer waits on.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// Spacer serializes callers so consecutive request starts are at least the
// current minimum delay apart. One Spacer belongs to one scraper instance.
type Spacer struct {
	mu       sync.Mutex
	clock    Clock
	minDelay time.Duration
	last     time.Time
	label    string
}

// NewSpacer creates a Spacer with the given floor; non-positive values use DefaultMinDelay.
// label names the host in rate-limit metrics.
func NewSpacer(clock Clock, minDelay time.Duration, label string) *Spacer {
	if minDelay <= 0 {
		minDelay = DefaultMinDelay
	}
	return &Spacer{clock: clock, minDelay: minDelay, label: label}
}

// Raise lifts the minimum delay to d when d is larger; the floor never drops.
func (s *Spacer) Raise(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d > s.minDelay {
		s.minDelay = d
	}
}

// MinDelay returns the effective spacing.
func (s *Spacer) MinDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minDelay
}

// Wait blocks until minDelay has passed since the previous slot was granted,
// then claims the slot. The first call never waits.
func (s *Spacer) Wait(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.last.IsZero() {
		elapsed := s.clock.Now().Sub(s.last)
		if elapsed < s.minDelay {
			wait := s.minDelay - elapsed
			if err := s.clock.Sleep(ctx, wait); err != nil {
				return err //nolint:wrapcheck // clock already wraps the context error
			}
			metrics.ObserveRateLimitDelay(s.label, wait)
		}
	}
	s.last = s.clock.Now()
	return nil
}
