package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amishk599/vacancyfeed/internal/model"
)

// Limiter enforces a minimum interval between calls to the same destination.
// It waits only for the remainder of the interval since the previous call.
type Limiter struct {
	mu       sync.Mutex
	lastCall map[string]time.Time // key: destination (channel, host)
	minDelay time.Duration
}

// NewLimiter creates a limiter that spaces consecutive calls to the same
// destination at least minDelay apart.
func NewLimiter(minDelay time.Duration) *Limiter {
	return &Limiter{
		lastCall: make(map[string]time.Time),
		minDelay: minDelay,
	}
}

// Wait blocks until enough time has passed since the last call to dest.
// Returns an error if the context is cancelled while waiting.
func (r *Limiter) Wait(ctx context.Context, dest string) error {
	r.mu.Lock()
	last, ok := r.lastCall[dest]
	now := time.Now()

	if !ok || now.Sub(last) >= r.minDelay {
		r.lastCall[dest] = now
		r.mu.Unlock()
		return nil
	}

	remaining := r.minDelay - now.Sub(last)
	// Reserve the slot so concurrent callers queue behind this one.
	r.lastCall[dest] = last.Add(r.minDelay)
	r.mu.Unlock()

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", dest, ctx.Err())
	case <-timer.C:
	}
	return nil
}

// RateLimitedDeliverer is a decorator that spaces deliveries to one
// destination before delegating to the wrapped Deliverer.
type RateLimitedDeliverer struct {
	inner   model.Deliverer
	limiter *Limiter
	dest    string
}

// NewRateLimitedDeliverer wraps a Deliverer with destination-level throttling.
func NewRateLimitedDeliverer(inner model.Deliverer, limiter *Limiter, dest string) *RateLimitedDeliverer {
	return &RateLimitedDeliverer{inner: inner, limiter: limiter, dest: dest}
}

func (d *RateLimitedDeliverer) Deliver(ctx context.Context, msg model.Message) error {
	if err := d.limiter.Wait(ctx, d.dest); err != nil {
		return err
	}
	return d.inner.Deliver(ctx, msg)
}

// RateLimitedScraper spaces description page fetches to one host.
type RateLimitedScraper struct {
	inner   model.DescriptionScraper
	limiter *Limiter
	dest    string
}

// NewRateLimitedScraper wraps a DescriptionScraper with host-level throttling.
func NewRateLimitedScraper(inner model.DescriptionScraper, limiter *Limiter, dest string) *RateLimitedScraper {
	return &RateLimitedScraper{inner: inner, limiter: limiter, dest: dest}
}

func (s *RateLimitedScraper) Scrape(ctx context.Context, url string) (string, error) {
	if err := s.limiter.Wait(ctx, s.dest); err != nil {
		return "", err
	}
	return s.inner.Scrape(ctx, url)
}
