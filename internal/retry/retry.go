package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/amishk599/vacancyfeed/internal/model"
)

// Policy retries transient failures with exponential backoff and jitter.
// MaxRetries is the number of additional attempts after the first failure.
// BaseDelay is the delay before the first retry, doubled on each subsequent retry.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Logger     *slog.Logger
}

// Do calls fn until it succeeds, fails with a non-retryable error, or the
// policy runs out of retries. The last error is returned unwrapped.
func Do[T any](ctx context.Context, p Policy, op string, fn func(context.Context) (T, error)) (T, error) {
	v, err := fn(ctx)
	if err == nil || !IsRetryable(err) {
		return v, err
	}

	lastErr := err
	for attempt := 1; attempt <= p.MaxRetries; attempt++ {
		delay := p.backoffDelay(attempt, lastErr)

		if p.Logger != nil {
			p.Logger.Warn("retrying after transient error",
				"op", op,
				"attempt", attempt,
				"max_retries", p.MaxRetries,
				"delay", delay,
				"error", lastErr,
			)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			var zero T
			return zero, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-timer.C:
		}

		v, err = fn(ctx)
		if err == nil || !IsRetryable(err) {
			return v, err
		}
		lastErr = err
	}

	var zero T
	return zero, lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// A Retry-After carried by an HTTP 429/503 takes precedence.
func (p Policy) backoffDelay(attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}

// IsRetryable reports whether err is a transient failure worth retrying:
// network errors, HTTP 429 and 5xx. Context cancellation and other 4xx are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == http.StatusTooManyRequests {
			return true
		}
		return httpErr.StatusCode >= 500
	}

	// Non-HTTP errors (network, DNS) are retryable.
	return true
}

// RetrySource is a decorator that retries page fetches of the wrapped JobSource.
type RetrySource struct {
	inner  model.JobSource
	policy Policy
}

// NewRetrySource wraps a JobSource with retry logic.
func NewRetrySource(inner model.JobSource, policy Policy) *RetrySource {
	return &RetrySource{inner: inner, policy: policy}
}

func (s *RetrySource) FetchPage(ctx context.Context, page int) (model.SearchPage, error) {
	return Do(ctx, s.policy, fmt.Sprintf("fetch page %d", page), func(ctx context.Context) (model.SearchPage, error) {
		return s.inner.FetchPage(ctx, page)
	})
}

// RetryGenerator is a decorator that retries transient text generation failures.
// A failure that survives the retries is returned to the caller, which records it.
type RetryGenerator struct {
	inner  model.TextGenerator
	policy Policy
}

// NewRetryGenerator wraps a TextGenerator with retry logic.
func NewRetryGenerator(inner model.TextGenerator, policy Policy) *RetryGenerator {
	return &RetryGenerator{inner: inner, policy: policy}
}

func (g *RetryGenerator) Generate(ctx context.Context, req model.GenerationRequest) (model.Generation, error) {
	return Do(ctx, g.policy, "generate", func(ctx context.Context) (model.Generation, error) {
		return g.inner.Generate(ctx, req)
	})
}
