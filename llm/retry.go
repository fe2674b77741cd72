package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Retrier re-runs provider calls that fail with a configured error type,
// waiting with exponential backoff and ±25% jitter in between.
type Retrier struct {
	config    RetryConfig
	retryable map[ErrorType]bool

	mu  sync.Mutex
	rng *rand.Rand
}

func NewRetrier(config RetryConfig) *Retrier {
	r := &Retrier{
		config:    config,
		retryable: make(map[ErrorType]bool, len(config.RetryableErrors)),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, t := range config.RetryableErrors {
		r.retryable[ErrorType(t)] = true
	}
	return r
}

// RetryOperation is one attempt; attempt counts from zero.
type RetryOperation[T any] func(ctx context.Context, attempt int) (T, error)

// Execute runs op until it succeeds, fails with an error that should not be
// retried, or MaxRetries retries have been spent. Errors from the final
// attempt of an exhausted budget are wrapped with the attempt count.
func Execute[T any](r *Retrier, ctx context.Context, op RetryOperation[T]) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		result, err := op(ctx, attempt)
		if err == nil {
			return result, nil
		}
		if !r.shouldRetry(err) {
			return zero, err
		}
		if attempt >= r.config.MaxRetries {
			return zero, fmt.Errorf("operation failed after %d attempts: %w", attempt+1, err)
		}

		t := time.NewTimer(r.calculateDelay(attempt, err))
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, ctx.Err()
		case <-t.C:
		}
	}
}

// shouldRetry consults the configured error types. Typed errors match on
// their type, falling back to the provider's own verdict when no types are
// configured; untyped errors match on their text.
func (r *Retrier) shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if le, ok := IsLLMError(err); ok {
		if len(r.retryable) == 0 {
			return le.IsRetryable()
		}
		return r.retryable[le.Type]
	}
	msg := strings.ToLower(err.Error())
	for t := range r.retryable {
		if strings.Contains(msg, string(t)) {
			return true
		}
	}
	return false
}

func (r *Retrier) calculateDelay(attempt int, err error) time.Duration {
	if le, ok := IsLLMError(err); ok && le.RetryAfter > 0 {
		return time.Duration(le.RetryAfter) * time.Second
	}

	factor := math.Max(r.config.BackoffFactor, 1)
	delay := float64(r.config.InitialDelay) * math.Pow(factor, float64(attempt))

	r.mu.Lock()
	delay += 0.25 * delay * (2*r.rng.Float64() - 1)
	r.mu.Unlock()

	lo, hi := float64(r.config.InitialDelay), float64(r.config.MaxDelay)
	if hi > 0 && delay > hi {
		delay = hi
	}
	if delay < lo {
		delay = lo
	}
	return time.Duration(delay)
}
