package oracle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// RetryConfig holds retry configuration for oracle calls.
type RetryConfig struct {
	MaxRetries        int           // Maximum number of retries (default: 3)
	RetryDelay        time.Duration // Delay between attempts (default: 2s)
	BackoffMultiplier float64       // 1.0 = fixed delay (default); >1 opts into exponential growth
	MaxDelay          time.Duration // Cap on the grown delay (default: 30s)
	Timeout           time.Duration // Hard per-attempt timeout (default: 60s)

	// Circuit breaker settings. The breaker is per-run: it lives inside the
	// client, which is constructed fresh for every bot invocation.
	CircuitBreakerEnabled bool // Enable circuit breaker (default: true)
	FailureThreshold      int  // Consecutive failures before opening (default: 5)

	MaxConcurrentCalls int // Maximum concurrent oracle calls (default: 1, 0 = unlimited)
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:            3,
		RetryDelay:            2 * time.Second,
		BackoffMultiplier:     1.0,
		MaxDelay:              30 * time.Second,
		Timeout:               60 * time.Second,
		CircuitBreakerEnabled: true,
		FailureThreshold:      5,
		MaxConcurrentCalls:    1,
	}
}

// ErrCircuitOpen is returned when the circuit breaker has tripped.
var ErrCircuitOpen = errors.New("oracle circuit breaker is open")

// CircuitBreaker trips after N consecutive oracle failures within a single
// run. Once open it stays open for the remainder of the run — there is no
// half-open probing because the next scheduled invocation starts with a fresh
// breaker anyway.
type CircuitBreaker struct {
	mu sync.Mutex

	consecutiveFailures int
	failureThreshold    int
	open                bool
}

// NewCircuitBreaker creates a breaker that opens after failureThreshold
// consecutive failures.
func NewCircuitBreaker(failureThreshold int) *CircuitBreaker {
	return &CircuitBreaker{failureThreshold: failureThreshold}
}

// Allow returns ErrCircuitOpen once the breaker has tripped.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.open {
		return ErrCircuitOpen
	}
	return nil
}

// RecordSuccess resets the consecutive-failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFailures = 0
}

// RecordFailure counts one failure and opens the breaker at the threshold.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFailures++
	if cb.consecutiveFailures >= cb.failureThreshold {
		if !cb.open {
			fmt.Fprintf(os.Stderr, "Oracle circuit breaker opened after %d consecutive failures\n",
				cb.consecutiveFailures)
		}
		cb.open = true
	}
}

// IsOpen reports whether the breaker has tripped.
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.open
}

// retryWithBackoff executes an operation with a bounded retry count and a
// fixed (optionally growing) delay between attempts. Every attempt carries a
// hard timeout so a hung oracle call cannot stall the run.
func (c *Client) retryWithBackoff(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.concurrencySem != nil {
		if err := c.concurrencySem.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("failed to acquire concurrency slot for %s: %w", operation, err)
		}
		defer c.concurrencySem.Release(1)
	}

	delay := c.retry.RetryDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}
	multiplier := c.retry.BackoffMultiplier
	if multiplier < 1.0 {
		multiplier = 1.0
	}

	var lastErr error
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if c.circuitBreaker != nil {
			if err := c.circuitBreaker.Allow(); err != nil {
				return fmt.Errorf("%s failed: %w", operation, err)
			}
		}

		attemptCtx := ctx
		cancel := func() {}
		if c.retry.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, c.retry.Timeout)
		}
		err := fn(attemptCtx)
		cancel()

		if err == nil {
			if c.circuitBreaker != nil {
				c.circuitBreaker.RecordSuccess()
			}
			if attempt > 0 {
				fmt.Printf("Oracle %s succeeded after %d retries\n", operation, attempt)
			}
			return nil
		}

		lastErr = err
		if c.circuitBreaker != nil && isRetriableError(err) {
			c.circuitBreaker.RecordFailure()
		}

		if !isRetriableError(err) {
			fmt.Fprintf(os.Stderr, "Oracle %s failed with non-retriable error: %v\n", operation, err)
			return err
		}

		if attempt == c.retry.MaxRetries {
			break
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s failed: context canceled: %w", operation, ctx.Err())
		}

		fmt.Printf("Oracle %s failed (attempt %d/%d), retrying in %v: %v\n",
			operation, attempt+1, c.retry.MaxRetries+1, delay, err)

		select {
		case <-time.After(delay):
			delay = time.Duration(float64(delay) * multiplier)
			if c.retry.MaxDelay > 0 && delay > c.retry.MaxDelay {
				delay = c.retry.MaxDelay
			}
		case <-ctx.Done():
			return fmt.Errorf("%s failed: context canceled during backoff: %w", operation, ctx.Err())
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, c.retry.MaxRetries+1, lastErr)
}

// isRetriableError determines if an error is transient. Timeouts, rate
// limits, server errors, and malformed payloads all retry; auth and other
// client errors do not.
func isRetriableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := err.Error()

	// Rate limits (429) are retriable
	if strings.Contains(errStr, "429") || strings.Contains(errStr, "rate limit") {
		return true
	}

	// Server errors (5xx) are retriable
	if strings.Contains(errStr, "500") || strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") || strings.Contains(errStr, "504") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "bad gateway") ||
		strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "gateway timeout") {
		return true
	}

	// Network/connection errors are retriable
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "temporary failure") ||
		strings.Contains(errStr, "network") {
		return true
	}

	// A response with no parseable payload retries the same way a broken
	// connection does; the pipeline does not distinguish the two.
	if strings.Contains(errStr, "no parseable JSON") {
		return true
	}

	// Remaining 4xx client errors indicate requests that won't succeed on retry
	if strings.Contains(errStr, "400") || strings.Contains(errStr, "401") ||
		strings.Contains(errStr, "403") || strings.Contains(errStr, "404") {
		return false
	}

	return false
}
