package oracle

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(retry RetryConfig, breaker *CircuitBreaker) *Client {
	return &Client{retry: retry, circuitBreaker: breaker}
}

func fastRetry(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries: maxRetries,
		RetryDelay: time.Millisecond,
		Timeout:    time.Second,
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	c := testClient(fastRetry(3), nil)

	attempts := 0
	err := c.retryWithBackoff(context.Background(), "test_op", func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("503 service unavailable")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryExhaustion(t *testing.T) {
	c := testClient(fastRetry(2), nil)

	attempts := 0
	err := c.retryWithBackoff(context.Background(), "test_op", func(ctx context.Context) error {
		attempts++
		return errors.New("connection refused")
	})
	require.Error(t, err)
	assert.Equal(t, 3, attempts, "initial attempt plus two retries")
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestNonRetriableErrorReturnsImmediately(t *testing.T) {
	c := testClient(fastRetry(3), nil)

	attempts := 0
	err := c.retryWithBackoff(context.Background(), "test_op", func(ctx context.Context) error {
		attempts++
		return errors.New("401 unauthorized")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestUnparseablePayloadRetriesLikeTransientFailure(t *testing.T) {
	c := testClient(fastRetry(1), nil)

	attempts := 0
	err := c.retryWithBackoff(context.Background(), "score_question", func(ctx context.Context) error {
		attempts++
		return fmt.Errorf("score_question returned no parseable JSON payload")
	})
	require.Error(t, err)
	assert.Equal(t, 2, attempts)
}

func TestRetryStopsWhenBreakerOpens(t *testing.T) {
	breaker := NewCircuitBreaker(2)
	c := testClient(fastRetry(10), breaker)

	attempts := 0
	err := c.retryWithBackoff(context.Background(), "test_op", func(ctx context.Context) error {
		attempts++
		return errors.New("500 internal server error")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	// Two failures trip the breaker; the third loop iteration is refused
	assert.Equal(t, 2, attempts)
	assert.True(t, breaker.IsOpen())
}

func TestRetryRespectsContextCancellation(t *testing.T) {
	c := testClient(RetryConfig{MaxRetries: 5, RetryDelay: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := c.retryWithBackoff(ctx, "test_op", func(ctx context.Context) error {
		return errors.New("timeout")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCircuitBreaker(t *testing.T) {
	t.Run("opens at the threshold", func(t *testing.T) {
		cb := NewCircuitBreaker(3)
		require.NoError(t, cb.Allow())

		cb.RecordFailure()
		cb.RecordFailure()
		assert.False(t, cb.IsOpen())

		cb.RecordFailure()
		assert.True(t, cb.IsOpen())
		assert.ErrorIs(t, cb.Allow(), ErrCircuitOpen)
	})

	t.Run("success resets consecutive count", func(t *testing.T) {
		cb := NewCircuitBreaker(3)
		cb.RecordFailure()
		cb.RecordFailure()
		cb.RecordSuccess()
		cb.RecordFailure()
		cb.RecordFailure()
		assert.False(t, cb.IsOpen(), "non-consecutive failures must not trip the breaker")
	})

	t.Run("stays open for the rest of the run", func(t *testing.T) {
		cb := NewCircuitBreaker(1)
		cb.RecordFailure()
		require.True(t, cb.IsOpen())

		// No half-open probing: success after opening does not close it
		cb.RecordSuccess()
		assert.True(t, cb.IsOpen())
	})
}

func TestIsRetriableError(t *testing.T) {
	retriable := []error{
		errors.New("429 too many requests"),
		errors.New("rate limit exceeded"),
		errors.New("500 internal server error"),
		errors.New("502 bad gateway"),
		errors.New("503 service unavailable"),
		errors.New("connection refused"),
		errors.New("connection reset by peer"),
		errors.New("i/o timeout"),
		errors.New("task returned no parseable JSON payload"),
		context.DeadlineExceeded,
	}
	for _, err := range retriable {
		assert.True(t, isRetriableError(err), "%v should be retriable", err)
	}

	notRetriable := []error{
		nil,
		errors.New("400 bad request"),
		errors.New("401 unauthorized"),
		errors.New("403 forbidden"),
		errors.New("404 not found"),
		errors.New("invalid model name"),
	}
	for _, err := range notRetriable {
		assert.False(t, isRetriableError(err), "%v should not be retriable", err)
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err := NewClient(&Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
}
