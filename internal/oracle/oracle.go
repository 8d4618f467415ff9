// Package oracle wraps the external judgment/generation service behind a
// single invocation utility with retry, timeout, and circuit-breaker policy.
// Every bot behavior goes through this package instead of carrying its own
// retry and response-parsing logic.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/semaphore"
)

// Model constants. Complex judgment tasks (scoring, scope checks) default to
// the high-end model; cheap generation tasks (summaries, tags) use the
// cost-efficient one.
//
// Environment variable overrides:
// - CURATOR_MODEL_DEFAULT: override the default model
// - CURATOR_MODEL_SIMPLE: override the model for simple tasks
const (
	ModelDefault = "claude-sonnet-4-5-20250929"
	ModelSimple  = "claude-3-5-haiku-20241022"
)

// GetDefaultModel returns the default model, checking CURATOR_MODEL_DEFAULT first.
func GetDefaultModel() string {
	if model := os.Getenv("CURATOR_MODEL_DEFAULT"); model != "" {
		return model
	}
	return ModelDefault
}

// GetSimpleTaskModel returns the model for simple tasks, checking CURATOR_MODEL_SIMPLE first.
func GetSimpleTaskModel() string {
	if model := os.Getenv("CURATOR_MODEL_SIMPLE"); model != "" {
		return model
	}
	return ModelSimple
}

// Invoker is the oracle boundary consumed by bot behaviors: an opaque,
// potentially slow, potentially failing external service. Implementations
// return the structured payload extracted from the response, or an error when
// all retry attempts are exhausted — callers degrade by failing the item, not
// the run.
type Invoker interface {
	Invoke(ctx context.Context, task, prompt string) (json.RawMessage, error)
}

// Client is the Anthropic-backed Invoker. A fresh client is constructed per
// bot invocation, so circuit-breaker state never survives across runs.
type Client struct {
	client         *anthropic.Client
	model          string
	maxTokens      int64
	retry          RetryConfig
	circuitBreaker *CircuitBreaker
	concurrencySem *semaphore.Weighted
}

var _ Invoker = (*Client)(nil)

// Config holds oracle client configuration.
type Config struct {
	APIKey    string      // Anthropic API key (if empty, reads ANTHROPIC_API_KEY)
	Model     string      // Model to use (default: GetDefaultModel())
	MaxTokens int64       // Response token cap (default: 4096)
	Retry     RetryConfig // Retry configuration (uses defaults if zero)
}

// NewClient creates a new oracle client. A missing API key is a fatal
// configuration error: the caller must abort before any item is processed.
func NewClient(cfg *Config) (*Client, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}

	model := cfg.Model
	if model == "" {
		model = GetDefaultModel()
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	retry := cfg.Retry
	if retry.MaxRetries == 0 && retry.Timeout == 0 {
		retry = DefaultRetryConfig()
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	var circuitBreaker *CircuitBreaker
	if retry.CircuitBreakerEnabled {
		circuitBreaker = NewCircuitBreaker(retry.FailureThreshold)
	}

	var concurrencySem *semaphore.Weighted
	if retry.MaxConcurrentCalls > 0 {
		concurrencySem = semaphore.NewWeighted(int64(retry.MaxConcurrentCalls))
	}

	return &Client{
		client:         &client,
		model:          model,
		maxTokens:      maxTokens,
		retry:          retry,
		circuitBreaker: circuitBreaker,
		concurrencySem: concurrencySem,
	}, nil
}

// Breaker exposes the per-run circuit breaker so the runner can stop
// attempting calls once it trips and fail remaining items immediately.
// Returns nil when the breaker is disabled.
func (c *Client) Breaker() *CircuitBreaker {
	return c.circuitBreaker
}

// Invoke sends one judgment/generation request and returns the JSON payload
// extracted from the response. Transient failures and structurally invalid
// payloads share the same retry path; after exhaustion the error surfaces as
// an item-level failure.
func (c *Client) Invoke(ctx context.Context, task, prompt string) (json.RawMessage, error) {
	var payload json.RawMessage

	err := c.retryWithBackoff(ctx, task, func(attemptCtx context.Context) error {
		resp, apiErr := c.client.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(c.model),
			MaxTokens: c.maxTokens,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if apiErr != nil {
			return apiErr
		}

		var responseText string
		for _, block := range resp.Content {
			if block.Type == "text" {
				responseText += block.Text
			}
		}

		extracted, ok := ExtractJSON(responseText)
		if !ok {
			// Bad output is handled identically to a broken connection
			return fmt.Errorf("%s returned no parseable JSON payload", task)
		}
		payload = extracted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// Unmarshal decodes an oracle payload into a typed result, reporting
// validation failures in a form the caller records as the item's reason.
func Unmarshal(payload json.RawMessage, task string, out interface{}) error {
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%s response failed structural checks: %w", task, err)
	}
	return nil
}
