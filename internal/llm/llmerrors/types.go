// Package llmerrors defines the error taxonomy for provider operations.
// Types determine whether a failed call should be retried, surfaced as a
// warning with a fallback record, or treated as fatal. The taxonomy keeps
// error classification in one place so the retry middleware, the cache
// manager, and the workflow all agree on what is transient.
package llmerrors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType categorizes provider operation failures for retry classification.
type ErrorType string

const (
	// ErrorTypeTimeout indicates request timeout or deadline exceeded (retryable).
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeRateLimit indicates rate limit exceeded, retry with backoff (retryable).
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeNetwork indicates network connectivity issues (retryable).
	ErrorTypeNetwork ErrorType = "network"

	// ErrorTypeProvider indicates provider service unavailable (retryable).
	ErrorTypeProvider ErrorType = "provider_unavailable"

	// ErrorTypeParse indicates malformed provider output that survived all
	// parser fallback strategies (recoverable via a fallback record, not
	// via retry).
	ErrorTypeParse ErrorType = "parse"

	// ErrorTypeContent indicates the provider refused or filtered the
	// request (non-retryable).
	ErrorTypeContent ErrorType = "content_filtered"

	// ErrorTypeAuth indicates authentication failed (non-retryable).
	ErrorTypeAuth ErrorType = "authentication"

	// ErrorTypeUnknown indicates an unclassified error.
	ErrorTypeUnknown ErrorType = "unknown"
)

// Common sentinel errors for provider and cache operations.
var (
	// ErrProviderUnavailable indicates the provider is down or unreachable.
	ErrProviderUnavailable = errors.New("provider service unavailable")

	// ErrRateLimitExceeded indicates the provider rate limit has been hit.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrCacheUnavailable indicates the cache store cannot be reached.
	// Never fatal: callers treat it as a miss.
	ErrCacheUnavailable = errors.New("cache store unavailable")

	// ErrCacheMiss indicates the requested fingerprint was not found.
	ErrCacheMiss = errors.New("cache miss")

	// ErrMaxRetriesExceeded indicates retry attempts were exhausted.
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")

	// ErrEmptyCompletion indicates the provider returned no text.
	ErrEmptyCompletion = errors.New("empty completion")

	// ErrGenerationFailed indicates total failure of the generation stage.
	// The only fatal stage error: no ideas means no workflow.
	ErrGenerationFailed = errors.New("generation stage failed")
)

// ProviderError captures a structured failure from the text-generation
// provider. Type drives retry classification; RetryAfter, when set, is
// provider guidance in seconds.
type ProviderError struct {
	Provider   string    `json:"provider"`
	Message    string    `json:"message"`
	Type       ErrorType `json:"type"`
	RetryAfter int       `json:"retry_after,omitempty"`
}

// Error returns the formatted provider error.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider error (%s): %s", e.Provider, e.Type, e.Message)
}

// IsRetryable reports whether the failure is transient.
func (e *ProviderError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeNetwork, ErrorTypeProvider:
		return true
	default:
		return false
	}
}

// GetRetryAfter implements the AfterProvider interface.
func (e *ProviderError) GetRetryAfter() time.Duration {
	if e.RetryAfter > 0 {
		return time.Duration(e.RetryAfter) * time.Second
	}
	return 0
}

// RateLimitError carries rate limit context for backoff calculation.
type RateLimitError struct {
	Provider   string `json:"provider"`
	RetryAfter int    `json:"retry_after"` // Seconds to wait before retry.
	Limit      int    `json:"limit,omitempty"`
	LocalLimit bool   `json:"local_limit,omitempty"`
}

// Error returns the formatted rate limit error with retry guidance.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded for %s, retry after %d seconds", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded for %s", e.Provider)
}

// GetRetryAfter implements the AfterProvider interface.
func (e *RateLimitError) GetRetryAfter() time.Duration {
	if e.RetryAfter > 0 {
		return time.Duration(e.RetryAfter) * time.Second
	}
	return 0
}

// ParseError indicates provider text that defeated every parser fallback
// strategy. It carries the original text so the caller can substitute a
// documented fallback record; it is never raised as a panic and never
// retried (re-sending the same prompt reproduces the same malformation
// often enough that a fallback record is the cheaper recovery).
type ParseError struct {
	Message string `json:"message"`

	// Text is the original provider output, preserved for diagnostics.
	Text string `json:"text"`

	// Strategies lists the fallback transforms attempted, in order.
	Strategies []string `json:"strategies,omitempty"`
}

// Error returns the parse failure without echoing the full text.
func (e *ParseError) Error() string {
	const maxPreview = 80
	preview := e.Text
	if len(preview) > maxPreview {
		preview = preview[:maxPreview] + "..."
	}
	return fmt.Sprintf("parse failed: %s (text: %q)", e.Message, preview)
}
