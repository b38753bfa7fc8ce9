// Package retry implements bounded retries with exponential backoff for
// provider calls. It wraps one logical call: transient failures are retried
// up to the configured attempt limit, permanent failures return immediately,
// and exhaustion surfaces a single wrapped error that the workflow converts
// into a documented fallback record plus a warning event. Retried calls are
// safe to repeat: the provider call is a pure function of prompt and
// temperature, so no retry duplicates a side-effecting write.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahrav/go-ideate/internal/llm"
	"github.com/ahrav/go-ideate/internal/llm/llmerrors"
)

var (
	// Configuration validation errors.
	errMaxAttemptsInvalid     = errors.New("maxAttempts must be greater than 0")
	errInitialIntervalInvalid = errors.New("initialInterval must be greater than 0")
	errMaxIntervalInvalid     = errors.New("maxInterval must be >= initialInterval")
	errMultiplierInvalid      = errors.New("multiplier must be >= 1.0")

	// Runtime errors.
	errContextCancelledBeforeRetry = errors.New("context cancelled before retry")
	errContextCancelledDuringRetry = errors.New("context cancelled during retry")
	errAllRetriesExhausted         = errors.New("all retries exhausted")
)

// Config controls retry behavior for failed provider operations.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int `json:"max_attempts"`

	// InitialInterval is the backoff base: attempt n waits
	// InitialInterval * Multiplier^(n-1), capped at MaxInterval.
	InitialInterval time.Duration `json:"initial_interval"`

	// MaxInterval caps the computed backoff.
	MaxInterval time.Duration `json:"max_interval"`

	// Multiplier is the exponential growth factor.
	Multiplier float64 `json:"multiplier"`

	// UseJitter enables full-jitter randomization of the backoff.
	UseJitter bool `json:"use_jitter"`
}

// DefaultConfig returns production retry settings: three attempts with a
// one-second base, doubling, capped at thirty seconds, with jitter.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     3,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
		UseJitter:       true,
	}
}

// retryMiddleware implements retry logic around a single handler call.
type retryMiddleware struct {
	config Config
	logger *slog.Logger
	stats  *Stats
}

// NewMiddleware creates retry middleware with the given configuration.
// The logger records one event per attempt and exactly one warning per
// exhausted call; stats may be nil when counters are not wanted.
func NewMiddleware(cfg Config, logger *slog.Logger, stats *Stats) (llm.Middleware, error) {
	if cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("%w, got %d", errMaxAttemptsInvalid, cfg.MaxAttempts)
	}
	if cfg.InitialInterval <= 0 {
		return nil, fmt.Errorf("%w, got %v", errInitialIntervalInvalid, cfg.InitialInterval)
	}
	if cfg.MaxInterval < cfg.InitialInterval {
		return nil, fmt.Errorf("%w, MaxInterval: %v, InitialInterval: %v",
			errMaxIntervalInvalid, cfg.MaxInterval, cfg.InitialInterval)
	}
	if cfg.Multiplier < 1.0 {
		return nil, fmt.Errorf("%w, got %f", errMultiplierInvalid, cfg.Multiplier)
	}

	if logger == nil {
		logger = slog.Default()
	}
	if stats == nil {
		stats = &Stats{}
	}

	rm := &retryMiddleware{
		config: cfg,
		logger: logger.With("component", "retry"),
		stats:  stats,
	}
	return rm.middleware, nil
}

func (r *retryMiddleware) middleware(next llm.Handler) llm.Handler {
	return llm.HandlerFunc(func(ctx context.Context, req *llm.Request) (*llm.Response, error) {
		// Fail fast if the invocation deadline already expired.
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", errContextCancelledBeforeRetry, ctx.Err())
		default:
		}

		var lastErr error

		for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
			resp, err := next.Handle(ctx, req)
			r.stats.totalAttempts.Add(1)

			if err == nil {
				if attempt > 1 {
					r.stats.successfulRetries.Add(1)
					r.logger.Info("request succeeded after retry",
						"attempt", attempt,
						"operation", req.Operation,
						"model", req.Model)
				} else {
					r.stats.successfulFirstAttempts.Add(1)
				}
				return resp, nil
			}

			if !llmerrors.IsRetryable(err) {
				r.logger.Debug("non-retryable error",
					"error", err,
					"attempt", attempt,
					"operation", req.Operation)
				return nil, err
			}

			lastErr = err

			if attempt == r.config.MaxAttempts {
				break
			}

			backoff := r.calculateBackoff(attempt, err)
			r.logger.Debug("retrying after backoff",
				"attempt", attempt,
				"backoff", backoff,
				"error", err,
				"operation", req.Operation)

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", errContextCancelledDuringRetry, ctx.Err())
			}
		}

		// Exhausted. One warning event per failed call, never one per attempt.
		r.stats.failedRetries.Add(1)
		r.logger.Warn("retries exhausted",
			"attempts", r.config.MaxAttempts,
			"operation", req.Operation,
			"error", lastErr)
		return nil, fmt.Errorf("%w after %d attempts: %w",
			errAllRetriesExhausted, r.config.MaxAttempts, lastErr)
	})
}

// calculateBackoff computes the wait before the next attempt, preferring
// provider retry-after guidance over the exponential schedule.
func (r *retryMiddleware) calculateBackoff(attempt int, err error) time.Duration {
	if after := llmerrors.GetRetryAfter(err); after > 0 {
		if after > r.config.MaxInterval {
			return r.config.MaxInterval
		}
		return after
	}
	return ExponentialBackoff(attempt, r.config)
}
