// Package ratelimit paces outbound provider calls with a local token-bucket
// limiter. The pipeline already bounds concurrent in-flight calls with a
// worker pool; this middleware additionally caps the sustained call rate so
// bursts of per-item fallback calls do not trip provider quotas.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-ideate/internal/llm"
	"github.com/ahrav/go-ideate/internal/llm/llmerrors"
)

// DefaultRate is the fallback sustained request rate per second when no
// configuration is provided. Conservative enough for every major provider's
// entry-level quota.
const DefaultRate = 10

// Config controls the local rate limiter.
type Config struct {
	// RequestsPerSecond is the sustained rate; zero selects DefaultRate.
	RequestsPerSecond float64 `json:"requests_per_second"`

	// Burst is the token-bucket depth; zero selects the sustained rate
	// rounded up.
	Burst int `json:"burst"`
}

// rateLimitMiddleware wraps a handler with a token-bucket limiter.
type rateLimitMiddleware struct {
	limiter *rate.Limiter
	logger  *slog.Logger
	waits   atomic.Int64
}

// NewMiddleware creates rate-limiting middleware. Calls wait for a token
// rather than failing; a cancelled context converts the wait into a
// RateLimitError so the retry layer classifies it consistently.
func NewMiddleware(cfg Config, logger *slog.Logger) llm.Middleware {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRate
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = int(math.Ceil(rps))
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := &rateLimitMiddleware{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger.With("component", "ratelimit"),
	}
	return m.middleware
}

func (m *rateLimitMiddleware) middleware(next llm.Handler) llm.Handler {
	return llm.HandlerFunc(func(ctx context.Context, req *llm.Request) (*llm.Response, error) {
		if !m.limiter.Allow() {
			reservation := m.limiter.Reserve()
			delay := reservation.Delay()

			m.logger.Debug("pacing provider call",
				"operation", req.Operation,
				"delay", delay,
				"total_waits", m.waits.Add(1))

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				reservation.Cancel()
				retryAfter := int(math.Ceil(delay.Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				return nil, fmt.Errorf("%w: %w", ctx.Err(), &llmerrors.RateLimitError{
					Provider:   "local",
					RetryAfter: retryAfter,
					LocalLimit: true,
				})
			}
		}

		return next.Handle(ctx, req)
	})
}
