package retry

import (
	"math/rand/v2"
	"time"
)

// ExponentialBackoff calculates the delay before retrying attempt+1.
// The schedule is InitialInterval * Multiplier^(attempt-1) capped at
// MaxInterval, with optional full jitter (uniform over [0, backoff]).
// Thread-safe via math/rand/v2. Returns zero for non-positive attempts.
func ExponentialBackoff(attempt int, cfg Config) time.Duration {
	if attempt <= 0 {
		return 0
	}

	backoff := cfg.InitialInterval
	if backoff <= 0 {
		backoff = time.Millisecond // Minimum 1ms to prevent a hot loop.
	}

	for i := 1; i < attempt; i++ {
		multiplier := cfg.Multiplier
		if multiplier < 1.0 {
			multiplier = 1.0
		}
		backoff = time.Duration(float64(backoff) * multiplier)
		if backoff > cfg.MaxInterval {
			backoff = cfg.MaxInterval
			break
		}
	}

	if cfg.UseJitter {
		// Full jitter: uniform between 0 and the computed backoff.
		jitterMs := rand.Int64N(backoff.Milliseconds() + 1) // #nosec G404 -- non-cryptographic jitter
		return time.Duration(jitterMs) * time.Millisecond
	}

	return backoff
}
