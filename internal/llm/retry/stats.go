package retry

import "sync/atomic"

// Stats provides thread-safe retry metrics using atomic counters.
type Stats struct {
	totalAttempts           atomic.Int64 // Every attempt across all requests.
	successfulRetries       atomic.Int64 // Requests that succeeded after retry.
	failedRetries           atomic.Int64 // Requests that failed after all retries.
	successfulFirstAttempts atomic.Int64 // Requests that succeeded immediately.
}

// Snapshot holds aggregated retry metrics for monitoring.
type Snapshot struct {
	// TotalAttempts counts every request attempt, including retries.
	TotalAttempts int64 `json:"total_attempts"`
	// SuccessfulRetries counts requests that succeeded only after retrying.
	SuccessfulRetries int64 `json:"successful_retries"`
	// FailedRetries counts requests that exhausted all attempts.
	FailedRetries int64 `json:"failed_retries"`
	// SuccessfulFirstAttempts counts requests that needed no retry.
	SuccessfulFirstAttempts int64 `json:"successful_first_attempts"`
	// AverageAttempts is attempts per request across all outcomes.
	AverageAttempts float64 `json:"average_attempts"`
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() Snapshot {
	snap := Snapshot{
		TotalAttempts:           s.totalAttempts.Load(),
		SuccessfulRetries:       s.successfulRetries.Load(),
		FailedRetries:           s.failedRetries.Load(),
		SuccessfulFirstAttempts: s.successfulFirstAttempts.Load(),
		AverageAttempts:         1.0,
	}
	if total := snap.SuccessfulFirstAttempts + snap.SuccessfulRetries + snap.FailedRetries; total > 0 {
		snap.AverageAttempts = float64(snap.TotalAttempts) / float64(total)
	}
	return snap
}
