package llmerrors

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"time"
)

// AfterProvider is implemented by error types that carry provider guidance
// about how long to wait before the next attempt.
type AfterProvider interface {
	// GetRetryAfter returns the recommended wait before the next attempt,
	// or zero when no guidance is available.
	GetRetryAfter() time.Duration
}

// IsRetryable reports whether err warrants another attempt.
// Parse errors are excluded: they recover through fallback records, not
// through re-sending the identical prompt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Parse failures take precedence; they are never retried.
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return false
	}

	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.IsRetryable()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, ErrRateLimitExceeded) || errors.Is(err, ErrProviderUnavailable) {
		return true
	}

	if isNetworkError(err) {
		return true
	}

	// An error that knows its own retry-after is asking to be retried.
	var after AfterProvider
	if errors.As(err, &after) {
		return true
	}

	// Conservative default: unknown errors are not retried.
	return false
}

// GetRetryAfter extracts provider retry guidance from err, or zero.
func GetRetryAfter(err error) time.Duration {
	if err == nil {
		return 0
	}
	var after AfterProvider
	if errors.As(err, &after) {
		return after.GetRetryAfter()
	}
	return 0
}

// Classify maps an arbitrary error onto the taxonomy.
func Classify(err error) ErrorType {
	if err == nil {
		return ErrorTypeUnknown
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return ErrorTypeParse
	}
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return ErrorTypeRateLimit
	}
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Type
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout
	}
	if isNetworkError(err) {
		return ErrorTypeNetwork
	}
	return ErrorTypeUnknown
}

// isNetworkError detects network failures with type assertions first and a
// string-pattern fallback for errors that arrive pre-flattened.
func isNetworkError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		var netErr net.Error
		if errors.As(urlErr.Err, &netErr) {
			return netErr.Timeout()
		}
		return isNetworkErrorByString(urlErr.Err.Error())
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return isNetworkErrorByString(err.Error())
}

// isNetworkErrorByString matches pre-lowercased network error indicators.
func isNetworkErrorByString(errStr string) bool {
	lowered := strings.ToLower(errStr)
	for _, indicator := range networkErrorIndicators {
		if strings.Contains(lowered, indicator) {
			return true
		}
	}
	return false
}

var networkErrorIndicators = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"network is unreachable",
	"i/o timeout",
	"eof",
}
