package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/go-ideate/internal/llm/llmerrors"
)

// Metrics provides observability data collection for provider operations.
// Tag-based dimensionality keeps the interface adaptable to whatever
// monitoring backend the embedding application uses.
type Metrics interface {
	IncrementCounter(name string, tags map[string]string, value float64)
	RecordHistogram(name string, tags map[string]string, value float64)
}

// NoOpMetrics satisfies Metrics without collecting anything.
type NoOpMetrics struct{}

// NewNoOpMetrics creates a metrics collector that discards all data.
func NewNoOpMetrics() *NoOpMetrics { return &NoOpMetrics{} }

func (n *NoOpMetrics) IncrementCounter(_ string, _ map[string]string, _ float64) {}

func (n *NoOpMetrics) RecordHistogram(_ string, _ map[string]string, _ float64) {}

// loggingMiddleware captures structured logs and metrics for every provider
// call. The logger is injected at construction; nothing in this package
// configures logging implicitly.
type loggingMiddleware struct {
	logger        *slog.Logger
	metrics       Metrics
	redactPrompts bool
}

// NewLoggingMiddleware creates observability middleware around provider
// calls. A nil logger falls back to slog.Default; a nil metrics collector
// falls back to NoOpMetrics.
func NewLoggingMiddleware(logger *slog.Logger, metrics Metrics, redactPrompts bool) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewNoOpMetrics()
	}

	lm := &loggingMiddleware{
		logger:        logger.With("component", "llm"),
		metrics:       metrics,
		redactPrompts: redactPrompts,
	}
	return lm.middleware
}

func (m *loggingMiddleware) middleware(next Handler) Handler {
	return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
		requestID := req.TraceID
		if requestID == "" {
			requestID = uuid.New().String()
		}

		tags := map[string]string{
			"operation": string(req.Operation),
			"model":     req.Model,
		}

		m.logger.Debug("provider request",
			"request_id", requestID,
			"operation", req.Operation,
			"model", req.Model,
			"temperature", req.Temperature,
			"batch_size", req.BatchSize,
			"prompt_len", len(req.Prompt),
			"prompt", m.promptForLog(req.Prompt))

		m.metrics.IncrementCounter("llm.requests.total", tags, 1)

		start := time.Now()
		resp, err := next.Handle(ctx, req)
		duration := time.Since(start)

		m.metrics.RecordHistogram("llm.request.duration_ms", tags, float64(duration.Milliseconds()))

		if err != nil {
			errTags := map[string]string{
				"operation": string(req.Operation),
				"model":     req.Model,
				"type":      string(llmerrors.Classify(err)),
			}
			m.metrics.IncrementCounter("llm.requests.errors", errTags, 1)
			m.logger.Warn("provider request failed",
				"request_id", requestID,
				"operation", req.Operation,
				"duration_ms", duration.Milliseconds(),
				"error_type", llmerrors.Classify(err),
				"error", err)
			return resp, err
		}

		m.metrics.IncrementCounter("llm.tokens.total", tags, float64(resp.Usage.TotalTokens))
		m.logger.Debug("provider request completed",
			"request_id", requestID,
			"operation", req.Operation,
			"duration_ms", duration.Milliseconds(),
			"content_len", len(resp.Content),
			"total_tokens", resp.Usage.TotalTokens,
			"from_cache", resp.FromCache)

		return resp, nil
	})
}

// promptForLog truncates or redacts prompt text for log output.
func (m *loggingMiddleware) promptForLog(prompt string) string {
	if m.redactPrompts {
		return "[redacted]"
	}
	const maxLogged = 200
	if len(prompt) > maxLogged {
		return prompt[:maxLogged] + "..."
	}
	return prompt
}
