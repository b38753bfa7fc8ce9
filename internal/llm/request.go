// Package llm provides the provider abstraction for the idea pipeline:
// normalized requests and responses, a composable middleware chain for
// resilience and observability, and deterministic request fingerprinting
// for the cache layer. The text-generation provider itself stays a black
// box behind the CompletionFunc type.
package llm

import (
	"time"

	"github.com/ahrav/go-ideate/internal/domain"
)

// OperationType identifies which pipeline stage issued a request. It
// namespaces cache fingerprints, labels metrics, and tags log events.
type OperationType string

const (
	// OpGenerate produces the initial idea batch.
	OpGenerate OperationType = "generate"

	// OpEvaluate scores and critiques a candidate batch.
	OpEvaluate OperationType = "evaluate"

	// OpAdvocate argues for candidates.
	OpAdvocate OperationType = "advocate"

	// OpSkeptic argues against candidates.
	OpSkeptic OperationType = "skeptic"

	// OpImprove rewrites candidates addressing their critique.
	OpImprove OperationType = "improve"

	// OpReevaluate scores improved candidates against the original context.
	OpReevaluate OperationType = "reevaluate"
)

// Request is a normalized, provider-agnostic completion request.
// One request may cover an entire candidate batch: stages batch many logical
// items into a single prompt wherever possible, keeping provider calls O(1)
// in the number of candidates.
type Request struct {
	// Operation names the issuing stage.
	Operation OperationType `json:"operation"`

	// Prompt is the full rendered prompt text.
	Prompt string `json:"prompt"`

	// Temperature controls sampling creativity for this stage.
	Temperature float64 `json:"temperature"`

	// Model identifies the provider model; part of the cache fingerprint.
	Model string `json:"model"`

	// TraceID correlates all requests of one invocation.
	TraceID string `json:"trace_id,omitempty"`

	// BatchSize is the number of logical items covered by this request.
	BatchSize int `json:"batch_size,omitempty"`

	// Timeout is an optional per-request deadline; the invocation-wide
	// deadline still applies through the context.
	Timeout time.Duration `json:"timeout,omitempty"`

	// Metadata carries optional stage annotations for logging.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Response is the normalized provider output.
type Response struct {
	// Content is the raw completion text; structure extraction is the
	// parser's job, not the transport's.
	Content string `json:"content"`

	// Usage tracks resource consumption for this call.
	Usage domain.NormalizedUsage `json:"usage"`

	// LatencyMs is the wall-clock call duration.
	LatencyMs int64 `json:"latency_ms"`

	// FromCache marks responses served by the cache manager.
	FromCache bool `json:"from_cache,omitempty"`
}
