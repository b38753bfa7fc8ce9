package domain

import (
	"sync"
	"time"
)

// NormalizedUsage aggregates resource consumption across all provider calls
// of one invocation. Token counts are estimates when the provider does not
// report usage.
type NormalizedUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
	CallsUsed        int64 `json:"calls_used"`

	// EstimatedCostMilliCents tracks cost in milli-cents for precise
	// accounting without floating point drift.
	EstimatedCostMilliCents int64 `json:"estimated_cost_milli_cents"`
}

// Add accumulates other into u.
func (u *NormalizedUsage) Add(other NormalizedUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
	u.CallsUsed += other.CallsUsed
	u.EstimatedCostMilliCents += other.EstimatedCostMilliCents
}

// WorkflowResult is the final output of one pipeline invocation.
// Candidates appear in original rank order, never re-sorted by later stages.
// The result is created once per invocation and owned exclusively by the
// caller; nothing mutates it after return.
type WorkflowResult struct {
	// Topic and Constraints echo the original request context.
	Topic       string `json:"topic"`
	Constraints string `json:"constraints"`

	// Candidates holds the processed ideas in rank order.
	Candidates []ProcessedCandidate `json:"candidates"`

	// Usage aggregates token and cost counters across every provider call.
	Usage NormalizedUsage `json:"usage"`

	// Warnings lists every fallback substitution and contained failure.
	Warnings []WarningEvent `json:"warnings,omitempty"`

	// Partial is set when the global timeout fired before every stage
	// finished; missing stage output is filled with documented fallbacks.
	Partial bool `json:"partial,omitempty"`

	// Elapsed is the wall-clock duration of the invocation.
	Elapsed time.Duration `json:"elapsed"`
}

// WarningEvent records one contained failure: a fallback substitution, an
// exhausted retry, or a skipped stage. Warnings are the side channel that
// keeps per-item errors from unwinding past their stage boundary.
type WarningEvent struct {
	Stage       Stage     `json:"stage"`
	CandidateID string    `json:"candidate_id,omitempty"`
	Reason      string    `json:"reason"`
	Err         string    `json:"error,omitempty"`
	At          time.Time `json:"at"`
}

// WarningCollector gathers warning events from concurrent stage tasks.
// Safe for concurrent use; each invocation owns its own collector.
type WarningCollector struct {
	mu     sync.Mutex
	events []WarningEvent
}

// NewWarningCollector creates an empty collector.
func NewWarningCollector() *WarningCollector { return &WarningCollector{} }

// Add records a warning event.
func (w *WarningCollector) Add(stage Stage, candidateID, reason string, err error) {
	ev := WarningEvent{
		Stage:       stage,
		CandidateID: candidateID,
		Reason:      reason,
		At:          time.Now(),
	}
	if err != nil {
		ev.Err = err.Error()
	}
	w.mu.Lock()
	w.events = append(w.events, ev)
	w.mu.Unlock()
}

// Events returns a copy of the collected warnings in arrival order.
func (w *WarningCollector) Events() []WarningEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]WarningEvent, len(w.events))
	copy(out, w.events)
	return out
}

// Len reports the number of collected warnings.
func (w *WarningCollector) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.events)
}
