// Package domain provides the core types for the idea refinement pipeline.
// It defines idea candidates at each stage of processing, the assembled
// workflow result, usage accounting, and the warning side channel used to
// report substituted fallback data. Types here are pure data: no provider,
// cache, or scheduling concerns leak into this package.
package domain

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Score bounds for all evaluation stages.
const (
	// MinScore is the lowest valid evaluation score.
	MinScore = 0.0

	// MaxScore is the highest valid evaluation score.
	MaxScore = 10.0

	// SentinelScore is substituted when evaluation output cannot be parsed.
	// A sentinel plus a recorded warning replaces the score; parse failures
	// never abort a batch.
	SentinelScore = 0.0
)

// Common candidate errors returned by domain operations.
var (
	// ErrEmptyIdea indicates a candidate with no idea text.
	ErrEmptyIdea = errors.New("idea text cannot be empty")

	// ErrScoreOutOfRange indicates a score outside [MinScore, MaxScore].
	ErrScoreOutOfRange = errors.New("score out of range")

	// ErrNoCandidates indicates an operation over an empty candidate set.
	ErrNoCandidates = errors.New("no candidates")
)

// validate is the shared validator instance for domain types.
var validate = validator.New()

// Stage identifies one named step of the fixed pipeline.
type Stage string

// Pipeline stages in execution order.
const (
	StageGenerate   Stage = "generate"
	StageNovelty    Stage = "novelty_filter"
	StageEvaluate   Stage = "evaluate"
	StageSelect     Stage = "select"
	StageAdvocate   Stage = "advocate"
	StageSkeptic    Stage = "skeptic"
	StageImprove    Stage = "improve"
	StageReevaluate Stage = "reevaluate"
	StageAssemble   Stage = "assemble"
)

// Dimension represents one rubric aspect for multi-dimensional evaluation.
type Dimension string

// The fixed set of evaluation dimensions. Multi-dimensional evaluation is an
// optional sub-shape of the evaluate stage; the overall score stays
// authoritative and dimensions are advisory annotations.
const (
	DimNovelty           Dimension = "novelty"
	DimFeasibility       Dimension = "feasibility"
	DimImpact            Dimension = "impact"
	DimCostEffectiveness Dimension = "cost_effectiveness"
	DimScalability       Dimension = "scalability"
	DimSafety            Dimension = "safety"
	DimAlignment         Dimension = "alignment"
)

// AllDimensions lists every rubric dimension in canonical order.
func AllDimensions() []Dimension {
	return []Dimension{
		DimNovelty,
		DimFeasibility,
		DimImpact,
		DimCostEffectiveness,
		DimScalability,
		DimSafety,
		DimAlignment,
	}
}

// IdeaCandidate is a raw idea produced by the generation stage.
// Candidates are mutated in place as they pass through downstream stages and
// become immutable once included in a WorkflowResult.
type IdeaCandidate struct {
	// ID uniquely identifies the candidate within one invocation.
	ID string `json:"id" validate:"required"`

	// Text is the idea itself.
	Text string `json:"text" validate:"required,min=1"`

	// Origin records the stage that produced the text.
	Origin Stage `json:"origin"`
}

// Validate checks structural validity of the candidate.
func (c *IdeaCandidate) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid candidate: %w", err)
	}
	return nil
}

// EvaluatedCandidate is an IdeaCandidate annotated with an evaluation score,
// critique, and optional per-dimension sub-scores.
type EvaluatedCandidate struct {
	IdeaCandidate

	// Score is the overall evaluation in [MinScore, MaxScore].
	Score float64 `json:"score" validate:"min=0,max=10"`

	// Critique explains the score.
	Critique string `json:"critique"`

	// Dimensions holds optional per-dimension sub-scores.
	Dimensions map[Dimension]float64 `json:"dimensions,omitempty"`

	// Rank is the candidate's position after rank-and-select, 1-based.
	// The assembled result preserves this order regardless of the
	// completion order of later stages.
	Rank int `json:"rank"`

	// ScoreFallback marks the score as a sentinel substituted after a
	// parse or provider failure, so consumers can distinguish genuine
	// low scores from failures.
	ScoreFallback bool `json:"score_fallback,omitempty"`
}

// ValidScore reports whether s lies within the evaluation scale.
func ValidScore(s float64) bool { return s >= MinScore && s <= MaxScore }

// ClampScore forces s into [MinScore, MaxScore].
func ClampScore(s float64) float64 {
	if s < MinScore {
		return MinScore
	}
	if s > MaxScore {
		return MaxScore
	}
	return s
}

// ProcessedCandidate is the fully refined form of a candidate: advocacy and
// skepticism commentary, an improved idea, and a re-evaluation of the
// improvement against the original context.
type ProcessedCandidate struct {
	EvaluatedCandidate

	// Advocacy argues for the idea's strengths.
	Advocacy string `json:"advocacy"`

	// Skepticism argues the idea's weaknesses and risks.
	Skepticism string `json:"skepticism"`

	// ImprovedIdea is the rewritten idea addressing the critique.
	ImprovedIdea string `json:"improved_idea"`

	// ImprovedScore is the re-evaluation of ImprovedIdea against the
	// original topic and constraints.
	ImprovedScore float64 `json:"improved_score"`

	// ScoreDelta is always ImprovedScore - Score, recomputed at assembly.
	ScoreDelta float64 `json:"score_delta"`

	// FallbackFields names the fields populated with documented fallback
	// text after a stage failure (e.g. "advocacy", "improved_idea").
	FallbackFields []string `json:"fallback_fields,omitempty"`
}

// RecomputeDelta refreshes ScoreDelta from the current scores.
// The delta is never stored stale; assembly calls this unconditionally.
func (p *ProcessedCandidate) RecomputeDelta() {
	p.ScoreDelta = p.ImprovedScore - p.Score
}

// MarkFallback records that field was populated with fallback data.
func (p *ProcessedCandidate) MarkFallback(field string) {
	for _, f := range p.FallbackFields {
		if f == field {
			return
		}
	}
	p.FallbackFields = append(p.FallbackFields, field)
}

// UsedFallback reports whether any field of the candidate carries
// substituted fallback data.
func (p *ProcessedCandidate) UsedFallback() bool {
	return p.ScoreFallback || len(p.FallbackFields) > 0
}
