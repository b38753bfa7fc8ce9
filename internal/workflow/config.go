// Package workflow implements the idea refinement pipeline: the fixed stage
// sequencer (generate → novelty-filter → evaluate → rank-and-select →
// advocate/skeptic → improve → re-evaluate → assemble) and the async
// coordination around it: concurrent independent sub-stages, a bounded
// worker pool for per-item fallback calls, one global timeout per
// invocation, and best-effort assembly of partial results.
package workflow

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-ideate/internal/llm"
)

// TemperaturePreset names a creativity profile. Each preset maps to a
// per-stage temperature table: generation runs hot, evaluation runs cold,
// commentary sits between.
type TemperaturePreset string

const (
	PresetConservative TemperaturePreset = "conservative"
	PresetBalanced     TemperaturePreset = "balanced"
	PresetCreative     TemperaturePreset = "creative"
	PresetWild         TemperaturePreset = "wild"
)

// generationTemperature is the preset's base creativity for idea output.
func (p TemperaturePreset) generationTemperature() float64 {
	switch p {
	case PresetConservative:
		return 0.3
	case PresetCreative:
		return 1.0
	case PresetWild:
		return 1.3
	default: // PresetBalanced and unrecognized presets.
		return 0.7
	}
}

// StageTemperature returns the sampling temperature for op under preset p.
// Evaluation stages stay cold regardless of preset so scores remain
// comparable; generative stages scale with the preset.
func (p TemperaturePreset) StageTemperature(op llm.OperationType) float64 {
	base := p.generationTemperature()
	switch op {
	case llm.OpGenerate:
		return base
	case llm.OpImprove:
		return base * 0.9
	case llm.OpAdvocate, llm.OpSkeptic:
		return 0.5
	case llm.OpEvaluate, llm.OpReevaluate:
		return 0.3
	default:
		return base
	}
}

// Default option values.
const (
	DefaultNumCandidates    = 5
	DefaultNumTopCandidates = 3
	DefaultTimeout          = 10 * time.Minute
	DefaultConcurrency      = 4
	DefaultModel            = "default"

	// DefaultCostMilliCentsPerKiloToken prices usage when the caller
	// provides no rate; cost counters are informational only.
	DefaultCostMilliCentsPerKiloToken = 15
)

// Options configure one pipeline invocation.
type Options struct {
	// NumCandidates is how many ideas the generation stage requests.
	NumCandidates int `json:"num_candidates" validate:"min=1,max=50"`

	// NumTopCandidates is how many ranked ideas continue past selection.
	// Zero selects the default, capped at NumCandidates.
	NumTopCandidates int `json:"num_top_candidates" validate:"min=0,max=50"`

	// Model identifies the provider model; part of every cache fingerprint.
	Model string `json:"model"`

	// Preset selects the per-stage temperature table.
	Preset TemperaturePreset `json:"preset"`

	// Timeout bounds the whole invocation. On expiry in-flight work is
	// cancelled cooperatively and completed stages are returned with
	// fallbacks for the rest.
	Timeout time.Duration `json:"timeout"`

	// ConcurrencyLimit caps simultaneous outbound provider calls when a
	// stage falls back to per-candidate requests.
	ConcurrencyLimit int64 `json:"concurrency_limit" validate:"min=0,max=64"`

	// EnableNoveltyFilter deduplicates generated ideas before evaluation.
	EnableNoveltyFilter bool `json:"enable_novelty_filter"`

	// NoveltyThreshold is the similarity above which a later idea is
	// dropped as a near-duplicate; zero selects the filter default.
	NoveltyThreshold float64 `json:"novelty_threshold" validate:"min=0,max=1"`

	// EnableMultiDimensional requests the seven-dimension rubric during
	// evaluation in addition to the overall score.
	EnableMultiDimensional bool `json:"enable_multi_dimensional"`

	// CostMilliCentsPerKiloToken converts token estimates into cost
	// counters; zero selects the default rate.
	CostMilliCentsPerKiloToken int64 `json:"cost_milli_cents_per_kilo_token"`
}

// DefaultOptions returns a balanced production configuration.
func DefaultOptions() Options {
	return Options{
		NumCandidates:              DefaultNumCandidates,
		NumTopCandidates:           DefaultNumTopCandidates,
		Model:                      DefaultModel,
		Preset:                     PresetBalanced,
		Timeout:                    DefaultTimeout,
		ConcurrencyLimit:           DefaultConcurrency,
		EnableNoveltyFilter:        true,
		EnableMultiDimensional:     false,
		CostMilliCentsPerKiloToken: DefaultCostMilliCentsPerKiloToken,
	}
}

var validate = validator.New()

// Validate checks option ranges and fills zero values with defaults.
func (o *Options) Validate() error {
	if o.NumCandidates == 0 {
		o.NumCandidates = DefaultNumCandidates
	}
	if o.NumTopCandidates == 0 {
		o.NumTopCandidates = DefaultNumTopCandidates
	}
	if o.NumTopCandidates > o.NumCandidates {
		o.NumTopCandidates = o.NumCandidates
	}
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.Preset == "" {
		o.Preset = PresetBalanced
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.ConcurrencyLimit <= 0 {
		o.ConcurrencyLimit = DefaultConcurrency
	}
	if o.CostMilliCentsPerKiloToken <= 0 {
		o.CostMilliCentsPerKiloToken = DefaultCostMilliCentsPerKiloToken
	}

	switch o.Preset {
	case PresetConservative, PresetBalanced, PresetCreative, PresetWild:
	default:
		return fmt.Errorf("unknown temperature preset: %q", o.Preset)
	}

	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}
