package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-ideate/internal/llm"
)

func TestOptions_ValidateFillsDefaults(t *testing.T) {
	var opts Options
	require.NoError(t, opts.Validate())

	assert.Equal(t, DefaultNumCandidates, opts.NumCandidates)
	assert.Equal(t, DefaultNumTopCandidates, opts.NumTopCandidates)
	assert.Equal(t, DefaultModel, opts.Model)
	assert.Equal(t, PresetBalanced, opts.Preset)
	assert.Equal(t, DefaultTimeout, opts.Timeout)
	assert.Equal(t, int64(DefaultConcurrency), opts.ConcurrencyLimit)
	assert.Equal(t, int64(DefaultCostMilliCentsPerKiloToken), opts.CostMilliCentsPerKiloToken)
}

func TestOptions_ValidateCapsTopCandidates(t *testing.T) {
	opts := DefaultOptions()
	opts.NumCandidates = 4
	opts.NumTopCandidates = 9

	require.NoError(t, opts.Validate())
	assert.Equal(t, 4, opts.NumTopCandidates, "cannot select more than were generated")
}

func TestOptions_ValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"too many candidates", func(o *Options) { o.NumCandidates = 51 }},
		{"negative candidates", func(o *Options) { o.NumCandidates = -1 }},
		{"unknown preset", func(o *Options) { o.Preset = "chaotic" }},
		{"concurrency above cap", func(o *Options) { o.ConcurrencyLimit = 65 }},
		{"threshold above one", func(o *Options) { o.NoveltyThreshold = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			assert.Error(t, opts.Validate())
		})
	}
}

func TestStageTemperature(t *testing.T) {
	for _, preset := range []TemperaturePreset{PresetConservative, PresetBalanced, PresetCreative, PresetWild} {
		gen := preset.StageTemperature(llm.OpGenerate)
		assert.Positive(t, gen, "preset %s", preset)

		assert.InDelta(t, gen*0.9, preset.StageTemperature(llm.OpImprove), 1e-9,
			"improvement runs slightly cooler than generation")
		assert.InDelta(t, 0.5, preset.StageTemperature(llm.OpAdvocate), 1e-9)
		assert.InDelta(t, 0.5, preset.StageTemperature(llm.OpSkeptic), 1e-9)
		assert.InDelta(t, 0.3, preset.StageTemperature(llm.OpEvaluate), 1e-9)
		assert.InDelta(t, 0.3, preset.StageTemperature(llm.OpReevaluate), 1e-9)
	}

	// Presets order generation creativity strictly.
	assert.Less(t,
		PresetConservative.StageTemperature(llm.OpGenerate),
		PresetBalanced.StageTemperature(llm.OpGenerate))
	assert.Less(t,
		PresetBalanced.StageTemperature(llm.OpGenerate),
		PresetCreative.StageTemperature(llm.OpGenerate))
	assert.Less(t,
		PresetCreative.StageTemperature(llm.OpGenerate),
		PresetWild.StageTemperature(llm.OpGenerate))
}

func TestOptions_TimeoutDefault(t *testing.T) {
	opts := DefaultOptions()
	opts.Timeout = 0
	require.NoError(t, opts.Validate())
	assert.Equal(t, 10*time.Minute, opts.Timeout)
}
