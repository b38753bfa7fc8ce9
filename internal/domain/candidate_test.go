package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdeaCandidate_Validate(t *testing.T) {
	tests := []struct {
		name      string
		candidate IdeaCandidate
		wantErr   bool
	}{
		{
			name:      "valid",
			candidate: IdeaCandidate{ID: "c1", Text: "solar kiosks", Origin: StageGenerate},
		},
		{
			name:      "missing id",
			candidate: IdeaCandidate{Text: "solar kiosks"},
			wantErr:   true,
		},
		{
			name:      "empty text",
			candidate: IdeaCandidate{ID: "c1"},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.candidate.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestScoreHelpers(t *testing.T) {
	assert.True(t, ValidScore(0))
	assert.True(t, ValidScore(10))
	assert.True(t, ValidScore(7.5))
	assert.False(t, ValidScore(-0.1))
	assert.False(t, ValidScore(10.1))

	assert.Equal(t, 0.0, ClampScore(-3))
	assert.Equal(t, 10.0, ClampScore(42))
	assert.Equal(t, 6.5, ClampScore(6.5))
}

func TestProcessedCandidate_RecomputeDelta(t *testing.T) {
	p := ProcessedCandidate{
		EvaluatedCandidate: EvaluatedCandidate{Score: 6},
		ImprovedScore:      8.5,
	}
	p.RecomputeDelta()
	assert.InDelta(t, 2.5, p.ScoreDelta, 1e-9)

	p.ImprovedScore = 4
	p.RecomputeDelta()
	assert.InDelta(t, -2, p.ScoreDelta, 1e-9)
}

func TestProcessedCandidate_Fallbacks(t *testing.T) {
	var p ProcessedCandidate
	assert.False(t, p.UsedFallback())

	p.MarkFallback("advocacy")
	p.MarkFallback("advocacy") // Idempotent.
	p.MarkFallback("improved_idea")
	assert.Equal(t, []string{"advocacy", "improved_idea"}, p.FallbackFields)
	assert.True(t, p.UsedFallback())

	sentinel := ProcessedCandidate{
		EvaluatedCandidate: EvaluatedCandidate{ScoreFallback: true},
	}
	assert.True(t, sentinel.UsedFallback())
}

func TestAllDimensions(t *testing.T) {
	dims := AllDimensions()
	require.Len(t, dims, 7)

	seen := make(map[Dimension]struct{}, len(dims))
	for _, d := range dims {
		seen[d] = struct{}{}
	}
	assert.Len(t, seen, 7, "dimensions are distinct")
	assert.Equal(t, DimNovelty, dims[0])
}

func TestNormalizedUsage_Add(t *testing.T) {
	u := NormalizedUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15, CallsUsed: 1, EstimatedCostMilliCents: 2}
	u.Add(NormalizedUsage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5, CallsUsed: 1, EstimatedCostMilliCents: 1})

	assert.Equal(t, int64(13), u.PromptTokens)
	assert.Equal(t, int64(7), u.CompletionTokens)
	assert.Equal(t, int64(20), u.TotalTokens)
	assert.Equal(t, int64(2), u.CallsUsed)
	assert.Equal(t, int64(3), u.EstimatedCostMilliCents)
}

func TestWarningCollector(t *testing.T) {
	wc := NewWarningCollector()
	assert.Zero(t, wc.Len())
	assert.Empty(t, wc.Events())

	wc.Add(StageEvaluate, "c1", "batch failed", ErrNoCandidates)
	wc.Add(StageImprove, "", "unparseable", nil)

	events := wc.Events()
	require.Len(t, events, 2)
	assert.Equal(t, StageEvaluate, events[0].Stage)
	assert.Equal(t, "c1", events[0].CandidateID)
	assert.Equal(t, "batch failed", events[0].Reason)
	assert.Equal(t, StageImprove, events[1].Stage)

	// Events returns a copy; mutating it does not affect the collector.
	events[0].Reason = "mutated"
	assert.Equal(t, "batch failed", wc.Events()[0].Reason)
}
