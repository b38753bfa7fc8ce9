package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint_Deterministic(t *testing.T) {
	inputs := map[string]string{"prompt": "generate ideas", "topic": "urban farming"}

	first := Fingerprint(OpGenerate, "default", 0.7, inputs)
	second := Fingerprint(OpGenerate, "default", 0.7, inputs)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64, "sha-256 hex digest")
}

func TestFingerprint_InsertionOrderIndependent(t *testing.T) {
	a := map[string]string{"prompt": "p", "topic": "t", "constraints": "c"}
	b := map[string]string{"constraints": "c", "topic": "t", "prompt": "p"}

	assert.Equal(t,
		Fingerprint(OpEvaluate, "m", 0.3, a),
		Fingerprint(OpEvaluate, "m", 0.3, b))
}

func TestFingerprint_WhitespaceNormalized(t *testing.T) {
	base := Fingerprint(OpGenerate, "m", 0.7, map[string]string{"prompt": "generate five ideas"})

	variants := []string{
		"  generate five ideas  ",
		"generate  five\tideas",
		"generate five ideas\r\n",
	}
	for _, v := range variants {
		assert.Equal(t, base,
			Fingerprint(OpGenerate, "m", 0.7, map[string]string{"prompt": v}),
			"variant %q", v)
	}
}

func TestFingerprint_DiscriminatesInputs(t *testing.T) {
	base := Fingerprint(OpGenerate, "m", 0.7, map[string]string{"prompt": "p"})

	assert.NotEqual(t, base, Fingerprint(OpEvaluate, "m", 0.7, map[string]string{"prompt": "p"}),
		"operation is part of the key")
	assert.NotEqual(t, base, Fingerprint(OpGenerate, "other", 0.7, map[string]string{"prompt": "p"}),
		"model is part of the key")
	assert.NotEqual(t, base, Fingerprint(OpGenerate, "m", 0.8, map[string]string{"prompt": "p"}),
		"temperature is part of the key")
	assert.NotEqual(t, base, Fingerprint(OpGenerate, "m", 0.7, map[string]string{"prompt": "q"}),
		"input text is part of the key")
}

func TestFingerprint_LineBreaksPreserved(t *testing.T) {
	// Collapsing happens within lines only; joining lines would merge
	// semantically distinct inputs.
	multi := Fingerprint(OpGenerate, "m", 0.7, map[string]string{"prompt": "a\nb"})
	single := Fingerprint(OpGenerate, "m", 0.7, map[string]string{"prompt": "a b"})
	assert.NotEqual(t, multi, single)
}
