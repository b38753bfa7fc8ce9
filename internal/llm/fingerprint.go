package llm

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// CurrentCanonicalVersion defines the canonicalization format version.
// Incrementing it invalidates stale cache entries when the canonical form
// changes, preventing hash collisions between formats.
const CurrentCanonicalVersion = "v1"

// CanonicalPayload is the normalized, stable form of one logical stage
// request. It is the sole input to fingerprint hashing and must be
// deterministic across equivalent requests: identical requests across
// process restarts hit the same cache entry, regardless of map iteration
// order or whitespace variation in the inputs.
type CanonicalPayload struct {
	Operation   OperationType     `json:"operation"`
	Model       string            `json:"model"`
	Temperature float64           `json:"temperature"`
	Inputs      map[string]string `json:"inputs,omitempty"`
	Version     string            `json:"version"`
}

// Fingerprint computes the deterministic SHA-256 cache key for a stage
// request. Input values are whitespace-normalized and keys are hashed in
// sorted order, so callers may pass maps built in any insertion order.
func Fingerprint(op OperationType, model string, temperature float64, inputs map[string]string) string {
	payload := &CanonicalPayload{
		Operation:   op,
		Model:       strings.TrimSpace(model),
		Temperature: temperature,
		Version:     CurrentCanonicalVersion,
	}

	if len(inputs) > 0 {
		normalized := make(map[string]string, len(inputs))
		for k, v := range inputs {
			normalized[k] = normalizeText(v)
		}
		payload.Inputs = normalized
	}

	data, err := stableJSON(payload)
	if err != nil {
		// Marshalling a map[string]string cannot fail; keep a degraded
		// key rather than propagating an impossible error.
		data = []byte(fmt.Sprintf("%s|%s|%f", op, payload.Model, temperature))
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// normalizeText trims whitespace, normalizes line endings, and collapses
// runs of spaces so equivalent text produces identical hashes.
func normalizeText(text string) string {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.Join(lines, "\n")
}

// stableJSON produces deterministic JSON output with sorted keys at every
// nesting level.
func stableJSON(v any) ([]byte, error) {
	tmp, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	// Round-trip through any to normalize map key ordering.
	var normalized any
	if err := json.Unmarshal(tmp, &normalized); err != nil {
		return nil, err
	}

	return json.Marshal(sortKeys(normalized))
}

// sortKeys recursively sorts map keys for stable JSON output.
func sortKeys(v any) any {
	switch v := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sorted := make(map[string]any, len(v))
		for _, k := range keys {
			sorted[k] = sortKeys(v[k])
		}
		return sorted

	case []any:
		sorted := make([]any, len(v))
		for i, elem := range v {
			sorted[i] = sortKeys(elem)
		}
		return sorted

	default:
		return v
	}
}
