// Package novelty deduplicates a generated idea batch before expensive
// downstream processing. Each item gets a cheap similarity signature (a
// content hash plus a bag of salient keywords); an item whose signature
// overlaps an earlier-kept item above the threshold is dropped. Comparisons
// are O(N²) within one batch, which is acceptable because N is bounded by
// the generation count. No external calls are made.
package novelty

import (
	"crypto/sha256"
	"strings"

	"github.com/ahrav/go-ideate/internal/domain"
)

// DefaultThreshold is the similarity above which an item is considered a
// near-duplicate of an earlier one.
const DefaultThreshold = 0.8

// minKeywordLen excludes short function words from the keyword bag.
const minKeywordLen = 4

// stopwords are common words that carry no discriminating content even at
// the minimum keyword length.
var stopwords = map[string]struct{}{
	"that": {}, "this": {}, "with": {}, "from": {}, "have": {}, "will": {},
	"would": {}, "could": {}, "should": {}, "their": {}, "there": {},
	"which": {}, "while": {}, "about": {}, "into": {}, "more": {},
	"other": {}, "also": {}, "such": {}, "them": {}, "they": {},
	"when": {}, "where": {}, "these": {}, "those": {}, "using": {},
	"based": {}, "each": {}, "than": {},
}

// signature is the cheap similarity fingerprint of one idea.
type signature struct {
	hash     [sha256.Size]byte
	keywords map[string]struct{}
}

// Filter removes near-duplicate candidates, keeping the first-seen item of
// every similar group. Order is preserved. A threshold outside (0, 1]
// falls back to DefaultThreshold.
func Filter(candidates []domain.IdeaCandidate, threshold float64) []domain.IdeaCandidate {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	if len(candidates) < 2 {
		return candidates
	}

	kept := make([]domain.IdeaCandidate, 0, len(candidates))
	keptSigs := make([]signature, 0, len(candidates))

	for _, c := range candidates {
		sig := computeSignature(c.Text)
		duplicate := false
		for i := range keptSigs {
			if similarity(sig, keptSigs[i]) >= threshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		kept = append(kept, c)
		keptSigs = append(keptSigs, sig)
	}

	return kept
}

// computeSignature builds the content hash and keyword bag for text.
func computeSignature(text string) signature {
	normalized := normalize(text)

	sig := signature{
		hash:     sha256.Sum256([]byte(normalized)),
		keywords: make(map[string]struct{}),
	}
	for _, word := range strings.Fields(normalized) {
		word = strings.Trim(word, ".,;:!?()[]{}\"'")
		if len(word) < minKeywordLen {
			continue
		}
		if _, stop := stopwords[word]; stop {
			continue
		}
		sig.keywords[word] = struct{}{}
	}
	return sig
}

// TextSimilarity scores two idea texts in [0, 1] using the same signature
// comparison the filter applies.
func TextSimilarity(a, b string) float64 {
	return similarity(computeSignature(a), computeSignature(b))
}

// similarity scores two signatures in [0, 1]. Identical normalized content
// hashes short-circuit to 1; otherwise the score is the Jaccard overlap of
// the keyword bags.
func similarity(a, b signature) float64 {
	if a.hash == b.hash {
		return 1.0
	}
	if len(a.keywords) == 0 || len(b.keywords) == 0 {
		return 0
	}

	intersection := 0
	for w := range a.keywords {
		if _, ok := b.keywords[w]; ok {
			intersection++
		}
	}
	union := len(a.keywords) + len(b.keywords) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// normalize lowercases and collapses whitespace for hashing.
func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
