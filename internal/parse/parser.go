// Package parse extracts structured records from free-form provider text.
// Provider output should contain one JSON record, or an array of them for a
// batched call, but routinely arrives wrapped in markdown fences, padded
// with prose, missing commas between adjacent objects, or annotated with
// inline comments after numeric fields. The parser applies an ordered chain
// of pure text transforms, retrying a structural parse after each; the
// first transform that yields a valid parse wins. Total failure returns a
// typed ParseError carrying the original text so the caller can substitute
// a fallback record. Nothing in this package panics on malformed input.
package parse

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/ahrav/go-ideate/internal/llm/llmerrors"
)

// strategy is one pure text transform in the fallback chain.
type strategy struct {
	name  string
	apply func(string) string
}

// strategies is the ordered fallback chain. Each transform feeds the next,
// so later strategies see the accumulated cleanup of earlier ones.
var strategies = []strategy{
	{"strip_code_fences", stripCodeFences},
	{"extract_structure", extractStructure},
	{"insert_missing_commas", insertMissingCommas},
	{"strip_inline_comments", stripInlineComments},
}

// Records decodes provider text into a slice of T. A bare object is
// accepted as a one-element batch. Numeric fields accept integer and
// floating-point forms alike; json handles both through float64 targets.
func Records[T any](text string) ([]T, error) {
	candidate := text
	attempted := make([]string, 0, len(strategies)+1)
	attempted = append(attempted, "raw")

	if records, ok := tryDecode[T](candidate); ok {
		return records, nil
	}

	for _, s := range strategies {
		transformed := s.apply(candidate)
		attempted = append(attempted, s.name)
		if transformed == candidate {
			continue
		}
		candidate = transformed
		if records, ok := tryDecode[T](candidate); ok {
			return records, nil
		}
	}

	return nil, &llmerrors.ParseError{
		Message:    "no fallback strategy yielded a structural parse",
		Text:       text,
		Strategies: attempted,
	}
}

// One decodes provider text expected to contain exactly one record.
func One[T any](text string) (T, error) {
	var zero T
	records, err := Records[T](text)
	if err != nil {
		return zero, err
	}
	if len(records) == 0 {
		return zero, &llmerrors.ParseError{Message: "parsed without records", Text: text}
	}
	return records[0], nil
}

// tryDecode attempts a structural parse as an array first, then as a single
// object wrapped into a one-element batch.
func tryDecode[T any](text string) ([]T, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, false
	}

	var records []T
	if err := json.Unmarshal([]byte(trimmed), &records); err == nil {
		return records, true
	}

	var single T
	if err := json.Unmarshal([]byte(trimmed), &single); err == nil {
		return []T{single}, true
	}

	return nil, false
}

var (
	fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

	// Adjacent objects or arrays with the separating comma dropped, most
	// common when the content between them is non-ASCII.
	missingObjectCommaRe = regexp.MustCompile(`\}\s*\{`)
	missingArrayCommaRe  = regexp.MustCompile(`\]\s*\[`)

	// A comment trailing a numeric value, e.g. `"score": 7 // solid`.
	inlineCommentRe = regexp.MustCompile(`(:\s*-?\d+(?:\.\d+)?)\s*(?://|#)[^\n\r]*`)
)

// stripCodeFences unwraps the first markdown code block, if any.
func stripCodeFences(text string) string {
	if m := fenceRe.FindStringSubmatch(text); len(m) > 1 {
		return m[1]
	}
	return text
}

// extractStructure trims prose outside the outermost braces or brackets.
// A leading '[' wins over '{' so batched arrays keep all their elements.
func extractStructure(text string) string {
	objStart := strings.Index(text, "{")
	arrStart := strings.Index(text, "[")

	start, closing := objStart, "}"
	if arrStart != -1 && (objStart == -1 || arrStart < objStart) {
		start, closing = arrStart, "]"
	}

	if start == -1 {
		return text
	}
	end := strings.LastIndex(text, closing)
	if end <= start {
		return text
	}
	return text[start : end+1]
}

// insertMissingCommas repairs dropped separators between adjacent records.
func insertMissingCommas(text string) string {
	text = missingObjectCommaRe.ReplaceAllString(text, "},{")
	return missingArrayCommaRe.ReplaceAllString(text, "],[")
}

// stripInlineComments removes commentary trailing a numeric field value.
func stripInlineComments(text string) string {
	return inlineCommentRe.ReplaceAllString(text, "$1")
}
