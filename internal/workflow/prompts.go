package workflow

import (
	"fmt"
	"strings"

	"github.com/ahrav/go-ideate/internal/domain"
)

// Prompt builders for each stage. Every builder covers the entire batch in
// one prompt so the provider call count stays O(1) in the candidate count.
// Each prompt demands a strict JSON array; the tolerant parser handles the
// provider's inevitable deviations.

// numberedIdeas renders a candidate batch as a numbered list for batched
// prompts. Numbering keeps response records aligned with input order.
func numberedIdeas(texts []string) string {
	var b strings.Builder
	for i, text := range texts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, text)
	}
	return b.String()
}

func buildGeneratePrompt(topic, constraints string, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate exactly %d distinct ideas for the following topic.\n\n", count)
	fmt.Fprintf(&b, "Topic: %s\n", topic)
	if constraints != "" {
		fmt.Fprintf(&b, "Constraints: %s\n", constraints)
	}
	b.WriteString("\nRespond with a JSON array only, one object per idea:\n")
	b.WriteString(`[{"idea": "..."}]` + "\n")
	return b.String()
}

func buildEvaluatePrompt(topic, constraints string, ideas []string, multiDimensional bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Evaluate each idea below against the topic on a 0-10 scale.\n\n")
	fmt.Fprintf(&b, "Topic: %s\n", topic)
	if constraints != "" {
		fmt.Fprintf(&b, "Constraints: %s\n", constraints)
	}
	fmt.Fprintf(&b, "\nIdeas:\n%s", numberedIdeas(ideas))
	b.WriteString("\nRespond with a JSON array only, one object per idea in the same order:\n")
	if multiDimensional {
		dims := make([]string, 0, len(domain.AllDimensions()))
		for _, d := range domain.AllDimensions() {
			dims = append(dims, fmt.Sprintf("%q: 0.0", d))
		}
		fmt.Fprintf(&b, `[{"score": 0.0, "critique": "...", "dimensions": {%s}}]`+"\n",
			strings.Join(dims, ", "))
	} else {
		b.WriteString(`[{"score": 0.0, "critique": "..."}]` + "\n")
	}
	return b.String()
}

func buildEvaluateOnePrompt(topic, constraints, idea string, multiDimensional bool) string {
	return buildEvaluatePrompt(topic, constraints, []string{idea}, multiDimensional)
}

func buildAdvocatePrompt(topic string, ideas, critiques []string) string {
	var b strings.Builder
	b.WriteString("For each idea below, argue its strongest case: why it deserves investment despite the critique.\n\n")
	fmt.Fprintf(&b, "Topic: %s\n\nIdeas with critiques:\n", topic)
	for i := range ideas {
		fmt.Fprintf(&b, "%d. Idea: %s\n   Critique: %s\n", i+1, ideas[i], critiques[i])
	}
	b.WriteString("\nRespond with a JSON array only, one object per idea in the same order:\n")
	b.WriteString(`[{"comment": "..."}]` + "\n")
	return b.String()
}

func buildSkepticPrompt(topic string, ideas, critiques []string) string {
	var b strings.Builder
	b.WriteString("For each idea below, argue the skeptic's case: risks, hidden costs, and failure modes beyond the critique.\n\n")
	fmt.Fprintf(&b, "Topic: %s\n\nIdeas with critiques:\n", topic)
	for i := range ideas {
		fmt.Fprintf(&b, "%d. Idea: %s\n   Critique: %s\n", i+1, ideas[i], critiques[i])
	}
	b.WriteString("\nRespond with a JSON array only, one object per idea in the same order:\n")
	b.WriteString(`[{"comment": "..."}]` + "\n")
	return b.String()
}

func buildImprovePrompt(topic, constraints string, ideas, critiques, advocacy, skepticism []string) string {
	var b strings.Builder
	b.WriteString("Rewrite each idea below into a stronger version that addresses the critique, keeps the advocated strengths, and answers the skeptic.\n\n")
	fmt.Fprintf(&b, "Topic: %s\n", topic)
	if constraints != "" {
		fmt.Fprintf(&b, "Constraints: %s\n", constraints)
	}
	b.WriteString("\n")
	for i := range ideas {
		fmt.Fprintf(&b, "%d. Idea: %s\n   Critique: %s\n   Advocacy: %s\n   Skepticism: %s\n",
			i+1, ideas[i], critiques[i], advocacy[i], skepticism[i])
	}
	b.WriteString("\nRespond with a JSON array only, one object per idea in the same order:\n")
	b.WriteString(`[{"improved_idea": "..."}]` + "\n")
	return b.String()
}

// buildReevaluatePrompt scores improved ideas against the original topic and
// constraints only. Advocacy and skepticism text must not appear here: a
// second score taken against stage commentary would reinforce its own bias.
func buildReevaluatePrompt(topic, constraints string, improvedIdeas []string) string {
	var b strings.Builder
	b.WriteString("Evaluate each idea below against the topic on a 0-10 scale.\n\n")
	fmt.Fprintf(&b, "Topic: %s\n", topic)
	if constraints != "" {
		fmt.Fprintf(&b, "Constraints: %s\n", constraints)
	}
	fmt.Fprintf(&b, "\nIdeas:\n%s", numberedIdeas(improvedIdeas))
	b.WriteString("\nRespond with a JSON array only, one object per idea in the same order:\n")
	b.WriteString(`[{"score": 0.0, "critique": "..."}]` + "\n")
	return b.String()
}
