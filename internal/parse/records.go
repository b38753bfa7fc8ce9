package parse

// Record shapes expected from each pipeline stage. Field names match the
// JSON keys the stage prompts request; unexpected extra keys are ignored.

// IdeaRecord is one generated idea.
type IdeaRecord struct {
	Idea string `json:"idea"`
}

// EvaluationRecord is one scored critique. Score accepts integer and float
// forms from the provider; Dimensions is present only when the evaluation
// prompt requested the multi-dimensional rubric.
type EvaluationRecord struct {
	Score      float64            `json:"score"`
	Critique   string             `json:"critique"`
	Dimensions map[string]float64 `json:"dimensions,omitempty"`
}

// CommentaryRecord is one advocacy or skepticism argument.
type CommentaryRecord struct {
	Comment string `json:"comment"`
}

// ImprovementRecord is one rewritten idea.
type ImprovementRecord struct {
	ImprovedIdea string `json:"improved_idea"`
}
