package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/ahrav/go-ideate/internal/domain"
	"github.com/ahrav/go-ideate/internal/llm"
	"github.com/ahrav/go-ideate/internal/parse"
)

// Fallback texts substituted when a non-fatal stage exhausts its retries.
// They are deliberately honest: downstream consumers can tell a degraded
// field from a real one without inspecting warnings.
const (
	fallbackCritique   = "Evaluation unavailable; score is a sentinel value."
	fallbackAdvocacy   = "Advocacy unavailable for this candidate."
	fallbackSkepticism = "Critical analysis unavailable for this candidate."
)

// stageText is one per-candidate textual stage output. fallback marks
// values substituted after a failed call rather than produced by the model.
type stageText struct {
	text     string
	fallback bool
}

// rescore is the re-evaluation outcome for one improved idea.
type rescore struct {
	score    float64
	fallback bool
}

func candidateTexts(candidates []domain.IdeaCandidate) []string {
	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}
	return texts
}

func selectedTexts(selected []domain.EvaluatedCandidate) (ideas, critiques []string) {
	ideas = make([]string, len(selected))
	critiques = make([]string, len(selected))
	for i, ec := range selected {
		ideas[i] = ec.Text
		critiques[i] = ec.Critique
	}
	return ideas, critiques
}

func stageTexts(texts []stageText) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = t.text
	}
	return out
}

// generate produces the initial idea pool. This is the only fatal stage:
// with zero ideas there is nothing for the rest of the pipeline to do.
func (r *run) generate(ctx context.Context) ([]domain.IdeaCandidate, error) {
	prompt := buildGeneratePrompt(r.topic, r.constraints, r.o.opts.NumCandidates)

	content, err := r.complete(ctx, llm.OpGenerate, prompt, r.o.opts.NumCandidates)
	if err != nil {
		return nil, err
	}

	records, err := parse.Records[parse.IdeaRecord](content)
	if err != nil {
		return nil, fmt.Errorf("parsing generated ideas: %w", err)
	}

	candidates := make([]domain.IdeaCandidate, 0, len(records))
	for _, rec := range records {
		idea := strings.TrimSpace(rec.Idea)
		if idea == "" {
			continue
		}
		candidates = append(candidates, domain.IdeaCandidate{
			ID:     uuid.New().String(),
			Text:   idea,
			Origin: domain.StageGenerate,
		})
	}
	if len(candidates) == 0 {
		return nil, domain.ErrNoCandidates
	}
	if len(candidates) > r.o.opts.NumCandidates {
		candidates = candidates[:r.o.opts.NumCandidates]
	}
	return candidates, nil
}

// evaluate scores the full pool in one batched call. Total batch failure
// degrades every candidate to the sentinel score; a short batch (fewer
// records than candidates) triggers bounded per-item fallback calls for
// the missing entries only.
func (r *run) evaluate(ctx context.Context, candidates []domain.IdeaCandidate) []domain.EvaluatedCandidate {
	evaluated := make([]domain.EvaluatedCandidate, len(candidates))
	for i, c := range candidates {
		evaluated[i] = domain.EvaluatedCandidate{
			IdeaCandidate: c,
			Score:         domain.SentinelScore,
			Critique:      fallbackCritique,
			ScoreFallback: true,
		}
	}

	prompt := buildEvaluatePrompt(r.topic, r.constraints, candidateTexts(candidates), r.o.opts.EnableMultiDimensional)
	content, err := r.complete(ctx, llm.OpEvaluate, prompt, len(candidates))
	if err != nil {
		r.warnStage(domain.StageEvaluate, "", "batch evaluation failed, all scores are sentinels", err)
		return evaluated
	}

	records, err := parse.Records[parse.EvaluationRecord](content)
	if err != nil {
		r.warnStage(domain.StageEvaluate, "", "batch evaluation unparseable, all scores are sentinels", err)
		return evaluated
	}

	var missing []int
	for i := range evaluated {
		if i < len(records) {
			applyEvaluation(&evaluated[i], records[i])
		} else {
			missing = append(missing, i)
		}
	}

	if len(missing) > 0 {
		r.evaluateMissing(ctx, evaluated, missing)
	}
	return evaluated
}

// evaluateMissing re-scores batch shortfalls one candidate at a time,
// bounded by the concurrency limit so a large shortfall cannot stampede
// the provider.
func (r *run) evaluateMissing(ctx context.Context, evaluated []domain.EvaluatedCandidate, missing []int) {
	forEachBounded(ctx, r.o.opts.ConcurrencyLimit, missing, func(ctx context.Context, i int) {
		prompt := buildEvaluateOnePrompt(r.topic, r.constraints, evaluated[i].Text, r.o.opts.EnableMultiDimensional)

		content, err := r.complete(ctx, llm.OpEvaluate, prompt, 1)
		if err != nil {
			r.warnStage(domain.StageEvaluate, evaluated[i].ID, "single-item evaluation failed, score is a sentinel", err)
			return
		}
		record, err := parse.One[parse.EvaluationRecord](content)
		if err != nil {
			r.warnStage(domain.StageEvaluate, evaluated[i].ID, "single-item evaluation unparseable, score is a sentinel", err)
			return
		}
		applyEvaluation(&evaluated[i], record)
	})
}

// applyEvaluation copies one parsed evaluation onto a candidate, clamping
// the score into range and keeping only known dimensions.
func applyEvaluation(ec *domain.EvaluatedCandidate, rec parse.EvaluationRecord) {
	ec.Score = domain.ClampScore(rec.Score)
	ec.Critique = strings.TrimSpace(rec.Critique)
	ec.ScoreFallback = false
	if ec.Critique == "" {
		ec.Critique = fallbackCritique
	}
	if len(rec.Dimensions) == 0 {
		return
	}

	dims := make(map[domain.Dimension]float64, len(rec.Dimensions))
	for _, d := range domain.AllDimensions() {
		if v, ok := rec.Dimensions[string(d)]; ok {
			dims[d] = domain.ClampScore(v)
		}
	}
	if len(dims) > 0 {
		ec.Dimensions = dims
	}
}

// selectTop ranks by score descending and keeps the best k. The sort is
// stable so equally-scored candidates keep generation order, which makes
// runs reproducible for a deterministic provider.
func selectTop(evaluated []domain.EvaluatedCandidate, k int) []domain.EvaluatedCandidate {
	selected := make([]domain.EvaluatedCandidate, len(evaluated))
	copy(selected, evaluated)

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Score > selected[j].Score
	})

	if k < len(selected) {
		selected = selected[:k]
	}
	for i := range selected {
		selected[i].Rank = i + 1
	}
	return selected
}

// advocateAndSkepticize runs the two commentary stages concurrently. They
// read the same inputs and write disjoint outputs, so they are safe to
// overlap; each contains its own failures as fallback texts.
func (r *run) advocateAndSkepticize(ctx context.Context, selected []domain.EvaluatedCandidate) (advocacy, skepticism []stageText) {
	advocacy = make([]stageText, len(selected))
	skepticism = make([]stageText, len(selected))

	parallel(ctx,
		func(ctx context.Context) {
			r.commentary(ctx, llm.OpAdvocate, domain.StageAdvocate, selected, advocacy, fallbackAdvocacy)
		},
		func(ctx context.Context) {
			r.commentary(ctx, llm.OpSkeptic, domain.StageSkeptic, selected, skepticism, fallbackSkepticism)
		},
	)
	return advocacy, skepticism
}

// commentary fills out one batched commentary stage (advocate or skeptic)
// into the caller-owned slice.
func (r *run) commentary(ctx context.Context, op llm.OperationType, stage domain.Stage, selected []domain.EvaluatedCandidate, out []stageText, fallbackText string) {
	for i := range out {
		out[i] = stageText{text: fallbackText, fallback: true}
	}

	ideas, critiques := selectedTexts(selected)

	var prompt string
	switch op {
	case llm.OpAdvocate:
		prompt = buildAdvocatePrompt(r.topic, ideas, critiques)
	default:
		prompt = buildSkepticPrompt(r.topic, ideas, critiques)
	}

	content, err := r.complete(ctx, op, prompt, len(selected))
	if err != nil {
		r.warnStage(stage, "", "batch commentary failed, fallback text substituted", err)
		return
	}
	records, err := parse.Records[parse.CommentaryRecord](content)
	if err != nil {
		r.warnStage(stage, "", "batch commentary unparseable, fallback text substituted", err)
		return
	}

	for i := range out {
		if i >= len(records) {
			r.warnStage(stage, selected[i].ID, "commentary missing from batch, fallback text substituted", nil)
			continue
		}
		text := strings.TrimSpace(records[i].Comment)
		if text == "" {
			r.warnStage(stage, selected[i].ID, "commentary empty in batch, fallback text substituted", nil)
			continue
		}
		out[i] = stageText{text: text}
	}
}

// improve rewrites each selected idea using its advocacy and skepticism.
// Failure keeps the original idea text so the pipeline always carries a
// usable idea forward.
func (r *run) improve(ctx context.Context, selected []domain.EvaluatedCandidate, advocacy, skepticism []stageText) []stageText {
	improved := make([]stageText, len(selected))
	for i := range improved {
		improved[i] = stageText{text: selected[i].Text, fallback: true}
	}

	ideas, critiques := selectedTexts(selected)
	prompt := buildImprovePrompt(r.topic, r.constraints, ideas, critiques, stageTexts(advocacy), stageTexts(skepticism))
	content, err := r.complete(ctx, llm.OpImprove, prompt, len(selected))
	if err != nil {
		r.warnStage(domain.StageImprove, "", "batch improvement failed, original ideas kept", err)
		return improved
	}
	records, err := parse.Records[parse.ImprovementRecord](content)
	if err != nil {
		r.warnStage(domain.StageImprove, "", "batch improvement unparseable, original ideas kept", err)
		return improved
	}

	for i := range improved {
		if i >= len(records) {
			r.warnStage(domain.StageImprove, selected[i].ID, "improvement missing from batch, original idea kept", nil)
			continue
		}
		text := strings.TrimSpace(records[i].ImprovedIdea)
		if text == "" {
			continue
		}
		improved[i] = stageText{text: text}
	}
	return improved
}

// reevaluate scores the improved ideas against the original topic and
// constraints only. Failure pins the improved score to the original so the
// delta reads as zero rather than inventing movement.
func (r *run) reevaluate(ctx context.Context, selected []domain.EvaluatedCandidate, improved []stageText) []rescore {
	rescored := make([]rescore, len(selected))
	for i := range rescored {
		rescored[i] = rescore{score: selected[i].Score, fallback: true}
	}

	ideas := stageTexts(improved)
	prompt := buildReevaluatePrompt(r.topic, r.constraints, ideas)
	content, err := r.complete(ctx, llm.OpReevaluate, prompt, len(ideas))
	if err != nil {
		r.warnStage(domain.StageReevaluate, "", "batch re-evaluation failed, original scores kept", err)
		return rescored
	}
	records, err := parse.Records[parse.EvaluationRecord](content)
	if err != nil {
		r.warnStage(domain.StageReevaluate, "", "batch re-evaluation unparseable, original scores kept", err)
		return rescored
	}

	for i := range rescored {
		if i >= len(records) {
			r.warnStage(domain.StageReevaluate, selected[i].ID, "re-evaluation missing from batch, original score kept", nil)
			continue
		}
		rescored[i] = rescore{score: domain.ClampScore(records[i].Score)}
	}
	return rescored
}

// assemble stitches the per-stage outputs into the final result, preserving
// rank order and recording which fields were degraded to fallbacks.
func (r *run) assemble(selected []domain.EvaluatedCandidate, advocacy, skepticism, improved []stageText, rescored []rescore) *domain.WorkflowResult {
	candidates := make([]domain.ProcessedCandidate, len(selected))
	for i, ec := range selected {
		pc := domain.ProcessedCandidate{
			EvaluatedCandidate: ec,
			Advocacy:           advocacy[i].text,
			Skepticism:         skepticism[i].text,
			ImprovedIdea:       improved[i].text,
			ImprovedScore:      rescored[i].score,
		}
		if ec.ScoreFallback {
			pc.MarkFallback("score")
		}
		if advocacy[i].fallback {
			pc.MarkFallback("advocacy")
		}
		if skepticism[i].fallback {
			pc.MarkFallback("skepticism")
		}
		if improved[i].fallback {
			pc.MarkFallback("improved_idea")
		}
		if rescored[i].fallback {
			pc.MarkFallback("improved_score")
		}
		pc.RecomputeDelta()
		candidates[i] = pc
	}

	return &domain.WorkflowResult{
		Topic:       r.topic,
		Constraints: r.constraints,
		Candidates:  candidates,
		Usage:       r.snapshotUsage(),
		Warnings:    r.warnings.Events(),
	}
}

// warnStage records one degradation event and logs it at Warn so operators
// see partial results as they happen, not only in the final summary.
func (r *run) warnStage(stage domain.Stage, candidateID, reason string, err error) {
	r.warnings.Add(stage, candidateID, reason, err)

	attrs := []any{"trace_id", r.traceID, "stage", stage, "reason", reason}
	if candidateID != "" {
		attrs = append(attrs, "candidate_id", candidateID)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		attrs = append(attrs, "error", err)
	}
	r.o.logger.Warn("stage degraded to fallback", attrs...)
}
