package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/go-ideate/internal/cache"
	"github.com/ahrav/go-ideate/internal/domain"
	"github.com/ahrav/go-ideate/internal/llm"
	"github.com/ahrav/go-ideate/internal/llm/llmerrors"
	"github.com/ahrav/go-ideate/internal/novelty"
)

// Orchestrator drives the fixed stage pipeline over an already-composed
// provider handler. Collaborators arrive resolved through the constructor:
// the orchestrator never builds its own parser, cache, or provider, so
// there is exactly one dependency-injection boundary and no import-order
// configuration races.
type Orchestrator struct {
	handler llm.Handler
	cache   *cache.Manager // nil disables caching entirely.
	opts    Options
	logger  *slog.Logger
}

// New creates an orchestrator. The handler must already carry whatever
// middleware the caller wants (retry, rate limiting, logging); cacheMgr may
// be nil.
func New(handler llm.Handler, cacheMgr *cache.Manager, opts Options, logger *slog.Logger) (*Orchestrator, error) {
	if handler == nil {
		return nil, errors.New("handler is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		handler: handler,
		cache:   cacheMgr,
		opts:    opts,
		logger:  logger.With("component", "workflow"),
	}, nil
}

// run carries the per-invocation state: the worker pool, warning collector,
// and usage accumulator are all scoped to one Run call and never shared
// across invocations.
type run struct {
	o           *Orchestrator
	topic       string
	constraints string
	traceID     string
	pool        *workerPool
	warnings    *domain.WarningCollector

	usageMu sync.Mutex
	usage   domain.NormalizedUsage
}

// Run executes the pipeline for one topic. The stage order is fixed:
// generate → novelty-filter → evaluate → rank-and-select → advocate and
// skeptic (concurrent) → improve → re-evaluate → assemble. One global
// timeout wraps everything; on expiry, completed stages are kept and the
// rest are filled with documented fallbacks. Only total failure of the
// generation stage returns an error: no ideas means no workflow.
func (o *Orchestrator) Run(ctx context.Context, topic, constraints string) (*domain.WorkflowResult, error) {
	start := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	defer cancel()

	r := &run{
		o:           o,
		topic:       topic,
		constraints: constraints,
		traceID:     uuid.New().String(),
		pool:        newWorkerPool(o.opts.ConcurrencyLimit),
		warnings:    domain.NewWarningCollector(),
	}
	// Teardown on every exit path: success, error, and timeout alike.
	defer r.pool.Close()

	o.logger.Info("workflow started",
		"trace_id", r.traceID,
		"topic", topic,
		"candidates", o.opts.NumCandidates,
		"preset", o.opts.Preset)

	candidates, err := r.generate(runCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", llmerrors.ErrGenerationFailed, err)
	}

	if o.opts.EnableNoveltyFilter {
		before := len(candidates)
		candidates = novelty.Filter(candidates, o.opts.NoveltyThreshold)
		if dropped := before - len(candidates); dropped > 0 {
			o.logger.Info("novelty filter dropped near-duplicates",
				"trace_id", r.traceID,
				"dropped", dropped,
				"kept", len(candidates))
		}
	}

	evaluated := r.evaluate(runCtx, candidates)
	selected := selectTop(evaluated, o.opts.NumTopCandidates)

	advocacy, skepticism := r.advocateAndSkepticize(runCtx, selected)
	improved := r.improve(runCtx, selected, advocacy, skepticism)
	rescored := r.reevaluate(runCtx, selected, improved)

	result := r.assemble(selected, advocacy, skepticism, improved, rescored)
	result.Partial = runCtx.Err() != nil
	result.Elapsed = time.Since(start)

	o.logger.Info("workflow finished",
		"trace_id", r.traceID,
		"candidates", len(result.Candidates),
		"warnings", len(result.Warnings),
		"partial", result.Partial,
		"calls", result.Usage.CallsUsed,
		"total_tokens", result.Usage.TotalTokens,
		"elapsed", result.Elapsed)

	return result, nil
}

// complete issues one provider call through the worker pool, consulting the
// cache first. Cache hits cost nothing; misses are written back after a
// successful call. Cache failures are invisible here: the manager already
// degrades them to misses and no-ops.
func (r *run) complete(ctx context.Context, op llm.OperationType, prompt string, batchSize int) (string, error) {
	temperature := r.o.opts.Preset.StageTemperature(op)

	fingerprint := llm.Fingerprint(op, r.o.opts.Model, temperature, map[string]string{
		"prompt": prompt,
	})
	if r.o.cache != nil {
		if value, ok := r.o.cache.Get(ctx, fingerprint); ok {
			r.o.logger.Debug("stage served from cache",
				"trace_id", r.traceID, "operation", op)
			return value, nil
		}
	}

	req := &llm.Request{
		Operation:   op,
		Prompt:      prompt,
		Temperature: temperature,
		Model:       r.o.opts.Model,
		TraceID:     r.traceID,
		BatchSize:   batchSize,
	}

	var resp *llm.Response
	err := r.pool.Do(ctx, func() error {
		var handleErr error
		resp, handleErr = r.o.handler.Handle(ctx, req)
		return handleErr
	})
	if err != nil {
		return "", err
	}

	r.addUsage(resp.Usage)

	if r.o.cache != nil {
		r.o.cache.Set(ctx, fingerprint, resp.Content)
	}
	return resp.Content, nil
}

// addUsage accumulates call usage plus its cost estimate.
func (r *run) addUsage(u domain.NormalizedUsage) {
	u.EstimatedCostMilliCents = u.TotalTokens * r.o.opts.CostMilliCentsPerKiloToken / 1000

	r.usageMu.Lock()
	r.usage.Add(u)
	r.usageMu.Unlock()
}

// snapshotUsage returns the accumulated usage for assembly.
func (r *run) snapshotUsage() domain.NormalizedUsage {
	r.usageMu.Lock()
	defer r.usageMu.Unlock()
	return r.usage
}
