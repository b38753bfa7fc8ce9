// Package ideate refines free-form topics into ranked, improved idea
// candidates through a fixed multi-stage pipeline over a text-generation
// provider: generate, deduplicate, evaluate, select, argue for and against,
// improve, and re-evaluate. The provider stays a black box behind a single
// completion function; resilience (retry, rate limiting, caching) and
// observability are layered around it as middleware.
package ideate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ahrav/go-ideate/internal/cache"
	"github.com/ahrav/go-ideate/internal/domain"
	"github.com/ahrav/go-ideate/internal/llm"
	"github.com/ahrav/go-ideate/internal/llm/ratelimit"
	"github.com/ahrav/go-ideate/internal/llm/retry"
	"github.com/ahrav/go-ideate/internal/workflow"
)

// Re-exported result types so callers never import internal packages.
type (
	// Result is the complete outcome of one pipeline invocation.
	Result = domain.WorkflowResult

	// Candidate is one fully processed idea in a Result.
	Candidate = domain.ProcessedCandidate

	// Warning documents one degradation that occurred during a run.
	Warning = domain.WarningEvent

	// Usage aggregates token, call, and cost counters for a run.
	Usage = domain.NormalizedUsage

	// Options configure a pipeline invocation.
	Options = workflow.Options

	// CompletionFunc is the provider contract: given a prompt and a
	// sampling temperature, return the completion text.
	CompletionFunc = llm.CompletionFunc
)

// Temperature presets, from most deterministic to most exploratory.
const (
	PresetConservative = workflow.PresetConservative
	PresetBalanced     = workflow.PresetBalanced
	PresetCreative     = workflow.PresetCreative
	PresetWild         = workflow.PresetWild
)

// DefaultOptions returns a balanced production configuration.
func DefaultOptions() Options { return workflow.DefaultOptions() }

// Config assembles an Engine. Only Complete is mandatory; everything else
// has working defaults.
type Config struct {
	// Complete is the provider completion function. Required.
	Complete CompletionFunc

	// Options configure the pipeline; zero value selects defaults.
	Options Options

	// Redis enables response caching when non-nil. The Engine does not
	// own the client and never closes it.
	Redis *redis.Client

	// CacheTTL overrides the default cache entry lifetime.
	CacheTTL time.Duration

	// CacheMaxEntries bounds the cache; above the bound, capacity
	// enforcement evicts the least recently used sampled entries.
	CacheMaxEntries int64

	// Retry overrides the default retry policy; zero value selects
	// defaults.
	Retry retry.Config

	// RequestsPerSecond caps the outbound provider call rate; zero
	// selects the default local limit.
	RequestsPerSecond float64

	// Logger receives structured events; nil selects slog.Default().
	Logger *slog.Logger

	// Metrics receives counters and histograms; nil selects a no-op.
	Metrics llm.Metrics

	// RedactPrompts replaces prompt text with a placeholder in logs.
	RedactPrompts bool
}

// Engine is the public entry point. It is safe for concurrent use; each
// Run carries its own per-invocation state.
type Engine struct {
	orchestrator *workflow.Orchestrator
	cache        *cache.Manager
	retryStats   *retry.Stats
	logger       *slog.Logger
}

// New builds an Engine from explicit collaborators. The middleware chain
// is fixed: logging outermost, then retry, then rate limiting, then the
// provider itself, so every retry attempt is rate limited and the logged
// latency covers the whole resilient call.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.Complete == nil {
		return nil, errors.New("completion function is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = llm.NewNoOpMetrics()
	}

	opts := cfg.Options
	if opts == (Options{}) {
		opts = DefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	retryCfg := cfg.Retry
	if retryCfg == (retry.Config{}) {
		retryCfg = retry.DefaultConfig()
	}
	retryStats := &retry.Stats{}
	retryMW, err := retry.NewMiddleware(retryCfg, logger, retryStats)
	if err != nil {
		return nil, err
	}

	rateCfg := ratelimit.Config{RequestsPerSecond: cfg.RequestsPerSecond}
	handler := newHandlerChain(cfg.Complete, logger, metrics, cfg.RedactPrompts, rateCfg, retryMW)

	var cacheMgr *cache.Manager
	if cfg.Redis != nil {
		cacheCfg := cache.DefaultConfig()
		if cfg.CacheTTL > 0 {
			cacheCfg.TTL = cfg.CacheTTL
		}
		if cfg.CacheMaxEntries > 0 {
			cacheCfg.MaxEntries = cfg.CacheMaxEntries
		}
		cacheMgr = cache.NewManager(ctx, cache.NewRedisStore(cfg.Redis), cacheCfg, logger)
	}

	orch, err := workflow.New(handler, cacheMgr, opts, logger)
	if err != nil {
		return nil, err
	}

	return &Engine{
		orchestrator: orch,
		cache:        cacheMgr,
		retryStats:   retryStats,
		logger:       logger.With("component", "engine"),
	}, nil
}

// newHandlerChain composes the resilient provider stack. Rate limiting sits
// inside retry so every attempt of a retried call waits for a token; a burst
// of retries can never bypass pacing.
func newHandlerChain(complete CompletionFunc, logger *slog.Logger, metrics llm.Metrics, redactPrompts bool, rateCfg ratelimit.Config, retryMW llm.Middleware) llm.Handler {
	return llm.Chain(
		llm.NewProviderHandler(complete),
		llm.NewLoggingMiddleware(logger, metrics, redactPrompts),
		retryMW,
		ratelimit.NewMiddleware(rateCfg, logger),
	)
}

// Run executes the pipeline for one topic. Constraints may be empty.
// On global timeout the result is partial and marked as such; an error is
// returned only when the generation stage fails entirely.
func (e *Engine) Run(ctx context.Context, topic, constraints string) (*Result, error) {
	result, err := e.orchestrator.Run(ctx, topic, constraints)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		// Best effort; a failed sweep only delays eviction.
		e.cache.EnforceCapacity(ctx)
	}
	return result, nil
}

// RetryStats reports retry middleware counters accumulated since
// construction.
func (e *Engine) RetryStats() retry.Snapshot { return e.retryStats.Snapshot() }

// CacheStats reports cache hit, miss, and error counters. The zero value
// is returned when caching is disabled.
func (e *Engine) CacheStats() cache.Stats {
	if e.cache == nil {
		return cache.Stats{}
	}
	return e.cache.Stats()
}
