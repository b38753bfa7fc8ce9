package llm

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ahrav/go-ideate/internal/domain"
	"github.com/ahrav/go-ideate/internal/llm/llmerrors"
)

// Handler processes completion requests. It is the core abstraction the
// middleware chain wraps: retry, rate limiting, and logging all compose
// around it without knowing what sits underneath.
type Handler interface {
	Handle(ctx context.Context, req *Request) (*Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, *Request) (*Response, error)

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Middleware transforms a Handler into an enhanced Handler.
// Applied in reverse order with the last middleware closest to the core
// handler, enabling layered request processing.
type Middleware func(Handler) Handler

// Chain builds a middleware pipeline around a core handler. Middleware
// executes in the order provided with the first middleware outermost.
func Chain(h Handler, middlewares ...Middleware) Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// CompletionFunc is the external provider contract: prompt and temperature
// in, completion text out. It may be slow, may return malformed text, may
// rate-limit, and may fail transiently. No other behavior is assumed.
type CompletionFunc func(ctx context.Context, prompt string, temperature float64) (string, error)

// tokenEstimateDivisor approximates tokens from rune count when the
// provider reports no usage. Four runes per token is the usual rough rate
// for English prose.
const tokenEstimateDivisor = 4

// NewProviderHandler wraps a CompletionFunc as the core Handler.
// It applies the per-request timeout, measures latency, estimates token
// usage, and rejects empty completions.
func NewProviderHandler(complete CompletionFunc) Handler {
	return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
		reqCtx := ctx
		if req.Timeout > 0 {
			var cancel context.CancelFunc
			reqCtx, cancel = context.WithTimeout(ctx, req.Timeout)
			defer cancel()
		}

		start := time.Now()
		content, err := complete(reqCtx, req.Prompt, req.Temperature)
		latency := time.Since(start)
		if err != nil {
			return nil, err
		}

		if strings.TrimSpace(content) == "" {
			return nil, llmerrors.ErrEmptyCompletion
		}

		return &Response{
			Content:   content,
			LatencyMs: latency.Milliseconds(),
			Usage: domain.NormalizedUsage{
				PromptTokens:     estimateTokens(req.Prompt),
				CompletionTokens: estimateTokens(content),
				TotalTokens:      estimateTokens(req.Prompt) + estimateTokens(content),
				CallsUsed:        1,
			},
		}, nil
	})
}

// estimateTokens approximates the token count of text.
func estimateTokens(text string) int64 {
	runes := utf8.RuneCountInString(text)
	return int64((runes + tokenEstimateDivisor - 1) / tokenEstimateDivisor)
}
