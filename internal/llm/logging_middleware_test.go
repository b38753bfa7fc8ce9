package llm

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-ideate/internal/domain"
)

// recordingMetrics captures counter and histogram calls for assertions.
type recordingMetrics struct {
	mu         sync.Mutex
	counters   map[string]float64
	histograms map[string][]float64
	tags       map[string]map[string]string
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		counters:   make(map[string]float64),
		histograms: make(map[string][]float64),
		tags:       make(map[string]map[string]string),
	}
}

func (m *recordingMetrics) IncrementCounter(name string, tags map[string]string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] += value
	m.tags[name] = tags
}

func (m *recordingMetrics) RecordHistogram(name string, tags map[string]string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms[name] = append(m.histograms[name], value)
	m.tags[name] = tags
}

func TestLoggingMiddleware_SuccessMetrics(t *testing.T) {
	metrics := newRecordingMetrics()
	mw := NewLoggingMiddleware(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), metrics, false)

	core := HandlerFunc(func(context.Context, *Request) (*Response, error) {
		return &Response{Content: "ok", Usage: domain.NormalizedUsage{TotalTokens: 42}}, nil
	})

	_, err := mw(core).Handle(context.Background(), &Request{
		Operation: OpGenerate,
		Model:     "default",
		Prompt:    "p",
	})
	require.NoError(t, err)

	assert.Equal(t, 1.0, metrics.counters["llm.requests.total"])
	assert.Equal(t, 42.0, metrics.counters["llm.tokens.total"])
	assert.Len(t, metrics.histograms["llm.request.duration_ms"], 1)
	assert.Zero(t, metrics.counters["llm.requests.errors"])
	assert.Equal(t, "generate", metrics.tags["llm.requests.total"]["operation"])
}

func TestLoggingMiddleware_ErrorMetricsAndWarnLog(t *testing.T) {
	metrics := newRecordingMetrics()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	mw := NewLoggingMiddleware(logger, metrics, false)

	core := HandlerFunc(func(context.Context, *Request) (*Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	})

	_, err := mw(core).Handle(context.Background(), &Request{Operation: OpEvaluate})
	require.Error(t, err)

	assert.Equal(t, 1.0, metrics.counters["llm.requests.errors"])
	assert.Equal(t, "network", metrics.tags["llm.requests.errors"]["type"])
	assert.Contains(t, buf.String(), "provider request failed")
}

func TestLoggingMiddleware_RedactsPrompts(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	mw := NewLoggingMiddleware(logger, nil, true)

	core := HandlerFunc(func(context.Context, *Request) (*Response, error) {
		return &Response{Content: "ok"}, nil
	})

	_, err := mw(core).Handle(context.Background(), &Request{
		Operation: OpGenerate,
		Prompt:    "extremely sensitive prompt text",
	})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "[redacted]")
	assert.NotContains(t, buf.String(), "extremely sensitive")
}
