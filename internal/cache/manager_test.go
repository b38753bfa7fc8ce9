package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-ideate/internal/llm/llmerrors"
)

// memStore is an in-memory Store with scripted failures and per-key idle
// times, standing in for Redis in unit tests.
type memStore struct {
	mu      sync.Mutex
	data    map[string]string
	idle    map[string]time.Duration
	pingErr error
	getErr  error
	setErr  error
	scanErr error
	sizeErr error
}

func newMemStore() *memStore {
	return &memStore{
		data: make(map[string]string),
		idle: make(map[string]time.Duration),
	}
}

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", s.getErr
	}
	val, ok := s.data[key]
	if !ok {
		return "", llmerrors.ErrCacheMiss
	}
	return val, nil
}

func (s *memStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = value
	return nil
}

// Scan walks keys in sorted order; the cursor is the index of the next key.
// This mirrors the incremental-with-wraparound contract without hashing.
func (s *memStore) Scan(_ context.Context, cursor uint64, pattern string, count int64) ([]string, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scanErr != nil {
		return nil, 0, s.scanErr
	}

	prefix := strings.TrimSuffix(pattern, "*")
	var all []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			all = append(all, k)
		}
	}
	sort.Strings(all)

	start := int(cursor)
	if start >= len(all) {
		return nil, 0, nil
	}
	end := start + int(count)
	if end >= len(all) {
		return all[start:], 0, nil
	}
	return all[start:end], uint64(end), nil
}

func (s *memStore) IdleTime(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idle, ok := s.idle[key]
	if !ok {
		return 0, errors.New("no idle time recorded")
	}
	return idle, nil
}

func (s *memStore) Size(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sizeErr != nil {
		return 0, s.sizeErr
	}
	return int64(len(s.data)), nil
}

func (s *memStore) Del(_ context.Context, keys ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for _, k := range keys {
		if _, ok := s.data[k]; ok {
			delete(s.data, k)
			delete(s.idle, k)
			deleted++
		}
	}
	return deleted, nil
}

func (s *memStore) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pingErr
}

func newTestManager(t *testing.T, store Store, cfg Config) *Manager {
	t.Helper()
	return NewManager(context.Background(), store, cfg, nil)
}

func TestNewManager_DisabledWithoutStore(t *testing.T) {
	m := newTestManager(t, nil, DefaultConfig())
	assert.False(t, m.Enabled())

	val, ok := m.Get(context.Background(), "fp")
	assert.False(t, ok)
	assert.Empty(t, val)

	m.Set(context.Background(), "fp", "v") // Must not panic.
	assert.Equal(t, 0, m.EnforceCapacity(context.Background()))
}

func TestNewManager_DisabledOnUnreachableStore(t *testing.T) {
	store := newMemStore()
	store.pingErr = errors.New("connection refused")

	m := newTestManager(t, store, DefaultConfig())
	assert.False(t, m.Enabled())
}

func TestManager_SetThenGet(t *testing.T) {
	store := newMemStore()
	m := newTestManager(t, store, DefaultConfig())
	require.True(t, m.Enabled())

	ctx := context.Background()
	m.Set(ctx, "fp1", "stage output")

	val, ok := m.Get(ctx, "fp1")
	require.True(t, ok)
	assert.Equal(t, "stage output", val)

	stats := m.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(0), stats.Misses)
}

func TestManager_KeysArePrefixed(t *testing.T) {
	store := newMemStore()
	m := newTestManager(t, store, DefaultConfig())

	m.Set(context.Background(), "fp1", "v")

	_, bare := store.data["fp1"]
	assert.False(t, bare)
	raw, prefixed := store.data["ideate:fp1"]
	require.True(t, prefixed)

	var entry Entry
	require.NoError(t, json.Unmarshal([]byte(raw), &entry))
	assert.Equal(t, "v", entry.Value)
	assert.Positive(t, entry.StoredAtMs)
}

func TestManager_Miss(t *testing.T) {
	m := newTestManager(t, newMemStore(), DefaultConfig())

	_, ok := m.Get(context.Background(), "absent")
	assert.False(t, ok)
	assert.Equal(t, int64(1), m.Stats().Misses)
}

func TestManager_StoreErrorDegradesToMiss(t *testing.T) {
	store := newMemStore()
	m := newTestManager(t, store, DefaultConfig())
	store.getErr = errors.New("socket closed")

	_, ok := m.Get(context.Background(), "fp")
	assert.False(t, ok)
	assert.Equal(t, int64(1), m.Stats().Errors)
}

func TestManager_SetFailureSwallowed(t *testing.T) {
	store := newMemStore()
	m := newTestManager(t, store, DefaultConfig())
	store.setErr = errors.New("write refused")

	m.Set(context.Background(), "fp", "v")
	assert.Equal(t, int64(1), m.Stats().Errors)
	assert.Empty(t, store.data)
}

func TestManager_CorruptEntryDroppedAndTreatedAsMiss(t *testing.T) {
	store := newMemStore()
	m := newTestManager(t, store, DefaultConfig())

	store.data["ideate:fp"] = "{not json"

	_, ok := m.Get(context.Background(), "fp")
	assert.False(t, ok)
	assert.NotContains(t, store.data, "ideate:fp", "corrupt entry is removed")
	assert.Equal(t, int64(1), m.Stats().Errors)
}

func TestManager_HitRate(t *testing.T) {
	store := newMemStore()
	m := newTestManager(t, store, DefaultConfig())
	ctx := context.Background()

	m.Set(ctx, "fp", "v")
	m.Get(ctx, "fp")     // hit
	m.Get(ctx, "fp")     // hit
	m.Get(ctx, "absent") // miss

	stats := m.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 1e-9)
}
