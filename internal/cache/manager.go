package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ahrav/go-ideate/internal/llm/llmerrors"
)

const (
	// keyPrefix namespaces pipeline entries within a shared store.
	keyPrefix = "ideate:"

	// connectionTimeout bounds the startup availability probe.
	connectionTimeout = 5 * time.Second

	// DefaultTTL expires entries that eviction never reached.
	DefaultTTL = 24 * time.Hour
)

// Config controls the cache manager.
type Config struct {
	// Enabled gates all cache operations.
	Enabled bool `json:"enabled"`

	// TTL is the per-entry expiry; zero selects DefaultTTL.
	TTL time.Duration `json:"ttl"`

	// MaxEntries is the size threshold above which EnforceCapacity evicts.
	MaxEntries int64 `json:"max_entries"`

	// SampleSize bounds how many keys one EnforceCapacity pass examines.
	SampleSize int `json:"sample_size"`
}

// DefaultConfig returns production cache settings.
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		TTL:        DefaultTTL,
		MaxEntries: 10_000,
		SampleSize: 100,
	}
}

// Entry is the stored stage output. Entries are immutable once written:
// recomputation overwrites the whole entry, never patches it.
type Entry struct {
	// Value is the serialized stage output.
	Value string `json:"value"`

	// StoredAtMs records the write time for diagnostics.
	StoredAtMs int64 `json:"stored_at_ms"`
}

// Manager fronts the shared store with graceful degradation and bounded
// incremental eviction. Safe for concurrent use by many invocations.
type Manager struct {
	store   Store
	cfg     Config
	logger  *slog.Logger
	enabled bool

	// cursor persists SCAN position across EnforceCapacity passes so
	// eviction walks the key space incrementally instead of restarting.
	cursor atomic.Uint64

	// Counters accessed atomically.
	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64
}

// NewManager creates a cache manager over store. A nil store or a failed
// connectivity probe disables caching rather than failing construction;
// the pipeline must run identically with or without a cache.
func NewManager(ctx context.Context, store Store, cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "cache")

	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = DefaultConfig().SampleSize
	}

	enabled := cfg.Enabled && store != nil
	if enabled {
		probeCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
		defer cancel()
		if err := store.Ping(probeCtx); err != nil {
			logger.Warn("cache store unreachable, caching disabled", "error", err)
			enabled = false
		}
	}

	return &Manager{
		store:   store,
		cfg:     cfg,
		logger:  logger,
		enabled: enabled,
	}
}

// Get returns the cached value for fingerprint. Any store failure counts as
// a miss; the cache never becomes a correctness dependency.
func (m *Manager) Get(ctx context.Context, fingerprint string) (string, bool) {
	if !m.enabled {
		return "", false
	}

	raw, err := m.store.Get(ctx, keyPrefix+fingerprint)
	if err != nil {
		if errors.Is(err, llmerrors.ErrCacheMiss) {
			m.misses.Add(1)
			return "", false
		}
		m.errors.Add(1)
		m.logger.Warn("cache get failed, treating as miss", "error", err)
		return "", false
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		// Corrupted entry: drop it and recompute.
		m.errors.Add(1)
		m.logger.Warn("corrupted cache entry dropped", "fingerprint", fingerprint)
		_, _ = m.store.Del(ctx, keyPrefix+fingerprint)
		return "", false
	}

	m.hits.Add(1)
	return entry.Value, true
}

// Set stores value under fingerprint, overwriting wholesale. Failures are
// logged and swallowed: a failed write is a no-op, not an error.
func (m *Manager) Set(ctx context.Context, fingerprint, value string) {
	if !m.enabled {
		return
	}

	entry := Entry{
		Value:      value,
		StoredAtMs: time.Now().UnixMilli(),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		m.errors.Add(1)
		return
	}

	if err := m.store.Set(ctx, keyPrefix+fingerprint, string(raw), m.cfg.TTL); err != nil {
		m.errors.Add(1)
		m.logger.Warn("cache set failed, skipping", "error", err)
	}
}

// Stats snapshots hit/miss/error counters.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Errors  int64   `json:"errors"`
	HitRate float64 `json:"hit_rate"`
}

// Stats returns current cache counters. Safe for concurrent access.
func (m *Manager) Stats() Stats {
	hits := m.hits.Load()
	misses := m.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Hits:    hits,
		Misses:  misses,
		Errors:  m.errors.Load(),
		HitRate: hitRate,
	}
}

// Enabled reports whether the manager is backed by a reachable store.
func (m *Manager) Enabled() bool { return m.enabled }

// scanPattern matches every pipeline entry in the shared store.
func scanPattern() string { return fmt.Sprintf("%s*", keyPrefix) }
