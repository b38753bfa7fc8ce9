package cache

import (
	"context"
	"math"
	"sort"
)

// evictFraction is the share of the sampled keys removed per pass when the
// store exceeds its size threshold. Evicting a tenth of a bounded sample
// keeps each pass cheap and non-blocking during high-traffic periods.
const evictFraction = 0.10

// EnforceCapacity performs one bounded eviction pass. It is meant to be
// invoked periodically, not on every write. The pass samples the key space
// with cursor-based incremental SCAN iteration (never a blocking
// full-keyspace listing), reads each sampled key's idle-time, and evicts
// roughly the least-recently-used tenth of the sample, largest idle-time
// first. The SCAN cursor persists across passes so successive calls walk
// different regions of the key space.
//
// Returns the number of evicted entries. Store failures end the pass
// silently: capacity enforcement is best-effort, like every cache concern.
func (m *Manager) EnforceCapacity(ctx context.Context) int {
	if !m.enabled || m.cfg.MaxEntries <= 0 {
		return 0
	}

	size, err := m.store.Size(ctx)
	if err != nil {
		m.errors.Add(1)
		m.logger.Warn("capacity check failed, skipping eviction", "error", err)
		return 0
	}
	if size <= m.cfg.MaxEntries {
		return 0
	}

	keys := m.sampleKeys(ctx)
	if len(keys) == 0 {
		return 0
	}

	// Rank the sample by idle-time, longest idle first. Keys whose
	// idle-time cannot be read are skipped rather than guessed at.
	type idleKey struct {
		key  string
		idle int64 // seconds
	}
	ranked := make([]idleKey, 0, len(keys))
	for _, key := range keys {
		idle, err := m.store.IdleTime(ctx, key)
		if err != nil {
			continue
		}
		ranked = append(ranked, idleKey{key: key, idle: int64(idle.Seconds())})
	}
	if len(ranked) == 0 {
		return 0
	}

	sort.Slice(ranked, func(i, j int) bool { return ranked[i].idle > ranked[j].idle })

	evictCount := int(math.Ceil(float64(len(ranked)) * evictFraction))
	victims := make([]string, 0, evictCount)
	for _, ik := range ranked[:evictCount] {
		victims = append(victims, ik.key)
	}

	deleted, err := m.store.Del(ctx, victims...)
	if err != nil {
		m.errors.Add(1)
		m.logger.Warn("eviction delete failed", "error", err)
		return 0
	}

	m.logger.Debug("evicted cache entries",
		"evicted", deleted,
		"sampled", len(ranked),
		"store_size", size,
		"max_entries", m.cfg.MaxEntries)
	return int(deleted)
}

// sampleKeys collects up to SampleSize keys, resuming the persisted SCAN
// cursor. The scan advances in small pages so no single store call blocks
// on a large keyspace.
func (m *Manager) sampleKeys(ctx context.Context) []string {
	const pageSize = 32

	cursor := m.cursor.Load()
	keys := make([]string, 0, m.cfg.SampleSize)

	for len(keys) < m.cfg.SampleSize {
		page, next, err := m.store.Scan(ctx, cursor, scanPattern(), pageSize)
		if err != nil {
			m.errors.Add(1)
			m.logger.Warn("key scan failed", "error", err)
			break
		}
		keys = append(keys, page...)
		cursor = next
		if next == 0 {
			// Wrapped around the key space; the sample is complete even
			// when short.
			break
		}
	}

	m.cursor.Store(cursor)
	return keys
}
