package workflow

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_BoundsConcurrency(t *testing.T) {
	pool := newWorkerPool(2)
	defer pool.Close()

	var inFlight, peak atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.Do(context.Background(), func() error {
				cur := inFlight.Add(1)
				for {
					old := peak.Load()
					if cur <= old || peak.CompareAndSwap(old, cur) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				inFlight.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestWorkerPool_CancelledAcquire(t *testing.T) {
	pool := newWorkerPool(1)
	defer pool.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = pool.Do(context.Background(), func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran bool
	err := pool.Do(ctx, func() error {
		ran = true
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran, "cancelled waiters never run")

	close(release)
}

func TestWorkerPool_CloseWaitsForInFlight(t *testing.T) {
	pool := newWorkerPool(4)

	var done atomic.Int64
	for i := 0; i < 4; i++ {
		go func() {
			_ = pool.Do(context.Background(), func() error {
				time.Sleep(10 * time.Millisecond)
				done.Add(1)
				return nil
			})
		}()
	}

	// Give the goroutines time to acquire their permits.
	time.Sleep(5 * time.Millisecond)
	pool.Close()
	assert.Equal(t, int64(4), done.Load(), "Close returns only after admitted work finishes")
}

func TestParallel_RunsAllTasks(t *testing.T) {
	var a, b atomic.Bool
	parallel(context.Background(),
		func(context.Context) { a.Store(true) },
		func(context.Context) { b.Store(true) },
	)
	assert.True(t, a.Load())
	assert.True(t, b.Load())
}

func TestForEachBounded_VisitsEveryIndex(t *testing.T) {
	indexes := []int{0, 2, 4, 6, 8}
	visited := make([]atomic.Bool, 10)

	forEachBounded(context.Background(), 2, indexes, func(_ context.Context, i int) {
		visited[i].Store(true)
	})

	for _, i := range indexes {
		assert.True(t, visited[i].Load(), "index %d visited", i)
	}
	assert.False(t, visited[1].Load())
}

func TestForEachBounded_RespectsLimit(t *testing.T) {
	var inFlight, peak atomic.Int64
	indexes := make([]int, 20)
	for i := range indexes {
		indexes[i] = i
	}

	forEachBounded(context.Background(), 3, indexes, func(context.Context, int) {
		cur := inFlight.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
	})

	assert.LessOrEqual(t, peak.Load(), int64(3))
}
