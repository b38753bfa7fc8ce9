package workflow

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// workerPool caps simultaneous outbound provider calls for one invocation.
// The pool is scoped to a single Run: acquired at entry, torn down on every
// exit path through Close. Cancellation is cooperative; a cancelled context
// stops waiting for a permit but never interrupts an in-flight call.
type workerPool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

func newWorkerPool(limit int64) *workerPool {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	return &workerPool{sem: semaphore.NewWeighted(limit)}
}

// Do runs fn under a permit. It blocks until a permit is available or ctx
// is done; the permit is always released, even when fn panics into a stage
// fallback path above.
func (p *workerPool) Do(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	p.wg.Add(1)
	defer func() {
		p.sem.Release(1)
		p.wg.Done()
	}()
	return fn()
}

// Close blocks until every task admitted through Do has finished. Paired
// with a defer in Run so the pool never leaks past its invocation.
func (p *workerPool) Close() { p.wg.Wait() }

// parallel runs independent tasks concurrently and waits for all of them.
// Tasks contain their own failures (converting them into fallbacks and
// warnings), so no task error propagates or cancels a sibling.
func parallel(ctx context.Context, tasks ...func(context.Context)) {
	g, gCtx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		g.Go(func() error {
			task(gCtx)
			return nil
		})
	}
	_ = g.Wait() // Tasks never return errors.
}

// forEachBounded runs fn for every index with at most limit concurrent
// executions. Used when a batched stage call partially fails and the stage
// falls back to per-candidate calls.
func forEachBounded(ctx context.Context, limit int64, indexes []int, fn func(ctx context.Context, i int)) {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(int(limit))
	for _, i := range indexes {
		g.Go(func() error {
			fn(gCtx, i)
			return nil
		})
	}
	_ = g.Wait()
}
