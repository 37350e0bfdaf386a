package dispatch

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Pool runs independent tasks, each on its own goroutine. A positive size
// bounds how many run at once; tasks beyond the bound wait for a slot on
// their own goroutine, so Go never blocks the caller.
type Pool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// NewPool returns a pool. size <= 0 means unbounded.
func NewPool(size int) *Pool {
	p := &Pool{}
	if size > 0 {
		p.sem = semaphore.NewWeighted(int64(size))
	}
	return p
}

// Go runs task. The task is skipped if ctx ends before a slot frees up.
func (p *Pool) Go(ctx context.Context, task func(ctx context.Context)) {
	p.GoOrSkip(ctx, task, nil)
}

// GoOrSkip is Go with a hook called instead of task when it is skipped.
func (p *Pool) GoOrSkip(ctx context.Context, task func(ctx context.Context), skipped func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if p.sem != nil {
			if err := p.sem.Acquire(ctx, 1); err != nil {
				if skipped != nil {
					skipped()
				}
				return
			}
			defer p.sem.Release(1)
		}
		task(ctx)
	}()
}

// Wait blocks until every started task has returned.
func (p *Pool) Wait() { p.wg.Wait() }
