// Package parallel provides the worker pool modules use to offload CPU work
// out of a frame phase.
//
// Work handed to the pool runs on worker goroutines. Run joins all of it
// before returning, so results are back on the calling goroutine by the time
// the module touches frame state again.
package parallel

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrPoolClosed is returned by Run after Close.
var ErrPoolClosed = errors.New("parallel: pool closed")

// PanicError wraps a panic raised by a work item.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("parallel: work item panicked: %v", e.Value)
}

// Pool is a fixed set of worker goroutines.
//
// Each worker owns a queue; an idle worker steals from the others so one
// slow item does not stall the batch.
//
// Thread safety: Pool is safe for concurrent use.
type Pool struct {
	workers    int
	workQueues []chan func()
	done       chan struct{}
	wg         sync.WaitGroup
	running    atomic.Bool
	next       atomic.Uint64
}

// NewPool creates a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := workers * 4
	if queueSize < 8 {
		queueSize = 8
	}

	p := &Pool{
		workers:    workers,
		workQueues: make([]chan func(), workers),
		done:       make(chan struct{}),
	}
	for i := range workers {
		p.workQueues[i] = make(chan func(), queueSize)
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	own := p.workQueues[id]
	for {
		select {
		case <-p.done:
			p.drain(own)
			return
		case work := <-own:
			work()
		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
				continue
			}
			select {
			case <-p.done:
				p.drain(own)
				return
			case work := <-own:
				work()
			}
		}
	}
}

func (p *Pool) drain(queue chan func()) {
	for {
		select {
		case work := <-queue:
			work()
		default:
			return
		}
	}
}

func (p *Pool) steal(self int) func() {
	for i := range p.workers {
		if i == self {
			continue
		}
		select {
		case work := <-p.workQueues[i]:
			return work
		default:
		}
	}
	return nil
}

// Run distributes work across the workers and waits for all of it.
//
// Items that have not started when ctx is cancelled are skipped. The first
// panic is recovered and returned as *PanicError; ctx.Err() is returned if
// any item was skipped.
func (p *Pool) Run(ctx context.Context, work ...func()) error {
	if !p.running.Load() {
		return ErrPoolClosed
	}
	if len(work) == 0 {
		return nil
	}

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
		skipped  atomic.Bool
	)
	setErr := func(err error) {
		errOnce.Do(func() { firstErr = err })
	}

	wg.Add(len(work))
	for _, fn := range work {
		item := func() {
			defer wg.Done()
			if ctx.Err() != nil {
				skipped.Store(true)
				return
			}
			defer func() {
				if r := recover(); r != nil {
					setErr(&PanicError{Value: r})
				}
			}()
			fn()
		}

		queue := p.workQueues[p.next.Add(1)%uint64(p.workers)]
		select {
		case queue <- item:
		case <-p.done:
			// Pool closed mid-batch: run inline so the join still completes.
			item()
		}
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	if skipped.Load() {
		return ctx.Err()
	}
	return nil
}

// Close stops the workers after queued work has run.
// Close is safe to call multiple times.
func (p *Pool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers.
func (p *Pool) Workers() int {
	return p.workers
}

// IsRunning reports whether the pool accepts work.
func (p *Pool) IsRunning() bool {
	return p.running.Load()
}

// QueuedWork returns an approximate count of queued items.
func (p *Pool) QueuedWork() int {
	total := 0
	for _, q := range p.workQueues {
		total += len(q)
	}
	return total
}
