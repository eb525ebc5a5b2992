package wgpu

import (
	"context"
	"sync"
	"time"

	"github.com/gogpu/frameloop/gpu"
)

// pollInterval is how often Wait polls the queue's completed index.
const pollInterval = time.Millisecond

// mark maps a fence value to the queue submission index it waits for.
type mark struct {
	value gpu.FenceValue
	index uint64
}

// Fence is a frame timeline on top of the HAL queue's submission indices.
// The HAL manages its own fences; a value completes once every submission
// made before it was signaled has completed.
type Fence struct {
	queue *Queue

	mu        sync.Mutex
	marks     []mark
	completed gpu.FenceValue
}

// CompletedValue polls the queue and returns the highest completed value.
func (f *Fence) CompletedValue() gpu.FenceValue {
	done := f.queue.completed()
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for n < len(f.marks) && f.marks[n].index <= done {
		f.completed = max(f.completed, f.marks[n].value)
		n++
	}
	f.marks = f.marks[n:]
	return f.completed
}

// Wait blocks until the fence reaches value or ctx is done.
func (f *Fence) Wait(ctx context.Context, value gpu.FenceValue) error {
	if f.CompletedValue() >= value {
		return nil
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if f.CompletedValue() >= value {
				return nil
			}
		}
	}
}

// Destroy drops pending marks.
func (f *Fence) Destroy() {
	f.mu.Lock()
	f.marks = nil
	f.mu.Unlock()
}

func (f *Fence) mark(value gpu.FenceValue, index uint64) {
	f.mu.Lock()
	f.marks = append(f.marks, mark{value: value, index: index})
	f.mu.Unlock()
}

var _ gpu.Fence = (*Fence)(nil)
