package software

import (
	"context"
	"sync"

	"github.com/gogpu/frameloop/gpu"
)

// Fence is a simulated timeline fence.
type Fence struct {
	mu        sync.Mutex
	completed gpu.FenceValue
	changed   chan struct{}
}

func newFence() *Fence {
	return &Fence{changed: make(chan struct{})}
}

// CompletedValue returns the highest completed value.
func (f *Fence) CompletedValue() gpu.FenceValue {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

// Wait blocks until the fence reaches value or ctx is done.
func (f *Fence) Wait(ctx context.Context, value gpu.FenceValue) error {
	for {
		f.mu.Lock()
		if f.completed >= value {
			f.mu.Unlock()
			return nil
		}
		ch := f.changed
		f.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

// Destroy is a no-op.
func (f *Fence) Destroy() {}

func (f *Fence) complete(value gpu.FenceValue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if value <= f.completed {
		return
	}
	f.completed = value
	close(f.changed)
	f.changed = make(chan struct{})
}

var _ gpu.Fence = (*Fence)(nil)
