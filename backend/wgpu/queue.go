package wgpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/frameloop/gpu"
)

// Queue wraps the HAL device queue and remembers the submission index of
// the last batch.
type Queue struct {
	raw hal.Queue

	mu   sync.Mutex
	last uint64
}

// Submit enqueues HAL command buffers.
func (q *Queue) Submit(buffers []gpu.CommandBuffer) error {
	if len(buffers) == 0 {
		return nil
	}
	raw := make([]hal.CommandBuffer, 0, len(buffers))
	for _, buf := range buffers {
		cb, ok := buf.(hal.CommandBuffer)
		if !ok {
			return fmt.Errorf("wgpu: foreign command buffer %T", buf)
		}
		raw = append(raw, cb)
	}
	index, err := q.raw.Submit(raw)
	if err != nil {
		return err
	}
	q.mu.Lock()
	q.last = max(q.last, index)
	q.mu.Unlock()
	return nil
}

// Signal binds value to the last submission: the fence reaches value once
// the HAL reports that submission completed.
func (q *Queue) Signal(fence gpu.Fence, value gpu.FenceValue) error {
	f, ok := fence.(*Fence)
	if !ok || f.queue != q {
		return fmt.Errorf("wgpu: foreign fence %T", fence)
	}
	f.mark(value, q.submitted())
	return nil
}

func (q *Queue) submitted() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.last
}

func (q *Queue) completed() uint64 {
	return q.raw.PollCompleted()
}

var _ gpu.Queue = (*Queue)(nil)
