package software

import (
	"fmt"

	"github.com/gogpu/frameloop/gpu"
)

// Queue appends buffers to the backend timeline.
type Queue struct {
	owner *Backend
	role  gpu.QueueRole
}

// Submit enqueues buffers. Buffers of another backend are rejected.
func (q *Queue) Submit(buffers []gpu.CommandBuffer) error {
	b := q.owner
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if b.submitErr != nil {
		return b.submitErr
	}
	for _, buf := range buffers {
		cb, ok := buf.(*CommandBuffer)
		if !ok {
			return fmt.Errorf("software: foreign command buffer %T", buf)
		}
		b.inflight = append(b.inflight, cb)
	}
	return nil
}

// Signal sets fence to value once everything submitted so far has run.
func (q *Queue) Signal(fence gpu.Fence, value gpu.FenceValue) error {
	f, ok := fence.(*Fence)
	if !ok {
		return ErrForeignFence
	}
	b := q.owner
	b.mu.Lock()
	if b.signalErr != nil {
		err := b.signalErr
		b.mu.Unlock()
		return err
	}
	sig := pendingSignal{fence: f, value: value, buffers: b.inflight}
	b.inflight = nil
	if b.manual && !b.closed {
		b.pending = append(b.pending, sig)
		b.mu.Unlock()
		return nil
	}
	b.retireLocked(sig.buffers)
	b.mu.Unlock()

	f.complete(value)
	return nil
}

var _ gpu.Queue = (*Queue)(nil)
