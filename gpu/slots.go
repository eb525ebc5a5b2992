// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import "fmt"

// FrameSlot selects one of the N parallel sets of per-frame GPU resources.
type FrameSlot uint32

// MaxFramesInFlight bounds the number of frame slots.
const MaxFramesInFlight = 8

// SlotTracker is a round-robin index over frame slots. Each slot remembers
// the fence value signaled when its last frame was submitted.
//
// SlotTracker is not safe for concurrent use; Submitter guards it.
type SlotTracker struct {
	current    FrameSlot
	watermarks []FenceValue
}

// NewSlotTracker creates a tracker over n slots.
func NewSlotTracker(n int) (*SlotTracker, error) {
	if n < 1 || n > MaxFramesInFlight {
		return nil, fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidFramesInFlight, n, MaxFramesInFlight)
	}
	return &SlotTracker{watermarks: make([]FenceValue, n)}, nil
}

// Count returns the number of slots.
func (t *SlotTracker) Count() int { return len(t.watermarks) }

// Current returns the active slot.
func (t *SlotTracker) Current() FrameSlot { return t.current }

// Advance moves to the next slot and returns it.
func (t *SlotTracker) Advance() FrameSlot {
	t.current = FrameSlot((int(t.current) + 1) % len(t.watermarks))
	return t.current
}

// Watermark returns the fence value that must complete before slot is reused.
func (t *SlotTracker) Watermark(slot FrameSlot) FenceValue {
	return t.watermarks[slot]
}

// Record stores the fence value signaled for slot's frame.
func (t *SlotTracker) Record(slot FrameSlot, value FenceValue) {
	t.watermarks[slot] = value
}
