// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"fmt"
	"log/slog"
	"sync"
)

// Destroyer is implemented by resources that free GPU memory explicitly.
type Destroyer interface {
	Destroy()
}

type deferredRelease struct {
	resource any
	release  func()
	slot     FrameSlot
}

// Reclaimer defers destruction of GPU-visible resources until the GPU is
// done with the frame slot they were last used in.
//
// Releases are queued on the active slot. The Submitter drains a slot's
// queue in FIFO order right after BeginFrame's fence wait for that slot.
//
// Reclaimer is safe for concurrent use.
type Reclaimer struct {
	log *slog.Logger

	mu     sync.Mutex
	queues [][]deferredRelease
	held   []deferredRelease // from frames no fence value covers yet
	active FrameSlot
}

// NewReclaimer creates a reclaimer with one queue per frame slot.
func NewReclaimer(slots int, log *slog.Logger) *Reclaimer {
	if log == nil {
		log = Logger()
	}
	return &Reclaimer{
		log:    log,
		queues: make([][]deferredRelease, slots),
	}
}

// RegisterDeferredRelease queues release for the active slot. The resource
// is kept for diagnostics only. A nil release destroys resource if it is a
// Destroyer and is otherwise ignored.
func (r *Reclaimer) RegisterDeferredRelease(resource any, release func()) {
	if release == nil {
		d, ok := resource.(Destroyer)
		if !ok {
			return
		}
		release = d.Destroy
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.queues[r.active] = append(r.queues[r.active], deferredRelease{
		resource: resource,
		release:  release,
		slot:     r.active,
	})
}

// DeferDestroy queues d.Destroy for the active slot.
func (r *Reclaimer) DeferDestroy(d Destroyer) {
	if d == nil {
		return
	}
	r.RegisterDeferredRelease(d, d.Destroy)
}

// ProcessDeferredRelease runs and clears the releases queued on slot, in
// FIFO order, and returns how many ran. It must only be called once the
// fence value recorded for slot has completed. Releases queued while
// draining land on the next cycle of the active slot.
func (r *Reclaimer) ProcessDeferredRelease(slot FrameSlot) int {
	r.mu.Lock()
	batch := r.queues[slot]
	r.queues[slot] = nil
	r.mu.Unlock()

	for _, e := range batch {
		r.run(e)
	}
	return len(batch)
}

// ProcessAll drains every slot. Only valid once the GPU is idle.
func (r *Reclaimer) ProcessAll() int {
	n := 0
	for slot := range r.queues {
		n += r.ProcessDeferredRelease(FrameSlot(slot))
	}
	return n
}

// Held returns the number of releases waiting for a successful fence
// signal.
func (r *Reclaimer) Held() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.held)
}

// Pending returns the number of releases queued on slot.
func (r *Reclaimer) Pending(slot FrameSlot) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queues[slot])
}

// PendingTotal returns the number of releases queued on all slots,
// including held ones.
func (r *Reclaimer) PendingTotal() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.held)
	for _, q := range r.queues {
		n += len(q)
	}
	return n
}

// ActiveSlot returns the slot new releases are queued on.
func (r *Reclaimer) ActiveSlot() FrameSlot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func (r *Reclaimer) setActive(slot FrameSlot) {
	r.mu.Lock()
	r.active = slot
	r.mu.Unlock()
}

// hold moves slot's queue aside after its frame's fence signal failed.
func (r *Reclaimer) hold(slot FrameSlot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.held = append(r.held, r.queues[slot]...)
	r.queues[slot] = nil
}

// restore queues held releases ahead of slot's own once a signal covering
// slot succeeded.
func (r *Reclaimer) restore(slot FrameSlot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.held) == 0 {
		return
	}
	for i := range r.held {
		r.held[i].slot = slot
	}
	r.queues[slot] = append(r.held, r.queues[slot]...)
	r.held = nil
}

func (r *Reclaimer) run(e deferredRelease) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Warn("gpu: deferred release panicked",
				"resource", fmt.Sprintf("%T", e.resource),
				"slot", e.slot,
				"panic", p)
		}
	}()
	e.release()
}
