// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultFenceTimeout bounds a single fence wait.
const DefaultFenceTimeout = 5 * time.Second

// SubmitObserver receives submission events, typically for metrics.
// Callbacks run on the goroutine driving the frame.
type SubmitObserver interface {
	FenceWaited(slot FrameSlot, waited time.Duration)
	CommandListsSubmitted(n int)
	ResourcesReleased(n int)
}

// SubmitterOptions configures NewSubmitter.
type SubmitterOptions struct {
	// FramesInFlight is the number of frame slots. Zero means 2.
	FramesInFlight int

	// FenceTimeout bounds each fence wait. Zero means DefaultFenceTimeout;
	// negative disables the bound.
	FenceTimeout time.Duration

	// Logger defaults to the package logger.
	Logger *slog.Logger

	// Observer is optional.
	Observer SubmitObserver
}

// Submitter is the command submission unit of one device. It owns the frame
// fence, the frame slots, the command list pool and the Reclaimer.
//
// All roles share one submission timeline: the frame fence is signaled on
// the graphics queue after the frame's lists have been submitted.
//
// Submitter is safe for concurrent use.
type Submitter struct {
	backend   Backend
	fence     Fence
	reclaimer *Reclaimer
	log       *slog.Logger
	observer  SubmitObserver
	timeout   time.Duration

	mu         sync.Mutex
	slots      *SlotTracker
	signaled   FenceValue
	inFrame    bool
	opening    bool // BeginFrame is waiting on the slot's fence
	closed     bool
	open       []*CommandList   // acquired this frame, not yet submitted
	submitted  []*CommandList   // submitted this frame
	unsignaled []*CommandList   // submitted in frames whose fence signal failed
	executing  [][]*CommandList // per slot, waiting for the slot's fence
	free       []*CommandList
	nextListID uint64
}

// NewSubmitter creates a submitter on b. The backend stays owned by the caller.
func NewSubmitter(b Backend, opts SubmitterOptions) (*Submitter, error) {
	if b == nil {
		return nil, ErrNilBackend
	}
	n := opts.FramesInFlight
	if n == 0 {
		n = 2
	}
	slots, err := NewSlotTracker(n)
	if err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = Logger()
	}
	timeout := opts.FenceTimeout
	if timeout == 0 {
		timeout = DefaultFenceTimeout
	}

	fence, err := b.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("gpu: create frame fence: %w", err)
	}

	return &Submitter{
		backend:   b,
		fence:     fence,
		reclaimer: NewReclaimer(n, log),
		log:       log,
		observer:  opts.Observer,
		timeout:   timeout,
		slots:     slots,
		executing: make([][]*CommandList, n),
	}, nil
}

// Backend returns the backend the submitter records on.
func (s *Submitter) Backend() Backend { return s.backend }

// Reclaimer returns the deferred reclaimer tied to this submitter's slots.
func (s *Submitter) Reclaimer() *Reclaimer { return s.reclaimer }

// FramesInFlight returns the number of frame slots.
func (s *Submitter) FramesInFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots.Count()
}

// CurrentSlot returns the slot the current or next frame uses.
func (s *Submitter) CurrentSlot() FrameSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots.Current()
}

// Watermark returns the fence value recorded for slot's last frame.
func (s *Submitter) Watermark(slot FrameSlot) FenceValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots.Watermark(slot)
}

// LastSignaled returns the last fence value signaled by EndFrame.
func (s *Submitter) LastSignaled() FenceValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signaled
}

// CompletedValue returns the fence value the GPU has reached.
func (s *Submitter) CompletedValue() FenceValue {
	return s.fence.CompletedValue()
}

// InFrame reports whether a frame is open.
func (s *Submitter) InFrame() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFrame
}

// BeginFrame opens a frame on the current slot. It waits until the fence
// value recorded the last time this slot was submitted has completed, then
// retires the slot's command lists and drains its deferred releases.
func (s *Submitter) BeginFrame(ctx context.Context) (FrameSlot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrClosed
	}
	if s.inFrame || s.opening {
		s.mu.Unlock()
		return 0, ErrFrameInProgress
	}
	s.opening = true
	slot := s.slots.Current()
	watermark := s.slots.Watermark(slot)
	s.mu.Unlock()

	start := time.Now()
	if err := waitFence(ctx, s.fence, watermark, s.timeout); err != nil {
		s.mu.Lock()
		s.opening = false
		s.mu.Unlock()
		return slot, fmt.Errorf("gpu: begin frame on slot %d: %w", slot, err)
	}
	if s.observer != nil {
		s.observer.FenceWaited(slot, time.Since(start))
	}

	s.mu.Lock()
	s.retireLocked(slot)
	s.opening = false
	s.inFrame = true
	s.mu.Unlock()

	s.reclaimer.setActive(slot)
	if n := s.reclaimer.ProcessDeferredRelease(slot); n > 0 {
		s.log.Debug("gpu: deferred releases processed", "slot", slot, "count", n, "fence", watermark)
		if s.observer != nil {
			s.observer.ResourcesReleased(n)
		}
	}
	return slot, nil
}

// AcquireCommandList returns a Free command list bound to role. The list is
// tracked as part of the open frame and is closed by EndFrame if the caller
// does not submit it.
func (s *Submitter) AcquireCommandList(role QueueRole, label string) (*CommandList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if !s.inFrame {
		return nil, ErrNoFrame
	}

	var l *CommandList
	if n := len(s.free); n > 0 {
		l = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		s.nextListID++
		l = &CommandList{id: s.nextListID, owner: s}
	}
	l.mu.Lock()
	l.label = label
	l.role = role
	l.slot = s.slots.Current()
	l.mu.Unlock()
	s.open = append(s.open, l)
	return l, nil
}

// Submit moves a Recorded list to Executing and enqueues it on its role's
// queue. It panics if the list is not Recorded.
func (s *Submitter) Submit(l *CommandList) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inFrame {
		return ErrNoFrame
	}
	return s.submitLocked([]*CommandList{l})
}

// SubmitPending submits every Recorded list of the open frame in
// acquisition order. Lists still Recording stay open.
func (s *Submitter) SubmitPending() ([]*CommandList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inFrame {
		return nil, ErrNoFrame
	}
	var ready []*CommandList
	for _, l := range s.open {
		if l.State() == CommandListRecorded {
			ready = append(ready, l)
		}
	}
	if len(ready) == 0 {
		return nil, nil
	}
	return ready, s.submitLocked(ready)
}

// EndFrame closes the open frame: lists still Recording are ended, every
// Recorded list is submitted, the fence is signaled with the next value,
// the value is recorded against the slot and the slot advances.
func (s *Submitter) EndFrame() (FenceValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inFrame {
		return 0, ErrNoFrame
	}

	var errs []error
	var ready []*CommandList
	for _, l := range s.open {
		l.mu.Lock()
		switch l.state {
		case CommandListRecording:
			if err := l.endLocked(); err != nil {
				errs = append(errs, err)
			}
			ready = append(ready, l)
		case CommandListRecorded:
			ready = append(ready, l)
		case CommandListFree:
			// Acquired but never begun.
			s.free = append(s.free, l)
		}
		l.mu.Unlock()
	}
	if len(ready) > 0 {
		if err := s.submitLocked(ready); err != nil {
			errs = append(errs, err)
		}
	}
	s.open = s.open[:0]

	slot := s.slots.Current()
	value := s.signaled + 1
	q, err := s.backend.Queue(QueueGraphics)
	if err == nil {
		err = q.Signal(s.fence, value)
	}
	if err != nil {
		// No fence value covers this frame's work. Its lists and releases
		// are held until a later signal succeeds; the slot's watermark
		// only covers older frames.
		errs = append(errs, fmt.Errorf("gpu: signal fence %d: %w", value, err))
		s.unsignaled = append(s.unsignaled, s.submitted...)
		s.reclaimer.hold(slot)
	} else {
		s.signaled = value
		s.slots.Record(slot, value)
		s.executing[slot] = append(s.executing[slot], s.unsignaled...)
		s.executing[slot] = append(s.executing[slot], s.submitted...)
		clear(s.unsignaled)
		s.unsignaled = s.unsignaled[:0]
		s.reclaimer.restore(slot)
	}
	clear(s.submitted)
	s.submitted = s.submitted[:0]
	s.slots.Advance()
	s.inFrame = false
	return value, errors.Join(errs...)
}

// Flush waits until all signaled work has completed, retires every slot
// and drains all deferred releases. Used at shutdown and before a resize.
// Work of frames whose fence signal failed is not covered by any signaled
// value and stays held.
func (s *Submitter) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.inFrame || s.opening {
		s.mu.Unlock()
		return ErrFrameInProgress
	}
	target := s.signaled
	s.mu.Unlock()

	if err := waitFence(ctx, s.fence, target, s.timeout); err != nil {
		return fmt.Errorf("gpu: flush to fence %d: %w", target, err)
	}

	s.mu.Lock()
	for slot := range s.executing {
		s.retireLocked(FrameSlot(slot))
	}
	s.mu.Unlock()

	if n := s.reclaimer.ProcessAll(); n > 0 {
		s.log.Debug("gpu: flush released resources", "count", n)
		if s.observer != nil {
			s.observer.ResourcesReleased(n)
		}
	}
	return nil
}

// Close destroys the frame fence. Callers flush first; pending releases that
// were not flushed are dropped with a warning.
func (s *Submitter) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if n := s.reclaimer.PendingTotal(); n > 0 {
		s.log.Warn("gpu: submitter closed with pending deferred releases", "count", n)
	}
	s.fence.Destroy()
}

func (s *Submitter) submitLocked(lists []*CommandList) error {
	// Group consecutive lists by role so each queue sees one batch.
	var errs []error
	for start := 0; start < len(lists); {
		role := lists[start].Role()
		end := start
		var bufs []CommandBuffer
		for end < len(lists) && lists[end].Role() == role {
			if buf := lists[end].markExecuting(); buf != nil {
				bufs = append(bufs, buf)
			}
			end++
		}
		batch := lists[start:end]
		s.removeOpenLocked(batch)
		s.submitted = append(s.submitted, batch...)

		if len(bufs) > 0 {
			q, err := s.backend.Queue(role)
			if err == nil {
				err = q.Submit(bufs)
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("gpu: submit %d buffers to %s queue: %w", len(bufs), role, err))
			}
		}
		start = end
	}
	if s.observer != nil {
		s.observer.CommandListsSubmitted(len(lists))
	}
	return errors.Join(errs...)
}

func (s *Submitter) removeOpenLocked(done []*CommandList) {
	kept := s.open[:0]
	for _, l := range s.open {
		submitted := false
		for _, d := range done {
			if l == d {
				submitted = true
				break
			}
		}
		if !submitted {
			kept = append(kept, l)
		}
	}
	clear(s.open[len(kept):])
	s.open = kept
}

// retireLocked runs the executed callback of every list submitted on slot.
// Only valid once the slot's watermark has completed.
func (s *Submitter) retireLocked(slot FrameSlot) {
	for _, l := range s.executing[slot] {
		if buf := l.executed(); buf != nil {
			s.backend.FreeCommandBuffer(buf)
		}
		s.free = append(s.free, l)
	}
	clear(s.executing[slot])
	s.executing[slot] = s.executing[slot][:0]
}
