// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frameloop

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/gogpu/frameloop/gpu"
	"github.com/gogpu/frameloop/internal/parallel"
)

// ViewID identifies a view across frames.
type ViewID uint64

// ViewContext is a camera/viewport rendered into a surface.
type ViewContext struct {
	// Surface is the surface the view renders into. Views on a surface that
	// expires are removed with it.
	Surface gpu.SurfaceID

	Width, Height int

	// Data is opaque module state, such as camera matrices.
	Data any
}

// SurfaceEntry is a surface registered for the current frame.
type SurfaceEntry struct {
	Surface     gpu.Surface
	Presentable bool
}

// FrameContext is the per-frame exchange object shared by the modules of
// one frame. A new FrameContext is created for every frame and must not be
// retained after the frame's phases have run; persistent state refers to
// surfaces and views by id.
//
// FrameContext is safe for concurrent use by the tasks of one phase.
type FrameContext struct {
	seq    uint64
	start  time.Time
	delta  time.Duration
	slot   gpu.FrameSlot
	scene  any
	device gpu.DeviceHandle
	sub    *gpu.Submitter
	pool   func() *parallel.Pool
	log    *slog.Logger

	mu       sync.Mutex
	phase    Phase
	surfaces []SurfaceEntry
	views    map[ViewID]ViewContext
	removed  []gpu.SurfaceID
}

// Sequence returns the frame sequence number, starting at 0.
func (fc *FrameContext) Sequence() uint64 { return fc.seq }

// StartTime returns when the frame started.
func (fc *FrameContext) StartTime() time.Time { return fc.start }

// Delta returns the time since the previous frame started, zero for the
// first frame.
func (fc *FrameContext) Delta() time.Duration { return fc.delta }

// Slot returns the frame slot the frame records into.
func (fc *FrameContext) Slot() gpu.FrameSlot { return fc.slot }

// Scene returns the host's scene reference, or nil. The frame does not own it.
func (fc *FrameContext) Scene() any { return fc.scene }

// DeviceProvider returns the host GPU device for render passes.
func (fc *FrameContext) DeviceProvider() gpu.DeviceHandle { return fc.device }

// Logger returns a logger tagged with the frame sequence number.
func (fc *FrameContext) Logger() *slog.Logger { return fc.log }

// Phase returns the phase currently running.
func (fc *FrameContext) Phase() Phase {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.phase
}

// AddSurface registers s for this frame and returns its index. Adding a
// surface already present returns the existing index.
func (fc *FrameContext) AddSurface(s gpu.Surface) int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if i := fc.surfaceIndexLocked(s.ID()); i >= 0 {
		return i
	}
	fc.surfaces = append(fc.surfaces, SurfaceEntry{Surface: s})
	return len(fc.surfaces) - 1
}

// RemoveSurfaceAt removes the surface at index i and the views that render
// into it. Later surfaces shift down by one.
func (fc *FrameContext) RemoveSurfaceAt(i int) (gpu.Surface, bool) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if i < 0 || i >= len(fc.surfaces) {
		return nil, false
	}
	s := fc.surfaces[i].Surface
	fc.removeLocked(i)
	return s, true
}

// SetSurfacePresentable marks the surface at index i for the present pass.
// It reports false for an out of range index.
func (fc *FrameContext) SetSurfacePresentable(i int, presentable bool) bool {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if i < 0 || i >= len(fc.surfaces) {
		return false
	}
	fc.surfaces[i].Presentable = presentable
	return true
}

// Surfaces returns a snapshot of the frame's surfaces in registration order.
func (fc *FrameContext) Surfaces() []SurfaceEntry {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return slices.Clone(fc.surfaces)
}

// SurfaceIndex returns the index of the surface with id, or -1.
func (fc *FrameContext) SurfaceIndex(id gpu.SurfaceID) int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.surfaceIndexLocked(id)
}

// SetView sets or replaces a view.
func (fc *FrameContext) SetView(id ViewID, v ViewContext) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.views[id] = v
}

// View returns a view.
func (fc *FrameContext) View(id ViewID) (ViewContext, bool) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	v, ok := fc.views[id]
	return v, ok
}

// RemoveView removes a view and reports whether it existed.
func (fc *FrameContext) RemoveView(id ViewID) bool {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	_, ok := fc.views[id]
	delete(fc.views, id)
	return ok
}

// Views returns the view ids in ascending order.
func (fc *FrameContext) Views() []ViewID {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return slices.Sorted(maps.Keys(fc.views))
}

// AcquireCommandList returns a command list for this frame. Lists left
// Recorded at the end of PhaseCommandRecord are submitted then; lists
// still Recording are closed and submitted by the end of the frame.
func (fc *FrameContext) AcquireCommandList(role gpu.QueueRole, label string) (*gpu.CommandList, error) {
	return fc.sub.AcquireCommandList(role, label)
}

// RegisterDeferredRelease queues release to run once the GPU has finished
// with this frame's slot.
func (fc *FrameContext) RegisterDeferredRelease(resource any, release func()) {
	fc.sub.Reclaimer().RegisterDeferredRelease(resource, release)
}

// DeferDestroy queues d.Destroy like RegisterDeferredRelease.
func (fc *FrameContext) DeferDestroy(d gpu.Destroyer) {
	fc.sub.Reclaimer().DeferDestroy(d)
}

// Parallel runs work on the orchestrator's worker pool and returns once all
// of it has finished. Work items must not touch the FrameContext or GPU
// objects; results are handed back to the calling task by the join.
func (fc *FrameContext) Parallel(ctx context.Context, work ...func()) error {
	p := fc.pool()
	if p == nil {
		return parallel.ErrPoolClosed
	}
	return p.Run(ctx, work...)
}

// RemovedSurfaces returns the ids of surfaces dropped this frame because
// their window expired.
func (fc *FrameContext) RemovedSurfaces() []gpu.SurfaceID {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return slices.Clone(fc.removed)
}

// enterPhase records p as current and drops surfaces whose window has
// closed. It returns the ids dropped.
func (fc *FrameContext) enterPhase(p Phase) []gpu.SurfaceID {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.phase = p
	return fc.dropExpiredLocked()
}

// dropExpired drops surfaces whose window has closed.
func (fc *FrameContext) dropExpired() []gpu.SurfaceID {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.dropExpiredLocked()
}

func (fc *FrameContext) dropExpiredLocked() []gpu.SurfaceID {
	var dropped []gpu.SurfaceID
	for i := 0; i < len(fc.surfaces); {
		s := fc.surfaces[i].Surface
		if !surfaceExpired(s) {
			i++
			continue
		}
		dropped = append(dropped, s.ID())
		fc.removeLocked(i)
	}
	fc.removed = append(fc.removed, dropped...)
	return dropped
}

// markTargets makes the surfaces targeted by lists presentable.
func (fc *FrameContext) markTargets(lists []*gpu.CommandList) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	for _, l := range lists {
		for _, id := range l.Targets() {
			if i := fc.surfaceIndexLocked(id); i >= 0 {
				fc.surfaces[i].Presentable = true
			}
		}
	}
}

func (fc *FrameContext) removeLocked(i int) {
	id := fc.surfaces[i].Surface.ID()
	fc.surfaces = slices.Delete(fc.surfaces, i, i+1)
	maps.DeleteFunc(fc.views, func(_ ViewID, v ViewContext) bool {
		return v.Surface == id
	})
}

func (fc *FrameContext) surfaceIndexLocked(id gpu.SurfaceID) int {
	return slices.IndexFunc(fc.surfaces, func(e SurfaceEntry) bool {
		return e.Surface.ID() == id
	})
}

func surfaceExpired(s gpu.Surface) bool {
	w := s.Window()
	return w != nil && w.Closed()
}
