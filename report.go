package frameloop

import (
	"errors"
	"time"

	"github.com/gogpu/frameloop/gpu"
)

// PhaseResult is the outcome of one phase of one frame. Synchronous and
// asynchronous phases report failures the same way.
type PhaseResult struct {
	Phase    Phase
	Duration time.Duration

	// Dispatched lists the modules whose handler ran, in dispatch order.
	Dispatched []string

	// Interrupted lists the modules that were not started, or that returned
	// a context error, after the phase scope was cancelled.
	Interrupted []string

	// Failures holds the module failures of the phase, in dispatch order.
	Failures []*ModuleError

	// Cancelled is set when the phase scope was cancelled by a critical
	// failure or by Stop.
	Cancelled bool

	critical *ModuleError
}

// FrameReport describes one frame.
type FrameReport struct {
	Sequence   uint64
	Slot       gpu.FrameSlot
	FenceValue gpu.FenceValue
	Start      time.Time
	Duration   time.Duration

	// Phases holds one result per phase that ran, in order. A frame aborted
	// by a critical failure stops at the failing phase.
	Phases []PhaseResult

	// Aborted is set when a critical module failed.
	Aborted bool

	// Submitted counts the command lists submitted by the frame.
	Submitted int

	// Presented lists the surfaces presented, in registration order.
	Presented []gpu.SurfaceID

	// RemovedSurfaces lists the surfaces dropped because their window expired.
	RemovedSurfaces []gpu.SurfaceID
}

// Phase returns the result for p, if p ran.
func (r *FrameReport) Phase(p Phase) (PhaseResult, bool) {
	for _, res := range r.Phases {
		if res.Phase == p {
			return res, true
		}
	}
	return PhaseResult{}, false
}

// Failures returns every module failure of the frame.
func (r *FrameReport) Failures() []*ModuleError {
	var out []*ModuleError
	for _, res := range r.Phases {
		out = append(out, res.Failures...)
	}
	return out
}

// Err joins the frame's module failures, or returns nil.
func (r *FrameReport) Err() error {
	var errs []error
	for _, f := range r.Failures() {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}
