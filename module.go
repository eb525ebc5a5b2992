// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frameloop

import (
	"context"
	"fmt"
)

// Module is a pluggable unit of per-frame behavior.
//
// A module declares the phases it takes part in and implements the matching
// handler interface for each of them (FrameStarter for PhaseFrameStart and
// so on). RegisterModule rejects a module that declares a phase without
// implementing its handler.
type Module interface {
	// Name is the module's identity in the registry. It must be unique.
	Name() string

	// SupportedPhases returns the phases the module handles.
	SupportedPhases() PhaseMask
}

// PhaseFunc is the uniform phase handler signature. A returned error is a
// module failure for the frame; ctx is cancelled when a critical sibling
// fails or the orchestrator stops.
type PhaseFunc func(ctx context.Context, fc *FrameContext) error

// FrameStarter handles PhaseFrameStart.
type FrameStarter interface {
	OnFrameStart(ctx context.Context, fc *FrameContext) error
}

// InputHandler handles PhaseInput.
type InputHandler interface {
	OnInput(ctx context.Context, fc *FrameContext) error
}

// SceneMutator handles PhaseSceneMutation.
type SceneMutator interface {
	OnSceneMutation(ctx context.Context, fc *FrameContext) error
}

// TransformPropagator handles PhaseTransformPropagation.
type TransformPropagator interface {
	OnTransformPropagation(ctx context.Context, fc *FrameContext) error
}

// FrameGraphBuilder handles PhaseFrameGraph.
type FrameGraphBuilder interface {
	OnFrameGraph(ctx context.Context, fc *FrameContext) error
}

// CommandRecorder handles PhaseCommandRecord.
type CommandRecorder interface {
	OnCommandRecord(ctx context.Context, fc *FrameContext) error
}

// FrameEnder handles PhaseFrameEnd.
type FrameEnder interface {
	OnFrameEnd(ctx context.Context, fc *FrameContext) error
}

// Compositor handles PhaseCompositing.
type Compositor interface {
	OnCompositing(ctx context.Context, fc *FrameContext) error
}

// phaseDispatcher is implemented by modules that resolve handlers from a
// table instead of methods, such as FuncModule.
type phaseDispatcher interface {
	Handler(p Phase) PhaseFunc
}

// handlerFor returns m's handler for p, or nil.
func handlerFor(m Module, p Phase) PhaseFunc {
	if d, ok := m.(phaseDispatcher); ok {
		return d.Handler(p)
	}
	switch p {
	case PhaseFrameStart:
		if h, ok := m.(FrameStarter); ok {
			return h.OnFrameStart
		}
	case PhaseInput:
		if h, ok := m.(InputHandler); ok {
			return h.OnInput
		}
	case PhaseSceneMutation:
		if h, ok := m.(SceneMutator); ok {
			return h.OnSceneMutation
		}
	case PhaseTransformPropagation:
		if h, ok := m.(TransformPropagator); ok {
			return h.OnTransformPropagation
		}
	case PhaseFrameGraph:
		if h, ok := m.(FrameGraphBuilder); ok {
			return h.OnFrameGraph
		}
	case PhaseCommandRecord:
		if h, ok := m.(CommandRecorder); ok {
			return h.OnCommandRecord
		}
	case PhaseFrameEnd:
		if h, ok := m.(FrameEnder); ok {
			return h.OnFrameEnd
		}
	case PhaseCompositing:
		if h, ok := m.(Compositor); ok {
			return h.OnCompositing
		}
	}
	return nil
}

// Priority orders dispatch within a phase. Lower values run first.
type Priority int

// Common priorities.
const (
	PriorityFirst  Priority = -1000
	PriorityEarly  Priority = -100
	PriorityNormal Priority = 0
	PriorityLate   Priority = 100
	PriorityLast   Priority = 1000
)

// Criticality decides what a module failure does to the frame.
type Criticality uint8

const (
	// NonCritical failures are logged and the module's contribution is
	// skipped for the frame.
	NonCritical Criticality = iota

	// Critical failures cancel the module's siblings in the phase and abort
	// the frame.
	Critical
)

// String returns "critical" or "non-critical".
func (c Criticality) String() string {
	switch c {
	case NonCritical:
		return "non-critical"
	case Critical:
		return "critical"
	default:
		return fmt.Sprintf("Criticality(%d)", uint8(c))
	}
}
