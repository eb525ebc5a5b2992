// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frameloop

import (
	"fmt"
	"strings"
)

// Phase is a named point in per-frame execution. Phases run in declaration
// order, once each, every frame.
type Phase uint8

const (
	// PhaseFrameStart runs synchronously at the top of the frame. Modules
	// register the frame's surfaces and views here.
	PhaseFrameStart Phase = iota

	// PhaseInput consumes platform input gathered by the event loop.
	PhaseInput

	// PhaseSceneMutation applies gameplay and simulation changes.
	PhaseSceneMutation

	// PhaseTransformPropagation resolves world transforms.
	PhaseTransformPropagation

	// PhaseFrameGraph builds the frame's render graph.
	PhaseFrameGraph

	// PhaseCommandRecord records GPU command lists. Recorded lists are
	// submitted when the phase joins.
	PhaseCommandRecord

	// PhaseFrameEnd runs synchronously after recording.
	PhaseFrameEnd

	// PhaseCompositing composites surfaces before the present pass.
	PhaseCompositing

	phaseCount
)

var phaseNames = [phaseCount]string{
	PhaseFrameStart:           "FrameStart",
	PhaseInput:                "Input",
	PhaseSceneMutation:        "SceneMutation",
	PhaseTransformPropagation: "TransformPropagation",
	PhaseFrameGraph:           "FrameGraph",
	PhaseCommandRecord:        "CommandRecord",
	PhaseFrameEnd:             "FrameEnd",
	PhaseCompositing:          "Compositing",
}

// Phases returns every phase in execution order.
func Phases() []Phase {
	out := make([]Phase, phaseCount)
	for i := range out {
		out[i] = Phase(i)
	}
	return out
}

// String returns the phase name.
func (p Phase) String() string {
	if p < phaseCount {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", uint8(p))
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool { return p < phaseCount }

// Synchronous reports whether the phase calls handlers one at a time in
// priority order instead of fanning out.
func (p Phase) Synchronous() bool {
	return p == PhaseFrameStart || p == PhaseFrameEnd
}

// PhaseMask is a set of phases.
type PhaseMask uint32

// AllPhases contains every phase.
const AllPhases PhaseMask = 1<<phaseCount - 1

// MaskOf returns the set of the given phases. Unknown phases are ignored.
func MaskOf(phases ...Phase) PhaseMask {
	var m PhaseMask
	for _, p := range phases {
		m = m.With(p)
	}
	return m
}

// Has reports whether p is in the set.
func (m PhaseMask) Has(p Phase) bool {
	return p.Valid() && m&(1<<p) != 0
}

// With returns the set plus p.
func (m PhaseMask) With(p Phase) PhaseMask {
	if !p.Valid() {
		return m
	}
	return m | 1<<p
}

// Phases returns the members in execution order.
func (m PhaseMask) Phases() []Phase {
	var out []Phase
	for p := range phaseCount {
		if m.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

// String returns the members joined by "|", or "none".
func (m PhaseMask) String() string {
	phases := m.Phases()
	if len(phases) == 0 {
		return "none"
	}
	names := make([]string, len(phases))
	for i, p := range phases {
		names[i] = p.String()
	}
	return strings.Join(names, "|")
}
