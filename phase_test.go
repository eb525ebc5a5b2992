package frameloop

import (
	"slices"
	"testing"
)

func TestPhasesOrder(t *testing.T) {
	want := []Phase{
		PhaseFrameStart,
		PhaseInput,
		PhaseSceneMutation,
		PhaseTransformPropagation,
		PhaseFrameGraph,
		PhaseCommandRecord,
		PhaseFrameEnd,
		PhaseCompositing,
	}
	if got := Phases(); !slices.Equal(got, want) {
		t.Errorf("Phases() = %v, want %v", got, want)
	}
}

func TestPhaseString(t *testing.T) {
	tests := []struct {
		p    Phase
		want string
	}{
		{PhaseFrameStart, "FrameStart"},
		{PhaseTransformPropagation, "TransformPropagation"},
		{PhaseCompositing, "Compositing"},
		{Phase(42), "Phase(42)"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", uint8(tt.p), got, tt.want)
		}
	}
}

func TestPhaseSynchronous(t *testing.T) {
	for _, p := range Phases() {
		want := p == PhaseFrameStart || p == PhaseFrameEnd
		if got := p.Synchronous(); got != want {
			t.Errorf("%s.Synchronous() = %v, want %v", p, got, want)
		}
	}
}

func TestPhaseMask(t *testing.T) {
	m := MaskOf(PhaseCommandRecord, PhaseFrameStart, Phase(99))
	if !m.Has(PhaseFrameStart) || !m.Has(PhaseCommandRecord) {
		t.Errorf("MaskOf() = %v, missing members", m)
	}
	if m.Has(PhaseInput) {
		t.Errorf("MaskOf().Has(Input) = true")
	}
	if m.Has(Phase(99)) {
		t.Errorf("MaskOf().Has(99) = true")
	}
	if got, want := m.Phases(), []Phase{PhaseFrameStart, PhaseCommandRecord}; !slices.Equal(got, want) {
		t.Errorf("Phases() = %v, want %v", got, want)
	}
	if got := m.String(); got != "FrameStart|CommandRecord" {
		t.Errorf("String() = %q", got)
	}
	if got := PhaseMask(0).String(); got != "none" {
		t.Errorf("empty String() = %q, want none", got)
	}
	if got := len(AllPhases.Phases()); got != len(Phases()) {
		t.Errorf("AllPhases has %d phases, want %d", got, len(Phases()))
	}
}
