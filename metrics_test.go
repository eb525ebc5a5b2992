package frameloop_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/gogpu/frameloop"
	"github.com/gogpu/frameloop/backend/software"
	"github.com/gogpu/frameloop/config"
	"github.com/gogpu/frameloop/gpu"
	"github.com/gogpu/frameloop/metrics"
)

func TestRunExportsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.NewCollector(reg, "")
	if err != nil {
		t.Fatalf("NewCollector() error = %v", err)
	}

	cfg := config.Default()
	cfg.MaxFrames = 4
	cfg.StopOnCriticalFailure = false

	b := software.New(software.Options{})
	subOpts := cfg.SubmitterOptions()
	subOpts.Observer = m
	sub, err := gpu.NewSubmitter(b, subOpts)
	if err != nil {
		t.Fatalf("NewSubmitter() error = %v", err)
	}
	defer sub.Close()

	orch, err := frameloop.New(sub, frameloop.WithConfig(cfg), frameloop.WithMetrics(m))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	err = orch.Registry().RegisterModule(frameloop.NewFuncModule("renderer", phaseHandlers{
		frameloop.PhaseCommandRecord: func(_ context.Context, fc *frameloop.FrameContext) error {
			if fc.Sequence() == 1 {
				return errors.New("pipeline missing")
			}
			return recordInto(fc, "main", "draw")
		},
	}), frameloop.PriorityNormal, frameloop.Critical)
	if err != nil {
		t.Fatalf("RegisterModule() error = %v", err)
	}

	if err := orch.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	const want = `
# HELP frameloop_frames_total Frames run, by outcome (completed or aborted).
# TYPE frameloop_frames_total counter
frameloop_frames_total{outcome="aborted"} 1
frameloop_frames_total{outcome="completed"} 3
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "frameloop_frames_total"); err != nil {
		t.Error(err)
	}

	const lists = `
# HELP frameloop_command_lists_submitted_total Command lists submitted to GPU queues.
# TYPE frameloop_command_lists_submitted_total counter
frameloop_command_lists_submitted_total 3
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(lists), "frameloop_command_lists_submitted_total"); err != nil {
		t.Error(err)
	}

	n, err := testutil.GatherAndCount(reg, "frameloop_module_failures_total")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if n != 1 {
		t.Errorf("module failure series = %d, want 1", n)
	}
}
