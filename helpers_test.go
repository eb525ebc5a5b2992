package frameloop_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/frameloop"
	"github.com/gogpu/frameloop/backend/software"
	"github.com/gogpu/frameloop/config"
	"github.com/gogpu/frameloop/gpu"
)

type harness struct {
	backend *software.Backend
	sub     *gpu.Submitter
	orch    *frameloop.Orchestrator
	logs    *syncBuffer
}

// newHarness builds an orchestrator on a software backend. mutate adjusts
// the default config before the submitter is created.
func newHarness(t *testing.T, mutate func(*config.Config), backendOpts software.Options, opts ...frameloop.Option) *harness {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}

	logs := &syncBuffer{}
	log := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	b := software.New(backendOpts)
	subOpts := cfg.SubmitterOptions()
	subOpts.Logger = log
	sub, err := gpu.NewSubmitter(b, subOpts)
	if err != nil {
		t.Fatalf("NewSubmitter() error = %v", err)
	}

	opts = append([]frameloop.Option{frameloop.WithConfig(cfg), frameloop.WithLogger(log)}, opts...)
	orch, err := frameloop.New(sub, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	t.Cleanup(func() {
		_ = orch.Close(context.Background())
		b.CompleteAll()
		sub.Close()
	})
	return &harness{backend: b, sub: sub, orch: orch, logs: logs}
}

func (h *harness) register(t *testing.T, m frameloop.Module, p frameloop.Priority, c frameloop.Criticality) {
	t.Helper()
	if err := h.orch.Registry().RegisterModule(m, p, c); err != nil {
		t.Fatalf("RegisterModule(%q) error = %v", m.Name(), err)
	}
}

// callLog records "module:Phase" entries from any goroutine.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) handler(module string) frameloop.PhaseFunc {
	return func(_ context.Context, fc *frameloop.FrameContext) error {
		l.add(module + ":" + fc.Phase().String())
		return nil
	}
}

func (l *callLog) add(entry string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, entry)
}

func (l *callLog) entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// syncBuffer is a bytes.Buffer safe for concurrent log writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// recordInto begins a list, records cmd and ends it.
func recordInto(fc *frameloop.FrameContext, label, cmd string, targets ...gpu.SurfaceID) error {
	l, err := fc.AcquireCommandList(gpu.QueueGraphics, label)
	if err != nil {
		return err
	}
	if err := l.Begin(); err != nil {
		return err
	}
	if err := l.Encoder().(*software.Encoder).Record(cmd); err != nil {
		return err
	}
	for _, id := range targets {
		l.Target(id)
	}
	return l.End()
}

// waitFor polls cond until it holds, failing the test after a second.
func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
