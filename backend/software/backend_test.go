package software

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/frameloop/backend"
	"github.com/gogpu/frameloop/gpu"
	"github.com/gogpu/frameloop/platform"
)

func TestRegistered(t *testing.T) {
	e, ok := backend.Get(backend.BackendSoftware)
	if !ok {
		t.Fatal("software backend not registered")
	}
	if !e.Available() {
		t.Error("software backend should always be available")
	}
	b, err := backend.Open(backend.BackendSoftware, backend.Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if b.Name() != "software" {
		t.Errorf("Name() = %q, want software", b.Name())
	}
}

func recordBuffer(t *testing.T, b *Backend, label string, cmds ...string) gpu.CommandBuffer {
	t.Helper()
	enc, err := b.CreateEncoder(gpu.QueueGraphics, label)
	if err != nil {
		t.Fatalf("CreateEncoder() error = %v", err)
	}
	if err := enc.BeginEncoding(label); err != nil {
		t.Fatalf("BeginEncoding() error = %v", err)
	}
	for _, c := range cmds {
		if err := enc.(*Encoder).Record(c); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	buf, err := enc.EndEncoding()
	if err != nil {
		t.Fatalf("EndEncoding() error = %v", err)
	}
	return buf
}

func TestImmediateSignalCompletesFence(t *testing.T) {
	b := New(Options{})
	fence, _ := b.CreateFence()
	q, _ := b.Queue(gpu.QueueGraphics)

	buf := recordBuffer(t, b, "draw", "clear", "draw 3")
	if err := q.Submit([]gpu.CommandBuffer{buf}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if err := q.Signal(fence, 1); err != nil {
		t.Fatalf("Signal() error = %v", err)
	}
	if got := fence.CompletedValue(); got != 1 {
		t.Errorf("CompletedValue() = %d, want 1", got)
	}
	if got := b.Executed(); len(got) != 1 || got[0] != "draw" {
		t.Errorf("Executed() = %v, want [draw]", got)
	}
	cb := buf.(*CommandBuffer)
	if len(cb.Commands) != 2 || cb.Commands[1] != "draw 3" {
		t.Errorf("Commands = %v", cb.Commands)
	}
}

func TestManualSignalsStayPending(t *testing.T) {
	b := New(Options{Manual: true})
	fence, _ := b.CreateFence()
	q, _ := b.Queue(gpu.QueueGraphics)

	_ = q.Submit([]gpu.CommandBuffer{recordBuffer(t, b, "f1")})
	_ = q.Signal(fence, 1)
	_ = q.Submit([]gpu.CommandBuffer{recordBuffer(t, b, "f2")})
	_ = q.Signal(fence, 2)

	if got := fence.CompletedValue(); got != 0 {
		t.Fatalf("CompletedValue() = %d before Step, want 0", got)
	}
	if got := b.PendingSignals(); got != 2 {
		t.Errorf("PendingSignals() = %d, want 2", got)
	}

	if !b.Step() {
		t.Fatal("Step() = false, want true")
	}
	if got := fence.CompletedValue(); got != 1 {
		t.Errorf("CompletedValue() = %d after Step, want 1", got)
	}
	if got := b.Executed(); len(got) != 1 || got[0] != "f1" {
		t.Errorf("Executed() = %v, want [f1]", got)
	}

	if n := b.CompleteAll(); n != 1 {
		t.Errorf("CompleteAll() = %d, want 1", n)
	}
	if got := fence.CompletedValue(); got != 2 {
		t.Errorf("CompletedValue() = %d, want 2", got)
	}
	if b.Step() {
		t.Error("Step() with nothing pending = true")
	}
}

func TestFenceWaitUnblocksOnStep(t *testing.T) {
	b := New(Options{Manual: true})
	fence, _ := b.CreateFence()
	q, _ := b.Queue(gpu.QueueGraphics)
	_ = q.Signal(fence, 1)

	done := make(chan error, 1)
	go func() { done <- fence.Wait(context.Background(), 1) }()

	select {
	case err := <-done:
		t.Fatalf("Wait returned early: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	b.Step()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Wait() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Step")
	}
}

func TestFenceWaitHonorsContext(t *testing.T) {
	b := New(Options{Manual: true})
	fence, _ := b.CreateFence()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := fence.Wait(ctx, 5); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want DeadlineExceeded", err)
	}
}

func TestCloseCompletesPending(t *testing.T) {
	b := New(Options{Manual: true})
	fence, _ := b.CreateFence()
	q, _ := b.Queue(gpu.QueueGraphics)
	_ = q.Signal(fence, 3)

	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got := fence.CompletedValue(); got != 3 {
		t.Errorf("CompletedValue() after Close = %d, want 3", got)
	}
	if _, err := b.CreateFence(); !errors.Is(err, ErrClosed) {
		t.Errorf("CreateFence() after Close error = %v, want ErrClosed", err)
	}
}

func TestSignalForeignFence(t *testing.T) {
	b := New(Options{})
	q, _ := b.Queue(gpu.QueueCompute)
	var foreign gpu.Fence = struct{ gpu.Fence }{}
	if err := q.Signal(foreign, 1); !errors.Is(err, ErrForeignFence) {
		t.Errorf("Signal() error = %v, want ErrForeignFence", err)
	}
}

func TestEncoderFail(t *testing.T) {
	b := New(Options{})
	enc, _ := b.CreateEncoder(gpu.QueueGraphics, "bad")
	_ = enc.BeginEncoding("bad")
	want := errors.New("out of memory")
	enc.(*Encoder).Fail(want)
	if _, err := enc.EndEncoding(); !errors.Is(err, want) {
		t.Errorf("EndEncoding() error = %v, want %v", err, want)
	}
	if err := enc.(*Encoder).Record("late"); !errors.Is(err, ErrNotEncoding) {
		t.Errorf("Record() after end error = %v, want ErrNotEncoding", err)
	}
}

func TestFreeCommandBufferTwicePanics(t *testing.T) {
	b := New(Options{})
	buf := recordBuffer(t, b, "once")
	b.FreeCommandBuffer(buf)
	if got := b.FreedBuffers(); got != 1 {
		t.Errorf("FreedBuffers() = %d, want 1", got)
	}

	defer func() {
		if recover() == nil {
			t.Error("second FreeCommandBuffer did not panic")
		}
	}()
	b.FreeCommandBuffer(buf)
}

func TestSurfacePresent(t *testing.T) {
	b := New(Options{})
	win := platform.NewHeadlessWindow(640, 480)
	s, err := b.CreateSurface(win)
	if err != nil {
		t.Fatalf("CreateSurface() error = %v", err)
	}
	if s.Format() != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("Format() = %v, want BGRA8Unorm", s.Format())
	}
	if err := s.Present(); err != nil {
		t.Fatalf("Present() error = %v", err)
	}
	if got := s.(*Surface).Presents(); got != 1 {
		t.Errorf("Presents() = %d, want 1", got)
	}

	win.Close()
	if err := s.Present(); !errors.Is(err, ErrSurfaceLost) {
		t.Errorf("Present() on closed window error = %v, want ErrSurfaceLost", err)
	}

	other, _ := b.CreateSurface(nil)
	if other.ID() == s.ID() {
		t.Error("surface IDs should be unique")
	}
}

func TestTextureLifetime(t *testing.T) {
	b := New(Options{})
	tex, err := b.CreateTexture(gpu.DefaultTextureDescriptor(64, 32, gputypes.TextureFormatRGBA8Unorm))
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}
	if tex.Width() != 64 || tex.Height() != 32 {
		t.Errorf("size = %dx%d, want 64x32", tex.Width(), tex.Height())
	}
	if got := b.LiveTextures(); got != 1 {
		t.Errorf("LiveTextures() = %d, want 1", got)
	}
	tex.Destroy()
	tex.Destroy()
	if got := b.LiveTextures(); got != 0 {
		t.Errorf("LiveTextures() after Destroy = %d, want 0", got)
	}

	if _, err := b.CreateTexture(gpu.TextureDescriptor{Label: "empty"}); err == nil {
		t.Error("CreateTexture() with zero size should fail")
	}
}
