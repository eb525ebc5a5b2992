// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package software

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/frameloop/backend"
	"github.com/gogpu/frameloop/gpu"
	"github.com/gogpu/frameloop/platform"
)

// Errors.
var (
	ErrClosed       = errors.New("software: backend closed")
	ErrForeignFence = errors.New("software: fence was not created by this backend")
	ErrSurfaceLost  = errors.New("software: surface lost")
	ErrNotEncoding  = errors.New("software: encoder is not recording")
)

func init() {
	backend.Register(backend.BackendSoftware, 10, func(opts backend.Options) (gpu.Backend, error) {
		return New(Options{Label: opts.Label, Logger: opts.Logger}), nil
	}, nil)
}

// Options configures New.
type Options struct {
	Label string

	// Manual keeps signals pending until Step or CompleteAll.
	Manual bool

	Logger *slog.Logger
}

type pendingSignal struct {
	fence   *Fence
	value   gpu.FenceValue
	buffers []*CommandBuffer
}

// Backend is the software gpu.Backend.
//
// Thread safety: Backend is safe for concurrent use.
type Backend struct {
	label  string
	manual bool
	log    *slog.Logger
	queues [3]*Queue

	nextSurface atomic.Uint64
	liveTex     atomic.Int64

	mu         sync.Mutex
	closed     bool
	inflight   []*CommandBuffer // submitted, not yet covered by a signal
	pending    []pendingSignal
	executed   []string
	freed      int
	submitErr  error
	signalErr  error
	encoderErr error
}

// New creates a software backend.
func New(opts Options) *Backend {
	log := opts.Logger
	if log == nil {
		log = gpu.Logger()
	}
	b := &Backend{
		label:  opts.Label,
		manual: opts.Manual,
		log:    log,
	}
	for i := range b.queues {
		b.queues[i] = &Queue{owner: b, role: gpu.QueueRole(i)}
	}
	return b
}

// Name returns "software".
func (b *Backend) Name() string { return backend.BackendSoftware }

// CreateFence creates a fence at value zero.
func (b *Backend) CreateFence() (gpu.Fence, error) {
	if b.isClosed() {
		return nil, ErrClosed
	}
	return newFence(), nil
}

// Queue returns the queue for role. All roles share one timeline.
func (b *Backend) Queue(role gpu.QueueRole) (gpu.Queue, error) {
	if int(role) >= len(b.queues) {
		return nil, fmt.Errorf("software: unknown queue role %d", role)
	}
	return b.queues[role], nil
}

// CreateEncoder returns a text-recording *Encoder.
func (b *Backend) CreateEncoder(role gpu.QueueRole, label string) (gpu.Encoder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	if b.encoderErr != nil {
		return nil, b.encoderErr
	}
	return &Encoder{role: role, label: label}, nil
}

// FreeCommandBuffer releases a buffer. It panics on a buffer freed twice.
func (b *Backend) FreeCommandBuffer(buffer gpu.CommandBuffer) {
	cb, ok := buffer.(*CommandBuffer)
	if !ok {
		return
	}
	if cb.freed.Swap(true) {
		panic(fmt.Sprintf("software: command buffer %q freed twice", cb.Label))
	}
	b.mu.Lock()
	b.freed++
	b.mu.Unlock()
}

// CreateSurface binds a surface to win.
func (b *Backend) CreateSurface(win platform.Window) (gpu.Surface, error) {
	if b.isClosed() {
		return nil, ErrClosed
	}
	return &Surface{
		id:     gpu.SurfaceID(b.nextSurface.Add(1)),
		win:    win,
		format: gputypes.TextureFormatBGRA8Unorm,
	}, nil
}

// CreateTexture allocates a texture record.
func (b *Backend) CreateTexture(desc gpu.TextureDescriptor) (gpu.Texture, error) {
	if b.isClosed() {
		return nil, ErrClosed
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("software: texture %q has zero size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	b.liveTex.Add(1)
	return &Texture{desc: desc, owner: b}, nil
}

// Close marks the backend closed. Pending signals are completed so no
// waiter blocks forever.
func (b *Backend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()
	b.CompleteAll()
	return nil
}

// Step completes the oldest pending signal. It reports false if none is
// pending.
func (b *Backend) Step() bool {
	b.mu.Lock()
	if len(b.pending) == 0 {
		b.mu.Unlock()
		return false
	}
	sig := b.pending[0]
	b.pending = b.pending[1:]
	b.retireLocked(sig.buffers)
	b.mu.Unlock()

	sig.fence.complete(sig.value)
	return true
}

// CompleteAll completes every pending signal and returns how many there were.
func (b *Backend) CompleteAll() int {
	n := 0
	for b.Step() {
		n++
	}
	return n
}

// PendingSignals returns the number of signals not yet completed.
func (b *Backend) PendingSignals() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Executed returns the labels of the buffers the simulated GPU has finished,
// in timeline order.
func (b *Backend) Executed() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.executed))
	copy(out, b.executed)
	return out
}

// FreedBuffers returns how many command buffers were freed.
func (b *Backend) FreedBuffers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.freed
}

// LiveTextures returns the number of textures not yet destroyed.
func (b *Backend) LiveTextures() int { return int(b.liveTex.Load()) }

// FailSubmit makes every Submit return err until called with nil.
func (b *Backend) FailSubmit(err error) {
	b.mu.Lock()
	b.submitErr = err
	b.mu.Unlock()
}

// FailSignal makes every Signal return err until called with nil.
func (b *Backend) FailSignal(err error) {
	b.mu.Lock()
	b.signalErr = err
	b.mu.Unlock()
}

// FailEncoder makes CreateEncoder return err until called with nil.
func (b *Backend) FailEncoder(err error) {
	b.mu.Lock()
	b.encoderErr = err
	b.mu.Unlock()
}

func (b *Backend) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Backend) retireLocked(buffers []*CommandBuffer) {
	for _, cb := range buffers {
		b.executed = append(b.executed, cb.Label)
	}
}

var _ gpu.Backend = (*Backend)(nil)
