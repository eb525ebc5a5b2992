// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"context"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/frameloop/platform"
)

// QueueRole selects a hardware queue.
type QueueRole uint8

const (
	// QueueGraphics executes render and general work. The frame fence is
	// signaled on this queue.
	QueueGraphics QueueRole = iota

	// QueueCompute executes compute-only work.
	QueueCompute

	// QueueTransfer executes copy work.
	QueueTransfer
)

// String returns the role name.
func (r QueueRole) String() string {
	switch r {
	case QueueGraphics:
		return "graphics"
	case QueueCompute:
		return "compute"
	case QueueTransfer:
		return "transfer"
	default:
		return "unknown"
	}
}

// SurfaceID identifies a presentable surface across frames.
type SurfaceID uint64

// CommandBuffer is a backend-specific finished command buffer.
type CommandBuffer any

// Encoder records commands for one command list. Backends return their own
// concrete encoder; recording code type-asserts it to reach backend commands.
type Encoder interface {
	BeginEncoding(label string) error
	EndEncoding() (CommandBuffer, error)
}

// Fence is a monotonic GPU-timeline counter. Values are signaled by a Queue.
type Fence interface {
	// CompletedValue returns the highest value the GPU has reached.
	CompletedValue() FenceValue

	// Wait blocks until the fence reaches value or ctx is done.
	Wait(ctx context.Context, value FenceValue) error

	// Destroy releases the fence.
	Destroy()
}

// Queue is a hardware submission queue.
type Queue interface {
	// Submit enqueues finished command buffers in order.
	Submit(buffers []CommandBuffer) error

	// Signal makes the queue set fence to value once all previously
	// submitted work has completed.
	Signal(fence Fence, value FenceValue) error
}

// Surface is a presentable target bound to a window.
type Surface interface {
	ID() SurfaceID

	// Window returns the bound window, or nil for offscreen surfaces.
	Window() platform.Window

	Format() gputypes.TextureFormat

	// Present queues the surface's current image for display.
	Present() error

	Destroy()
}

// Backend is the graphics backend contract. The core uses only these
// factory and accessor operations and never a specific hardware API.
type Backend interface {
	// Name returns the backend name used in logs and the backend registry.
	Name() string

	CreateFence() (Fence, error)
	Queue(role QueueRole) (Queue, error)
	CreateEncoder(role QueueRole, label string) (Encoder, error)

	// FreeCommandBuffer releases a buffer once the GPU has finished with it.
	FreeCommandBuffer(buffer CommandBuffer)

	CreateSurface(win platform.Window) (Surface, error)
	CreateTexture(desc TextureDescriptor) (Texture, error)

	Close() error
}
