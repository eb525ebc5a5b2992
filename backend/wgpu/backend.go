// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/frameloop/backend"
	"github.com/gogpu/frameloop/gpu"
	"github.com/gogpu/frameloop/platform"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("wgpu: backend closed")

// Options configures a Backend.
type Options struct {
	Label  string
	Logger *slog.Logger

	// SurfaceFormat is the color format of surfaces. Zero means BGRA8Unorm.
	SurfaceFormat gputypes.TextureFormat
}

// Backend implements gpu.Backend on a HAL device.
//
// Thread safety: Backend is safe for concurrent use.
type Backend struct {
	device   hal.Device
	queue    *Queue
	instance hal.Instance // non-nil when the backend owns the device
	label    string
	format   gputypes.TextureFormat
	log      *slog.Logger

	nextSurface atomic.Uint64

	mu     sync.Mutex
	closed bool
}

// NewFromDevice wraps a device owned by the caller. Close does not destroy it.
func NewFromDevice(device hal.Device, queue hal.Queue, opts Options) *Backend {
	log := opts.Logger
	if log == nil {
		log = gpu.Logger()
	}
	format := opts.SurfaceFormat
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatBGRA8Unorm
	}
	b := &Backend{
		device: device,
		label:  opts.Label,
		format: format,
		log:    log,
	}
	b.queue = &Queue{raw: queue}
	return b
}

// Open creates a standalone device on the HAL backend kind. Discrete and
// integrated adapters are preferred over software ones.
func Open(kind gputypes.Backend, opts Options) (*Backend, error) {
	api, ok := hal.GetBackend(kind)
	if !ok {
		return nil, &backend.UnavailableError{Name: fmt.Sprintf("%s/%v", backend.BackendWGPU, kind)}
	}
	instance, err := api.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, errors.New("wgpu: no GPU adapters found")
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}

	b := NewFromDevice(openDev.Device, openDev.Queue, opts)
	b.instance = instance
	b.log.Info("wgpu: device opened", "label", opts.Label, "adapter", selected.Info.Name)
	return b, nil
}

// Name returns "wgpu".
func (b *Backend) Name() string { return backend.BackendWGPU }

// Device returns the HAL device for render passes that record raw commands.
func (b *Backend) Device() hal.Device { return b.device }

// CreateFence creates a frame timeline at value zero on the device queue.
func (b *Backend) CreateFence() (gpu.Fence, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	return &Fence{queue: b.queue}, nil
}

// Queue returns the device queue for every role.
func (b *Backend) Queue(gpu.QueueRole) (gpu.Queue, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	return b.queue, nil
}

// CreateEncoder creates a HAL command encoder.
func (b *Backend) CreateEncoder(_ gpu.QueueRole, label string) (gpu.Encoder, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	raw, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder %q: %w", label, err)
	}
	return &Encoder{raw: raw}, nil
}

// FreeCommandBuffer returns a finished buffer to the device.
func (b *Backend) FreeCommandBuffer(buffer gpu.CommandBuffer) {
	if cb, ok := buffer.(hal.CommandBuffer); ok {
		b.device.FreeCommandBuffer(cb)
	}
}

// CreateSurface creates an offscreen render target sized to win.
//
// TODO: present through a HAL swapchain once platform windows expose native
// display and window handles.
func (b *Backend) CreateSurface(win platform.Window) (gpu.Surface, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	w, h := 1, 1
	if win != nil {
		w, h = win.Size()
	}
	desc := gpu.DefaultTextureDescriptor(uint32(max(w, 1)), uint32(max(h, 1)), b.format)
	desc.Label = "frameloop-surface"
	desc.Usage |= gputypes.TextureUsageCopySrc
	tex, err := b.createTexture(desc)
	if err != nil {
		return nil, fmt.Errorf("wgpu: create surface target: %w", err)
	}
	return &Surface{
		id:     gpu.SurfaceID(b.nextSurface.Add(1)),
		win:    win,
		target: tex,
	}, nil
}

// CreateTexture creates a 2D texture.
func (b *Backend) CreateTexture(desc gpu.TextureDescriptor) (gpu.Texture, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	return b.createTexture(desc)
}

func (b *Backend) createTexture(desc gpu.TextureDescriptor) (*Texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("wgpu: texture %q has zero size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	raw, err := b.device.CreateTexture(&hal.TextureDescriptor{
		Label:         desc.Label,
		Size:          hal.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture %q: %w", desc.Label, err)
	}
	return &Texture{device: b.device, raw: raw, desc: desc}, nil
}

// Close destroys the device if the backend opened it.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if b.instance != nil {
		b.device.Destroy()
		b.instance.Destroy()
		b.log.Info("wgpu: device closed", "label", b.label)
	}
	return nil
}

func (b *Backend) checkOpen() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	return nil
}

var _ gpu.Backend = (*Backend)(nil)
