// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build glfw

// Package glfw implements the platform contracts on top of GLFW.
//
// GLFW requires all window calls on the main OS thread. Open locks the
// calling goroutine to its thread; the orchestrator's Run must be called from
// that same goroutine.
//
// GLFW reference: https://www.glfw.org/docs/latest/window_guide.html
package glfw

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/gogpu/frameloop/platform"
)

var nextID atomic.Uint64

// Options configures Open.
type Options struct {
	Title  string
	Width  int
	Height int
}

// Window is a GLFW-backed platform.Window.
type Window struct {
	id     platform.WindowID
	native *glfw.Window
	events platform.Broadcaster

	mu            sync.Mutex
	width, height int

	closeReq     chan struct{}
	closeReqOnce sync.Once
	closed       atomic.Bool
}

// Open initializes GLFW and creates a window without a client API, since
// the GPU backend owns presentation.
func Open(opts Options) (*Window, error) {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw: init: %w", err)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	native, err := glfw.CreateWindow(opts.Width, opts.Height, opts.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("glfw: create window: %w", err)
	}

	w := &Window{
		id:       platform.WindowID(nextID.Add(1)),
		native:   native,
		closeReq: make(chan struct{}),
	}
	w.width, w.height = native.GetFramebufferSize()

	native.SetCloseCallback(func(_ *glfw.Window) {
		w.requestClose()
	})
	// Framebuffer size, not window size: they differ on high-DPI displays.
	native.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.mu.Lock()
		w.width, w.height = width, height
		w.mu.Unlock()
		w.events.Notify()
	})
	native.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			native.SetShouldClose(true)
			w.requestClose()
			return
		}
		w.events.Notify()
	})
	return w, nil
}

// ID returns the window identifier.
func (w *Window) ID() platform.WindowID { return w.id }

// Size returns the framebuffer size in pixels.
func (w *Window) Size() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width, w.height
}

// CloseRequested is closed once the user asks the window to close.
func (w *Window) CloseRequested() <-chan struct{} { return w.closeReq }

// Closed reports whether the native window has been destroyed.
func (w *Window) Closed() bool { return w.closed.Load() }

// Events returns the change notifier fed by GLFW callbacks.
func (w *Window) Events() platform.EventSource { return &w.events }

// Native returns the underlying GLFW window for surface creation.
func (w *Window) Native() *glfw.Window { return w.native }

// Close destroys the window and terminates GLFW. Safe to call multiple times.
func (w *Window) Close() {
	if !w.closed.CompareAndSwap(false, true) {
		return
	}
	w.requestClose()
	w.native.Destroy()
	glfw.Terminate()
}

func (w *Window) requestClose() {
	w.closeReqOnce.Do(func() { close(w.closeReq) })
	w.events.Notify()
}

// Loop drains GLFW events once per orchestrator tick.
type Loop struct{}

// Poll processes pending GLFW events without blocking.
func (Loop) Poll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	glfw.PollEvents()
	return nil
}

var (
	_ platform.Window    = (*Window)(nil)
	_ platform.EventLoop = Loop{}
)
