// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package platform defines the narrow windowing contracts consumed by the
// frame orchestrator.
//
// The orchestrator never talks to a native windowing system directly. It
// needs exactly three things from the host:
//   - a Window handle whose expiry can be observed at phase entry
//   - an awaitable close request and an awaitable "events changed" signal
//   - an EventLoop whose async-poll primitive is drained once per tick
//
// HeadlessWindow and Loop implement these contracts without a display and
// are used by tests and the headless demo. The glfw sub-package provides a
// desktop implementation behind the "glfw" build tag.
package platform

import "context"

// WindowID is a stable window identifier. It survives across frames and is
// the only way frame-scoped state refers to a window.
type WindowID uint64

// Window is the host window handle.
type Window interface {
	// ID returns the stable window identifier.
	ID() WindowID

	// Size returns the framebuffer size in pixels.
	Size() (width, height int)

	// CloseRequested returns a channel closed once the user or the host asks
	// the window to close. The window may still be alive at that point.
	CloseRequested() <-chan struct{}

	// Closed reports whether the native window has been destroyed. Surfaces
	// bound to a closed window are expired.
	Closed() bool

	// Events returns the window's event change notifier.
	Events() EventSource
}

// EventSource signals that new platform events are available.
type EventSource interface {
	// UntilChanged returns a channel closed on the next event change.
	UntilChanged() <-chan struct{}

	// Generation returns a counter incremented on every change.
	Generation() uint64
}

// EventLoop is the host event loop. Poll drains the pending async work once
// and returns; it never blocks waiting for new events.
type EventLoop interface {
	Poll(ctx context.Context) error
}
