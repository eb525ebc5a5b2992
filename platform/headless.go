// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package platform

import (
	"sync"
	"sync/atomic"
)

var nextWindowID atomic.Uint64

// HeadlessWindow is a Window without a native counterpart. Its lifecycle is
// driven explicitly through RequestClose, Close and Resize.
//
// HeadlessWindow is safe for concurrent use.
type HeadlessWindow struct {
	id     WindowID
	events Broadcaster

	mu            sync.Mutex
	width, height int
	closeReq      chan struct{}
	closeReqOnce  sync.Once
	closed        atomic.Bool
}

// NewHeadlessWindow creates a headless window with the given framebuffer size.
func NewHeadlessWindow(width, height int) *HeadlessWindow {
	return &HeadlessWindow{
		id:       WindowID(nextWindowID.Add(1)),
		width:    width,
		height:   height,
		closeReq: make(chan struct{}),
	}
}

// ID returns the window identifier.
func (w *HeadlessWindow) ID() WindowID { return w.id }

// Size returns the framebuffer size.
func (w *HeadlessWindow) Size() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width, w.height
}

// Resize changes the framebuffer size and notifies event waiters.
func (w *HeadlessWindow) Resize(width, height int) {
	w.mu.Lock()
	w.width, w.height = width, height
	w.mu.Unlock()
	w.events.Notify()
}

// CloseRequested returns a channel closed by RequestClose or Close.
func (w *HeadlessWindow) CloseRequested() <-chan struct{} { return w.closeReq }

// RequestClose asks the window to close without destroying it.
func (w *HeadlessWindow) RequestClose() {
	w.closeReqOnce.Do(func() { close(w.closeReq) })
	w.events.Notify()
}

// Close destroys the window. Safe to call multiple times.
func (w *HeadlessWindow) Close() {
	if !w.closed.CompareAndSwap(false, true) {
		return
	}
	w.RequestClose()
}

// Closed reports whether Close has been called.
func (w *HeadlessWindow) Closed() bool { return w.closed.Load() }

// Events returns the window's change notifier.
func (w *HeadlessWindow) Events() EventSource { return &w.events }

var _ Window = (*HeadlessWindow)(nil)
