// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package platform

import (
	"context"
	"slices"
	"sync"
)

// Loop is an in-process EventLoop. Work posted with Post runs on the
// goroutine calling Poll, which makes Loop the marshaling point for results
// produced off the engine goroutine.
//
// Loop is safe for concurrent use.
type Loop struct {
	mu      sync.Mutex
	pending []func()
	ticks   uint64
}

// NewLoop creates an empty event loop.
func NewLoop() *Loop {
	return &Loop{}
}

// Post schedules fn for the next Poll. Nil functions are ignored.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.pending = append(l.pending, fn)
	l.mu.Unlock()
}

// Poll runs the work queued before the call. Work posted while draining is
// left for the next tick so a single Poll is bounded.
func (l *Loop) Poll(ctx context.Context) error {
	l.mu.Lock()
	batch := l.pending
	l.pending = nil
	l.ticks++
	l.mu.Unlock()

	for i, fn := range batch {
		if err := ctx.Err(); err != nil {
			l.requeue(batch[i:])
			return err
		}
		fn()
	}
	return nil
}

// Pending returns the number of queued work items.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Ticks returns the number of Poll calls.
func (l *Loop) Ticks() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ticks
}

func (l *Loop) requeue(rest []func()) {
	l.mu.Lock()
	l.pending = slices.Concat(rest, l.pending)
	l.mu.Unlock()
}

var _ EventLoop = (*Loop)(nil)
