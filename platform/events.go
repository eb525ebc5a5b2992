// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package platform

import "sync"

// Broadcaster is an EventSource whose waiters are released together on
// Notify. The zero value is ready to use.
type Broadcaster struct {
	mu  sync.Mutex
	gen uint64
	ch  chan struct{}
}

// UntilChanged returns a channel closed on the next Notify.
func (b *Broadcaster) UntilChanged() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ch == nil {
		b.ch = make(chan struct{})
	}
	return b.ch
}

// Generation returns the number of Notify calls so far.
func (b *Broadcaster) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen
}

// Notify releases all current waiters.
func (b *Broadcaster) Notify() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	if b.ch != nil {
		close(b.ch)
		b.ch = nil
	}
}

var _ EventSource = (*Broadcaster)(nil)
