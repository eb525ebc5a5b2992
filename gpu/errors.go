// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"errors"
	"fmt"
)

// Errors.
var (
	// ErrClosed is returned by Submitter methods after Close.
	ErrClosed = errors.New("gpu: submitter closed")

	// ErrFenceTimeout is returned when a fence wait exceeds the configured
	// timeout. It usually means the device was lost.
	ErrFenceTimeout = errors.New("gpu: fence wait timed out")

	// ErrFrameInProgress is returned by BeginFrame and Flush while a frame
	// is open.
	ErrFrameInProgress = errors.New("gpu: frame already in progress")

	// ErrNoFrame is returned when an operation needs an open frame.
	ErrNoFrame = errors.New("gpu: no frame in progress")

	// ErrInvalidFramesInFlight is returned for a frame count outside
	// [1, MaxFramesInFlight].
	ErrInvalidFramesInFlight = errors.New("gpu: invalid frames in flight")

	// ErrNilBackend is returned by NewSubmitter without a backend.
	ErrNilBackend = errors.New("gpu: nil backend")
)

// TransitionError reports an illegal CommandList state transition. It is
// raised with panic: an illegal transition means the submission invariants
// are already broken.
type TransitionError struct {
	List string
	From CommandListState
	To   CommandListState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("gpu: command list %q: illegal transition %s -> %s", e.List, e.From, e.To)
}
