// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"fmt"
	"slices"
	"sync"
)

// CommandListState is the recording state of a CommandList.
type CommandListState uint8

const (
	// CommandListFree is available for recording.
	CommandListFree CommandListState = iota

	// CommandListRecording is between Begin and End.
	CommandListRecording

	// CommandListRecorded is finished and waiting for submission.
	CommandListRecorded

	// CommandListExecuting is submitted; the GPU may still read it.
	CommandListExecuting
)

// String returns the state name.
func (s CommandListState) String() string {
	switch s {
	case CommandListFree:
		return "Free"
	case CommandListRecording:
		return "Recording"
	case CommandListRecorded:
		return "Recorded"
	case CommandListExecuting:
		return "Executing"
	default:
		return fmt.Sprintf("CommandListState(%d)", uint8(s))
	}
}

// CommandList is a recorder bound to a queue role.
//
// Lifecycle: Free -> Recording (Begin) -> Recorded (End) -> Executing
// (Submitter.Submit) -> Free (the slot's fence completed). Any other
// transition panics with *TransitionError.
type CommandList struct {
	id    uint64
	label string
	role  QueueRole
	owner *Submitter

	mu      sync.Mutex
	state   CommandListState
	slot    FrameSlot
	encoder Encoder
	buffer  CommandBuffer
	targets []SurfaceID
	err     error
}

// Label returns the debug label given at acquisition.
func (l *CommandList) Label() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.label
}

// Role returns the queue role the list submits to.
func (l *CommandList) Role() QueueRole {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.role
}

// State returns the current state.
func (l *CommandList) State() CommandListState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Slot returns the frame slot the list was recorded in.
func (l *CommandList) Slot() FrameSlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.slot
}

// Encoder returns the backend encoder while Recording, nil otherwise.
func (l *CommandList) Encoder() Encoder {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != CommandListRecording {
		return nil
	}
	return l.encoder
}

// Err returns the encoding error recorded by End, if any. A list that failed
// to encode still walks the full state machine but submits nothing.
func (l *CommandList) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Target marks surface as rendered by this list. Surfaces targeted by a
// submitted list become presentable for the frame.
func (l *CommandList) Target(surface SurfaceID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !slices.Contains(l.targets, surface) {
		l.targets = append(l.targets, surface)
	}
}

// Targets returns the surfaces marked with Target.
func (l *CommandList) Targets() []SurfaceID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.targets)
}

// Begin moves the list from Free to Recording and opens a backend encoder.
// It panics if the list is not Free.
func (l *CommandList) Begin() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.mustBe(CommandListFree, CommandListRecording)
	enc, err := l.owner.backend.CreateEncoder(l.role, l.label)
	if err != nil {
		return fmt.Errorf("gpu: create encoder %q: %w", l.label, err)
	}
	if err := enc.BeginEncoding(l.label); err != nil {
		return fmt.Errorf("gpu: begin encoding %q: %w", l.label, err)
	}
	l.encoder = enc
	l.err = nil
	l.state = CommandListRecording
	return nil
}

// End moves the list from Recording to Recorded. It panics if the list is
// not Recording. An encoding failure is returned and also kept in Err; the
// list still becomes Recorded so the frame can be closed consistently.
func (l *CommandList) End() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.endLocked()
}

func (l *CommandList) endLocked() error {
	l.mustBe(CommandListRecording, CommandListRecorded)
	buf, err := l.encoder.EndEncoding()
	l.encoder = nil
	l.state = CommandListRecorded
	if err != nil {
		l.err = fmt.Errorf("gpu: end encoding %q: %w", l.label, err)
		return l.err
	}
	l.buffer = buf
	return nil
}

// markExecuting is called by Submitter.Submit.
func (l *CommandList) markExecuting() CommandBuffer {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mustBe(CommandListRecorded, CommandListExecuting)
	l.state = CommandListExecuting
	return l.buffer
}

// executed is the executed callback: the GPU is done with the list.
func (l *CommandList) executed() CommandBuffer {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mustBe(CommandListExecuting, CommandListFree)
	buf := l.buffer
	l.buffer = nil
	l.targets = nil
	l.state = CommandListFree
	return buf
}

func (l *CommandList) mustBe(from, to CommandListState) {
	if l.state != from {
		panic(&TransitionError{List: l.label, From: l.state, To: to})
	}
}
