package software

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/gogpu/frameloop/gpu"
)

// CommandBuffer is a finished list of text commands.
type CommandBuffer struct {
	Label    string
	Role     gpu.QueueRole
	Commands []string

	freed atomic.Bool
}

// Encoder records text commands.
type Encoder struct {
	role  gpu.QueueRole
	label string

	mu        sync.Mutex
	recording bool
	commands  []string
	err       error
}

// BeginEncoding starts recording.
func (e *Encoder) BeginEncoding(label string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if label != "" {
		e.label = label
	}
	e.recording = true
	e.commands = e.commands[:0]
	e.err = nil
	return nil
}

// Record appends a command.
func (e *Encoder) Record(cmd string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.recording {
		return ErrNotEncoding
	}
	e.commands = append(e.commands, cmd)
	return nil
}

// Fail makes EndEncoding return err.
func (e *Encoder) Fail(err error) {
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
}

// EndEncoding finishes recording and returns a *CommandBuffer.
func (e *Encoder) EndEncoding() (gpu.CommandBuffer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.recording {
		return nil, ErrNotEncoding
	}
	e.recording = false
	if e.err != nil {
		return nil, e.err
	}
	return &CommandBuffer{
		Label:    e.label,
		Role:     e.role,
		Commands: slices.Clone(e.commands),
	}, nil
}

var _ gpu.Encoder = (*Encoder)(nil)
