// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frameloop

import (
	"errors"
	"fmt"
)

// Errors.
var (
	// ErrNilModule is returned when registering a nil module.
	ErrNilModule = errors.New("frameloop: nil module")

	// ErrUnnamedModule is returned when registering a module with an empty name.
	ErrUnnamedModule = errors.New("frameloop: module has no name")

	// ErrDuplicateModule is returned when a module name is already registered.
	ErrDuplicateModule = errors.New("frameloop: duplicate module")

	// ErrMissingHandler is returned when a module declares a phase it does
	// not implement.
	ErrMissingHandler = errors.New("frameloop: missing phase handler")

	// ErrFrameAborted wraps the *ModuleError of a critical failure.
	ErrFrameAborted = errors.New("frameloop: frame aborted")

	// ErrStopped is returned by Run and RunFrame once the orchestrator has
	// stopped. It is also the cancellation cause seen by module handlers
	// interrupted by Stop.
	ErrStopped = errors.New("frameloop: orchestrator stopped")

	// ErrAlreadyRunning is returned by a second concurrent Run.
	ErrAlreadyRunning = errors.New("frameloop: orchestrator already running")

	// ErrNilSubmitter is returned by New without a submitter.
	ErrNilSubmitter = errors.New("frameloop: nil submitter")
)

// ModuleError is a module failure in one phase of one frame.
type ModuleError struct {
	Module   string
	Phase    Phase
	Critical bool

	// Panicked is set when the handler panicked; Err then describes the
	// panic value.
	Panicked bool

	Err error
}

func (e *ModuleError) Error() string {
	kind := "failed"
	if e.Panicked {
		kind = "panicked"
	}
	crit := ""
	if e.Critical {
		crit = "critical "
	}
	return fmt.Sprintf("frameloop: %smodule %q %s in %s: %v", crit, e.Module, kind, e.Phase, e.Err)
}

func (e *ModuleError) Unwrap() error { return e.Err }
