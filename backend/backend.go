package backend

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/frameloop/gpu"
)

// Well-known backend names.
const (
	BackendSoftware = "software"
	BackendWGPU     = "wgpu"
)

// ErrNoBackendAvailable is returned by Open when no registered backend
// reports itself available.
var ErrNoBackendAvailable = errors.New("backend: no backend available")

// Options is passed to a backend factory.
type Options struct {
	// Label names the device in logs.
	Label string

	// Logger defaults to the gpu package logger.
	Logger *slog.Logger
}

// Factory creates a backend instance.
type Factory func(opts Options) (gpu.Backend, error)

// NotFoundError is returned when a named backend is not registered.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("backend: %q not registered", e.Name)
}

// UnavailableError is returned when a named backend is registered but its
// availability probe fails.
type UnavailableError struct {
	Name string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("backend: %q not available on this system", e.Name)
}
