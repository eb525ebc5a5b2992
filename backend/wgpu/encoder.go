package wgpu

import (
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/frameloop/gpu"
)

// Encoder wraps a HAL command encoder.
type Encoder struct {
	raw hal.CommandEncoder
}

// Raw returns the HAL encoder for recording passes.
func (e *Encoder) Raw() hal.CommandEncoder { return e.raw }

// BeginEncoding starts recording.
func (e *Encoder) BeginEncoding(label string) error {
	return e.raw.BeginEncoding(label)
}

// EndEncoding returns a hal.CommandBuffer.
func (e *Encoder) EndEncoding() (gpu.CommandBuffer, error) {
	cb, err := e.raw.EndEncoding()
	if err != nil {
		return nil, err
	}
	return cb, nil
}

var _ gpu.Encoder = (*Encoder)(nil)
