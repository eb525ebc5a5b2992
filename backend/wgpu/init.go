// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package wgpu

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/frameloop/backend"
	"github.com/gogpu/frameloop/gpu"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

func init() {
	backend.Register(backend.BackendWGPU, 100, func(opts backend.Options) (gpu.Backend, error) {
		b, err := Open(gputypes.BackendVulkan, Options{Label: opts.Label, Logger: opts.Logger})
		if err != nil {
			return nil, err
		}
		return b, nil
	}, func() bool {
		_, ok := hal.GetBackend(gputypes.BackendVulkan)
		return ok
	})
}
