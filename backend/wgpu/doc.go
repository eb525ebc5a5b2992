// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package wgpu adapts a gogpu/wgpu HAL device to the frame loop's backend
// contract.
//
// A host that already owns a device wraps it with NewFromDevice. Open
// creates a standalone device on a registered HAL backend (Vulkan by
// default) and owns it until Close.
//
// The HAL exposes one queue per device, so all queue roles submit to it in
// order. Frame fences are tracked against the queue's submission indices
// and polled through Queue.PollCompleted.
package wgpu
