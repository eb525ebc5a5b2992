// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package gpu implements command submission and resource lifetime for
// pipelined frames in flight.
//
// # Overview
//
// The CPU records frame N+1 while the GPU may still execute frame N. Every
// per-frame GPU resource is therefore duplicated per frame slot, and a slot
// is only reused once the fence value recorded when it was last submitted
// has completed.
//
//	BeginFrame(slot s)                         EndFrame
//	  wait fence >= watermark[s]                 close open command lists
//	  retire lists executed in s                 submit, signal fence v+1
//	  drain deferred releases of s               watermark[s] = v+1
//	                                             advance to slot s+1 mod N
//
// # Components
//
//   - Fence: monotonic GPU-timeline counter (backend provided)
//   - SlotTracker: round-robin frame slot index with per-slot watermarks
//   - CommandList: Free -> Recording -> Recorded -> Executing -> Free
//   - Reclaimer: per-slot FIFO of release callbacks
//   - Submitter: owns all of the above for one device
//
// # Backends
//
// The package only depends on the Backend contract. Implementations live in
// backend/software (simulated timeline) and backend/wgpu (gogpu/wgpu HAL).
//
// # Thread Safety
//
// Submitter and Reclaimer are safe for concurrent use; module tasks of one
// phase may acquire and record command lists in parallel. A single
// CommandList must be recorded by one goroutine at a time.
package gpu
