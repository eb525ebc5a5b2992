// Package frameloop schedules the per-frame work of a real-time renderer.
//
// # Overview
//
// An Orchestrator drives independently written modules through a fixed
// sequence of phases every frame and brackets the frame with GPU command
// submission. Up to N frames are in flight on the GPU; resources a frame
// stops using are released only once the GPU has finished with it.
//
// # Quick Start
//
//	b := software.New(software.Options{})
//	sub, _ := gpu.NewSubmitter(b, config.Default().SubmitterOptions())
//	orch, _ := frameloop.New(sub, frameloop.WithConfig(config.Default()))
//
//	orch.Registry().RegisterModule(physics, frameloop.PriorityNormal, frameloop.NonCritical)
//	orch.Registry().RegisterModule(renderer, frameloop.PriorityLate, frameloop.Critical)
//
//	err := orch.Run(ctx)
//
// # Phases
//
// Phases run in this order, once per frame:
//   - FrameStart (synchronous): register surfaces and views
//   - Input: consume platform input
//   - SceneMutation: simulation and gameplay
//   - TransformPropagation: world transforms
//   - FrameGraph: build the render graph
//   - CommandRecord: record command lists, submitted when the phase joins
//   - FrameEnd (synchronous)
//   - Compositing: followed by one present pass over presentable surfaces
//
// Synchronous phases call handlers one at a time in priority order.
// Asynchronous phases start one goroutine per interested module and join
// all of them before the next phase starts. Modules of one phase share the
// FrameContext, which is safe for concurrent use.
//
// # Failures
//
// A handler error or panic becomes a *ModuleError in the phase's
// PhaseResult. A non-critical failure only drops that module's contribution
// for the frame. A critical failure cancels the module's running siblings,
// skips the remaining phases and the present pass, and RunFrame returns an
// error wrapping ErrFrameAborted. The GPU frame is ended in every case.
//
// # Packages
//
// The frame loop is organized into:
//   - frameloop: Orchestrator, Registry, FrameContext, phases
//   - gpu: Submitter, CommandList, Reclaimer, frame slots, backend contract
//   - backend: backend registry; software and wgpu implementations
//   - platform: window and event loop contracts
//   - config, metrics: configuration files and Prometheus instrumentation
package frameloop

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
