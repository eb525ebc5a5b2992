// Package backend selects the GPU backend a frame loop submits to.
//
// Backends register a factory from an init function and are chosen at
// runtime by name or by priority:
//
//	import _ "github.com/gogpu/frameloop/backend/software"
//
//	b, err := backend.Open("", backend.Options{})   // best available
//	b, err := backend.Open("wgpu", backend.Options{})
//
// The software backend simulates a GPU timeline on the CPU and is always
// available. The wgpu backend drives a gogpu/wgpu HAL device and is
// available when an adapter can be opened.
package backend
