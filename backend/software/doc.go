// Package software provides a CPU-simulated GPU backend.
//
// The backend keeps a single in-order timeline: command buffers are recorded
// as text, queues append them to the timeline and fences complete when the
// simulated GPU reaches them. In the default immediate mode every signal
// completes at once. In manual mode signals stay pending until Step or
// CompleteAll is called, which lets tests hold frames in flight.
//
// Importing the package registers it with the backend registry:
//
//	import _ "github.com/gogpu/frameloop/backend/software"
package software
