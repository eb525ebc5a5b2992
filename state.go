package frameloop

import "fmt"

// State is the orchestrator lifecycle state.
type State int32

const (
	// StateIdle is the state before Run.
	StateIdle State = iota

	// StateRunning is set while Run is producing frames.
	StateRunning

	// StateStopping is set once a stop was decided and the last frame and
	// the GPU flush are finishing.
	StateStopping

	// StateStopped is final.
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}
