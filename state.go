package handoff

import "sync/atomic"

// State is a lifecycle state of a worker.
type State int32

const (
	// StateIdle means the worker hasn't been run yet.
	StateIdle State = iota
	// StateRunning means the worker is moving items.
	StateRunning
	// StateStopping means the producer is sending its stop sentinel.
	StateStopping
	// StateDone means the worker has returned.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

type state struct {
	v atomic.Int32
}

func (s *state) load() State {
	return State(s.v.Load())
}

func (s *state) store(v State) {
	s.v.Store(int32(v))
}
