package handoff

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrClosed is returned when writing to a closed buffer or running a pipeline twice.
	ErrClosed = errors.New("buffer is closed")
	// ErrExhausted is returned by a [Source] that has no more items. Once returned, it is
	// returned by every following call.
	ErrExhausted = errors.New("source is exhausted")
	// ErrInvalidCapacity is returned when a buffer is created with capacity < 1.
	ErrInvalidCapacity = errors.New("capacity can't be < 1")
	// ErrSentinelMismatch is returned when sentinel shutdown is configured with a different
	// number of producers and consumers.
	ErrSentinelMismatch = errors.New("sentinel shutdown requires producers == consumers")
	// ErrDeadlock is wrapped by [DeadlockError].
	ErrDeadlock = errors.New("workers still alive after timeout")
)

// DeadlockError describes a run that didn't finish in time. It usually means that capacity
// or the number of sentinels doesn't match the number of workers.
type DeadlockError struct {
	Timeout time.Duration
	// Alive lists workers that didn't return, with their last state.
	Alive []WorkerStatus
	// Buffered is the buffer length observed at the timeout.
	Buffered int
}

// WorkerStatus is a diagnostic snapshot of a worker.
type WorkerStatus struct {
	Name  string
	State State
}

func (e *DeadlockError) Error() string {
	workers := make([]string, len(e.Alive))
	for i, w := range e.Alive {
		workers[i] = w.Name + "=" + w.State.String()
	}
	return fmt.Sprintf(
		"%s: timeout %s, buffered %d, alive [%s]",
		ErrDeadlock, e.Timeout, e.Buffered, strings.Join(workers, " "),
	)
}

func (e *DeadlockError) Unwrap() error {
	return ErrDeadlock
}
