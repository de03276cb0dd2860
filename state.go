package msgloop

import (
	"sync/atomic"
)

// runState represents the current state of a Loop's dispatch machinery.
//
// State Machine:
//
//	stateIdle (0)       -> stateRunning (1)     [Run begins]
//	stateRunning (1)    -> stateQuitting (2)    [QuitNow / PostQuitTask fires]
//	stateQuitting (2)   -> stateIdle (0)        [Run returns, ready to re-Run]
//	any state           -> stateTerminated (3)  [Close]
//
// stateIdle is also the state a freshly constructed Loop starts in, before
// Run has ever been called, and the state it returns to after a clean
// QuitNow/Run round-trip. stateTerminated is sticky: once a Loop has been
// Closed, no further Run calls succeed.
type runState uint32

const (
	stateIdle runState = iota
	stateRunning
	stateQuitting
	stateTerminated
)

func (s runState) String() string {
	switch s {
	case stateIdle:
		return "Idle"
	case stateRunning:
		return "Running"
	case stateQuitting:
		return "Quitting"
	case stateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// atomicState is a lock-free holder for runState, cache-line padded to
// avoid false sharing with adjacent hot fields in Loop.
type atomicState struct { // betteralign:ignore
	_ [64]byte
	v atomic.Uint32
	_ [60]byte
}

func newAtomicState(initial runState) *atomicState {
	s := &atomicState{}
	s.v.Store(uint32(initial))
	return s
}

func (s *atomicState) Load() runState {
	return runState(s.v.Load())
}

func (s *atomicState) Store(state runState) {
	s.v.Store(uint32(state))
}

// TryTransition attempts an atomic CAS from `from` to `to`, returning true
// on success.
func (s *atomicState) TryTransition(from, to runState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}
