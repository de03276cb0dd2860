package msgloop

import (
	"runtime"
	"sync"
)

// currentLoops is the process-wide thread-local "current loop" table,
// keyed by goroutine ID. At most one Loop may be bound per goroutine at a
// time; binding is tied to the lifecycle of New/Close.
var currentLoops = struct {
	mu sync.Mutex
	m  map[uint64]*Loop
}{m: make(map[uint64]*Loop)}

// bindCurrentLoop binds l to the calling goroutine as its current loop.
// Returns ErrReentrantRun if the goroutine already has a loop bound — constructing a second loop on a thread that
// already has one is a caller error per the reentrancy contract.
func bindCurrentLoop(l *Loop) error {
	id := currentGoroutineID()

	currentLoops.mu.Lock()
	defer currentLoops.mu.Unlock()

	if _, exists := currentLoops.m[id]; exists {
		return ErrReentrantRun
	}
	currentLoops.m[id] = l
	return nil
}

// unbindCurrentLoop clears l's binding, wherever it was bound. Loops may be
// constructed on one goroutine and later closed from another in edge cases
// (e.g. a watchdog goroutine forcing Close), so this searches by value
// rather than assuming the calling goroutine owns the binding.
func unbindCurrentLoop(l *Loop) {
	currentLoops.mu.Lock()
	defer currentLoops.mu.Unlock()
	for id, bound := range currentLoops.m {
		if bound == l {
			delete(currentLoops.m, id)
			return
		}
	}
}

// GetCurrent returns the Loop bound to the calling goroutine, or
// ErrNoCurrentLoop if none is bound.
func GetCurrent() (*Loop, error) {
	id := currentGoroutineID()

	currentLoops.mu.Lock()
	defer currentLoops.mu.Unlock()

	l, ok := currentLoops.m[id]
	if !ok {
		return nil, ErrNoCurrentLoop
	}
	return l, nil
}

// currentGoroutineID extracts the numeric goroutine ID from the runtime
// stack trace header ("goroutine 123 [running]:..."), the same trick Go's
// runtime tests use since there is no public API for it.
func currentGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
