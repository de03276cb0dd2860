package msgloop

import (
	"context"
	"runtime"
)

// CreateLoopThread spawns a goroutine that constructs a Loop (the
// goroutine becomes the loop's bound thread, satisfying the thread-
// affinity requirement that a Loop must be constructed and Run on the
// same goroutine) and runs it to completion, calling onReady with the
// constructed Loop once it exists and before Run is called, and onExit
// (if non-nil) with Run's error once it returns. name is cosmetic (Go
// goroutines can't be named) and is reserved for use in log output.
//
// CreateLoopThread returns once the Loop has been constructed (or
// construction failed), so callers can safely start posting tasks to the
// *Loop passed to onReady as soon as CreateLoopThread returns.
func CreateLoopThread(name string, onReady func(*Loop, error), onExit func(error), opts ...LoopOption) {
	_ = name
	ready := make(chan struct{})
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		l, err := New(opts...)
		if onReady != nil {
			onReady(l, err)
		}
		close(ready)
		if err != nil {
			return
		}
		defer l.Close()

		runErr := l.Run(context.Background())
		if onExit != nil {
			onExit(runErr)
		}
	}()
	<-ready
}
