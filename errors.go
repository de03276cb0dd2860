package msgloop

import (
	"errors"
	"fmt"
)

// Standard sentinel errors returned by loop operations.
var (
	// ErrLoopAlreadyRunning is returned when Run is called on a loop that is
	// already running.
	ErrLoopAlreadyRunning = errors.New("msgloop: loop is already running")

	// ErrLoopTerminated is returned when operations are attempted on a loop
	// that has already finished running and been closed.
	ErrLoopTerminated = errors.New("msgloop: loop has been terminated")

	// ErrReentrantRun is returned when Run is called from within the loop's
	// own goroutine.
	ErrReentrantRun = errors.New("msgloop: cannot call Run from within the loop")

	// ErrBadHandlerKey is returned when a HandlerKey does not refer to a
	// currently registered handler.
	ErrBadHandlerKey = errors.New("msgloop: handler key not registered")

	// ErrHandlerAlreadyRegistered is returned by AddHandler when the same
	// handle is registered a second time without an intervening RemoveHandler.
	ErrHandlerAlreadyRegistered = errors.New("msgloop: handle already registered")

	// ErrNoCurrentLoop is returned by GetCurrent when called from a goroutine
	// that has no Loop bound to it (a binding is made by New and released by
	// Close).
	ErrNoCurrentLoop = errors.New("msgloop: no loop bound to current goroutine")
)

// TimedOutError reports that a handler's deadline expired before the handle
// it was watching became ready. It is delivered to Handler.OnHandleError.
type TimedOutError struct {
	Key HandlerKey
}

func (e *TimedOutError) Error() string {
	return fmt.Sprintf("msgloop: handler %d timed out", e.Key)
}

// Is reports whether target is also a *TimedOutError, regardless of key.
func (e *TimedOutError) Is(target error) bool {
	_, ok := target.(*TimedOutError)
	return ok
}

// LoopGoneError reports that the dispatcher was destroyed while a handler
// was still registered. It is delivered to Handler.OnHandleError exactly
// once per still-registered handler during Close.
type LoopGoneError struct {
	Key HandlerKey
}

func (e *LoopGoneError) Error() string {
	return fmt.Sprintf("msgloop: loop destroyed with handler %d still registered", e.Key)
}

// Is reports whether target is also a *LoopGoneError, regardless of key.
func (e *LoopGoneError) Is(target error) bool {
	_, ok := target.(*LoopGoneError)
	return ok
}

// WrapError wraps an error with a message, preserving it as the cause for
// errors.Is / errors.As.
func WrapError(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}
