package msgloop

import (
	"time"
)

// PollEvents is a bitset of POSIX-style poll(2) event flags, the vocabulary
// FDWaiter speaks to its callers, as opposed to the Signals vocabulary the
// loop's handler registry speaks internally.
type PollEvents uint32

const (
	PollIn PollEvents = 1 << iota
	PollOut
	PollErr
	PollHup
)

// HandleTranslator bridges a file descriptor to the loop's Handle/Signals
// vocabulary. Begin is called once per Wait, translating the requested
// poll events into a (Handle, Signals) pair to register with the loop. End
// is called once, when the registration becomes ready, translating the
// observed Signals back into poll events.
type HandleTranslator interface {
	Begin(fd int, events PollEvents) (Handle, Signals, error)
	End(fd int, signals Signals) PollEvents
}

// DefaultTranslator is the identity HandleTranslator for platforms (all
// supported here) where a Handle is simply the fd and Signals already use
// the same bit layout as PollEvents.
type DefaultTranslator struct{}

func (DefaultTranslator) Begin(fd int, events PollEvents) (Handle, Signals, error) {
	var sig Signals
	if events&PollIn != 0 {
		sig |= SignalReadable
	}
	if events&PollOut != 0 {
		sig |= SignalWritable
	}
	return Handle(fd), sig, nil
}

func (DefaultTranslator) End(fd int, signals Signals) PollEvents {
	var events PollEvents
	if signals&SignalReadable != 0 {
		events |= PollIn
	}
	if signals&SignalWritable != 0 {
		events |= PollOut
	}
	if signals&SignalError != 0 {
		events |= PollErr
	}
	if signals&SignalHangup != 0 {
		events |= PollHup
	}
	return events
}

// FDWaiterCallback receives the outcome of a single FDWaiter.Wait: err is
// nil on success, in which case events reports what actually became ready;
// on failure events is zero.
type FDWaiterCallback func(err error, events PollEvents)

// FDWaiter is a one-shot adapter from POSIX-style file descriptors to the
// loop's handle-waiting primitive. A single FDWaiter may be reused across
// sequential waits, but supports only one outstanding Wait at a time.
type FDWaiter struct {
	loop       *Loop
	translator HandleTranslator

	fd       int
	key      HandlerKey
	hasKey   bool
	callback FDWaiterCallback
}

// NewFDWaiter constructs a waiter bound to loop, using translator to
// convert between poll events and loop signals. A nil translator defaults
// to DefaultTranslator{}.
func NewFDWaiter(loop *Loop, translator HandleTranslator) *FDWaiter {
	if translator == nil {
		translator = DefaultTranslator{}
	}
	return &FDWaiter{loop: loop, translator: translator}
}

// Wait registers a one-shot watch for events on fd, calling callback
// exactly once when ready or on a handle error (timeout or loop
// destruction). Returns false, without registering and without calling
// callback, if the translator could not produce a handle for fd or the
// loop rejected the registration. It is an error to call Wait again before the previous
// wait's callback has fired or Cancel has been called.
func (w *FDWaiter) Wait(callback FDWaiterCallback, fd int, events PollEvents, timeout time.Duration) bool {
	handle, signals, err := w.translator.Begin(fd, events)
	if err != nil {
		return false
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = w.loop.clock.Now().Add(timeout)
	}

	w.fd = fd
	w.callback = callback

	key, err := w.loop.AddHandler(handle, signals, deadline, w)
	if err != nil {
		w.callback = nil
		return false
	}
	w.key = key
	w.hasKey = true
	return true
}

// Cancel withdraws a pending Wait without invoking its callback. A no-op if
// no wait is outstanding.
func (w *FDWaiter) Cancel() {
	if !w.hasKey {
		return
	}
	_ = w.loop.RemoveHandler(w.key)
	w.hasKey = false
	w.callback = nil
}

// OnHandleReady implements Handler, translating the observed signals back
// to poll events and delivering them to the registered callback exactly
// once. The handler is removed before the callback runs.
func (w *FDWaiter) OnHandleReady(signals Signals) {
	events := w.translator.End(w.fd, signals)
	callback := w.callback
	w.Cancel()
	if callback != nil {
		callback(nil, events)
	}
}

// OnHandleError implements Handler, delivering err to the registered
// callback with zero events. The handler is removed before the callback
// runs.
func (w *FDWaiter) OnHandleError(err error) {
	callback := w.callback
	w.Cancel()
	if callback != nil {
		callback(err, 0)
	}
}
