package msgloop

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Handle is an opaque, non-negative integer referring to a kernel object
// capable of asserting signal bits. On Unix platforms it is a file
// descriptor; on Windows it wraps a HANDLE/SOCKET value through the
// platform poller.
type Handle int

// AfterTaskCallback is invoked once after every dispatched task and every
// handler callback run by Run, giving callers a single hook point for
// cross-cutting concerns like metrics or logging. It is not invoked after a
// task that leaves the loop no longer running (such as the quit task), nor
// for the LoopGoneError notifications Close delivers.
type AfterTaskCallback func()

// Loop is a per-thread cooperative event loop: a single-threaded dispatcher
// multiplexing a task queue against a set of handle/signal/deadline
// watches. Exactly one Loop may be constructed and run per goroutine; see
// GetCurrent.
type Loop struct { // betteralign:ignore
	_ [0]func() // no copy

	id uint64

	clock Clock
	log   *loopLogger

	state *atomicState

	queue    *incomingTaskQueue
	registry *handlerRegistry

	poller platformPoller

	wakeRead  int
	wakeWrite int

	afterTaskMu sync.Mutex
	afterTask   AfterTaskCallback

	metrics *dispatchMetrics

	loopGoroutineID atomic.Uint64
	runActive       atomic.Bool
	runDone         chan struct{}

	closeOnce sync.Once
	closed    chan struct{}
}

var loopIDCounter atomic.Uint64

// LoopOption customizes a Loop at construction; see options.go.
type LoopOption func(*loopConfig)

// New constructs a Loop bound to the calling goroutine. It is an error to
// call New again on the same goroutine before the returned Loop's Close.
func New(opts ...LoopOption) (*Loop, error) {
	cfg := defaultLoopConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	wakeRead, wakeWrite, err := createWakeHandle(0, efdCloexec|efdNonblock)
	if err != nil {
		return nil, err
	}

	l := &Loop{
		id:        loopIDCounter.Add(1),
		clock:     cfg.clock,
		log:       newLoopLogger(cfg.logger),
		state:     newAtomicState(stateIdle),
		queue:     newIncomingTaskQueue(),
		registry:  newHandlerRegistry(),
		wakeRead:  wakeRead,
		wakeWrite: wakeWrite,
		metrics:   newDispatchMetrics(cfg.trackMetrics),
		closed:    make(chan struct{}),
	}

	if err := l.poller.Init(); err != nil {
		closeWakeHandle(wakeRead, wakeWrite)
		return nil, err
	}

	if wakeRead >= 0 {
		if err := l.poller.RegisterHandle(Handle(wakeRead), SignalReadable, func(Signals) {
			drainWakeHandle(wakeRead)
		}); err != nil {
			_ = l.poller.Close()
			closeWakeHandle(wakeRead, wakeWrite)
			return nil, err
		}
	}

	if err := bindCurrentLoop(l); err != nil {
		_ = l.poller.Close()
		closeWakeHandle(wakeRead, wakeWrite)
		return nil, err
	}

	return l, nil
}

// PostTask enqueues run to be dispatched as soon as possible, preserving
// FIFO order relative to other tasks posted from the same goroutine at the
// same target time. Safe to call from any goroutine, before Run, during
// Run, or after the loop has stopped.
func (l *Loop) PostTask(run func()) {
	l.PostTaskForTime(run, l.clock.Now())
}

// PostDelayedTask enqueues run to become eligible after delay has elapsed.
func (l *Loop) PostDelayedTask(run func(), delay time.Duration) {
	l.PostTaskForTime(run, l.clock.Now().Add(delay))
}

// PostTaskForTime enqueues run to become eligible at the given absolute
// time.
func (l *Loop) PostTaskForTime(run func(), target time.Time) {
	l.queue.push(run, target)
	l.wake()
}

// PostQuitTask posts a task whose sole effect is QuitNow; safe from any
// goroutine at any time.
func (l *Loop) PostQuitTask() {
	l.PostTask(func() {
		_ = l.QuitNow()
	})
}

// QuitNow transitions a running loop to Quitting. It must be called only
// from the loop's owning goroutine, while Run is on the stack; calling it
// at any other time outside Run is legal only on a freshly constructed or
// already-quit loop, where it is a well-defined no-op setup for the next
// Run to return immediately.
func (l *Loop) QuitNow() error {
	for {
		cur := l.state.Load()
		switch cur {
		case stateTerminated:
			return ErrLoopTerminated
		case stateQuitting:
			return nil
		case stateIdle:
			if l.state.TryTransition(stateIdle, stateQuitting) {
				return nil
			}
		case stateRunning:
			if l.state.TryTransition(stateRunning, stateQuitting) {
				return nil
			}
		}
	}
}

// RunsOnCurrentThread reports whether the calling goroutine is the loop's
// owning goroutine.
func (l *Loop) RunsOnCurrentThread() bool {
	id := l.loopGoroutineID.Load()
	return id != 0 && id == currentGoroutineID()
}

// SetAfterTaskCallback installs hook to run after every dispatched task and
// handler callback, replacing any previously installed hook.
func (l *Loop) SetAfterTaskCallback(hook AfterTaskCallback) {
	l.afterTaskMu.Lock()
	l.afterTask = hook
	l.afterTaskMu.Unlock()
}

// ClearAfterTaskCallback removes any installed after-task hook.
func (l *Loop) ClearAfterTaskCallback() {
	l.SetAfterTaskCallback(nil)
}

func (l *Loop) runAfterTaskHook() {
	l.afterTaskMu.Lock()
	hook := l.afterTask
	l.afterTaskMu.Unlock()
	if hook != nil {
		hook()
	}
}

// AddHandler registers h to observe signals on handle, with an optional
// absolute deadline (the zero time.Time means "never"). It must be called
// only from the owning goroutine.
func (l *Loop) AddHandler(handle Handle, signals Signals, deadline time.Time, h Handler) (HandlerKey, error) {
	key, err := l.registry.add(handle, signals, deadline, h)
	if err != nil {
		return 0, err
	}
	if err := l.poller.RegisterHandle(handle, signals, func(sig Signals) {
		l.onHandleReady(key, sig)
	}); err != nil {
		_ = l.registry.remove(key)
		return 0, err
	}
	return key, nil
}

// RemoveHandler unregisters key. If key belongs to the handler currently
// executing its own callback, removal is deferred until that callback
// returns. Returns ErrBadHandlerKey for an unknown or already-removed key.
func (l *Loop) RemoveHandler(key HandlerKey) error {
	rec, ok := l.registry.get(key)
	if !ok {
		return ErrBadHandlerKey
	}
	if err := l.registry.remove(key); err != nil {
		return err
	}
	_ = l.poller.UnregisterHandle(rec.handle)
	return nil
}

// HasHandler reports whether key is a live registration. Per the documented
// open question, a handler that requested its own removal from within its
// callback still reports true until the callback returns.
func (l *Loop) HasHandler(key HandlerKey) bool {
	return l.registry.has(key)
}

func (l *Loop) onHandleReady(key HandlerKey, sig Signals) {
	rec, ok := l.registry.get(key)
	if !ok {
		return
	}
	start := l.clock.Now()
	l.registry.dispatch(key, func() {
		rec.handler.OnHandleReady(sig)
	})
	l.metrics.observeHandler(l.clock.Now().Sub(start))
	l.runAfterTaskHook()
}

func (l *Loop) onHandleTimeout(rec *handlerRecord) {
	_ = l.registry.remove(rec.key)
	_ = l.poller.UnregisterHandle(rec.handle)
	l.registry.dispatch(rec.key, func() {
		rec.handler.OnHandleError(&TimedOutError{Key: rec.key})
	})
	l.runAfterTaskHook()
}

// Run blocks the calling goroutine, dispatching tasks and handler callbacks
// until QuitNow is invoked. It is an error to call Run from within the loop
// itself, or to call it concurrently, or after the loop has been closed.
func (l *Loop) Run(ctx context.Context) error {
	if l.RunsOnCurrentThread() {
		return ErrReentrantRun
	}
	if !l.state.TryTransition(stateIdle, stateRunning) {
		switch l.state.Load() {
		case stateTerminated:
			return ErrLoopTerminated
		case stateQuitting:
			// Freshly quit-before-run: consume the quit and return.
			l.state.Store(stateIdle)
			return nil
		default:
			return ErrLoopAlreadyRunning
		}
	}

	l.loopGoroutineID.Store(currentGoroutineID())
	defer l.loopGoroutineID.Store(0)

	runDone := make(chan struct{})
	l.runDone = runDone
	l.runActive.Store(true)
	defer func() {
		l.runActive.Store(false)
		close(runDone)
	}()

	ctxDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			// Cancelling ctx behaves like an external QuitNow: transition
			// out of Running (or arm the quit for a not-yet-started Run)
			// and wake a blocked PollIO so the state change is observed
			// promptly instead of only on the next unrelated wakeup.
			_ = l.QuitNow()
			l.wake()
		case <-ctxDone:
		}
	}()
	defer close(ctxDone)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		if done, err := l.checkQuitOrTerminated(ctx); done {
			return err
		}

		l.dispatchDueTasks()

		if done, err := l.checkQuitOrTerminated(ctx); done {
			return err
		}

		timeoutMs := l.computeWaitTimeout()
		if _, err := l.poller.PollIO(timeoutMs); err != nil {
			if l.state.Load() == stateTerminated {
				return ErrLoopTerminated
			}
			l.log.warn("poll error", err)
			return err
		}

		l.dispatchExpiredHandlers()
	}
}

// checkQuitOrTerminated reports whether Run should return now: either a
// graceful QuitNow (state settles back to Idle) or a concurrent Close
// (state stays Terminated).
func (l *Loop) checkQuitOrTerminated(ctx context.Context) (bool, error) {
	switch l.state.Load() {
	case stateQuitting:
		l.state.Store(stateIdle)
		return true, ctx.Err()
	case stateTerminated:
		return true, ErrLoopTerminated
	default:
		return false, nil
	}
}

// dispatchDueTasks runs due tasks one at a time, re-checking the loop's
// state after each one: a task that calls QuitNow (directly, or via the
// quit task PostQuitTask posts) must stop further dispatch in this same
// sweep, leaving any later-due tasks in the queue for a subsequent Run,
// and must not itself trigger the after-task hook.
func (l *Loop) dispatchDueTasks() {
	for l.state.Load() == stateRunning {
		t, ok := l.queue.popOneReady(l.clock.Now())
		if !ok {
			return
		}
		start := l.clock.Now()
		t.run()
		if l.state.Load() != stateRunning {
			return
		}
		l.metrics.observeTask(l.clock.Now().Sub(start))
		l.runAfterTaskHook()
	}
}

func (l *Loop) dispatchExpiredHandlers() {
	now := l.clock.Now()
	for _, rec := range l.registry.snapshot() {
		if hasDeadline(rec.deadline) && !rec.deadline.After(now) {
			l.onHandleTimeout(rec)
		}
	}
}

func (l *Loop) computeWaitTimeout() int {
	var deadline time.Time
	var has bool

	if d, ok := l.queue.nextDeadline(); ok {
		deadline, has = d, true
	}
	for _, rec := range l.registry.snapshot() {
		if !hasDeadline(rec.deadline) {
			continue
		}
		if !has || rec.deadline.Before(deadline) {
			deadline, has = rec.deadline, true
		}
	}

	if !has {
		return -1
	}
	remaining := deadline.Sub(l.clock.Now())
	if remaining <= 0 {
		return 0
	}
	ms := remaining.Milliseconds()
	if ms > int64(^uint32(0)>>1) {
		ms = int64(^uint32(0) >> 1)
	}
	return int(ms)
}

func (l *Loop) wake() {
	_ = l.poller.Wakeup(l.wakeWrite)
}

// Close immediately terminates the loop, notifying every still-registered
// handler with LoopGoneError (fixed-point over handlers added by those
// very notifications), destroying remaining queued tasks without
// dispatching them, and releasing platform resources. Must not be called
// from within a callback running on the loop's own goroutine.
func (l *Loop) Close() error {
	var outerErr error
	l.closeOnce.Do(func() {
		for {
			cur := l.state.Load()
			if cur == stateTerminated {
				outerErr = ErrLoopTerminated
				return
			}
			if l.state.TryTransition(cur, stateTerminated) {
				break
			}
		}

		// Unblock a concurrent Run stuck in PollIO and wait for it to
		// actually return before touching registry/queue state, so
		// notifyAllGone never races a live dispatch on another goroutine.
		if l.runActive.Load() {
			l.wake()
			<-l.runDone
		}

		l.registry.notifyAllGone()
		l.queue.drainAll()

		unbindCurrentLoop(l)

		_ = l.poller.Close()
		closeWakeHandle(l.wakeRead, l.wakeWrite)
		close(l.closed)
	})
	return outerErr
}
