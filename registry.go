package msgloop

import (
	"sync"
	"time"
)

// HandlerKey is an opaque, monotonically increasing, non-zero identifier
// returned by AddHandler. It remains valid until the corresponding
// RemoveHandler call, or until the owning Loop is closed.
type HandlerKey uint64

// Handler receives readiness and error notifications for a handle
// registered with a Loop via AddHandler.
//
// OnHandleReady is invoked when the loop observes any of the watched
// signals on the handle. OnHandleError is invoked when the handle's
// deadline expires (with a *TimedOutError) or when the owning loop is
// destroyed while the handler is still registered (with a *LoopGoneError).
// A Handler may call RemoveHandler on itself (or on any other still-valid
// key) from within either callback.
type Handler interface {
	OnHandleReady(signals Signals)
	OnHandleError(err error)
}

// handlerRecord is the registry's bookkeeping for one AddHandler call.
type handlerRecord struct {
	key      HandlerKey
	handle   Handle
	signals  Signals
	deadline time.Time
	handler  Handler
	removed  bool
}

// handlerRegistry tracks handlers keyed by opaque HandlerKey values, and
// implements the reentrancy discipline a Handler's callback needs: a
// handler may remove itself (or another handler) while its own callback is
// executing, without the registry's iteration state going stale.
//
// CALLER DISCIPLINE: mutating methods are expected to be called only from
// the owning Loop's goroutine, matching the single-owning-thread contract
// of the rest of the package. Every method takes mu, so informational
// reads like has (HasHandler) may run concurrently from other goroutines.
type handlerRegistry struct {
	mu sync.Mutex

	records map[HandlerKey]*handlerRecord
	byHandle map[Handle]HandlerKey
	nextKey  HandlerKey

	// currentKey and currentRemoved implement deferred self-removal
	// (mark-and-reclaim): while dispatching a callback for currentKey, a self-removal
	// (RemoveHandler(currentKey)) sets currentRemoved instead of deleting
	// the record immediately, so the dispatcher can still distinguish
	// "ran and removed itself" from "ran and stayed registered" once the
	// callback returns.
	currentKey     HandlerKey
	currentRemoved bool
}

func newHandlerRegistry() *handlerRegistry {
	return &handlerRegistry{
		records:  make(map[HandlerKey]*handlerRecord),
		byHandle: make(map[Handle]HandlerKey),
		nextKey:  1,
	}
}

// add registers a new handler, returning its key. Returns
// ErrHandlerAlreadyRegistered if handle already has a live registration.
func (r *handlerRegistry) add(handle Handle, signals Signals, deadline time.Time, h Handler) (HandlerKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byHandle[handle]; exists {
		return 0, ErrHandlerAlreadyRegistered
	}

	key := r.nextKey
	r.nextKey++

	r.records[key] = &handlerRecord{
		key:      key,
		handle:   handle,
		signals:  signals,
		deadline: deadline,
		handler:  h,
	}
	r.byHandle[handle] = key
	return key, nil
}

// remove unregisters key. If key is the handler currently being dispatched
// (a self-removal from within OnHandleReady/OnHandleError), the record is
// kept until the dispatcher finishes the call so other iteration in
// progress over the map doesn't observe a record disappearing mid-callback.
func (r *handlerRegistry) remove(key HandlerKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[key]
	if !ok || rec.removed {
		return ErrBadHandlerKey
	}

	if key == r.currentKey {
		r.currentRemoved = true
		rec.removed = true
		return nil
	}

	rec.removed = true
	delete(r.records, key)
	delete(r.byHandle, rec.handle)
	return nil
}

func (r *handlerRegistry) has(key HandlerKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	// A record still present with removed set is the in-flight handler's
	// pending self-removal; it stays visible until dispatch returns.
	_, ok := r.records[key]
	return ok
}

func (r *handlerRegistry) get(key HandlerKey) (*handlerRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	if !ok || rec.removed {
		return nil, false
	}
	return rec, true
}

// snapshot returns a stable copy of the currently registered records, safe
// to iterate while the registry is mutated by callbacks invoked during
// that iteration.
func (r *handlerRegistry) snapshot() []*handlerRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*handlerRecord, 0, len(r.records))
	for _, rec := range r.records {
		if !rec.removed {
			out = append(out, rec)
		}
	}
	return out
}

// dispatch invokes fn with key marked as the in-flight handler, honoring
// the self-removal sentinel described on currentKey/currentRemoved.
// Returns true if the handler removed itself during fn.
func (r *handlerRegistry) dispatch(key HandlerKey, fn func()) (selfRemoved bool) {
	r.mu.Lock()
	prevKey, prevRemoved := r.currentKey, r.currentRemoved
	r.currentKey = key
	r.currentRemoved = false
	r.mu.Unlock()

	fn()

	r.mu.Lock()
	selfRemoved = r.currentRemoved
	if selfRemoved {
		delete(r.records, key)
		// byHandle entry for this key may already be gone if a later
		// AddHandler reused the same handle value; only clear it if it
		// still points at this key.
		for h, k := range r.byHandle {
			if k == key {
				delete(r.byHandle, h)
				break
			}
		}
	}
	r.currentKey, r.currentRemoved = prevKey, prevRemoved
	r.mu.Unlock()

	return selfRemoved
}

// notifyAllGone delivers a *LoopGoneError to every still-registered
// handler, in a fixed-point loop: a handler's OnHandleError may itself
// register a new handler, which must also be notified before
// notifyAllGone returns. The loop is bounded because every notified
// handler is immediately removed, so each pass strictly shrinks the live
// set or it terminates.
//
// Every record captured in a pass's batch is notified exactly once, even
// if another handler's callback removes it first (e.g. one handler
// removing a sibling from within its own OnHandleError): destruction
// notification is a property of having been registered when the pass
// began, not of still being present by the time its turn comes up.
func (r *handlerRegistry) notifyAllGone() {
	for {
		batch := r.snapshot()
		if len(batch) == 0 {
			return
		}
		for _, rec := range batch {
			r.dispatch(rec.key, func() {
				rec.handler.OnHandleError(&LoopGoneError{Key: rec.key})
			})
			r.mu.Lock()
			if _, ok := r.records[rec.key]; ok {
				delete(r.records, rec.key)
				delete(r.byHandle, rec.handle)
			}
			r.mu.Unlock()
		}
	}
}
