package msgloop

import "sync"

// VFSHandlerFunc handles a ready signal for a handle registered through a
// VFSDispatcher, returning false to request that the dispatcher stop
// watching it.
type VFSHandlerFunc func(signals Signals) bool

// VFSDispatcher adapts a Loop into the narrow registration surface a
// filesystem-style server expects: register a handle with a callback,
// track it, and support bulk Stop without the caller needing to keep its
// own bookkeeping. It is a thin collaborator over Loop.AddHandler /
// RemoveHandler, not a second dispatcher.
type VFSDispatcher struct {
	loop *Loop

	mu       sync.Mutex
	handlers map[HandlerKey]*vfsHandler
}

type vfsHandler struct {
	key     HandlerKey
	handle  Handle
	dispatcher *VFSDispatcher
	fn      VFSHandlerFunc
}

// NewVFSDispatcher returns a dispatcher that registers handles on loop.
func NewVFSDispatcher(loop *Loop) *VFSDispatcher {
	return &VFSDispatcher{loop: loop, handlers: make(map[HandlerKey]*vfsHandler)}
}

// AddVFSHandler registers handle for signals, invoking fn on each ready
// signal. fn's return value controls whether the handler keeps watching:
// returning false stops and removes it, matching VFSHandlerFunc's "keep
// watching" contract.
func (d *VFSDispatcher) AddVFSHandler(handle Handle, signals Signals, fn VFSHandlerFunc) (HandlerKey, error) {
	h := &vfsHandler{handle: handle, dispatcher: d, fn: fn}
	key, err := d.loop.AddHandler(handle, signals, zeroDeadline, h)
	if err != nil {
		return 0, err
	}
	h.key = key

	d.mu.Lock()
	d.handlers[key] = h
	d.mu.Unlock()
	return key, nil
}

// Stop withdraws the handler registered under key, if still present.
func (d *VFSDispatcher) Stop(key HandlerKey) error {
	d.mu.Lock()
	_, ok := d.handlers[key]
	delete(d.handlers, key)
	d.mu.Unlock()
	if !ok {
		return ErrBadHandlerKey
	}
	return d.loop.RemoveHandler(key)
}

// StopAll withdraws every handler currently registered through d.
func (d *VFSDispatcher) StopAll() {
	d.mu.Lock()
	keys := make([]HandlerKey, 0, len(d.handlers))
	for k := range d.handlers {
		keys = append(keys, k)
	}
	d.handlers = make(map[HandlerKey]*vfsHandler)
	d.mu.Unlock()

	for _, k := range keys {
		_ = d.loop.RemoveHandler(k)
	}
}

func (h *vfsHandler) OnHandleReady(signals Signals) {
	if !h.fn(signals) {
		h.dispatcher.mu.Lock()
		delete(h.dispatcher.handlers, h.key)
		h.dispatcher.mu.Unlock()
		_ = h.dispatcher.loop.RemoveHandler(h.key)
	}
}

func (h *vfsHandler) OnHandleError(error) {
	h.dispatcher.mu.Lock()
	delete(h.dispatcher.handlers, h.key)
	h.dispatcher.mu.Unlock()
}
