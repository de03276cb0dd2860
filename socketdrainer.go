package msgloop

// SocketDrainerClient receives bytes read from a SocketDrainer's source, in
// order, until the source is exhausted.
type SocketDrainerClient interface {
	OnDataAvailable(data []byte)
	OnDataComplete()
}

// SocketDrainer reads a byte-oriented handle to completion: on each ready
// signal it performs non-blocking reads until the source reports it would
// block (re-wait) or is closed (signal completion). It supports the
// destruction-sentinel idiom, letting a client delete the drainer from
// within OnDataAvailable.
type SocketDrainer struct {
	client SocketDrainerClient
	loop   *Loop
	fd     int
	buf    []byte

	key        HandlerKey
	registered bool

	// destroyed points at a bool owned by the current OnHandleReady stack
	// frame (nil when no callback is in flight). Close sets *destroyed so
	// that frame can stop touching drainer state once it returns control
	// to the client.
	destroyed *bool
}

// NewSocketDrainer constructs a drainer delivering data to client. bufSize
// sets the read chunk size; a non-positive value defaults to 4096.
func NewSocketDrainer(client SocketDrainerClient, bufSize int) *SocketDrainer {
	if bufSize <= 0 {
		bufSize = 4096
	}
	return &SocketDrainer{client: client, buf: make([]byte, bufSize)}
}

// Start begins draining fd on loop, registering a handler that watches
// readability with no deadline.
func (d *SocketDrainer) Start(loop *Loop, fd int) error {
	d.loop = loop
	d.fd = fd
	key, err := loop.AddHandler(Handle(fd), SignalReadable, zeroDeadline, d)
	if err != nil {
		return err
	}
	d.key = key
	d.registered = true
	return nil
}

// Close cancels draining. Safe to call from within OnDataAvailable: the
// in-flight read loop observes the destruction sentinel and returns
// without touching drainer state again.
func (d *SocketDrainer) Close() {
	if d.destroyed != nil {
		*d.destroyed = true
	}
	if d.registered {
		_ = d.loop.RemoveHandler(d.key)
		d.registered = false
	}
}

// OnHandleReady implements Handler: reads fd in a loop, delivering chunks
// to the client, until the read would block (handler stays registered,
// returns to wait for the next ready signal) or the source is exhausted
// (handler is removed and OnDataComplete fires exactly once).
func (d *SocketDrainer) OnHandleReady(Signals) {
	destroyed := false
	d.destroyed = &destroyed
	defer func() { d.destroyed = nil }()

	for {
		n, err := readFD(d.fd, d.buf)
		if n > 0 {
			d.client.OnDataAvailable(d.buf[:n])
			if destroyed {
				return
			}
		}
		if err != nil {
			if isWouldBlock(err) {
				return
			}
			d.finish(destroyed, true)
			return
		}
		if n == 0 {
			d.finish(destroyed, true)
			return
		}
	}
}

// OnHandleError implements Handler: any handle error (including deadline
// expiry, though drainers register with no deadline) ends the drain. The
// dispatcher withdraws the registration itself on this path: before this
// call on deadline expiry, right after it during Close.
func (d *SocketDrainer) OnHandleError(error) {
	d.finish(false, false)
}

// finish reports completion to the client, unless alreadyDestroyed (the
// client deleted the drainer from within OnDataAvailable, in which case no
// further drainer state may be touched). unregister controls whether
// finish must itself withdraw the loop registration (true when reached
// from OnHandleReady, where the dispatcher leaves the handler registered;
// false when reached from OnHandleError, where the dispatcher removes it).
func (d *SocketDrainer) finish(alreadyDestroyed, unregister bool) {
	if unregister && d.registered {
		_ = d.loop.RemoveHandler(d.key)
	}
	d.registered = false
	if alreadyDestroyed {
		return
	}
	d.client.OnDataComplete()
}
