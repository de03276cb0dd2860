package msgloop

// DataPipeDrainerClient receives whole datagrams read from a
// DataPipeDrainer's source, in order, until the source is exhausted.
type DataPipeDrainerClient interface {
	OnDataAvailable(data []byte)
	OnDataComplete()
}

// DataPipeDrainer is the datagram-oriented counterpart to SocketDrainer:
// instead of an arbitrary byte stream, each non-blocking read yields at
// most one complete datagram, which is delivered to the client as a single
// call. Follows the same ready-until-would-block-or-closed loop and the
// same destruction-sentinel support as SocketDrainer.
type DataPipeDrainer struct {
	client  DataPipeDrainerClient
	loop    *Loop
	fd      int
	maxSize int

	key        HandlerKey
	registered bool

	destroyed *bool
}

// NewDataPipeDrainer constructs a drainer delivering datagrams to client.
// maxDatagramSize bounds the largest single read; a non-positive value
// defaults to 65536.
func NewDataPipeDrainer(client DataPipeDrainerClient, maxDatagramSize int) *DataPipeDrainer {
	if maxDatagramSize <= 0 {
		maxDatagramSize = 65536
	}
	return &DataPipeDrainer{client: client, maxSize: maxDatagramSize}
}

// Start begins draining fd on loop.
func (d *DataPipeDrainer) Start(loop *Loop, fd int) error {
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

// Close cancels draining. Safe to call from within OnDataAvailable.
func (d *DataPipeDrainer) Close() {
	if d.destroyed != nil {
		*d.destroyed = true
	}
	if d.registered {
		_ = d.loop.RemoveHandler(d.key)
		d.registered = false
	}
}

// OnHandleReady implements Handler: reads complete datagrams from fd until
// a read would block (re-wait) or the source is exhausted (remove and
// signal OnDataComplete).
func (d *DataPipeDrainer) OnHandleReady(Signals) {
	destroyed := false
	d.destroyed = &destroyed
	defer func() { d.destroyed = nil }()

	buf := make([]byte, d.maxSize)
	for {
		n, err := readFD(d.fd, buf)
		if n > 0 {
			d.client.OnDataAvailable(buf[:n])
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

// OnHandleError implements Handler; see SocketDrainer.OnHandleError.
func (d *DataPipeDrainer) OnHandleError(error) {
	d.finish(false, false)
}

func (d *DataPipeDrainer) finish(alreadyDestroyed, unregister bool) {
	if unregister && d.registered {
		_ = d.loop.RemoveHandler(d.key)
	}
	d.registered = false
	if alreadyDestroyed {
		return
	}
	d.client.OnDataComplete()
}
