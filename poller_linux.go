//go:build linux

package msgloop

import (
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// maxHandles is the number of handles we support with direct array
// indexing before falling back is simply an error.
const maxHandles = 65536

// Signals is a bitset of handle readiness conditions a Handler can watch
// for via AddHandler.
type Signals uint32

const (
	// SignalReadable indicates the handle is ready for reading.
	SignalReadable Signals = 1 << iota
	// SignalWritable indicates the handle is ready for writing.
	SignalWritable
	// SignalError indicates an error condition on the handle.
	SignalError
	// SignalHangup indicates the peer closed its end of the connection.
	SignalHangup
)

// Errors returned by the platform poller.
var (
	ErrHandleOutOfRange        = errors.New("msgloop: handle out of range (max 65535)")
	ErrHandleAlreadyRegistered = errors.New("msgloop: handle already registered with poller")
	ErrHandleNotRegistered     = errors.New("msgloop: handle not registered with poller")
	ErrPollerClosed            = errors.New("msgloop: poller closed")
)

// pollCallback is invoked by the poller when a registered handle becomes
// ready, with the observed signals.
type pollCallback func(Signals)

type handleInfo struct {
	callback pollCallback
	signals  Signals
	active   bool
}

// platformPoller manages handle registration using epoll (Linux).
type platformPoller struct { // betteralign:ignore
	_        [64]byte
	epfd     int32
	_        [60]byte
	version  atomic.Uint64
	_        [56]byte
	eventBuf [256]unix.EpollEvent
	handles  [maxHandles]handleInfo
	mu       sync.RWMutex
	closed   atomic.Bool
}

func (p *platformPoller) Init() error {
	if p.closed.Load() {
		return ErrPollerClosed
	}
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return err
	}
	p.epfd = int32(epfd)
	return nil
}

func (p *platformPoller) Close() error {
	p.closed.Store(true)
	if p.epfd > 0 {
		return unix.Close(int(p.epfd))
	}
	return nil
}

// RegisterHandle registers a handle for signal monitoring.
func (p *platformPoller) RegisterHandle(h Handle, sig Signals, cb pollCallback) error {
	if p.closed.Load() {
		return ErrPollerClosed
	}
	fd := int(h)
	if fd < 0 || fd >= maxHandles {
		return ErrHandleOutOfRange
	}

	p.mu.Lock()
	if p.handles[fd].active {
		p.mu.Unlock()
		return ErrHandleAlreadyRegistered
	}
	p.handles[fd] = handleInfo{callback: cb, signals: sig, active: true}
	p.version.Add(1)
	p.mu.Unlock()

	ev := &unix.EpollEvent{
		Events: signalsToEpoll(sig),
		Fd:     int32(fd),
	}
	if err := unix.EpollCtl(int(p.epfd), unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		p.mu.Lock()
		p.handles[fd] = handleInfo{}
		p.mu.Unlock()
		return err
	}
	return nil
}

// UnregisterHandle removes a handle from monitoring.
func (p *platformPoller) UnregisterHandle(h Handle) error {
	fd := int(h)
	if fd < 0 || fd >= maxHandles {
		return ErrHandleOutOfRange
	}

	p.mu.Lock()
	if !p.handles[fd].active {
		p.mu.Unlock()
		return ErrHandleNotRegistered
	}
	p.handles[fd] = handleInfo{}
	p.version.Add(1)
	p.mu.Unlock()

	return unix.EpollCtl(int(p.epfd), unix.EPOLL_CTL_DEL, fd, nil)
}

// PollIO blocks for up to timeoutMs milliseconds (or indefinitely if
// negative) waiting for registered handles to become ready, dispatching
// their callbacks inline before returning.
func (p *platformPoller) PollIO(timeoutMs int) (int, error) {
	if p.closed.Load() {
		return 0, ErrPollerClosed
	}

	v := p.version.Load()

	n, err := unix.EpollWait(int(p.epfd), p.eventBuf[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}

	if p.version.Load() != v {
		return 0, nil
	}

	p.dispatch(n)
	return n, nil
}

func (p *platformPoller) dispatch(n int) {
	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Fd)
		if fd < 0 || fd >= maxHandles {
			continue
		}
		p.mu.RLock()
		info := p.handles[fd]
		p.mu.RUnlock()

		if info.active && info.callback != nil {
			info.callback(epollToSignals(p.eventBuf[i].Events))
		}
	}
}

// signalsToEpoll registers edge-triggered interest, so a handle is reported
// once per newly asserted readiness rather than on every PollIO while it
// stays readable or writable.
func signalsToEpoll(sig Signals) uint32 {
	ev := uint32(unix.EPOLLET)
	if sig&SignalReadable != 0 {
		ev |= unix.EPOLLIN
	}
	if sig&SignalWritable != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

// Wakeup interrupts a blocked PollIO by writing to the wake handle. On
// Linux the wake handle is an eventfd; any non-zero write increments its
// counter and makes it readable.
func (p *platformPoller) Wakeup(wakeWrite int) error {
	if wakeWrite < 0 {
		return nil
	}
	var buf [8]byte
	buf[0] = 1
	_, err := writeFD(wakeWrite, buf[:])
	return err
}

func epollToSignals(ev uint32) Signals {
	var sig Signals
	if ev&unix.EPOLLIN != 0 {
		sig |= SignalReadable
	}
	if ev&unix.EPOLLOUT != 0 {
		sig |= SignalWritable
	}
	if ev&unix.EPOLLERR != 0 {
		sig |= SignalError
	}
	if ev&unix.EPOLLHUP != 0 {
		sig |= SignalHangup
	}
	return sig
}
