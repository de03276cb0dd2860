//go:build darwin

package msgloop

import (
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

const maxHandles = 65536

// maxHandleLimit is the ceiling handle value supported after dynamic growth.
const maxHandleLimit = 100000000

// Signals is a bitset of handle readiness conditions a Handler can watch
// for via AddHandler.
type Signals uint32

const (
	SignalReadable Signals = 1 << iota
	SignalWritable
	SignalError
	SignalHangup
)

var (
	ErrHandleOutOfRange        = errors.New("msgloop: handle out of range")
	ErrHandleAlreadyRegistered = errors.New("msgloop: handle already registered with poller")
	ErrHandleNotRegistered     = errors.New("msgloop: handle not registered with poller")
	ErrPollerClosed            = errors.New("msgloop: poller closed")
)

type pollCallback func(Signals)

type handleInfo struct {
	callback pollCallback
	signals  Signals
	active   bool
}

// platformPoller manages handle registration using kqueue (Darwin).
type platformPoller struct { // betteralign:ignore
	_        [64]byte
	kq       int32
	_        [60]byte
	eventBuf [256]unix.Kevent_t
	handles  []handleInfo
	mu       sync.RWMutex
	closed   atomic.Bool
}

func (p *platformPoller) Init() error {
	if p.closed.Load() {
		return ErrPollerClosed
	}
	kq, err := unix.Kqueue()
	if err != nil {
		return err
	}
	unix.CloseOnExec(kq)
	p.kq = int32(kq)
	p.handles = make([]handleInfo, maxHandles)
	return nil
}

func (p *platformPoller) Close() error {
	p.closed.Store(true)
	if p.kq > 0 {
		return unix.Close(int(p.kq))
	}
	return nil
}

func (p *platformPoller) RegisterHandle(h Handle, sig Signals, cb pollCallback) error {
	if p.closed.Load() {
		return ErrPollerClosed
	}
	fd := int(h)
	if fd < 0 || fd >= maxHandleLimit {
		return ErrHandleOutOfRange
	}

	p.mu.Lock()
	if fd >= len(p.handles) {
		newSize := fd*2 + 1
		if newSize > maxHandleLimit {
			newSize = maxHandleLimit + 1
		}
		grown := make([]handleInfo, newSize)
		copy(grown, p.handles)
		p.handles = grown
	}
	if p.handles[fd].active {
		p.mu.Unlock()
		return ErrHandleAlreadyRegistered
	}
	p.handles[fd] = handleInfo{callback: cb, signals: sig, active: true}
	p.mu.Unlock()

	// EV_CLEAR makes the filter edge-triggered: one event per newly
	// asserted readiness, not one on every PollIO while it persists.
	kevents := signalsToKevents(fd, sig, unix.EV_ADD|unix.EV_ENABLE|unix.EV_CLEAR)
	if len(kevents) > 0 {
		if _, err := unix.Kevent(int(p.kq), kevents, nil, nil); err != nil {
			p.mu.Lock()
			p.handles[fd] = handleInfo{}
			p.mu.Unlock()
			return err
		}
	}
	return nil
}

func (p *platformPoller) UnregisterHandle(h Handle) error {
	fd := int(h)
	if fd < 0 {
		return ErrHandleOutOfRange
	}

	p.mu.Lock()
	if fd >= len(p.handles) || !p.handles[fd].active {
		p.mu.Unlock()
		return ErrHandleNotRegistered
	}
	sig := p.handles[fd].signals
	p.handles[fd] = handleInfo{}
	p.mu.Unlock()

	kevents := signalsToKevents(fd, sig, unix.EV_DELETE)
	if len(kevents) > 0 {
		_, _ = unix.Kevent(int(p.kq), kevents, nil, nil)
	}
	return nil
}

func (p *platformPoller) PollIO(timeoutMs int) (int, error) {
	if p.closed.Load() {
		return 0, ErrPollerClosed
	}

	var ts *unix.Timespec
	if timeoutMs >= 0 {
		ts = &unix.Timespec{
			Sec:  int64(timeoutMs / 1000),
			Nsec: int64((timeoutMs % 1000) * 1000000),
		}
	}

	n, err := unix.Kevent(int(p.kq), nil, p.eventBuf[:], ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}

	p.dispatch(n)
	return n, nil
}

func (p *platformPoller) dispatch(n int) {
	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Ident)
		if fd < 0 {
			continue
		}
		p.mu.RLock()
		var info handleInfo
		if fd < len(p.handles) {
			info = p.handles[fd]
		}
		p.mu.RUnlock()

		if info.active && info.callback != nil {
			info.callback(keventToSignals(&p.eventBuf[i]))
		}
	}
}

// Wakeup interrupts a blocked PollIO by writing to the wake handle, the
// write end of a self-pipe on Darwin.
func (p *platformPoller) Wakeup(wakeWrite int) error {
	if wakeWrite < 0 {
		return nil
	}
	_, err := writeFD(wakeWrite, []byte{1})
	return err
}

func signalsToKevents(fd int, sig Signals, flags uint16) []unix.Kevent_t {
	var kevents []unix.Kevent_t
	if sig&SignalReadable != 0 {
		kevents = append(kevents, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags})
	}
	if sig&SignalWritable != 0 {
		kevents = append(kevents, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags})
	}
	return kevents
}

func keventToSignals(kev *unix.Kevent_t) Signals {
	var sig Signals
	switch kev.Filter {
	case unix.EVFILT_READ:
		sig |= SignalReadable
	case unix.EVFILT_WRITE:
		sig |= SignalWritable
	}
	if kev.Flags&unix.EV_ERROR != 0 {
		sig |= SignalError
	}
	if kev.Flags&unix.EV_EOF != 0 {
		sig |= SignalHangup
	}
	return sig
}
