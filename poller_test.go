package msgloop

import (
	"testing"
	"time"
)

func TestPlatformPollerRegisterAndDispatch(t *testing.T) {
	var p platformPoller
	if err := p.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer p.Close()

	r, w, err := newTestPipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer closeFD(r)
	defer closeFD(w)

	fired := make(chan Signals, 1)
	if err := p.RegisterHandle(Handle(r), SignalReadable, func(sig Signals) {
		fired <- sig
	}); err != nil {
		t.Fatalf("RegisterHandle: %v", err)
	}

	if _, err := writeFD(w, []byte("x")); err != nil {
		t.Fatalf("writeFD: %v", err)
	}

	if _, err := p.PollIO(1000); err != nil {
		t.Fatalf("PollIO: %v", err)
	}

	select {
	case sig := <-fired:
		if sig&SignalReadable == 0 {
			t.Fatalf("signals = %v, want SignalReadable set", sig)
		}
	default:
		t.Fatal("callback never invoked during PollIO")
	}

	if err := p.UnregisterHandle(Handle(r)); err != nil {
		t.Fatalf("UnregisterHandle: %v", err)
	}
}

func TestPlatformPollerRegisterHandleTwiceFails(t *testing.T) {
	var p platformPoller
	if err := p.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer p.Close()

	r, w, err := newTestPipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer closeFD(r)
	defer closeFD(w)

	if err := p.RegisterHandle(Handle(r), SignalReadable, func(Signals) {}); err != nil {
		t.Fatalf("first RegisterHandle: %v", err)
	}
	if err := p.RegisterHandle(Handle(r), SignalReadable, func(Signals) {}); err == nil {
		t.Fatal("expected an error registering the same handle twice")
	}
}

func TestPlatformPollerUnregisterUnknownHandleFails(t *testing.T) {
	var p platformPoller
	if err := p.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer p.Close()

	if err := p.UnregisterHandle(Handle(123)); err == nil {
		t.Fatal("expected an error unregistering a handle that was never registered")
	}
}

// TestPlatformPollerWakeupUnblocksPollIO exercises the wake primitive
// (eventfd/self-pipe/IOCP PostQueuedCompletionStatus, per platform) that
// Loop.wake relies on to interrupt a PollIO blocked with no deadline.
func TestPlatformPollerWakeupUnblocksPollIO(t *testing.T) {
	var p platformPoller
	if err := p.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer p.Close()

	wakeRead, wakeWrite, err := createWakeHandle(0, efdCloexec|efdNonblock)
	if err != nil {
		t.Fatalf("createWakeHandle: %v", err)
	}
	defer closeWakeHandle(wakeRead, wakeWrite)

	if wakeRead >= 0 {
		if err := p.RegisterHandle(Handle(wakeRead), SignalReadable, func(Signals) {
			drainWakeHandle(wakeRead)
		}); err != nil {
			t.Fatalf("RegisterHandle: %v", err)
		}
	}

	done := make(chan error, 1)
	go func() {
		_, err := p.PollIO(5000)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	if err := p.Wakeup(wakeWrite); err != nil {
		t.Fatalf("Wakeup: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("PollIO: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wakeup did not unblock a pending PollIO")
	}
}

func TestPlatformPollerPollIOAfterCloseFails(t *testing.T) {
	var p platformPoller
	if err := p.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := p.PollIO(0); err == nil {
		t.Fatal("expected an error polling a closed poller")
	}
}
