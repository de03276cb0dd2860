package msgloop

import (
	"context"
	"testing"
	"time"
)

func TestVFSDispatcherAddAndFire(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close()

	r, w, err := newTestPipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer closeFD(r)
	defer closeFD(w)

	d := NewVFSDispatcher(l)
	fired := make(chan Signals, 1)
	key, err := d.AddVFSHandler(Handle(r), SignalReadable, func(sig Signals) bool {
		fired <- sig
		return false
	})
	if err != nil {
		t.Fatalf("AddVFSHandler: %v", err)
	}
	if !l.HasHandler(key) {
		t.Fatal("expected handler registered")
	}

	if _, err := writeFD(w, []byte("x")); err != nil {
		t.Fatalf("writeFD: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("handler never fired")
	}
}

func TestVFSDispatcherStopAll(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close()

	r, w, err := newTestPipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer closeFD(r)
	defer closeFD(w)

	d := NewVFSDispatcher(l)
	key, err := d.AddVFSHandler(Handle(r), SignalReadable, func(Signals) bool { return true })
	if err != nil {
		t.Fatalf("AddVFSHandler: %v", err)
	}

	d.StopAll()
	if l.HasHandler(key) {
		t.Fatal("expected handler removed after StopAll")
	}
	if err := d.Stop(key); err == nil {
		t.Fatal("expected error stopping an already-removed key")
	}
}
