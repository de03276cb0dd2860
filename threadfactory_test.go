package msgloop

import (
	"testing"
	"time"
)

func TestCreateLoopThreadRunsAndExits(t *testing.T) {
	var got *Loop
	ready := make(chan struct{})
	exitErr := make(chan error, 1)

	CreateLoopThread("test-loop", func(l *Loop, err error) {
		if err != nil {
			t.Errorf("onReady err: %v", err)
		}
		got = l
		close(ready)
	}, func(err error) {
		exitErr <- err
	})

	<-ready
	if got == nil {
		t.Fatal("expected a constructed Loop")
	}

	done := make(chan struct{})
	got.PostTask(func() { close(done) })
	got.PostQuitTask()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("posted task never ran")
	}

	select {
	case <-exitErr:
	case <-time.After(time.Second):
		t.Fatal("loop thread never exited")
	}

	if err := got.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
