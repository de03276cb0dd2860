package msgloop

import "testing"

// Each TestXxx function runs on a dedicated goroutine (tRunner), so these
// cases don't need to worry about leftover bindings from other tests.

func TestGetCurrentNoLoopBound(t *testing.T) {
	if _, err := GetCurrent(); err != ErrNoCurrentLoop {
		t.Fatalf("GetCurrent() err = %v, want ErrNoCurrentLoop", err)
	}
}

func TestGetCurrentReturnsBoundLoop(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close()

	got, err := GetCurrent()
	if err != nil {
		t.Fatalf("GetCurrent: %v", err)
	}
	if got != l {
		t.Fatal("GetCurrent returned a different *Loop than New created")
	}
}

func TestNewSecondLoopOnSameGoroutineFails(t *testing.T) {
	l1, err := New()
	if err != nil {
		t.Fatalf("first New: %v", err)
	}
	defer l1.Close()

	if _, err := New(); err != ErrReentrantRun {
		t.Fatalf("second New() err = %v, want ErrReentrantRun", err)
	}
}

func TestCloseUnbindsCurrentLoop(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := GetCurrent(); err != ErrNoCurrentLoop {
		t.Fatalf("GetCurrent() after Close err = %v, want ErrNoCurrentLoop", err)
	}

	// A new loop can bind to the same goroutine once the old one unbound.
	l2, err := New()
	if err != nil {
		t.Fatalf("New after Close: %v", err)
	}
	defer l2.Close()
}
