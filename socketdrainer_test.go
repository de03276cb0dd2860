package msgloop

import (
	"context"
	"sync"
	"testing"
	"time"
)

type recordingSocketClient struct {
	mu   sync.Mutex
	data []byte
	done bool
}

func (c *recordingSocketClient) OnDataAvailable(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = append(c.data, data...)
}

func (c *recordingSocketClient) OnDataComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.done = true
}

func TestSocketDrainerDrainsToCompletion(t *testing.T) {
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

	client := &recordingSocketClient{}
	d := NewSocketDrainer(client, 0)
	if err := d.Start(l, r); err != nil {
		t.Fatalf("Start: %v", err)
	}

	want := []byte("drain me to the end")
	if _, err := writeFD(w, want); err != nil {
		t.Fatalf("writeFD: %v", err)
	}
	closeFD(w)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	deadline := time.After(time.Second)
	for {
		client.mu.Lock()
		done := client.done
		client.mu.Unlock()
		if done {
			break
		}
		select {
		case <-deadline:
			t.Fatal("drain never completed")
		case <-time.After(10 * time.Millisecond):
		}
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if string(client.data) != string(want) {
		t.Fatalf("data = %q, want %q", client.data, want)
	}
	// The drainer must have withdrawn its own registration on completion
	// (via OnHandleReady's EOF path), not left it dangling.
	if l.HasHandler(d.key) {
		t.Fatal("expected handler removed after drain completion")
	}
}
