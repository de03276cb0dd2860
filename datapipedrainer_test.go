package msgloop

import (
	"context"
	"sync"
	"testing"
	"time"
)

type recordingDatagramClient struct {
	mu        sync.Mutex
	datagrams [][]byte
	done      bool
}

func (c *recordingDatagramClient) OnDataAvailable(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	c.datagrams = append(c.datagrams, cp)
}

func (c *recordingDatagramClient) OnDataComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.done = true
}

func TestDataPipeDrainerDrainsToCompletion(t *testing.T) {
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

	client := &recordingDatagramClient{}
	d := NewDataPipeDrainer(client, 0)
	if err := d.Start(l, r); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := writeFD(w, []byte("one datagram")); err != nil {
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
	if len(client.datagrams) == 0 {
		t.Fatal("expected at least one datagram delivered")
	}
	if l.HasHandler(d.key) {
		t.Fatal("expected handler removed after drain completion")
	}
}
