package msgloop

import (
	"bytes"
	"testing"
)

func TestVMOFromBytesAndBack(t *testing.T) {
	want := []byte("round trip through a shared vmo")
	v, err := VMOFromBytes(want)
	if err != nil {
		t.Fatalf("VMOFromBytes: %v", err)
	}
	defer v.Close()

	got, err := BytesFromVMO(v)
	if err != nil {
		t.Fatalf("BytesFromVMO: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("BytesFromVMO() = %q, want %q", got, want)
	}
}

func TestBlockingCopyToBuffer(t *testing.T) {
	r, w, err := newTestPipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer closeFD(r)

	want := []byte("streamed payload")
	if _, err := writeFD(w, want); err != nil {
		t.Fatalf("writeFD: %v", err)
	}
	closeFD(w)

	var buf []byte
	done := make(chan error, 1)
	go func() { done <- BlockingCopyToBuffer(r, &buf) }()

	if err := <-done; err != nil {
		t.Fatalf("BlockingCopyToBuffer: %v", err)
	}
	if !bytes.Equal(buf, want) {
		t.Fatalf("buf = %q, want %q", buf, want)
	}
}
