package msgloop

import (
	"bytes"
	"os"
	"testing"
)

func TestSharedVMOMapReturnsContent(t *testing.T) {
	f, err := os.CreateTemp("", "msgloop-vmo-test-*")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	want := []byte("hello shared memory")
	if _, err := f.Write(want); err != nil {
		t.Fatalf("Write: %v", err)
	}

	v := NewSharedVMO(int(f.Fd()), len(want), 0x1) // PROT_READ
	got, err := v.Map()
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("Map() = %q, want %q", got, want)
	}

	// Repeated Map calls return the same mapping.
	got2, err := v.Map()
	if err != nil {
		t.Fatalf("second Map: %v", err)
	}
	if &got[0] != &got2[0] {
		t.Fatal("expected Map to be idempotent")
	}

	if err := v.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestSharedVMOCloseWithoutMap(t *testing.T) {
	v := NewSharedVMO(-1, 0, 0)
	if err := v.Close(); err != nil {
		t.Fatalf("Close on unmapped VMO: %v", err)
	}
}
