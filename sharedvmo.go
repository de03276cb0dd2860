package msgloop

import (
	"sync"

	"golang.org/x/sys/unix"
)

// SharedVMO wraps a memory-mapped file descriptor, lazily mapping it into
// this process's address space on first Map and unmapping on Close. It is
// the Go analogue of a shared-memory-object helper: callers pass it
// alongside a Handle registration when a protocol needs to hand a peer
// both "here's data ready" (signal) and "here's where the data lives"
// (mapping).
type SharedVMO struct {
	fd       int
	size     int
	prot     int
	mapOnce  sync.Once
	mapping  []byte
	mapErr   error
}

// NewSharedVMO wraps fd, which must refer to size bytes of mappable
// storage (e.g. a memfd or a regular file), to be mapped with prot (a
// combination of unix.PROT_READ / unix.PROT_WRITE) on first use.
func NewSharedVMO(fd int, size int, prot int) *SharedVMO {
	return &SharedVMO{fd: fd, size: size, prot: prot}
}

// Map returns the memory-mapped region, mapping it on first call. Repeat
// calls return the same slice and the same error.
func (s *SharedVMO) Map() ([]byte, error) {
	s.mapOnce.Do(func() {
		s.mapping, s.mapErr = unix.Mmap(s.fd, 0, s.size, s.prot, unix.MAP_SHARED)
	})
	return s.mapping, s.mapErr
}

// Size returns the mapped region's size in bytes.
func (s *SharedVMO) Size() int { return s.size }

// Close unmaps the region, if it was ever mapped.
func (s *SharedVMO) Close() error {
	if s.mapping == nil {
		return nil
	}
	err := unix.Munmap(s.mapping)
	s.mapping = nil
	return err
}
