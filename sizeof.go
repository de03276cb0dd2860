package msgloop

// These constants describe the sizes the cache-line padding in state.go and
// the poller implementations is laid out around; those structs spell their
// padding as literal byte counts and do not reference these names.
const (
	// sizeOfCacheLine is the size of a CPU cache line. 64 bytes is standard
	// for x86-64; 128 bytes covers Apple Silicon and other ARM64 parts, so
	// we pad to the larger of the two common sizes.
	sizeOfCacheLine = 128

	// sizeOfAtomicUint64 is the size of an atomic.Uint64 variable.
	sizeOfAtomicUint64 = 8
)
