//go:build windows

//lint:file-ignore U1000 Platform-specific stub functions (required for cross-platform compilation symmetry)

package msgloop

// efdCloexec and efdNonblock are Unix eventfd flags, unused on Windows but
// defined so createWakeHandle's call sites compile on every platform.
const (
	efdCloexec  = 0
	efdNonblock = 0
)

// createWakeHandle is a no-op on Windows: wake-ups are delivered as IOCP
// completion packets posted directly against the poller, not via a file
// descriptor. Returns -1, -1 so callers skip FD-based wake registration.
func createWakeHandle(initval uint, flags int) (int, int, error) {
	return -1, -1, nil
}

// closeWakeHandle is a no-op on Windows.
func closeWakeHandle(wakeFd, wakeWriteFd int) error {
	return nil
}

// drainWakeHandle is a no-op on Windows; IOCP completion packets don't need
// draining.
func drainWakeHandle(fd int) {}
