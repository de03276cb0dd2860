//go:build linux || darwin

package msgloop

import (
	"golang.org/x/sys/unix"
)

// closeFD closes a file descriptor on Unix systems.
func closeFD(fd int) error {
	return unix.Close(fd)
}

// readFD reads from a file descriptor on Unix systems.
func readFD(fd int, buf []byte) (int, error) {
	return unix.Read(fd, buf)
}

// writeFD writes to a file descriptor on Unix systems.
func writeFD(fd int, buf []byte) (int, error) {
	return unix.Write(fd, buf)
}

// isWouldBlock reports whether err is the platform's "operation would
// block" errno, the signal a drainer uses to stop reading and re-wait.
func isWouldBlock(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK
}

// setNonblocking puts fd into non-blocking mode.
func setNonblocking(fd int) error {
	return unix.SetNonblock(fd, true)
}
