//go:build darwin

package msgloop

import (
	"syscall"

	"golang.org/x/sys/unix"
)

const (
	efdCloexec  = unix.O_CLOEXEC
	efdNonblock = unix.O_NONBLOCK
)

// createWakeHandle creates a self-pipe for wake-up notifications on Darwin,
// where eventfd is unavailable. Returns the read end and the write end.
func createWakeHandle(initval uint, flags int) (int, int, error) {
	_ = initval
	_ = flags

	var fds [2]int
	if err := syscall.Pipe(fds[:]); err != nil {
		return 0, 0, err
	}

	cleanup := func() {
		syscall.Close(fds[0])
		syscall.Close(fds[1])
	}

	syscall.CloseOnExec(fds[0])
	syscall.CloseOnExec(fds[1])

	if err := syscall.SetNonblock(fds[0], true); err != nil {
		cleanup()
		return 0, 0, err
	}
	if err := syscall.SetNonblock(fds[1], true); err != nil {
		cleanup()
		return 0, 0, err
	}

	return fds[0], fds[1], nil
}

// closeWakeHandle closes both ends of the self-pipe.
func closeWakeHandle(wakeFd, wakeWriteFd int) error {
	if wakeFd >= 0 {
		_ = syscall.Close(wakeFd)
	}
	if wakeWriteFd >= 0 && wakeWriteFd != wakeFd {
		_ = syscall.Close(wakeWriteFd)
	}
	return nil
}

// drainWakeHandle drains pending bytes from the self-pipe read end.
func drainWakeHandle(fd int) {
	var buf [64]byte
	for {
		if _, err := syscall.Read(fd, buf[:]); err != nil {
			break
		}
	}
}
