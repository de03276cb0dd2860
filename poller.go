// Package msgloop: handle readiness polling.
//
// # Handles and Signals
//
// A Handle is a small non-negative integer identifying a waitable kernel
// object; on Unix it is literally the underlying file descriptor. Signals is
// a bitset of readiness conditions (SignalReadable, SignalWritable,
// SignalError, SignalHangup) a Handler can be registered against.
//
// Platform-native polling backs the wait:
//   - Linux: epoll
//   - Darwin: kqueue
//   - Windows: IOCP (I/O Completion Ports); only wake-ups are delivered,
//     completion packets are not translated into handle callbacks
//
// See poller_linux.go, poller_darwin.go, and poller_windows.go.
package msgloop

// Note: RegisterHandle, UnregisterHandle, and PollIO are implemented in
// platform-specific files.
