// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package msgloop implements a per-thread cooperative message loop: a single
// goroutine owns a dispatcher that multiplexes three kinds of pending work
// into one blocking wait:
//
//   - posted tasks (closures submitted via [Loop.PostTask] / [Loop.PostDelayedTask])
//   - handler readiness, for handles registered via [Loop.AddHandler] and
//     watched for a caller-supplied set of [Signals]
//   - per-handler deadlines, expressed as absolute [time.Time] values
//
// The loop is not thread-safe to call into except where documented: tasks
// may be posted from any goroutine, but [Loop.AddHandler], [Loop.RemoveHandler],
// [Loop.Run], and friends are only safe from the owning goroutine once the
// loop has started running.
//
// # Architecture
//
// [Loop] is the dispatcher. It owns an incoming task queue (a mutex-guarded
// min-heap ordered by target time, FIFO among ties), a [handlerRegistry]
// keyed by opaque, monotonically increasing [HandlerKey] values, and a
// platform I/O poller reached through [Handle] and [Signals]. A wake
// primitive (eventfd on Linux, a self-pipe on Darwin, an IOCP completion
// packet on Windows) is folded into the same wait set as registered
// handles, so posting a task from another goroutine always interrupts a
// blocked Run.
//
// # Platform Support
//
// Handle readiness is delivered using platform-native polling:
//   - Linux: epoll
//   - Darwin: kqueue
//   - Windows: IOCP (I/O Completion Ports); only wake-ups are delivered,
//     completion packets are not translated into [Handler] callbacks
//
// # Adapters
//
// [FDWaiter] adapts a raw file descriptor plus a set of poll(2)-style
// events into a single-shot [Handler] registration, for callers that want
// a future/callback over "this fd became readable/writable once" rather
// than a persistent [Handler]. [SocketDrainer] and [DataPipeDrainer] layer
// a non-blocking read-until-EAGAIN loop on top of a registered handle.
//
// # Usage
//
//	loop, err := msgloop.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	loop.PostTask(func() {
//	    fmt.Println("ran on the loop's own goroutine")
//	    loop.PostQuitTask()
//	})
//
//	if err := loop.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// # Error Types
//
// The package exposes typed errors for the conditions a [Handler] needs to
// distinguish: [TimedOutError] for deadline expiry and [LoopGoneError] for
// dispatcher destruction, alongside the usual sentinel errors for bad
// handles and keys. All wrap cleanly via [errors.Is] and [errors.As].
package msgloop
