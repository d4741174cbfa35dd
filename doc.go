// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package corobus provides a message bus for cooperative coroutines.
//
// A [Bus] is a table of bounded FIFO channels addressed by integer index.
// Coroutines exchange fixed-size messages through them with blocking and
// non-blocking sends and receives, all-or-nothing broadcast to every open
// channel, and batched transfers.
//
// The bus is single-threaded: it assumes a cooperative scheduler where
// exactly one coroutine runs at a time and control changes hands only when
// the running coroutine suspends. Package
// [code.hybscloud.com/corobus/sched] provides such a scheduler; any type
// implementing [Scheduler] works.
//
// # Quick Start
//
//	s := sched.New().Build()
//	bus := corobus.Build[uint32](corobus.New(s))
//
//	ch, _ := bus.Open(8)
//
//	s.Go(func() { // Producer
//	    for i := range uint32(100) {
//	        bus.Send(ch, i)
//	    }
//	})
//
//	s.Go(func() { // Consumer
//	    for range 100 {
//	        v, err := bus.Recv(ch)
//	        if corobus.IsNoChannel(err) {
//	            return // Closed
//	        }
//	        process(v)
//	    }
//	    bus.CloseChannel(ch)
//	})
//
//	s.Run()
//
// # Operations
//
// Every operation has a non-blocking Try form and a blocking form:
//
//	TrySend / Send           - one message into one channel
//	TryRecv / Recv           - one message out of one channel
//	TryBroadcast / Broadcast - one message into every open channel
//	TrySendV / SendV         - as many messages as fit into one channel
//	TryRecvV / RecvV         - as many messages as available, up to len(dst)
//
// Try forms return [ErrWouldBlock] when they cannot proceed. Blocking forms
// suspend the calling coroutine on the channel's send or receive queue and
// retry when woken. Blocking forms must run inside a coroutine.
//
// Wakeups are FIFO. A single-element send or receive wakes at most one
// waiter of the opposite kind. A batched send wakes every receiver; a
// batched receive wakes one sender.
//
// # Channel Indices
//
// Open always returns the lowest free index:
//
//	a, _ := bus.Open(1) // 0
//	b, _ := bus.Open(1) // 1
//	bus.CloseChannel(a)
//	c, _ := bus.Open(1) // 0 again
//
// An index therefore names different channels over time. A coroutine that
// holds on to an index after the channel is closed gets [ErrNoChannel]
// until the index is reused.
//
// # Closing
//
// CloseChannel removes the channel from the table, drops buffered messages
// and wakes every coroutine suspended on it; each of them fails with
// [ErrNoChannel]. Woken coroutines still reference the channel until they
// run again, so a closed channel with waiters stays alive in a zombie set
// and is freed by the last waiter to leave. [Bus.Stats] exposes the count.
//
// # Error Handling
//
// Errors are sentinels compared with [errors.Is] or the helpers:
//
//	corobus.IsWouldBlock(err) // full or empty, retry later
//	corobus.IsNoChannel(err)  // bad index, closed channel or closed bus
//
// Open also fails with [ErrInvalidCapacity] above [MaxCapacity].
//
// [ErrWouldBlock] is sourced from [code.hybscloud.com/iox] for ecosystem
// consistency. [Bus.LastError] keeps the outcome of the last operation for
// errno-style callers.
//
// # Telemetry
//
// Channel lifecycle events are logged at debug level through log/slog and
// counters are emitted to a [github.com/hashicorp/go-metrics] sink:
//
//	bus := corobus.Build[Event](corobus.New(s).
//	    Log(slog.NewTextHandler(os.Stderr, nil)).
//	    Metrics(metrics.NewInmemSink(time.Second, time.Minute)))
package corobus
