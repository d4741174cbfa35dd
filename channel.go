// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package corobus

import (
	"code.hybscloud.com/corobus/internal/ring"
	"code.hybscloud.com/corobus/internal/telemetry"
)

// chanState is the ownership state of a channel.
//
//	Live       → addressable through its slot index
//	ClosedLive → closed, out of the table, in the zombie set until
//	             every suspended waiter has resumed
//	Freed      → storage released, unreachable
//
// Live→ClosedLive happens on close. ClosedLive→Freed happens as soon as
// waiters reaches 0, which may be during the close itself.
type chanState uint8

const (
	stateLive chanState = iota
	stateClosedLive
	stateFreed
)

func (s chanState) String() string {
	switch s {
	case stateLive:
		return "live"
	case stateClosedLive:
		return "closed"
	case stateFreed:
		return "freed"
	default:
		return "invalid"
	}
}

// channel is one bounded FIFO of messages plus its wait queues.
type channel[T any] struct {
	bus     *Bus[T]
	index   int
	buf     *ring.Ring[T]
	sendq   waitQueue // Senders waiting for space
	recvq   waitQueue // Receivers waiting for data
	state   chanState
	waiters int // Contexts suspended on sendq or recvq
}

func newChannel[T any](b *Bus[T], index, capacity int) *channel[T] {
	return &channel[T]{
		bus:   b,
		index: index,
		buf:   ring.New[T](capacity),
	}
}

func (ch *channel[T]) hasSpace() bool {
	return ch.buf.HasSpace()
}

func (ch *channel[T]) hasData() bool {
	return ch.buf.Len() > 0
}

// push appends v. Callers must check hasSpace first.
func (ch *channel[T]) push(v T) {
	if err := ch.buf.Enqueue(v); err != nil {
		panic("corobus: push on full channel")
	}
}

// pop removes the oldest message. Callers must check hasData first.
func (ch *channel[T]) pop() T {
	v, err := ch.buf.Dequeue()
	if err != nil {
		panic("corobus: pop on empty channel")
	}
	return v
}

// wait suspends the running context on q until a waker or a close
// resumes it. The caller retries its operation afterwards.
//
// The bookkeeping after Suspend is deferred so that a wait abandoned by
// unwinding the context still leaves the queue and releases the channel.
func (ch *channel[T]) wait(q *waitQueue) {
	b := ch.bus
	e := q.push(b.sched.Current())
	ch.waiters++
	b.msink.IncrCounterWithLabels(telemetry.MetricWaitCount, 1, b.labels)
	defer func() {
		if e.queued {
			q.remove(e)
		}
		ch.waiters--
		b.cleanupIfPossible(ch)
	}()
	b.sched.Suspend()
}
