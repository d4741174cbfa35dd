// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package corobus

import "code.hybscloud.com/corobus/internal/telemetry"

// TryBroadcast appends v to every open channel, or to none.
//
// Returns ErrNoChannel if no channel is open and ErrWouldBlock if any
// open channel is full; in both cases no channel is modified. On success
// one suspended receiver per channel, if any, is woken.
func (b *Bus[T]) TryBroadcast(v T) error {
	if b == nil || b.closed {
		return b.failOp(opBroadcast, ErrNoChannel)
	}

	open := 0
	for _, ch := range b.slots {
		if ch == nil {
			continue
		}
		open++
		if !ch.hasSpace() {
			return b.failOp(opBroadcast, ErrWouldBlock)
		}
	}
	if open == 0 {
		return b.failOp(opBroadcast, ErrNoChannel)
	}

	for _, ch := range b.slots {
		if ch == nil {
			continue
		}
		ch.push(v)
		ch.recvq.wakeOne(b.sched)
	}
	b.last = CodeNone
	b.countSent(open)
	b.msink.IncrCounterWithLabels(telemetry.MetricBroadcastCount, 1, b.labels)
	return nil
}

// Broadcast is TryBroadcast that suspends the calling coroutine while
// any open channel is full.
//
// The caller waits on the send queue of the lowest-index full channel and
// rescans every channel when woken. Another channel may have filled up in
// the meantime, so a wakeup does not guarantee progress.
//
// Returns ErrNoChannel once no channel is open. Must be called from inside
// a coroutine.
func (b *Bus[T]) Broadcast(v T) error {
	for {
		err := b.TryBroadcast(v)
		if !IsWouldBlock(err) {
			return err
		}
		ch := b.firstFull()
		if ch == nil {
			continue
		}
		ch.wait(&ch.sendq)
	}
}

func (b *Bus[T]) firstFull() *channel[T] {
	for _, ch := range b.slots {
		if ch != nil && !ch.hasSpace() {
			return ch
		}
	}
	return nil
}
