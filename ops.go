// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package corobus

const (
	opSend      = "send"
	opRecv      = "recv"
	opBroadcast = "broadcast"
)

// TrySend appends v to the channel at index without suspending.
//
// Returns ErrWouldBlock if the channel is full, ErrNoChannel if index
// does not name an open channel. On success exactly one suspended
// receiver, if any, is woken.
func (b *Bus[T]) TrySend(index int, v T) error {
	ch, err := b.channel(index)
	if err != nil {
		return b.failOp(opSend, err)
	}
	if !ch.hasSpace() {
		return b.failOp(opSend, ErrWouldBlock)
	}
	ch.push(v)
	b.last = CodeNone
	b.countSent(1)
	ch.recvq.wakeOne(b.sched)
	return nil
}

// Send appends v to the channel at index, suspending the calling
// coroutine while the channel is full.
//
// Returns ErrNoChannel if the channel does not exist or is closed while
// the caller waits. Must be called from inside a coroutine.
func (b *Bus[T]) Send(index int, v T) error {
	for {
		err := b.TrySend(index, v)
		if !IsWouldBlock(err) {
			return err
		}
		ch, err := b.channel(index)
		if err != nil {
			return b.fail(err)
		}
		ch.wait(&ch.sendq)
	}
}

// TryRecv removes the oldest message from the channel at index without
// suspending.
//
// Returns ErrWouldBlock if the channel is empty, ErrNoChannel if index
// does not name an open channel. On success exactly one suspended sender,
// if any, is woken.
func (b *Bus[T]) TryRecv(index int) (T, error) {
	var zero T
	ch, err := b.channel(index)
	if err != nil {
		return zero, b.failOp(opRecv, err)
	}
	if !ch.hasData() {
		return zero, b.failOp(opRecv, ErrWouldBlock)
	}
	v := ch.pop()
	b.last = CodeNone
	b.countRecv(1)
	ch.sendq.wakeOne(b.sched)
	return v, nil
}

// Recv removes the oldest message from the channel at index, suspending
// the calling coroutine while the channel is empty.
//
// Returns ErrNoChannel if the channel does not exist or is closed while
// the caller waits. Must be called from inside a coroutine.
func (b *Bus[T]) Recv(index int) (T, error) {
	for {
		v, err := b.TryRecv(index)
		if !IsWouldBlock(err) {
			return v, err
		}
		ch, err := b.channel(index)
		if err != nil {
			var zero T
			return zero, b.fail(err)
		}
		ch.wait(&ch.recvq)
	}
}
