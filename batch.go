// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package corobus

// TrySendV appends as many leading elements of values as fit into the
// channel at index and returns how many were sent.
//
// Returns ErrWouldBlock if the channel is full, ErrNoChannel if index
// does not name an open channel. Unsent elements are the caller's to
// retry. Every suspended receiver is woken, since several messages may
// satisfy several receivers.
func (b *Bus[T]) TrySendV(index int, values []T) (int, error) {
	ch, err := b.channel(index)
	if err != nil {
		return 0, b.failOp(opSend, err)
	}
	if !ch.hasSpace() {
		return 0, b.failOp(opSend, ErrWouldBlock)
	}

	sent := 0
	for sent < len(values) && ch.hasSpace() {
		ch.push(values[sent])
		sent++
	}
	b.last = CodeNone
	if sent > 0 {
		b.countSent(sent)
		ch.recvq.wakeAll(b.sched)
	}
	return sent, nil
}

// SendV is TrySendV that suspends the calling coroutine while the
// channel is full. It returns after the first successful partial send;
// it does not loop until every element is sent.
//
// Must be called from inside a coroutine.
func (b *Bus[T]) SendV(index int, values []T) (int, error) {
	for {
		n, err := b.TrySendV(index, values)
		if !IsWouldBlock(err) {
			return n, err
		}
		ch, err := b.channel(index)
		if err != nil {
			return 0, b.fail(err)
		}
		ch.wait(&ch.sendq)
	}
}

// TryRecvV moves up to len(dst) of the oldest messages of the channel at
// index into dst and returns how many were received.
//
// Returns ErrWouldBlock if the channel is empty, ErrNoChannel if index
// does not name an open channel. One suspended sender, if any, is woken.
func (b *Bus[T]) TryRecvV(index int, dst []T) (int, error) {
	ch, err := b.channel(index)
	if err != nil {
		return 0, b.failOp(opRecv, err)
	}
	if !ch.hasData() {
		return 0, b.failOp(opRecv, ErrWouldBlock)
	}

	recvd := 0
	for recvd < len(dst) && ch.hasData() {
		dst[recvd] = ch.pop()
		recvd++
	}
	b.last = CodeNone
	if recvd > 0 {
		b.countRecv(recvd)
		ch.sendq.wakeOne(b.sched)
	}
	return recvd, nil
}

// RecvV is TryRecvV that suspends the calling coroutine while the
// channel is empty.
//
// Must be called from inside a coroutine.
func (b *Bus[T]) RecvV(index int, dst []T) (int, error) {
	for {
		n, err := b.TryRecvV(index, dst)
		if !IsWouldBlock(err) {
			return n, err
		}
		ch, err := b.channel(index)
		if err != nil {
			return 0, b.fail(err)
		}
		ch.wait(&ch.recvq)
	}
}
