// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package corobus

import (
	"log/slog"
	"math"
	"strconv"

	"code.hybscloud.com/corobus/internal/telemetry"
	"github.com/hashicorp/go-metrics"
)

// Bus is a table of bounded FIFO channels shared by cooperative
// coroutines.
//
// Channels are addressed by small integer indices. Closing a channel
// frees its index at once; the lowest free index is always handed out by
// the next Open before the table grows.
//
// A Bus is not safe for concurrent use by goroutines. All calls must come
// from the scheduler's single thread of control.
type Bus[T any] struct {
	sched   Scheduler
	slots   []*channel[T] // len is the high-water mark, nil entries are free
	zombies map[*channel[T]]struct{}
	closed  bool
	last    Code

	initialSlots int
	logger       *slog.Logger
	msink        metrics.MetricSink
	labels       []metrics.Label
}

func newBus[T any](opts Options) *Bus[T] {
	b := &Bus[T]{
		sched:        opts.sched,
		zombies:      make(map[*channel[T]]struct{}),
		initialSlots: opts.initialSlots,
		msink:        opts.msink,
		labels:       opts.metricLabels,
	}
	if opts.logHandler != nil {
		b.logger = slog.New(opts.logHandler)
	} else {
		b.logger = slog.Default()
	}
	if b.msink == nil {
		b.msink = &metrics.BlackholeSink{}
	}
	return b
}

// MaxCapacity is the largest capacity Open accepts. Buffer storage grows
// with the number of queued messages, not with the capacity.
const MaxCapacity = math.MaxInt

// Open creates a channel holding at most capacity messages and returns
// its index. A capacity-0 channel never holds data: its senders block
// until it is closed.
//
// Returns ErrNoChannel if the bus is nil or closed, ErrInvalidCapacity if
// capacity exceeds MaxCapacity.
func (b *Bus[T]) Open(capacity uint) (int, error) {
	if b == nil || b.closed {
		return -1, b.fail(ErrNoChannel)
	}
	if capacity > MaxCapacity {
		return -1, b.fail(ErrInvalidCapacity)
	}

	index := -1
	for i, ch := range b.slots {
		if ch == nil {
			index = i
			break
		}
	}
	if index < 0 {
		if len(b.slots) == cap(b.slots) {
			n := b.initialSlots
			if cap(b.slots) > 0 {
				n = cap(b.slots) * 2
			}
			slots := make([]*channel[T], len(b.slots), n)
			copy(slots, b.slots)
			b.slots = slots
		}
		index = len(b.slots)
		b.slots = b.slots[:index+1]
	}

	b.slots[index] = newChannel(b, index, int(capacity))
	b.last = CodeNone
	b.logger.Debug("channel opened",
		telemetry.LabelChannel.L(index),
		telemetry.LabelCapacity.L(capacity),
	)
	b.msink.IncrCounterWithLabels(telemetry.MetricChannelOpenCount, 1, b.labels)
	return index, nil
}

// CloseChannel closes the channel at index.
//
// The index becomes reusable immediately. Every context suspended on the
// channel is woken and its pending operation fails with ErrNoChannel.
// Messages still buffered are dropped.
func (b *Bus[T]) CloseChannel(index int) error {
	ch, err := b.channel(index)
	if err != nil {
		return b.fail(err)
	}
	b.closeChannel(ch)
	b.last = CodeNone
	return nil
}

// closeChannel wakes waiters before anything is released: woken contexts
// have not run yet and will still touch the channel when they retry.
func (b *Bus[T]) closeChannel(ch *channel[T]) {
	ch.state = stateClosedLive
	b.slots[ch.index] = nil
	woken := ch.sendq.wakeAll(b.sched)
	woken += ch.recvq.wakeAll(b.sched)

	b.logger.Debug("channel closed",
		telemetry.LabelChannel.L(ch.index),
		telemetry.LabelWaiters.L(woken),
	)
	b.msink.IncrCounterWithLabels(telemetry.MetricChannelCloseCount, 1, b.labels)

	if ch.waiters == 0 {
		b.free(ch)
		return
	}
	if _, ok := b.zombies[ch]; !ok {
		b.zombies[ch] = struct{}{}
		b.logger.Debug("channel retained until waiters leave",
			telemetry.LabelChannel.L(ch.index),
			telemetry.LabelWaiters.L(ch.waiters),
		)
		b.msink.SetGaugeWithLabels(telemetry.MetricChannelZombies, float32(len(b.zombies)), b.labels)
	}
}

// cleanupIfPossible frees a closed channel once nobody waits on it.
func (b *Bus[T]) cleanupIfPossible(ch *channel[T]) {
	if ch.state != stateClosedLive || ch.waiters != 0 {
		return
	}
	if _, ok := b.zombies[ch]; ok {
		delete(b.zombies, ch)
		b.msink.SetGaugeWithLabels(telemetry.MetricChannelZombies, float32(len(b.zombies)), b.labels)
	}
	b.free(ch)
}

func (b *Bus[T]) free(ch *channel[T]) {
	ch.state = stateFreed
	ch.buf.Reset()
	b.logger.Debug("channel freed", telemetry.LabelChannel.L(ch.index))
	b.msink.IncrCounterWithLabels(telemetry.MetricChannelFreeCount, 1, b.labels)
}

// channel resolves index to an open channel.
func (b *Bus[T]) channel(index int) (*channel[T], error) {
	if b == nil || b.closed || index < 0 || index >= len(b.slots) || b.slots[index] == nil {
		return nil, ErrNoChannel
	}
	return b.slots[index], nil
}

// Close closes every open channel and detaches the bus.
//
// Suspended contexts are woken and fail with ErrNoChannel. After Close,
// every operation on the bus returns ErrNoChannel. Close is idempotent.
func (b *Bus[T]) Close() error {
	if b == nil {
		return nil
	}
	b.last = CodeNone
	if b.closed {
		return nil
	}
	b.closed = true
	open := 0
	for _, ch := range b.slots {
		if ch != nil {
			b.closeChannel(ch)
			open++
		}
	}
	b.logger.Debug("bus closed", telemetry.LabelCount.L(open))
	return nil
}

// Len returns the number of open channels.
func (b *Bus[T]) Len() int {
	if b == nil {
		return 0
	}
	n := 0
	for _, ch := range b.slots {
		if ch != nil {
			n++
		}
	}
	return n
}

// ChannelCap returns the capacity the channel at index was opened with.
func (b *Bus[T]) ChannelCap(index int) (int, error) {
	ch, err := b.channel(index)
	if err != nil {
		return 0, b.fail(err)
	}
	b.last = CodeNone
	return ch.buf.Cap(), nil
}

// ChannelLen returns the number of messages buffered in the channel at index.
func (b *Bus[T]) ChannelLen(index int) (int, error) {
	ch, err := b.channel(index)
	if err != nil {
		return 0, b.fail(err)
	}
	b.last = CodeNone
	return ch.buf.Len(), nil
}

// Stats returns a snapshot of the channel table.
func (b *Bus[T]) Stats() Stats {
	if b == nil {
		return Stats{}
	}
	st := Stats{Slots: len(b.slots), Zombies: len(b.zombies)}
	for _, ch := range b.slots {
		if ch != nil {
			st.Open++
			st.Waiters += ch.waiters
		}
	}
	for ch := range b.zombies {
		st.Waiters += ch.waiters
	}
	return st
}

// LastError returns the outcome of the most recent operation on the bus.
//
// Every operation also returns its error directly; LastError exists for
// callers ported from errno-style APIs. A nil bus reports CodeNoChannel.
func (b *Bus[T]) LastError() Code {
	if b == nil {
		return CodeNoChannel
	}
	return b.last
}

// fail records err as the last outcome and returns it.
func (b *Bus[T]) fail(err error) error {
	if b == nil {
		return err
	}
	b.last = CodeOf(err)
	return err
}

// failOp is fail for data operations, which also count backpressure.
func (b *Bus[T]) failOp(op string, err error) error {
	if b != nil && IsWouldBlock(err) {
		b.msink.IncrCounterWithLabels(telemetry.MetricWouldBlockCount, 1,
			telemetry.Labels(b.labels, telemetry.LabelOp.M(op)))
	}
	return b.fail(err)
}

func (b *Bus[T]) countSent(n int) {
	b.msink.IncrCounterWithLabels(telemetry.MetricMessageSentCount, float32(n), b.labels)
}

func (b *Bus[T]) countRecv(n int) {
	b.msink.IncrCounterWithLabels(telemetry.MetricMessageRecvCount, float32(n), b.labels)
}

// String describes the bus for logs.
func (b *Bus[T]) String() string {
	st := b.Stats()
	return "corobus{open=" + strconv.Itoa(st.Open) +
		" slots=" + strconv.Itoa(st.Slots) +
		" zombies=" + strconv.Itoa(st.Zombies) +
		" waiters=" + strconv.Itoa(st.Waiters) + "}"
}
