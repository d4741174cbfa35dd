// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ring provides the single-threaded FIFO ring buffer used for
// channel storage and scheduler run queues.
//
// Physical storage is a power of 2 so indices wrap with a mask, while the
// logical limit is exact: a ring created with limit 3 holds at most 3
// elements even though it allocates 4 slots. Storage starts small and
// doubles on demand, so a large limit costs nothing until it is used.
package ring

import "code.hybscloud.com/iox"

const initialSize = 8

// Ring is a FIFO ring buffer. It is not safe for concurrent use.
type Ring[T any] struct {
	head      uint64 // Next slot to dequeue
	tail      uint64 // Next slot to enqueue
	buffer    []T
	mask      uint64
	limit     int
	unbounded bool
}

// New creates a ring holding at most limit elements.
// A limit of 0 creates a ring that is always full and always empty.
//
// Panics if limit < 0.
func New[T any](limit int) *Ring[T] {
	if limit < 0 {
		panic("ring: limit must be >= 0")
	}
	r := &Ring[T]{limit: limit}
	if limit > 0 {
		r.alloc(roundToPow2(min(limit, initialSize)))
	}
	return r
}

// NewUnbounded creates a ring that never reports full.
func NewUnbounded[T any]() *Ring[T] {
	r := &Ring[T]{unbounded: true}
	r.alloc(initialSize)
	return r
}

func (r *Ring[T]) alloc(size int) {
	r.buffer = make([]T, size)
	r.mask = uint64(size - 1)
}

// Enqueue appends elem at the tail.
// Returns ErrWouldBlock if the ring holds limit elements.
func (r *Ring[T]) Enqueue(elem T) error {
	if !r.HasSpace() {
		return iox.ErrWouldBlock
	}
	if r.tail-r.head == uint64(len(r.buffer)) {
		r.grow()
	}
	r.buffer[r.tail&r.mask] = elem
	r.tail++
	return nil
}

// Dequeue removes and returns the head element.
// Returns (zero-value, ErrWouldBlock) if the ring is empty.
func (r *Ring[T]) Dequeue() (T, error) {
	var zero T
	if r.head == r.tail {
		return zero, iox.ErrWouldBlock
	}
	elem := r.buffer[r.head&r.mask]
	r.buffer[r.head&r.mask] = zero
	r.head++
	return elem, nil
}

// Peek returns the head element without removing it.
func (r *Ring[T]) Peek() (T, bool) {
	if r.head == r.tail {
		var zero T
		return zero, false
	}
	return r.buffer[r.head&r.mask], true
}

// HasSpace reports whether Enqueue would succeed.
func (r *Ring[T]) HasSpace() bool {
	return r.unbounded || r.tail-r.head < uint64(r.limit)
}

// Len returns the number of buffered elements.
func (r *Ring[T]) Len() int {
	return int(r.tail - r.head)
}

// Cap returns the logical limit, or -1 for an unbounded ring.
func (r *Ring[T]) Cap() int {
	if r.unbounded {
		return -1
	}
	return r.limit
}

// Reset drops every buffered element and releases storage.
func (r *Ring[T]) Reset() {
	r.buffer = nil
	r.head, r.tail, r.mask = 0, 0, 0
	r.limit, r.unbounded = 0, false
}

// grow doubles storage. A bounded ring never grows past the power of 2
// covering its limit, because HasSpace stops Enqueue first.
func (r *Ring[T]) grow() {
	n := uint64(len(r.buffer)) * 2
	buf := make([]T, n)
	for i := r.head; i != r.tail; i++ {
		buf[i&(n-1)] = r.buffer[i&r.mask]
	}
	r.buffer = buf
	r.mask = n - 1
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
