// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package corobus

// waitEntry is one suspended context in a waitQueue.
type waitEntry struct {
	prev, next *waitEntry
	id         uint64 // Scheduler identity of the waiter
	queued     bool   // Cleared when a waker removes the entry
}

// waitQueue is a FIFO of suspended contexts sharing one wait condition.
//
// Entries form a doubly linked list so a waiter that resumes without
// having been woken (its wait was unwound) removes itself in O(1).
type waitQueue struct {
	head, tail *waitEntry
	n          int
}

func (q *waitQueue) push(id uint64) *waitEntry {
	e := &waitEntry{id: id, queued: true, prev: q.tail}
	if q.tail != nil {
		q.tail.next = e
	} else {
		q.head = e
	}
	q.tail = e
	q.n++
	return e
}

func (q *waitQueue) remove(e *waitEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		q.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		q.tail = e.prev
	}
	e.prev, e.next = nil, nil
	e.queued = false
	q.n--
}

// wakeOne removes the oldest waiter and makes it runnable.
// Reports whether a waiter was woken.
func (q *waitQueue) wakeOne(s Scheduler) bool {
	e := q.head
	if e == nil {
		return false
	}
	q.remove(e)
	s.Resume(e.id)
	return true
}

// wakeAll wakes every waiter in arrival order.
func (q *waitQueue) wakeAll(s Scheduler) int {
	n := 0
	for q.wakeOne(s) {
		n++
	}
	return n
}

func (q *waitQueue) len() int {
	return q.n
}
