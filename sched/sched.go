// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sched provides a cooperative single-threaded coroutine scheduler.
//
// Each coroutine runs on its own goroutine, but exactly one of them holds
// the baton at any instant: the Run loop hands control to one coroutine and
// waits until it suspends, yields or returns. Code running inside
// coroutines therefore never races with other coroutines and needs no
// locks, the same as coroutines driven by a single OS thread.
//
// # Basic Usage
//
//	s := sched.New().Build()
//	s.Go(func() {
//	    s.Suspend() // until another coroutine calls s.Resume(id)
//	})
//	if err := s.Run(); err != nil {
//	    // errors.Is(err, sched.ErrDeadlock)
//	}
//
// # Outside Goroutines
//
// Goroutines that are not coroutines must not touch state owned by the
// scheduler. They submit work with [Scheduler.Post], which goes through a
// lock-free inbox and is spawned as a coroutine by the Run loop. While such
// goroutines may still post, they keep Run alive with [Scheduler.Hold]:
//
//	release := s.Hold()
//	go func() {
//	    defer release()
//	    s.Post(func() { ... })
//	}()
//	s.Run()
package sched

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/corobus/internal/ring"
	"code.hybscloud.com/corobus/internal/telemetry"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
	"github.com/hashicorp/go-metrics"
)

// ErrDeadlock is returned by Run when coroutines remain suspended and
// nothing is left that could resume them.
var ErrDeadlock = errors.New("sched: all coroutines are asleep")

// errUnwind is the panic value used to unwind stranded coroutines.
var errUnwind = errors.New("sched: coroutine unwound")

type state uint8

const (
	stateReady state = iota
	stateRunning
	stateSuspended
	stateDone
)

// Coro is one coroutine managed by a Scheduler.
type Coro struct {
	id       uint64
	s        *Scheduler
	fn       func()
	state    state
	resume   chan struct{}
	unwind   bool
	panicked bool
	panicVal any
}

// ID returns the coroutine identity passed to Resume.
func (c *Coro) ID() uint64 {
	return c.id
}

// Done reports whether the coroutine function has returned.
// Must be called from the scheduler's thread of control.
func (c *Coro) Done() bool {
	return c.state == stateDone
}

// Stats is a point-in-time snapshot of scheduler counters.
type Stats struct {
	Spawned  uint64 // Coroutines created
	Switches uint64 // Baton handoffs from Run to a coroutine
	Suspends uint64 // Calls to Suspend
	Live     int64  // Coroutines not yet returned
}

// Scheduler runs coroutines one at a time in FIFO ready order.
//
// Go, Suspend, Resume, Yield and Current belong to the scheduler's thread
// of control: call them from inside coroutines, or before Run starts.
// Post, TryPost, Hold and Stats are safe from any goroutine.
type Scheduler struct {
	ready   *ring.Ring[*Coro]
	coros   map[uint64]*Coro
	current *Coro
	nextID  uint64
	yield   chan struct{}
	inbox   lfq.Queue[func()] // CAS-based MPSC, drained only by Run

	holds    atomix.Int64
	live     atomix.Int64
	spawned  atomix.Uint64
	switches atomix.Uint64
	suspends atomix.Uint64

	logger *slog.Logger
	msink  metrics.MetricSink
	labels []metrics.Label
}

func newScheduler(opts Options) *Scheduler {
	s := &Scheduler{
		ready:  ring.NewUnbounded[*Coro](),
		coros:  make(map[uint64]*Coro),
		yield:  make(chan struct{}),
		inbox:  lfq.BuildMPSC[func()](lfq.New(opts.inboxSize).SingleConsumer().Compact()),
		msink:  opts.msink,
		labels: opts.metricLabels,
	}
	if opts.logHandler != nil {
		s.logger = slog.New(opts.logHandler)
	} else {
		s.logger = slog.Default()
	}
	if s.msink == nil {
		s.msink = &metrics.BlackholeSink{}
	}
	return s
}

// Go creates a coroutine running fn and appends it to the ready queue.
func (s *Scheduler) Go(fn func()) *Coro {
	s.nextID++
	c := &Coro{
		id:     s.nextID,
		s:      s,
		fn:     fn,
		resume: make(chan struct{}),
	}
	s.coros[c.id] = c
	s.ready.Enqueue(c)
	s.spawned.AddAcqRel(1)
	s.live.Add(1)
	s.msink.IncrCounterWithLabels(telemetry.MetricSchedSpawnCount, 1, s.labels)
	go c.main()
	return c
}

func (c *Coro) main() {
	<-c.resume
	defer func() {
		if r := recover(); r != nil && r != any(errUnwind) {
			c.panicked = true
			c.panicVal = r
		}
		c.state = stateDone
		c.s.yield <- struct{}{}
	}()
	if c.unwind {
		return
	}
	c.fn()
}

// Current returns the ID of the running coroutine, or 0 outside coroutines.
func (s *Scheduler) Current() uint64 {
	if s.current == nil {
		return 0
	}
	return s.current.id
}

// Suspend parks the calling coroutine until Resume is called with its ID.
//
// Panics if called outside a coroutine.
func (s *Scheduler) Suspend() {
	c := s.current
	if c == nil {
		panic("sched: Suspend called outside a coroutine")
	}
	c.state = stateSuspended
	s.suspends.AddAcqRel(1)
	s.park(c)
}

// Resume moves a suspended coroutine to the tail of the ready queue.
// Resuming a coroutine that is not suspended is a no-op.
func (s *Scheduler) Resume(id uint64) {
	c, ok := s.coros[id]
	if !ok || c.state != stateSuspended {
		return
	}
	c.state = stateReady
	s.ready.Enqueue(c)
}

// Yield moves the calling coroutine to the tail of the ready queue and
// lets every coroutine ahead of it run first.
//
// Panics if called outside a coroutine.
func (s *Scheduler) Yield() {
	c := s.current
	if c == nil {
		panic("sched: Yield called outside a coroutine")
	}
	c.state = stateReady
	s.ready.Enqueue(c)
	s.park(c)
}

// park hands the baton back to Run and blocks until Run hands it back.
func (s *Scheduler) park(c *Coro) {
	s.yield <- struct{}{}
	<-c.resume
	if c.unwind {
		panic(errUnwind)
	}
}

// TryPost submits fn to be spawned as a coroutine by the Run loop.
// Safe from any goroutine. Returns ErrWouldBlock if the inbox is full.
func (s *Scheduler) TryPost(fn func()) error {
	return s.inbox.Enqueue(&fn)
}

// Post is like TryPost but retries with adaptive backoff while the inbox
// is full. It only makes progress while Run drains the inbox.
func (s *Scheduler) Post(fn func()) {
	backoff := iox.Backoff{}
	for s.inbox.Enqueue(&fn) != nil {
		backoff.Wait()
	}
}

// Hold keeps Run from returning while the caller may still Post.
// The returned release function is idempotent.
func (s *Scheduler) Hold() (release func()) {
	s.holds.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { s.holds.Add(-1) })
	}
}

// Stats returns a snapshot of the scheduler counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Spawned:  s.spawned.LoadAcquire(),
		Switches: s.switches.LoadAcquire(),
		Suspends: s.suspends.LoadAcquire(),
		Live:     s.live.Load(),
	}
}

// Run executes ready coroutines until none is ready, the inbox is empty
// and no Hold is outstanding.
//
// Coroutines still suspended at that point can never be resumed: they are
// unwound (their deferred calls run) and Run returns an error wrapping
// ErrDeadlock. A panic inside a coroutine is re-raised by Run.
func (s *Scheduler) Run() error {
	backoff := iox.Backoff{}
	for {
		s.drain()
		c, err := s.ready.Dequeue()
		if err == nil {
			backoff.Reset()
			s.switchTo(c)
			continue
		}
		if s.holds.Load() > 0 {
			backoff.Wait()
			continue
		}
		// A Post may have landed just before its Hold was released.
		if s.drain() > 0 {
			continue
		}
		break
	}
	return s.unwindStranded()
}

func (s *Scheduler) drain() int {
	n := 0
	for {
		fn, err := s.inbox.Dequeue()
		if err != nil {
			return n
		}
		s.Go(fn)
		n++
	}
}

func (s *Scheduler) switchTo(c *Coro) {
	s.current = c
	c.state = stateRunning
	s.switches.AddAcqRel(1)
	c.resume <- struct{}{}
	<-s.yield
	s.current = nil

	if c.state != stateDone {
		return
	}
	delete(s.coros, c.id)
	s.live.Add(-1)
	if c.panicked {
		panic(c.panicVal)
	}
}

func (s *Scheduler) unwindStranded() error {
	if len(s.coros) == 0 {
		return nil
	}
	n := len(s.coros)
	s.logger.Warn("deadlock: unwinding suspended coroutines", telemetry.LabelCount.L(n))
	s.msink.IncrCounterWithLabels(telemetry.MetricSchedDeadlockCount, 1, s.labels)

	// Deferred calls of an unwound coroutine may spawn or park again.
	for len(s.coros) > 0 {
		ids := make([]uint64, 0, len(s.coros))
		for id := range s.coros {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			c, ok := s.coros[id]
			if !ok {
				continue
			}
			c.unwind = true
			s.switchTo(c)
		}
	}
	s.ready = ring.NewUnbounded[*Coro]()
	return fmt.Errorf("%w: %d suspended", ErrDeadlock, n)
}
