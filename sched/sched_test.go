// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched_test

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"code.hybscloud.com/corobus/sched"
	"code.hybscloud.com/lfq"
)

// TestRunOrder checks that coroutines run in spawn order and that a
// yielding coroutine goes behind every other ready coroutine.
func TestRunOrder(t *testing.T) {
	s := sched.New().Build()
	var trace []string

	s.Go(func() {
		trace = append(trace, "a1")
		s.Yield()
		trace = append(trace, "a2")
	})
	s.Go(func() {
		trace = append(trace, "b1")
		s.Yield()
		trace = append(trace, "b2")
	})

	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"a1", "b1", "a2", "b2"}
	if !slices.Equal(trace, want) {
		t.Fatalf("trace: got %v, want %v", trace, want)
	}
}

func TestSuspendResume(t *testing.T) {
	s := sched.New().Build()
	var trace []string
	var sleeper uint64

	s.Go(func() {
		sleeper = s.Current()
		trace = append(trace, "sleep")
		s.Suspend()
		trace = append(trace, "woke")
	})
	s.Go(func() {
		trace = append(trace, "wake")
		s.Resume(sleeper)
		// Resuming twice must not run the coroutine twice.
		s.Resume(sleeper)
	})

	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"sleep", "wake", "woke"}
	if !slices.Equal(trace, want) {
		t.Fatalf("trace: got %v, want %v", trace, want)
	}
	if st := s.Stats(); st.Live != 0 || st.Spawned != 2 || st.Suspends != 1 {
		t.Fatalf("Stats: got %+v", st)
	}
}

func TestCurrentOutsideCoroutine(t *testing.T) {
	s := sched.New().Build()
	if id := s.Current(); id != 0 {
		t.Fatalf("Current: got %d, want 0", id)
	}

	var inside uint64
	c := s.Go(func() { inside = s.Current() })
	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if inside != c.ID() {
		t.Fatalf("Current inside: got %d, want %d", inside, c.ID())
	}
	if !c.Done() {
		t.Fatalf("Done: got false, want true")
	}
}

func TestSuspendOutsideCoroutinePanics(t *testing.T) {
	s := sched.New().Build()
	defer func() {
		if recover() == nil {
			t.Fatalf("Suspend outside coroutine: expected panic")
		}
	}()
	s.Suspend()
}

// TestDeadlockUnwinds checks that stranded coroutines are unwound and
// their deferred calls run.
func TestDeadlockUnwinds(t *testing.T) {
	s := sched.New().Build()
	unwound := 0
	finished := false

	for range 3 {
		s.Go(func() {
			defer func() { unwound++ }()
			s.Suspend()
			finished = true
		})
	}

	err := s.Run()
	if !errors.Is(err, sched.ErrDeadlock) {
		t.Fatalf("Run: got %v, want ErrDeadlock", err)
	}
	if unwound != 3 {
		t.Fatalf("unwound: got %d, want 3", unwound)
	}
	if finished {
		t.Fatalf("stranded coroutine ran past Suspend")
	}
	if st := s.Stats(); st.Live != 0 {
		t.Fatalf("Live after unwind: got %d, want 0", st.Live)
	}
}

func TestPanicPropagates(t *testing.T) {
	s := sched.New().Build()
	s.Go(func() { panic("boom") })

	defer func() {
		if r := recover(); r != "boom" {
			t.Fatalf("recover: got %v, want boom", r)
		}
	}()
	s.Run()
}

// TestPostFromGoroutines checks that work posted from outside goroutines
// runs as coroutines while a Hold keeps Run alive.
func TestPostFromGoroutines(t *testing.T) {
	s := sched.New().InboxSize(4).Build()
	const producers, perProducer = 4, 50

	total := 0
	var wg sync.WaitGroup
	for range producers {
		release := s.Hold()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer release()
			for range perProducer {
				s.Post(func() { total++ })
			}
		}()
	}

	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	wg.Wait()

	if total != producers*perProducer {
		t.Fatalf("total: got %d, want %d", total, producers*perProducer)
	}
	if st := s.Stats(); st.Spawned != producers*perProducer {
		t.Fatalf("Spawned: got %d, want %d", st.Spawned, producers*perProducer)
	}
}

// TestPostPreservesProducerOrder has several goroutines race for a small
// inbox. Coroutines posted by one goroutine must run in posting order and
// none may be lost or run twice.
func TestPostPreservesProducerOrder(t *testing.T) {
	if lfq.RaceEnabled {
		t.Skip("skip: CAS-based inbox uses cross-variable memory ordering")
	}

	const producers, perProducer = 8, 2000
	s := sched.New().InboxSize(16).Build()

	next := make([]int, producers)
	var outOfOrder []string
	var wg sync.WaitGroup
	for p := range producers {
		release := s.Hold()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer release()
			for i := range perProducer {
				s.Post(func() {
					if i != next[p] && len(outOfOrder) < 4 {
						outOfOrder = append(outOfOrder, fmt.Sprintf("producer %d: got %d, want %d", p, i, next[p]))
					}
					next[p]++
				})
			}
		}()
	}

	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	wg.Wait()

	if len(outOfOrder) > 0 {
		t.Fatalf("out of order: %v", outOfOrder)
	}
	for p, n := range next {
		if n != perProducer {
			t.Fatalf("producer %d: ran %d, want %d", p, n, perProducer)
		}
	}
}

// TestInboxSizeRoundsUp checks that the inbox holds the next power of 2.
func TestInboxSizeRoundsUp(t *testing.T) {
	s := sched.New().InboxSize(3).Build()

	for i := range 4 {
		if err := s.TryPost(func() {}); err != nil {
			t.Fatalf("TryPost(%d): %v", i, err)
		}
	}
	if err := s.TryPost(func() {}); err == nil {
		t.Fatalf("TryPost on full inbox: got nil, want ErrWouldBlock")
	}
	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestTryPostFull(t *testing.T) {
	s := sched.New().InboxSize(2).Build()

	for i := range 2 {
		if err := s.TryPost(func() {}); err != nil {
			t.Fatalf("TryPost(%d): %v", i, err)
		}
	}
	if err := s.TryPost(func() {}); err == nil {
		t.Fatalf("TryPost on full inbox: got nil, want ErrWouldBlock")
	}
	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st := s.Stats(); st.Spawned != 2 {
		t.Fatalf("Spawned: got %d, want 2", st.Spawned)
	}
}

func TestHoldReleaseIdempotent(t *testing.T) {
	s := sched.New().Build()
	release := s.Hold()
	release()
	release()

	// Run must return immediately: the extra release did not underflow
	// into a phantom hold, and there is no work.
	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestInboxSizePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("InboxSize(1): expected panic")
		}
	}()
	sched.New().InboxSize(1)
}
