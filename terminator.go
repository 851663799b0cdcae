// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mark

import (
	"sync"
	"sync/atomic"
	"time"
)

// Terminator implements the standard offered-count termination protocol
// for a work-stealing pool: a worker that has run out of local and stolen
// work calls OfferTermination; it returns true only once every worker has
// simultaneously offered termination with nothing left to steal anywhere.
// If any worker finds more work before that happens, it must call
// CancelTermination so the others resume looking for work instead of
// deciding the phase is done.
type Terminator interface {
	OfferTermination(qs *QueueSet) bool
	CancelTermination()
}

// MonitorTerminator is the straightforward implementation: every offering
// worker blocks on a condition variable until either the count reaches
// nWorkers (everyone is done) or another worker cancels (someone found more
// work and woke everyone up to recheck). A generation counter distinguishes
// one cancellation event from the next so that a Broadcast reliably wakes
// every waiter that was blocked at the time it fired, rather than only the
// first one to reacquire the mutex.
type MonitorTerminator struct {
	mu         sync.Mutex
	cond       *sync.Cond
	offered    int
	workers    int
	done       bool
	generation uint64
}

// NewMonitorTerminator returns a Terminator for a pool of workers workers.
func NewMonitorTerminator(workers int) *MonitorTerminator {
	t := &MonitorTerminator{workers: workers}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// OfferTermination registers the calling worker as idle and blocks until
// either every worker has offered (returns true, phase over) or another
// worker cancels the offer because it found more work (returns false).
func (t *MonitorTerminator) OfferTermination(qs *QueueSet) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.offered++
	if t.offered == t.workers && qs.AllEmpty() {
		t.done = true
		t.cond.Broadcast()
		return true
	}

	myGeneration := t.generation
	for !t.done && t.generation == myGeneration {
		t.cond.Wait()
	}

	if t.done {
		return true
	}
	t.offered--
	return false
}

// CancelTermination is called by a worker that found more work while
// others were offering; it bumps the generation and wakes every blocked
// offerer so they can go back to stealing instead of waiting forever.
func (t *MonitorTerminator) CancelTermination() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.generation++
	t.cond.Broadcast()
}

// Reset clears termination state for reuse in a subsequent phase.
func (t *MonitorTerminator) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.offered = 0
	t.done = false
	t.generation = 0
}

// SpinMasterTerminator is an alternative implementation where exactly one
// worker at a time actively spins polling every queue, instead of every
// idle worker blocking on a monitor. The spinning role is relinquished
// before a worker goes to sleep so that a newly idle worker can compete for
// it; this keeps at most one CPU busy-polling at any instant while still
// detecting new work with low latency.
type SpinMasterTerminator struct {
	workers     int
	offered     atomic.Int64
	spinning    atomic.Bool
	done        atomic.Bool
	cancelled   atomic.Bool
	spinSleep   time.Duration
	wakeOnEntry chan struct{}
}

// NewSpinMasterTerminator returns a spin-master Terminator for workers
// workers. spinSleep controls how long the spinning worker sleeps between
// polls of the queue set; zero selects a small default appropriate for a
// busy mark phase.
func NewSpinMasterTerminator(workers int, spinSleep time.Duration) *SpinMasterTerminator {
	if spinSleep <= 0 {
		spinSleep = 50 * time.Microsecond
	}
	return &SpinMasterTerminator{
		workers:     workers,
		spinSleep:   spinSleep,
		wakeOnEntry: make(chan struct{}, workers),
	}
}

// OfferTermination registers the caller as idle. If it becomes (or already
// is) the spin master, it polls qs until either everyone has offered or
// CancelTermination fires; otherwise it waits to be woken.
func (t *SpinMasterTerminator) OfferTermination(qs *QueueSet) bool {
	n := t.offered.Add(1)
	if n == int64(t.workers) && qs.AllEmpty() {
		t.done.Store(true)
		return true
	}

	if !t.spinning.CompareAndSwap(false, true) {
		// Someone else is already the spin master; wait passively.
		<-t.wakeOnEntry
		t.offered.Add(-1)
		if t.done.Load() {
			t.offered.Add(1)
			return true
		}
		return false
	}

	defer t.spinning.Store(false)
	for {
		if t.cancelled.Load() {
			t.offered.Add(-1)
			t.cancelled.Store(false)
			t.wakeWaiters()
			return false
		}
		if t.offered.Load() == int64(t.workers) && qs.AllEmpty() {
			t.done.Store(true)
			t.wakeWaiters()
			return true
		}
		// Relinquish the role before sleeping, so a newly idle worker can
		// pick it up instead of piling onto this one's backoff.
		t.spinning.Store(false)
		time.Sleep(t.spinSleep)
		if !t.spinning.CompareAndSwap(false, true) {
			<-t.wakeOnEntry
			t.offered.Add(-1)
			if t.done.Load() {
				t.offered.Add(1)
				return true
			}
			return false
		}
	}
}

func (t *SpinMasterTerminator) wakeWaiters() {
	for {
		select {
		case t.wakeOnEntry <- struct{}{}:
		default:
			return
		}
	}
}

// CancelTermination is called by a worker that found more work; it signals
// the spin master (if any) to stop waiting and release every offerer.
func (t *SpinMasterTerminator) CancelTermination() {
	if t.done.Load() {
		return
	}
	t.cancelled.Store(true)
}

// Reset clears termination state for reuse in a subsequent phase.
func (t *SpinMasterTerminator) Reset() {
	t.offered.Store(0)
	t.spinning.Store(false)
	t.done.Store(false)
	t.cancelled.Store(false)
	for {
		select {
		case <-t.wakeOnEntry:
		default:
			return
		}
	}
}
