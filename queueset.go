// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mark

import "sync/atomic"

// defaultDequeCapacity is the backing array size for each worker's
// BoundedDeque; usable capacity is two less than this.
const defaultDequeCapacity = 1 << 12

// QueueSetOption configures a QueueSet at construction time.
type QueueSetOption func(*queueSetConfig)

type queueSetConfig struct {
	dequeCapacity int
}

// WithDequeCapacity overrides the default per-worker deque backing size.
// capacity must be a power of two of at least 4.
func WithDequeCapacity(capacity int) QueueSetOption {
	return func(c *queueSetConfig) { c.dequeCapacity = capacity }
}

// QueueSet owns one WorkerQueue per worker and coordinates the two ways
// work crosses from one worker to another: claim_next, which hands out
// queues one at a time to workers that have none of their own yet (used
// while seeding the initial roots), and stealing, where an idle worker
// picks a victim queue and steals from its top.
type QueueSet struct {
	queues  []*WorkerQueue
	claimed atomic.Int64
}

// NewQueueSet builds a QueueSet with one WorkerQueue per worker.
func NewQueueSet(nWorkers int, opts ...QueueSetOption) (*QueueSet, error) {
	if nWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	cfg := queueSetConfig{dequeCapacity: defaultDequeCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}

	qs := &QueueSet{queues: make([]*WorkerQueue, nWorkers)}
	for i := range qs.queues {
		q, err := NewWorkerQueue(cfg.dequeCapacity)
		if err != nil {
			return nil, wrapComponentError("new queue set", "queueset", err)
		}
		qs.queues[i] = q
	}
	return qs, nil
}

// NumQueues returns the number of worker queues in the set.
func (qs *QueueSet) NumQueues() int {
	return len(qs.queues)
}

// Queue returns the i-th worker's queue.
func (qs *QueueSet) Queue(i int) *WorkerQueue {
	return qs.queues[i]
}

// ClaimNext hands out queue indices one at a time via an atomic
// fetch-and-add, so a pool of workers can drain every queue exactly once
// each without any two workers claiming the same index. It returns
// (index, true) while indices remain, and (0, false) once every queue has
// been claimed.
func (qs *QueueSet) ClaimNext() (int, bool) {
	n := qs.claimed.Add(1) - 1
	if n >= int64(len(qs.queues)) {
		return 0, false
	}
	return int(n), true
}

// Reserve moves the claim cursor to n, so that ClaimNext returns nothing for
// the first n indices. Used after an external phase has already seeded
// queues 0..n-1 itself, so the seeding pass that follows does not hand those
// same indices out a second time.
func (qs *QueueSet) Reserve(n int) {
	qs.claimed.Store(int64(n))
}

// lcgSeed advances a Park-Miller minimal-standard generator in place and
// returns the new value. Each worker keeps its own seed; the generator is
// never shared, so victim selection needs no synchronization of its own.
func lcgSeed(seed uint32) uint32 {
	const (
		a = 16807
		m = 2147483647 // 2^31 - 1
	)
	return uint32((uint64(seed) * a) % m)
}

// NewWorkerSeed returns a fresh, distinct starting seed for worker id's
// LCG, for use with TrySteal.
func NewWorkerSeed(workerID int) uint32 {
	s := uint32(17 + workerID*104729)
	if s == 0 {
		s = 17
	}
	return s
}

// TrySteal attempts to steal one task on behalf of thiefID, using a
// best-of-two policy: it draws two candidate victims with the caller's LCG
// state, compares both deques' sizes, and steals from whichever currently
// looks fuller (the first candidate on a tie). This
// spreads steal pressure across victims better than always asking the same
// neighbor, without the cost of scanning every queue. seed is advanced
// in-place and must be persisted by the caller between calls.
func (qs *QueueSet) TrySteal(thiefID int, seed *uint32) (Task, bool) {
	n := len(qs.queues)
	if n <= 1 {
		return Task(0), false
	}

	*seed = lcgSeed(*seed)
	v1 := int(*seed) % n
	*seed = lcgSeed(*seed)
	v2 := int(*seed) % n

	victim := v1
	if v1 == thiefID {
		victim = v2
	} else if v2 != thiefID && qs.queues[v2].Deque.Size() > qs.queues[v1].Deque.Size() {
		victim = v2
	}
	if victim == thiefID {
		return Task(0), false
	}

	return qs.queues[victim].Steal()
}

// AllEmpty reports whether every queue in the set is currently empty. Used
// by the termination protocol as the final check before declaring the
// phase complete.
func (qs *QueueSet) AllEmpty() bool {
	for _, q := range qs.queues {
		if !q.Empty() {
			return false
		}
	}
	return true
}

// Reset clears every worker queue and the claim cursor, for reuse across
// phases.
func (qs *QueueSet) Reset() {
	qs.claimed.Store(0)
	for _, q := range qs.queues {
		q.Reset()
	}
}

// ResetQueueSet is the package-level entry point mirroring QueueSet.Reset,
// for clearing a queue set between phases.
func ResetQueueSet(qs *QueueSet) {
	qs.Reset()
}

// Reserve is the package-level entry point mirroring QueueSet.Reserve, for
// symmetry with NewQueueSet/ResetQueueSet.
func Reserve(qs *QueueSet, n int) {
	qs.Reserve(n)
}
