// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mark

// WorkerQueue is the complete set of local task storage owned by one
// worker: a small speculative buffer tried first on every push and pop, a
// bounded lock-free deque behind it, and an overflow stack that receives the
// buffer's contents when both the buffer and the deque are full. Only the
// owning worker pushes or pops locally; other
// workers only ever call Steal.
type WorkerQueue struct {
	Deque    *BoundedDeque
	buffer   *SpeculativeBuffer
	overflow *OverflowStack
}

// NewWorkerQueue creates a worker queue whose deque has the given capacity
// (a power of two, see NewBoundedDeque).
func NewWorkerQueue(capacity int) (*WorkerQueue, error) {
	d, err := NewBoundedDeque(capacity)
	if err != nil {
		return nil, err
	}
	overflow := NewOverflowStack()
	return &WorkerQueue{
		Deque:    d,
		buffer:   NewSpeculativeBuffer(overflow),
		overflow: overflow,
	}, nil
}

// Push enqueues t, preferring the speculative buffer and falling back to
// the local deque (and from there to the overflow stack) when the buffer is
// full - the same cheapest-first order TryQueue already pops in.
func (q *WorkerQueue) Push(t Task) {
	if q.buffer.TryPush(t) {
		return
	}
	if q.Deque.PushBottom(t) {
		return
	}
	q.buffer.Push(t)
}

// TryQueue attempts to pop one task from this worker's own storage, trying
// the speculative buffer, then the local deque, then the overflow stack, in
// that order - mirroring the cheapest-first lookup a real mark loop uses
// before it ever considers stealing from a peer.
func (q *WorkerQueue) TryQueue() (Task, bool) {
	if t, ok := q.buffer.Pop(); ok {
		return t, true
	}
	if t, ok := q.Deque.PopBottom(); ok {
		return t, true
	}
	if t, ok := q.overflow.Pop(); ok {
		return t, true
	}
	return Task(0), false
}

// Steal removes one task from the top of this worker's deque, for use by
// other workers.
func (q *WorkerQueue) Steal() (Task, bool) {
	return q.Deque.Steal()
}

// Peek hints at the top task of the deque without removing it.
func (q *WorkerQueue) Peek() (Task, bool) {
	return q.Deque.Peek()
}

// Empty reports whether every local store - buffer, deque, and overflow -
// is empty.
func (q *WorkerQueue) Empty() bool {
	return q.buffer.Len() == 0 && q.Deque.Empty() && q.overflow.Empty()
}

// Reset clears all local storage for reuse in a subsequent phase. Any
// buffered tasks are discarded, not flushed; Reset is only valid between
// phases when no task is expected to survive.
func (q *WorkerQueue) Reset() {
	q.buffer.n = 0
	q.Deque.Reset()
	q.overflow.Reset()
}
