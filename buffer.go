// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mark

// speculativeBufferSize is the number of tasks a SpeculativeBuffer holds
// before it must flush to the backing OverflowStack.
const speculativeBufferSize = 8

// SpeculativeBuffer sits in front of an OverflowStack and holds a small run
// of tasks locally, so the most recent pushes can be popped again without
// touching the stack. Once the run is full, Push flushes it into the stack
// one task at a time, each OverflowStack.Push taking the stack's lock.
type SpeculativeBuffer struct {
	overflow *OverflowStack
	buf      [speculativeBufferSize]Task
	n        int
}

// NewSpeculativeBuffer returns a buffer that flushes into overflow.
func NewSpeculativeBuffer(overflow *OverflowStack) *SpeculativeBuffer {
	return &SpeculativeBuffer{overflow: overflow}
}

// Push adds t to the local buffer, flushing to the overflow stack first if
// the buffer is full.
func (b *SpeculativeBuffer) Push(t Task) {
	if b.n == len(b.buf) {
		b.Flush()
	}
	b.buf[b.n] = t
	b.n++
}

// TryPush adds t to the local buffer without flushing, reporting false
// instead if the buffer is already at capacity. Callers that want to fall
// back to another store before resorting to a flush use this instead of
// Push.
func (b *SpeculativeBuffer) TryPush(t Task) bool {
	if b.n == len(b.buf) {
		return false
	}
	b.buf[b.n] = t
	b.n++
	return true
}

// Pop returns the most recently pushed task without touching the overflow
// stack, or false if the local buffer is empty (callers fall back to the
// overflow stack themselves in that case).
func (b *SpeculativeBuffer) Pop() (Task, bool) {
	if b.n == 0 {
		return Task(0), false
	}
	b.n--
	return b.buf[b.n], true
}

// Flush pushes every buffered task to the backing overflow stack and
// empties the local buffer.
func (b *SpeculativeBuffer) Flush() {
	for i := 0; i < b.n; i++ {
		b.overflow.Push(b.buf[i])
	}
	b.n = 0
}

// Len returns the number of tasks currently held locally (not counting
// anything already flushed to the overflow stack).
func (b *SpeculativeBuffer) Len() int {
	return b.n
}
