// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mark

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerQueuePushTryQueueOverflows(t *testing.T) {
	q, err := NewWorkerQueue(8)
	require.NoError(t, err)

	n := q.Deque.MaxElems() + speculativeBufferSize + 5
	for i := 1; i <= n; i++ {
		q.Push(NewObjectTask(uintptr(i)))
	}
	assert.False(t, q.Empty())

	seen := map[uintptr]bool{}
	for i := 0; i < n; i++ {
		task, ok := q.TryQueue()
		require.True(t, ok, "expected %d tasks, ran out at %d", n, i)
		seen[task.Obj()] = true
	}
	assert.Len(t, seen, n)
	assert.True(t, q.Empty())
}

func TestWorkerQueueStealAndPeek(t *testing.T) {
	q, err := NewWorkerQueue(8)
	require.NoError(t, err)

	// Peek and Steal only ever look at the deque, never the speculative
	// buffer in front of it, so fill the buffer first and push past it
	// before anything lands where a thief can see it.
	for i := 1; i <= speculativeBufferSize; i++ {
		q.Push(NewObjectTask(uintptr(i)))
	}
	q.Push(NewObjectTask(100))
	q.Push(NewObjectTask(101))

	peeked, ok := q.Peek()
	require.True(t, ok)
	assert.EqualValues(t, 100, peeked.Obj())

	stolen, ok := q.Steal()
	require.True(t, ok)
	assert.EqualValues(t, 100, stolen.Obj())
}

func TestWorkerQueueReset(t *testing.T) {
	q, err := NewWorkerQueue(8)
	require.NoError(t, err)
	q.Push(NewObjectTask(1))
	q.Reset()
	assert.True(t, q.Empty())
}
