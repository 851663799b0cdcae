// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mark

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMarkLoopSingleWorkerTraversesGraph(t *testing.T) {
	h := newFakeHeap()
	h.link(1, 2, 3)
	h.link(2, 4)
	h.link(3, 4)

	qs, err := NewQueueSet(1)
	require.NoError(t, err)
	qs.Queue(0).Push(NewObjectTask(1))

	closure := NewRefClosure(h, h, NoUpdate, false)
	term := NewMonitorTerminator(1)

	stats := RunMarkLoop(0, qs, h, h, closure, term, LoopOptions{SeedQueues: true}, nil)

	assert.True(t, h.marked[1])
	assert.True(t, h.marked[2])
	assert.True(t, h.marked[3])
	assert.True(t, h.marked[4])
	assert.GreaterOrEqual(t, stats.TasksProcessed, 4)
}

func TestRunMarkLoopMultiWorkerStealing(t *testing.T) {
	h := newFakeHeap()
	// A star graph rooted at object 1 with many independent children, so
	// workers other than the one holding the root must steal to do any
	// work at all.
	const numChildren = 200
	children := make([]uintptr, numChildren)
	for i := range children {
		children[i] = uintptr(i + 2)
	}
	h.link(1, children...)

	const numWorkers = 4
	qs, err := NewQueueSet(numWorkers)
	require.NoError(t, err)
	qs.Queue(0).Push(NewObjectTask(1))

	term := NewMonitorTerminator(numWorkers)
	done := make(chan WorkerStats, numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func(w int) {
			closure := NewRefClosure(h, h, NoUpdate, false)
			opts := LoopOptions{SeedQueues: w == 0}
			done <- RunMarkLoop(w, qs, h, h, closure, term, opts, nil)
		}(w)
	}

	total := 0
	for i := 0; i < numWorkers; i++ {
		s := <-done
		total += s.TasksProcessed
	}

	assert.True(t, h.marked[1])
	for _, c := range children {
		assert.True(t, h.marked[c], "child %d never marked", c)
	}
	assert.Equal(t, numChildren+1, total)
}

func TestDoTaskSplitsLargeReferenceArray(t *testing.T) {
	const arrayObj = uintptr(1000)
	const length = int32(chunkStride * 6)
	h := newFakeArrayHeap(arrayObj, length)
	for i := range h.elems {
		h.elems[i] = uintptr(10000 + i)
	}

	qs, err := NewQueueSet(1)
	require.NoError(t, err)
	qs.Queue(0).Push(NewObjectTask(arrayObj))

	closure := NewRefClosure(h, h, NoUpdate, false)
	term := NewMonitorTerminator(1)

	stats := RunMarkLoop(0, qs, h, h, closure, term, LoopOptions{SeedQueues: true}, nil)

	assert.True(t, h.marked[arrayObj])
	for i, e := range h.elems {
		assert.True(t, h.marked[e], "element %d (value %d) never marked", i, e)
	}
	assert.Greater(t, stats.TasksProcessed, 1, "a large array should have been split into multiple tasks")
}

func TestDoTaskChunkedArrayDirectDispatch(t *testing.T) {
	const arrayObj = uintptr(2000)
	const length = int32(100)
	h := newFakeArrayHeap(arrayObj, length)
	for i := range h.elems {
		h.elems[i] = uintptr(5000 + i)
	}

	closure := &RefClosure{Heap: h, Model: h, Policy: NoUpdate}
	closure.Bind(func(Task) {})

	task := NewChunkTask(arrayObj, 1, 4) // covers [0,16)
	doTask(task, h, h, closure, nil)

	from, to := task.Range()
	for i := from; i < to; i++ {
		assert.True(t, h.marked[h.elems[i]], "element %d never marked", i)
	}
	for i := to; i < length; i++ {
		assert.False(t, h.marked[h.elems[i]], "element %d outside the chunk range should not be marked", i)
	}
}
