// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mark

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBoundedDequeRejectsBadCapacity(t *testing.T) {
	_, err := NewBoundedDeque(3)
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	_, err = NewBoundedDeque(2)
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	d, err := NewBoundedDeque(8)
	require.NoError(t, err)
	assert.Equal(t, 8, d.Capacity())
	assert.Equal(t, 6, d.MaxElems())
}

func TestPushPopOwnerOnly(t *testing.T) {
	d, err := NewBoundedDeque(8)
	require.NoError(t, err)

	for i := 1; i <= 6; i++ {
		assert.True(t, d.PushBottom(NewObjectTask(uintptr(i))))
	}
	assert.False(t, d.PushBottom(NewObjectTask(99)), "deque should be full at MaxElems")

	var seen []uintptr
	for {
		task, ok := d.PopBottom()
		if !ok {
			break
		}
		seen = append(seen, task.Obj())
	}
	assert.Equal(t, []uintptr{6, 5, 4, 3, 2, 1}, seen)
}

func TestStealFromTop(t *testing.T) {
	d, err := NewBoundedDeque(8)
	require.NoError(t, err)

	for i := 1; i <= 4; i++ {
		require.True(t, d.PushBottom(NewObjectTask(uintptr(i))))
	}

	task, ok := d.Steal()
	require.True(t, ok)
	assert.EqualValues(t, 1, task.Obj())

	task, ok = d.Steal()
	require.True(t, ok)
	assert.EqualValues(t, 2, task.Obj())

	assert.Equal(t, 2, d.Size())
}

func TestEmptyDequeOperations(t *testing.T) {
	d, err := NewBoundedDeque(8)
	require.NoError(t, err)

	assert.True(t, d.Empty())
	_, ok := d.PopBottom()
	assert.False(t, ok)
	_, ok = d.Steal()
	assert.False(t, ok)
}

func TestConcurrentPushStealNoDuplicateNoLoss(t *testing.T) {
	d, err := NewBoundedDeque(1 << 12)
	require.NoError(t, err)

	const n = 2000
	for i := 1; i <= n; i++ {
		require.True(t, d.PushBottom(NewObjectTask(uintptr(i))))
	}

	var stolen int64
	var wg sync.WaitGroup
	seenMu := sync.Mutex{}
	seen := map[uintptr]bool{}

	record := func(obj uintptr) {
		seenMu.Lock()
		defer seenMu.Unlock()
		if seen[obj] {
			t.Errorf("object %d observed twice", obj)
		}
		seen[obj] = true
	}

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				task, ok := d.Steal()
				if !ok {
					if d.Empty() {
						return
					}
					continue
				}
				atomic.AddInt64(&stolen, 1)
				record(task.Obj())
			}
		}()
	}

	for {
		task, ok := d.PopBottom()
		if !ok {
			break
		}
		record(task.Obj())
	}
	wg.Wait()

	assert.Equal(t, n, len(seen))
}

func TestResetClearsDeque(t *testing.T) {
	d, err := NewBoundedDeque(8)
	require.NoError(t, err)
	require.True(t, d.PushBottom(NewObjectTask(1)))
	d.Reset()
	assert.True(t, d.Empty())
	assert.Equal(t, 0, d.Size())
}
