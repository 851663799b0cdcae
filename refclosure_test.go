// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mark

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefClosureNoUpdateLeavesFieldAlone(t *testing.T) {
	h := newFakeHeap()
	c := NewRefClosure(h, h, NoUpdate, false)
	var pushed []Task
	c.Bind(func(t Task) { pushed = append(pushed, t) })

	field := uintptr(5)
	c.Apply(&field)

	assert.EqualValues(t, 5, field)
	require.Len(t, pushed, 1)
	assert.EqualValues(t, 5, pushed[0].Obj())
	assert.True(t, h.marked[5])
}

func TestRefClosureAlreadyMarkedSkipsPush(t *testing.T) {
	h := newFakeHeap()
	h.marked[5] = true
	c := NewRefClosure(h, h, NoUpdate, false)
	var pushed []Task
	c.Bind(func(t Task) { pushed = append(pushed, t) })

	field := uintptr(5)
	c.Apply(&field)
	assert.Empty(t, pushed)
}

func TestRefClosureNilFieldIsNoop(t *testing.T) {
	h := newFakeHeap()
	c := NewRefClosure(h, h, NoUpdate, false)
	var pushed []Task
	c.Bind(func(t Task) { pushed = append(pushed, t) })

	field := uintptr(0)
	c.Apply(&field)
	assert.Empty(t, pushed)
}

type forwardingHeap struct {
	*fakeHeap
	forward map[uintptr]uintptr
}

func (h *forwardingHeap) ResolveForwarding(obj uintptr) uintptr {
	if to, ok := h.forward[obj]; ok {
		return to
	}
	return obj
}

func TestRefClosureSimpleUpdateWritesBack(t *testing.T) {
	h := &forwardingHeap{fakeHeap: newFakeHeap(), forward: map[uintptr]uintptr{5: 6}}
	c := NewRefClosure(h, h, SimpleUpdate, false)
	c.Bind(func(Task) {})

	field := uintptr(5)
	c.Apply(&field)
	assert.EqualValues(t, 6, field)
	assert.True(t, h.marked[6])
}

func TestRefClosureCasUpdateWritesBack(t *testing.T) {
	h := &forwardingHeap{fakeHeap: newFakeHeap(), forward: map[uintptr]uintptr{5: 6}}
	c := NewRefClosure(h, h, CasUpdate, false)
	c.Bind(func(Task) {})

	field := uintptr(5)
	c.Apply(&field)
	assert.EqualValues(t, 6, field)
}

func TestRefClosureDedupEnqueuesStrings(t *testing.T) {
	h := newFakeHeap()
	c := NewRefClosure(h, h, NoUpdate, true)
	c.Bind(func(Task) {})

	var enqueued []uintptr
	c.IsString = func(obj uintptr) bool { return obj == 5 }
	c.EnqueueForDedup = func(obj uintptr) { enqueued = append(enqueued, obj) }

	field := uintptr(5)
	c.Apply(&field)
	assert.Equal(t, []uintptr{5}, enqueued)
}

func TestRefClosureMetadataVisited(t *testing.T) {
	h := newFakeHeap()
	c := NewRefClosure(h, h, NoUpdate, false)
	c.IterateMetadata = true
	var pushed []Task
	c.Bind(func(t Task) { pushed = append(pushed, t) })
	c.ClassOf = func(obj uintptr) (uintptr, bool) { return obj + 1000, true }

	field := uintptr(5)
	c.Apply(&field)

	require.Len(t, pushed, 2)
	assert.EqualValues(t, 5, pushed[0].Obj())
	assert.EqualValues(t, 1005, pushed[1].Obj())
}
