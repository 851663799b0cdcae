// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mark

import (
	"context"
	"sync"
)

// fakeHeap is a minimal in-memory object graph used across _test.go files
// in this package: objects are indices into refs, 1-based so that 0 can
// mean "no reference".
type fakeHeap struct {
	mu      sync.Mutex
	refs    map[uintptr][]uintptr
	marked  map[uintptr]bool
	regions map[uintptr]int
	live    map[int]uint64
	cancel  *CancelToken
}

func newFakeHeap() *fakeHeap {
	return &fakeHeap{
		refs:    map[uintptr][]uintptr{},
		marked:  map[uintptr]bool{},
		regions: map[uintptr]int{},
		live:    map[int]uint64{},
		cancel:  NewCancelToken(context.Background(), 1000),
	}
}

func (h *fakeHeap) link(from uintptr, to ...uintptr) {
	h.refs[from] = append(h.refs[from], to...)
}

func (h *fakeHeap) TryMark(obj uintptr) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.marked[obj] {
		return false
	}
	h.marked[obj] = true
	return true
}

func (h *fakeHeap) ResolveForwarding(obj uintptr) uintptr { return obj }

func (h *fakeHeap) RegionOf(addr uintptr) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.regions[addr]
}

func (h *fakeHeap) RegionLiveAdd(region int, words uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.live[region] += words
}

func (h *fakeHeap) IsCancelled() bool         { return h.cancel.IsCancelled() }
func (h *fakeHeap) CheckCancelAndYield() bool { return h.cancel.CheckCancelAndYield() }
func (h *fakeHeap) Barriers() BarrierBufferSet { return noBarriers{} }

type noBarriers struct{}

func (noBarriers) ApplyClosureToOneCompletedBuffer(func(p *uintptr)) bool { return false }

func (h *fakeHeap) IsArray(uintptr) bool          { return false }
func (h *fakeHeap) IsReferenceArray(uintptr) bool { return false }
func (h *fakeHeap) ArrayLength(uintptr) int32     { return 0 }
func (h *fakeHeap) SizeInWords(uintptr) uintptr   { return 1 }

func (h *fakeHeap) IterateRefs(obj uintptr, cl func(p *uintptr)) {
	h.mu.Lock()
	refs := append([]uintptr(nil), h.refs[obj]...)
	h.mu.Unlock()
	for i := range refs {
		cl(&refs[i])
	}
}

func (h *fakeHeap) IterateRefRange(obj uintptr, from, to int32, cl func(p *uintptr)) {}

// fakeArrayHeap additionally models one big reference array object so
// chunked-array dispatch can be exercised through doTask/RunMarkLoop.
type fakeArrayHeap struct {
	*fakeHeap
	arrayObj uintptr
	arrayLen int32
	elems    []uintptr
}

func newFakeArrayHeap(arrayObj uintptr, length int32) *fakeArrayHeap {
	return &fakeArrayHeap{
		fakeHeap: newFakeHeap(),
		arrayObj: arrayObj,
		arrayLen: length,
		elems:    make([]uintptr, length),
	}
}

func (h *fakeArrayHeap) IsArray(obj uintptr) bool          { return obj == h.arrayObj }
func (h *fakeArrayHeap) IsReferenceArray(obj uintptr) bool { return obj == h.arrayObj }
func (h *fakeArrayHeap) ArrayLength(obj uintptr) int32 {
	if obj == h.arrayObj {
		return h.arrayLen
	}
	return 0
}

func (h *fakeArrayHeap) IterateRefRange(obj uintptr, from, to int32, cl func(p *uintptr)) {
	if obj != h.arrayObj {
		return
	}
	for i := from; i < to; i++ {
		cl(&h.elems[i])
	}
}
