// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"math/rand"
	"sync/atomic"

	"github.com/tracewright/gcmark"
)

// syntheticObject is one node of the demo's fake object graph: the
// references (up to fanOut of them) it holds to other nodes. Nodes are
// spread across regions by index.
type syntheticObject struct {
	refs []uintptr
}

// syntheticHeap implements mark.Heap and mark.ObjectModel over a
// fixed in-memory object graph, so the demo has something to trace without
// depending on any real runtime or allocator.
type syntheticHeap struct {
	objects     []syntheticObject
	marked      []atomic.Bool
	regionOf    []int
	regionWords []atomic.Uint64
	cancel      *gcmark.CancelToken
}

func newSyntheticHeap(numObjects, fanOut, numRegions int, seed int64) *syntheticHeap {
	rng := rand.New(rand.NewSource(seed))
	h := &syntheticHeap{
		objects:     make([]syntheticObject, numObjects),
		marked:      make([]atomic.Bool, numObjects),
		regionOf:    make([]int, numObjects),
		regionWords: make([]atomic.Uint64, numRegions),
	}
	for i := range h.objects {
		h.regionOf[i] = i % numRegions
		n := rng.Intn(fanOut + 1)
		refs := make([]uintptr, 0, n)
		for j := 0; j < n; j++ {
			refs = append(refs, uintptr(rng.Intn(numObjects)+1))
		}
		h.objects[i].refs = refs
	}
	return h
}

func (h *syntheticHeap) index(obj uintptr) int {
	return int(obj) - 1
}

func (h *syntheticHeap) TryMark(obj uintptr) bool {
	if obj == 0 {
		return false
	}
	return h.marked[h.index(obj)].CompareAndSwap(false, true)
}

func (h *syntheticHeap) ResolveForwarding(obj uintptr) uintptr {
	return obj
}

func (h *syntheticHeap) RegionOf(addr uintptr) int {
	return h.regionOf[h.index(addr)]
}

func (h *syntheticHeap) RegionLiveAdd(region int, words uint64) {
	h.regionWords[region].Add(words)
}

func (h *syntheticHeap) IsCancelled() bool {
	return h.cancel.IsCancelled()
}

func (h *syntheticHeap) CheckCancelAndYield() bool {
	return h.cancel.CheckCancelAndYield()
}

func (h *syntheticHeap) Barriers() gcmark.BarrierBufferSet {
	return emptyBarrierSet{}
}

// emptyBarrierSet stands in for a real concurrent write-barrier buffer
// queue; the demo has no live mutator producing one.
type emptyBarrierSet struct{}

func (emptyBarrierSet) ApplyClosureToOneCompletedBuffer(cl func(p *uintptr)) bool {
	return false
}

func (h *syntheticHeap) IsArray(obj uintptr) bool {
	return false
}

func (h *syntheticHeap) IsReferenceArray(obj uintptr) bool {
	return false
}

func (h *syntheticHeap) ArrayLength(obj uintptr) int32 {
	return 0
}

func (h *syntheticHeap) IterateRefs(obj uintptr, cl func(p *uintptr)) {
	refs := h.objects[h.index(obj)].refs
	for i := range refs {
		cl(&refs[i])
	}
}

func (h *syntheticHeap) IterateRefRange(obj uintptr, from, to int32, cl func(p *uintptr)) {
	refs := h.objects[h.index(obj)].refs
	for i := from; i < to && int(i) < len(refs); i++ {
		cl(&refs[i])
	}
}

func (h *syntheticHeap) SizeInWords(obj uintptr) uintptr {
	return uintptr(4 + len(h.objects[h.index(obj)].refs))
}
