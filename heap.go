// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mark

// Heap is the set of operations the marking engine needs from whatever
// object space it is tracing. Implementations are expected to be safe for
// concurrent use by every worker.
type Heap interface {
	// TryMark attempts to mark obj as reachable. It returns true exactly
	// once per object, the first time any worker marks it; this is the
	// linearization point that prevents an object from being pushed onto
	// more than one worker's queue.
	TryMark(obj uintptr) bool

	// ResolveForwarding returns the up-to-date address for obj, following
	// a forwarding pointer if one has been installed. For a heap with no
	// compaction this is the identity function.
	ResolveForwarding(obj uintptr) uintptr

	// RegionOf returns the region index containing addr, used to route
	// LivenessCounter updates.
	RegionOf(addr uintptr) int

	// RegionLiveAdd atomically adds words of live data to region's
	// counter. The engine in this package does not call it: RunMarkLoop
	// accumulates liveness in a LivenessCounter, and RunPhase reports the
	// totals in PhaseStats.RegionLiveWords.
	RegionLiveAdd(region int, words uint64)

	// IsCancelled reports whether the phase has been asked to stop.
	IsCancelled() bool

	// CheckCancelAndYield is polled by the mark loop at stride
	// boundaries; it may perform heavier bookkeeping than IsCancelled
	// (such as sampling a context.Context) and returns the up-to-date
	// cancellation state.
	CheckCancelAndYield() bool

	// Barriers exposes the concurrent write-barrier buffers that must be
	// drained as part of the steady-state mark loop.
	Barriers() BarrierBufferSet
}

// BarrierBufferSet abstracts the queue of buffers produced by concurrent
// mutator write barriers while marking runs.
type BarrierBufferSet interface {
	// ApplyClosureToOneCompletedBuffer applies cl to every slot of one
	// completed buffer and reports whether a buffer was available.
	ApplyClosureToOneCompletedBuffer(cl func(p *uintptr)) bool
}

// ObjectModel answers layout questions about a specific object, independent
// of where it lives in the heap.
type ObjectModel interface {
	// IsArray reports whether obj is an array object eligible for
	// chunked-task splitting.
	IsArray(obj uintptr) bool

	// IsReferenceArray reports whether obj is an array of references
	// (as opposed to a primitive array, which contains no pointers to
	// trace).
	IsReferenceArray(obj uintptr) bool

	// ArrayLength returns the element count of the array at obj.
	ArrayLength(obj uintptr) int32

	// IterateRefs calls cl once per reference field in obj.
	IterateRefs(obj uintptr, cl func(p *uintptr))

	// IterateRefRange calls cl once per reference slot of the array at
	// obj in the half-open element range [from, to).
	IterateRefRange(obj uintptr, from, to int32, cl func(p *uintptr))

	// SizeInWords returns the size of obj in heap words, used for
	// liveness accounting.
	SizeInWords(obj uintptr) uintptr
}
