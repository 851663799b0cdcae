// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mark

import "sync/atomic"

// cacheLinePadded wraps an atomic counter with enough trailing padding that
// two instances never share a cache line. Per-region liveness counters are
// updated by whichever worker happens to be tracing that region, so
// adjacent regions' counters being on the same line would produce false
// sharing under concurrent marking.
type cacheLinePadded struct {
	v atomic.Uint64
	_ [56]byte // pad struct to 64 bytes total (8 bytes for v + 56 bytes padding)
}

// LivenessCounter accumulates the live word count for every heap region
// during a mark phase. It is shared read-only (aside from the atomic
// counters themselves) by every worker; each worker keeps its own
// WorkerLiveness with a private local tally and only touches the shared,
// cache-line-padded global counters when its local tally would overflow a
// uint16 or when it flushes at the end of the phase. This keeps the common
// case - a worker marking many objects in the region it is currently
// working on - free of any atomic traffic or cross-worker contention.
type LivenessCounter struct {
	global []cacheLinePadded
}

// NewLivenessCounter returns a counter sized for numRegions regions, shared
// by every worker for the duration of one mark phase.
func NewLivenessCounter(numRegions int) *LivenessCounter {
	return &LivenessCounter{global: make([]cacheLinePadded, numRegions)}
}

// RegionCount returns the number of regions this counter tracks.
func (lc *LivenessCounter) RegionCount() int {
	return len(lc.global)
}

// LiveWords returns the total accumulated live word count for region. Only
// meaningful after every worker's WorkerLiveness has been flushed.
func (lc *LivenessCounter) LiveWords(region int) uint64 {
	return lc.global[region].v.Load()
}

// NewWorkerLocal returns a private per-worker liveness accumulator that
// flushes into lc.
func (lc *LivenessCounter) NewWorkerLocal() *WorkerLiveness {
	return &WorkerLiveness{counter: lc, local: getLivenessLocal(len(lc.global))}
}

// WorkerLiveness is one worker's private liveness scratch space. It must
// not be shared across goroutines.
type WorkerLiveness struct {
	counter *LivenessCounter
	local   []uint16
}

// Add accounts words additional live words in region. If the worker's
// local tally for that region would overflow uint16, it flushes the local
// tally to the global atomic counter first and starts a fresh local tally.
func (wl *WorkerLiveness) Add(region int, words uint32) {
	for words > 0 {
		room := uint32(^uint16(0)) - uint32(wl.local[region])
		chunk := words
		if chunk > room {
			chunk = room
		}
		wl.local[region] += uint16(chunk)
		words -= chunk
		if words > 0 {
			wl.flushRegion(region)
		}
	}
}

func (wl *WorkerLiveness) flushRegion(region int) {
	if wl.local[region] == 0 {
		return
	}
	wl.counter.global[region].v.Add(uint64(wl.local[region]))
	wl.local[region] = 0
}

// Flush pushes every region's remaining local tally into the shared global
// counters. Call once per worker at the end of a mark phase.
func (wl *WorkerLiveness) Flush() {
	for r := range wl.local {
		wl.flushRegion(r)
	}
}

// Release returns the local scratch array to the shared pool. Call after
// Flush, once this worker's liveness tracking is no longer needed.
func (wl *WorkerLiveness) Release() {
	putLivenessLocal(wl.local)
	wl.local = nil
}
