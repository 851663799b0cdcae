// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mark

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// overflowSegmentSize is the fixed width of one OverflowStack segment. The
// stack grows and shrinks by whole segments so that it can recycle them
// through segmentPool instead of allocating on the marking hot path.
const overflowSegmentSize = 256

// segmentPool recycles the backing arrays behind OverflowStack segments.
// Pooling these avoids the one allocation per overflow push/pop burst that a
// naive append-based stack would otherwise incur during a mark phase.
var segmentPool = sync.Pool{
	New: func() interface{} {
		seg := make([]Task, 0, overflowSegmentSize)
		return &seg
	},
}

// getSegment retrieves a zero-length, overflowSegmentSize-capacity Task
// slice from the pool.
func getSegment() []Task {
	segPtr := segmentPool.Get().(*[]Task)
	return (*segPtr)[:0]
}

// putSegment returns a segment to the pool. Segments that grew past the
// standard capacity (which should not normally happen) are dropped instead
// of pooled, so the pool never accumulates oversized buffers.
func putSegment(seg []Task) {
	if cap(seg) != overflowSegmentSize {
		return
	}
	seg = seg[:0]
	segmentPool.Put(&seg)
}

// livenessLocalPool recycles the per-worker local liveness scratch arrays
// (see liveness.go) across successive regions and phases.
var livenessLocalPool = sync.Pool{
	New: func() interface{} {
		buf := make([]uint16, 0, 64)
		return &buf
	},
}

func getLivenessLocal(n int) []uint16 {
	bufPtr := livenessLocalPool.Get().(*[]uint16)
	buf := *bufPtr
	if cap(buf) < n {
		buf = make([]uint16, n)
		return buf
	}
	buf = buf[:n]
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

func putLivenessLocal(buf []uint16) {
	if buf == nil || cap(buf) > 4096 {
		return
	}
	buf = buf[:0]
	livenessLocalPool.Put(&buf)
}

// WarmupConfig controls how aggressively PrewarmPools pre-populates the
// package-level pools before a mark phase begins. The hot tracing path is
// meant to perform no allocation; warming the pools ahead of RunPhase
// amortizes the first-touch cost of sync.Pool instead of paying it mid-phase
// on a worker goroutine.
type WarmupConfig struct {
	// Segments is the number of overflow segments to pre-allocate and
	// immediately return to segmentPool.
	Segments int

	// LivenessBuffers is the number of per-worker liveness scratch slices
	// to pre-allocate, sized for RegionWords entries each.
	LivenessBuffers int
	RegionWords     int

	// Concurrent warms the pools from multiple goroutines.
	Concurrent    bool
	MaxGoroutines int
}

// DefaultWarmupConfig sizes pools for a typical worker count.
func DefaultWarmupConfig(numWorkers int) *WarmupConfig {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &WarmupConfig{
		Segments:        numWorkers * 4,
		LivenessBuffers: numWorkers,
		RegionWords:     256,
		Concurrent:      numWorkers > 1,
		MaxGoroutines:   numWorkers,
	}
}

// LightWarmupConfig pre-allocates just enough for one worker, useful in
// tests and small fixed-size heaps.
func LightWarmupConfig() *WarmupConfig {
	return &WarmupConfig{
		Segments:        2,
		LivenessBuffers: 1,
		RegionWords:     64,
		Concurrent:      false,
		MaxGoroutines:   1,
	}
}

// poolWarmer tracks whether the package pools have already been warmed, so
// repeated PrewarmPools calls across phases are cheap no-ops.
type poolWarmer struct {
	warmed atomic.Bool
	mu     sync.Mutex
}

var globalPoolWarmer poolWarmer

// PrewarmPools pre-populates segmentPool and livenessLocalPool per cfg. It
// is safe to call before every RunPhase; after the first successful warm it
// returns immediately until ResetPoolWarmup is called.
func PrewarmPools(cfg *WarmupConfig) {
	if cfg == nil {
		cfg = DefaultWarmupConfig(runtime.NumCPU())
	}

	globalPoolWarmer.mu.Lock()
	defer globalPoolWarmer.mu.Unlock()

	if globalPoolWarmer.warmed.Load() {
		return
	}

	if cfg.Concurrent && cfg.MaxGoroutines > 1 {
		warmConcurrent(cfg)
	} else {
		warmSequential(cfg)
	}

	globalPoolWarmer.warmed.Store(true)
}

func warmSequential(cfg *WarmupConfig) {
	segs := make([][]Task, cfg.Segments)
	for i := range segs {
		segs[i] = getSegment()
	}
	for _, s := range segs {
		putSegment(s)
	}

	bufs := make([][]uint16, cfg.LivenessBuffers)
	for i := range bufs {
		bufs[i] = getLivenessLocal(cfg.RegionWords)
	}
	for _, b := range bufs {
		putLivenessLocal(b)
	}
}

func warmConcurrent(cfg *WarmupConfig) {
	var wg sync.WaitGroup
	sem := make(chan struct{}, cfg.MaxGoroutines)

	wg.Add(1)
	sem <- struct{}{}
	go func() {
		defer wg.Done()
		defer func() { <-sem }()
		segs := make([][]Task, cfg.Segments)
		for i := range segs {
			segs[i] = getSegment()
		}
		for _, s := range segs {
			putSegment(s)
		}
	}()

	wg.Add(1)
	sem <- struct{}{}
	go func() {
		defer wg.Done()
		defer func() { <-sem }()
		bufs := make([][]uint16, cfg.LivenessBuffers)
		for i := range bufs {
			bufs[i] = getLivenessLocal(cfg.RegionWords)
		}
		for _, b := range bufs {
			putLivenessLocal(b)
		}
	}()

	wg.Wait()
}

// ResetPoolWarmup forgets that the pools were warmed, so the next
// PrewarmPools call repopulates them. Tests use this between scenarios that
// assert on pool-miss allocation counts.
func ResetPoolWarmup() {
	globalPoolWarmer.mu.Lock()
	defer globalPoolWarmer.mu.Unlock()
	globalPoolWarmer.warmed.Store(false)
}

// IsPoolWarmed reports whether PrewarmPools has run since the last reset.
func IsPoolWarmed() bool {
	return globalPoolWarmer.warmed.Load()
}
