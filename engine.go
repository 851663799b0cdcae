// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mark

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// PhaseStats summarizes one RunPhase call across every worker.
type PhaseStats struct {
	Workers        int
	TasksProcessed int
	StealAttempts  int
	StealSuccesses int
	Duration       time.Duration
	Cancelled      bool
	RegionLiveWords []uint64
}

// TerminatorKind selects which Terminator implementation RunPhase builds
// for a run.
type TerminatorKind int

const (
	// MonitorTerminatorKind uses MonitorTerminator (condition-variable
	// based, every idle worker blocks).
	MonitorTerminatorKind TerminatorKind = iota

	// SpinMasterTerminatorKind uses SpinMasterTerminator (one worker
	// spins at a time).
	SpinMasterTerminatorKind
)

// PhaseConfig configures a single RunPhase call.
type PhaseConfig struct {
	Policy          Policy
	DedupStrings    bool
	IterateMetadata bool
	Loop            LoopOptions
	Terminator      TerminatorKind
	NumRegions      int
	IsString        func(obj uintptr) bool
	EnqueueForDedup func(obj uintptr)
	ClassOf         func(obj uintptr) (uintptr, bool)
}

var phaseRunning sync.Mutex

// RunPhase fans out qs.NumQueues() workers, each running RunMarkLoop
// against heap/model with a RefClosure configured per cfg, joins them with
// golang.org/x/sync/errgroup, and returns aggregate statistics once every
// worker has reported termination or the context is cancelled.
//
// Only one RunPhase call may be in flight in the process at a time,
// whatever QueueSet it is given; a second concurrent call returns
// ErrAlreadyRunning.
func RunPhase(ctx context.Context, qs *QueueSet, heap Heap, model ObjectModel, cfg PhaseConfig) (PhaseStats, error) {
	if !phaseRunning.TryLock() {
		return PhaseStats{}, ErrAlreadyRunning
	}
	defer phaseRunning.Unlock()

	n := qs.NumQueues()
	if n == 0 {
		return PhaseStats{}, ErrNoWorkers
	}

	start := time.Now()
	PrewarmPools(DefaultWarmupConfig(n))

	var term Terminator
	switch cfg.Terminator {
	case SpinMasterTerminatorKind:
		t := NewSpinMasterTerminator(n, 0)
		defer t.Reset()
		term = t
	default:
		t := NewMonitorTerminator(n)
		defer t.Reset()
		term = t
	}

	var liveness *LivenessCounter
	if cfg.NumRegions > 0 {
		liveness = NewLivenessCounter(cfg.NumRegions)
	}

	g, gctx := errgroup.WithContext(ctx)
	statsCh := make(chan WorkerStats, n)

	seedOnce := cfg.Loop.SeedQueues
	for i := 0; i < n; i++ {
		workerID := i
		g.Go(func() error {
			closure := NewRefClosure(heap, model, cfg.Policy, cfg.DedupStrings)
			closure.IterateMetadata = cfg.IterateMetadata
			closure.IsString = cfg.IsString
			closure.EnqueueForDedup = cfg.EnqueueForDedup
			closure.ClassOf = cfg.ClassOf

			loopOpts := cfg.Loop
			loopOpts.SeedQueues = seedOnce
			stats := RunMarkLoop(workerID, qs, heap, model, closure, term, loopOpts, liveness)
			statsCh <- stats

			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
				return nil
			}
		})
	}

	err := g.Wait()
	close(statsCh)

	result := PhaseStats{Workers: n, Duration: time.Since(start)}
	for s := range statsCh {
		result.TasksProcessed += s.TasksProcessed
		result.StealAttempts += s.StealAttempts
		result.StealSuccesses += s.StealSuccesses
	}

	if liveness != nil {
		// Every worker's RunMarkLoop flushes its own WorkerLiveness before
		// returning, so by the time g.Wait() above has returned, every
		// region's global counter already reflects the whole phase.
		result.RegionLiveWords = make([]uint64, liveness.RegionCount())
		for r := range result.RegionLiveWords {
			result.RegionLiveWords[r] = liveness.LiveWords(r)
		}
	}

	if heap.IsCancelled() {
		result.Cancelled = true
	}

	Log.Debug().
		Int("workers", result.Workers).
		Int("tasks", result.TasksProcessed).
		Int("steal_attempts", result.StealAttempts).
		Int("steal_successes", result.StealSuccesses).
		Dur("duration", result.Duration).
		Bool("cancelled", result.Cancelled).
		Msg("mark phase complete")

	if err != nil {
		return result, wrapError("run phase", err)
	}
	return result, nil
}
