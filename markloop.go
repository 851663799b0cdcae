// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mark

// LoopOptions configures one worker's invocation of RunMarkLoop.
type LoopOptions struct {
	// Stride is how many tasks a worker processes between polls of
	// Heap.CheckCancelAndYield. A smaller stride reacts to cancellation
	// faster at the cost of more frequent bookkeeping; zero or a negative
	// value selects DefaultStride.
	Stride int

	// SeedQueues, when true, makes the worker first drain every queue in
	// the set via QueueSet.ClaimNext (phase A, seeding initial roots)
	// before entering the steady-state steal loop (phase B). Only the
	// first call to RunPhase after NewQueueSet/ResetQueueSet should set
	// this.
	SeedQueues bool
}

// DefaultStride is used when LoopOptions.Stride is zero or negative.
const DefaultStride = 1000

// WorkerStats reports what one worker did during a RunMarkLoop call.
type WorkerStats struct {
	TasksProcessed  int
	StealAttempts   int
	StealSuccesses  int
	TerminationOffers int
}

// RunMarkLoop drives one worker through a complete mark phase: phase A
// drains any queues handed out via QueueSet.ClaimNext (when
// opts.SeedQueues is set), then phase B alternates trying the worker's own
// queue, draining one completed write-barrier buffer, and stealing, calling
// terminator.OfferTermination once all three come up empty. It returns when
// the terminator declares the phase complete or the heap reports
// cancellation.
func RunMarkLoop(workerID int, qs *QueueSet, heap Heap, model ObjectModel, closure *RefClosure, term Terminator, opts LoopOptions, liveness *LivenessCounter) WorkerStats {
	stride := opts.Stride
	if stride <= 0 {
		stride = DefaultStride
	}

	wq := qs.Queue(workerID)
	closure.Bind(wq.Push)
	seed := NewWorkerSeed(workerID)
	var stats WorkerStats

	var local *WorkerLiveness
	if liveness != nil {
		local = liveness.NewWorkerLocal()
		defer func() {
			local.Flush()
			local.Release()
		}()
	}

	processed := 0
	checkCancel := func() bool {
		processed++
		if processed%stride != 0 {
			return false
		}
		return heap.CheckCancelAndYield()
	}

	if opts.SeedQueues {
		for {
			if heap.IsCancelled() {
				return stats
			}
			idx, ok := qs.ClaimNext()
			if !ok {
				break
			}
			seedQueue := qs.Queue(idx)
			for {
				t, ok := seedQueue.TryQueue()
				if !ok {
					break
				}
				doTask(t, heap, model, closure, local)
				stats.TasksProcessed++
				if checkCancel() {
					return stats
				}
			}
		}
	}

	for {
		if t, ok := wq.TryQueue(); ok {
			doTask(t, heap, model, closure, local)
			stats.TasksProcessed++
			term.CancelTermination()
			if checkCancel() {
				return stats
			}
			continue
		}

		if heap.Barriers().ApplyClosureToOneCompletedBuffer(closure.Apply) {
			term.CancelTermination()
			continue
		}

		stats.StealAttempts++
		if t, ok := qs.TrySteal(workerID, &seed); ok {
			stats.StealSuccesses++
			doTask(t, heap, model, closure, local)
			stats.TasksProcessed++
			term.CancelTermination()
			if checkCancel() {
				return stats
			}
			continue
		}

		stats.TerminationOffers++
		if term.OfferTermination(qs) {
			return stats
		}
		if heap.IsCancelled() {
			return stats
		}
	}
}

// doTask dispatches a single task to the right handling strategy: a plain
// instance has its reference fields iterated directly; a reference array
// too large to process in one go is split into chunks via
// ChunkSplitStart; a primitive array has no reference fields and is
// skipped entirely; and an already-chunked task either recurses one more
// halving via ChunkSplitContinue or is processed directly once its range
// is small enough.
func doTask(t Task, heap Heap, model ObjectModel, closure *RefClosure, liveness *WorkerLiveness) {
	obj := t.Obj()

	if !t.IsChunked() {
		countLiveness(liveness, heap, model, obj)

		if !model.IsArray(obj) {
			model.IterateRefs(obj, closure.Apply)
			return
		}
		if !model.IsReferenceArray(obj) {
			// Primitive array: no reference fields to trace.
			return
		}

		length := model.ArrayLength(obj)
		ChunkSplitStart(obj, length, closure.push, func(from, to int32) {
			model.IterateRefRange(obj, from, to, closure.Apply)
		})
		return
	}

	if ShouldSplit(t) {
		first := ChunkSplitContinue(t, closure.push)
		doTask(first, heap, model, closure, liveness)
		return
	}

	from, to := t.Range()
	debugAssert(from >= 0 && from < to, "chunk task has empty or negative range: %v", t)
	debugAssert(to <= model.ArrayLength(obj), "chunk task range exceeds array length: %v", t)
	model.IterateRefRange(obj, from, to, closure.Apply)
}

// countLiveness adds obj's size to its region's liveness tally, when a
// counter was supplied for this phase.
func countLiveness(liveness *WorkerLiveness, heap Heap, model ObjectModel, obj uintptr) {
	if liveness == nil {
		return
	}
	region := heap.RegionOf(obj)
	words := uint32(model.SizeInWords(obj))
	liveness.Add(region, words)
}
