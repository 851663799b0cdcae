// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command gcmarkdemo runs the mark engine against a synthetic object graph
// and reports throughput and per-region liveness, as a way to exercise and
// benchmark the engine without a real heap attached.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/tracewright/gcmark"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	workers := flag.Int("workers", 0, "worker count (0 = use config/default)")
	objects := flag.Int("objects", 0, "synthetic object count (0 = use config/default)")
	policyFlag := flag.String("policy", "", "reference policy: noupdate|resolve|simple|cas")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	timeout := flag.Duration("timeout", 0, "cancel the phase after this duration (0 = no timeout)")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("gcmarkdemo: %v", err)
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *objects > 0 {
		cfg.Objects = *objects
	}
	if *policyFlag != "" {
		cfg.Policy = *policyFlag
	}
	if *verbose {
		cfg.Verbose = true
	}

	if _, err := maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {})); err != nil {
		log.Printf("gcmarkdemo: automaxprocs: %v", err)
	}

	if cfg.Verbose {
		gcmark.SetLogOutput(os.Stderr)
	} else {
		gcmark.SetLogger(zerolog.Nop())
	}

	policy, err := parsePolicy(cfg.Policy)
	if err != nil {
		log.Fatalf("gcmarkdemo: %v", err)
	}

	ctx := context.Background()
	var cancel context.CancelFunc
	if *timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	heap := newSyntheticHeap(cfg.Objects, cfg.FanOut, cfg.Regions, 1)
	heap.cancel = gcmark.NewCancelToken(ctx, 256)

	qs, err := gcmark.NewQueueSet(cfg.Workers)
	if err != nil {
		log.Fatalf("gcmarkdemo: %v", err)
	}

	seedRoots(qs, cfg.Objects)

	term := gcmark.MonitorTerminatorKind
	if cfg.SpinMaster {
		term = gcmark.SpinMasterTerminatorKind
	}

	start := time.Now()
	stats, err := gcmark.RunPhase(ctx, qs, heap, heap, gcmark.PhaseConfig{
		Policy:       policy,
		DedupStrings: cfg.DedupStrings,
		Loop: gcmark.LoopOptions{
			Stride:     cfg.Stride,
			SeedQueues: true,
		},
		Terminator: term,
		NumRegions: cfg.Regions,
	})
	if err != nil {
		log.Fatalf("gcmarkdemo: run phase: %v", err)
	}

	fmt.Printf("workers=%d objects=%d tasks=%d steals=%d/%d cancelled=%v wall=%s\n",
		stats.Workers, cfg.Objects, stats.TasksProcessed, stats.StealSuccesses, stats.StealAttempts,
		stats.Cancelled, time.Since(start))
	for r, words := range stats.RegionLiveWords {
		fmt.Printf("  region %2d: %d live words\n", r, words)
	}
}

func parsePolicy(s string) (gcmark.Policy, error) {
	switch s {
	case "", "resolve":
		return gcmark.Resolve, nil
	case "noupdate":
		return gcmark.NoUpdate, nil
	case "simple":
		return gcmark.SimpleUpdate, nil
	case "cas":
		return gcmark.CasUpdate, nil
	default:
		return 0, fmt.Errorf("unknown policy %q", s)
	}
}

// seedRoots pushes a handful of root object tasks spread across every
// worker's queue, so RunPhase's seed phase (QueueSet.ClaimNext) has
// something to drain before workers fall into steady-state stealing.
func seedRoots(qs *gcmark.QueueSet, numObjects int) {
	n := qs.NumQueues()
	rootsPerQueue := 4
	for w := 0; w < n; w++ {
		q := qs.Queue(w)
		for i := 0; i < rootsPerQueue; i++ {
			idx := (w*rootsPerQueue+i)%numObjects + 1
			q.Push(gcmark.NewObjectTask(uintptr(idx)))
		}
	}
}
