// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mark implements a concurrent, work-stealing object-graph marking
// engine of the kind used by a tracing garbage collector's concurrent mark
// phase. It provides bounded lock-free double-ended queues (BoundedDeque),
// a QueueSet that groups one deque per worker and coordinates stealing and
// termination detection, a chunked-array task representation that lets a
// single oversized array be split across many workers, a per-region
// liveness counter, and a family of reference-update closures used while
// visiting an object's fields.
//
// None of the types here know what an "object" actually is; callers supply
// a Heap and an ObjectModel that answer the handful of questions the mark
// loop needs (is this reachable, is it an array, what does it point to) and
// the engine drives the worker pool, the queues, and the termination
// protocol around those answers.
package mark
