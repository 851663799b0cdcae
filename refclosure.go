// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mark

// Policy selects how a RefClosure treats a reference field while marking
// through it.
type Policy int

const (
	// NoUpdate leaves the reference field untouched; it is read once to
	// find the referent and never written back.
	NoUpdate Policy = iota

	// Resolve reads the field, follows any forwarding pointer to find the
	// current object, but - like NoUpdate - never writes the resolved
	// address back into the field.
	Resolve

	// SimpleUpdate resolves the field and writes the up-to-date address
	// back unconditionally. Safe only when no other thread can be
	// concurrently writing the same field.
	SimpleUpdate

	// CasUpdate resolves the field and writes the up-to-date address back
	// with a compare-and-swap, so it is safe even when a mutator might be
	// concurrently updating the same field through a write barrier.
	CasUpdate
)

func (p Policy) String() string {
	switch p {
	case NoUpdate:
		return "NoUpdate"
	case Resolve:
		return "Resolve"
	case SimpleUpdate:
		return "SimpleUpdate"
	case CasUpdate:
		return "CasUpdate"
	default:
		return "Policy(?)"
	}
}

// RefClosure visits a single reference field during marking, applying its
// configured Policy to decide whether and how the field gets updated, and
// optionally feeding interned strings into a deduplication queue and
// visiting class metadata. DedupStrings and IterateMetadata are orthogonal
// to Policy - a closure can mix any policy with either flag - mirroring how
// a concrete mark-loop closure is selected along three independent axes
// rather than one combined enum.
type RefClosure struct {
	Heap         Heap
	Model        ObjectModel
	Policy       Policy
	DedupStrings bool

	// IterateMetadata additionally visits the class/type metadata of each
	// referent Apply marks for the first time, as if it were a reference
	// field, so that metadata reachable only through live instances is
	// kept alive during a concurrent class unloading pass. Objects that
	// enter the queues without passing through Apply, such as seeded
	// roots, do not have their metadata visited.
	IterateMetadata bool

	// IsString and EnqueueForDedup feed candidate strings into a
	// deduplication queue when DedupStrings is set: Apply calls
	// EnqueueForDedup for a newly marked referent for which IsString
	// reports true. Callbacks are used rather than a concrete string type,
	// since this package has no notion of what a string object looks like.
	IsString        func(obj uintptr) bool
	EnqueueForDedup func(obj uintptr)

	// ClassOf returns obj's class/metadata object, if it has one; Apply
	// calls it when IterateMetadata is set. Left nil when metadata
	// visiting is not needed.
	ClassOf func(obj uintptr) (uintptr, bool)

	push func(Task)
}

// NewRefClosure returns a closure bound to heap/model with the given
// policy, ready to have push wired in via Bind before first use.
func NewRefClosure(heap Heap, model ObjectModel, policy Policy, dedupStrings bool) *RefClosure {
	return &RefClosure{Heap: heap, Model: model, Policy: policy, DedupStrings: dedupStrings}
}

// Bind attaches the push function the closure uses to enqueue newly marked
// referents. Must be called once before Apply, typically once per worker
// with that worker's WorkerQueue.Push.
func (c *RefClosure) Bind(push func(Task)) {
	c.push = push
}

// Apply visits the single reference slot at p: it reads *p, resolves
// forwarding and/or writes the field back according to Policy, and if the
// referent is marked for the first time, pushes a task for it and - when
// configured - enqueues it for string dedup.
func (c *RefClosure) Apply(p *uintptr) {
	obj := *p
	if obj == 0 {
		return
	}

	resolved := obj
	switch c.Policy {
	case NoUpdate:
		// obj is used as read.
	case Resolve:
		resolved = c.Heap.ResolveForwarding(obj)
	case SimpleUpdate:
		resolved = c.Heap.ResolveForwarding(obj)
		if resolved != obj {
			*p = resolved
		}
	case CasUpdate:
		resolved = c.Heap.ResolveForwarding(obj)
		if resolved != obj && !casUintptr(p, obj, resolved) {
			// Another thread already updated this slot; drop and return
			// rather than mark or push the target of a value that is no
			// longer there.
			return
		}
	}

	if !c.Heap.TryMark(resolved) {
		return
	}

	if c.push != nil {
		c.push(NewObjectTask(resolved))
	}

	if c.DedupStrings && c.IsString != nil && c.EnqueueForDedup != nil && c.IsString(resolved) {
		c.EnqueueForDedup(resolved)
	}

	if c.IterateMetadata && c.ClassOf != nil {
		if class, ok := c.ClassOf(resolved); ok && c.Heap.TryMark(class) {
			if c.push != nil {
				c.push(NewObjectTask(class))
			}
		}
	}
}
