// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mark

import (
	"math/bits"
	"sync/atomic"
)

// age packs the deque's top index together with a tag that is bumped each
// time the owner claims the last element in PopBottom (Steal advances top
// and leaves the tag unchanged). The
// pair is CAS'd as a single word so a stealer can never observe a top
// update without also observing the generation it belongs to - the classic
// fix for the ABA hazard in a naive top-only CAS.
type age struct {
	top uint32
	tag uint32
}

func packAge(a age) uint64 {
	return uint64(a.top) | uint64(a.tag)<<32
}

func unpackAge(v uint64) age {
	return age{top: uint32(v), tag: uint32(v >> 32)}
}

// BoundedDeque is a fixed-capacity, array-backed work-stealing deque: the
// owning worker pushes and pops from the bottom without synchronization
// other than a memory fence, while any number of other workers may steal
// concurrently from the top using a single CAS. Capacity is always a power
// of two; usable capacity is capacity-2, matching the dirty-size aliasing
// rule below.
type BoundedDeque struct {
	buf    []Task
	mask   uint32
	bottom atomic.Uint32
	age    atomic.Uint64
}

// NewBoundedDeque creates a deque with room for capacity-2 usable elements.
// capacity must be a power of two of at least 4.
func NewBoundedDeque(capacity int) (*BoundedDeque, error) {
	if capacity < 4 || bits.OnesCount(uint(capacity)) != 1 {
		return nil, ErrInvalidCapacity
	}
	return &BoundedDeque{
		buf:  make([]Task, capacity),
		mask: uint32(capacity - 1),
	}, nil
}

// Capacity returns the backing array size N.
func (d *BoundedDeque) Capacity() int {
	return len(d.buf)
}

// MaxElems returns the usable capacity, N-2.
func (d *BoundedDeque) MaxElems() int {
	return len(d.buf) - 2
}

// dirtySize returns (bottom-top) mod N without correcting for the
// top-alias-to-empty case; callers needing a true count use Size.
func (d *BoundedDeque) dirtySize(bottom, top uint32) int {
	n := uint32(len(d.buf))
	return int((bottom - top) % n)
}

// Size returns the number of elements currently queued. A dirty size of
// N-1 is indistinguishable from 0 without this correction, because the
// owner publishes bottom one slot ahead of the last written index and a
// concurrent steal can transiently observe that gap.
func (d *BoundedDeque) Size() int {
	bottom := d.bottom.Load()
	top := unpackAge(d.age.Load()).top
	sz := d.dirtySize(bottom, top)
	if sz == len(d.buf)-1 {
		return 0
	}
	return sz
}

// Empty reports whether the deque currently holds no tasks.
func (d *BoundedDeque) Empty() bool {
	return d.Size() == 0
}

// PushBottom pushes t onto the bottom of the deque. Only the owning worker
// may call this. Returns false if the deque is at MaxElems capacity.
func (d *BoundedDeque) PushBottom(t Task) bool {
	bottom := d.bottom.Load()
	top := unpackAge(d.age.Load()).top
	if d.dirtySize(bottom, top) >= d.MaxElems() {
		return false
	}
	d.buf[bottom&d.mask] = t
	d.bottom.Store(bottom + 1)
	return true
}

// PopBottom pops from the bottom of the deque. Only the owning worker may
// call this. When exactly one element remains, a concurrent Steal may be
// racing for the same slot; the race is resolved with a CAS on age
// identical to the one Steal performs.
func (d *BoundedDeque) PopBottom() (Task, bool) {
	bottom := d.bottom.Load()
	if bottom == 0 {
		return Task(0), false
	}
	newBottom := bottom - 1
	d.bottom.Store(newBottom)

	oldAge := unpackAge(d.age.Load())
	size := d.dirtySize(newBottom, oldAge.top)
	if size == len(d.buf)-1 {
		// Deque observed empty by the dirty-size aliasing rule; restore
		// bottom and report empty.
		d.bottom.Store(bottom)
		return Task(0), false
	}

	t := d.buf[newBottom&d.mask]
	if size > 0 {
		// Not the last element: no stealer can be contending for it.
		return t, true
	}

	// Exactly one element was left; race a stealer for it via CAS.
	newAge := age{top: oldAge.top + 1, tag: oldAge.tag + 1}
	if d.age.CompareAndSwap(packAge(oldAge), packAge(newAge)) {
		d.bottom.Store(bottom)
		return t, true
	}

	// Lost the race: a stealer took it first.
	d.bottom.Store(bottom)
	return Task(0), false
}

// Steal removes and returns one task from the top of the deque. Any number
// of workers may call Steal concurrently with each other and with the
// owner's PushBottom/PopBottom.
func (d *BoundedDeque) Steal() (Task, bool) {
	oldAge := unpackAge(d.age.Load())
	bottom := d.bottom.Load()
	size := d.dirtySize(bottom, oldAge.top)
	if size <= 0 || size == len(d.buf)-1 {
		return Task(0), false
	}

	t := d.buf[oldAge.top&d.mask]
	newAge := age{top: oldAge.top + 1, tag: oldAge.tag}
	if d.age.CompareAndSwap(packAge(oldAge), packAge(newAge)) {
		return t, true
	}
	return Task(0), false
}

// Peek returns the task at the top of the deque without removing it. It
// may race with a concurrent
// steal and return a task that is no longer present; callers must treat a
// positive Peek only as a hint.
func (d *BoundedDeque) Peek() (Task, bool) {
	a := unpackAge(d.age.Load())
	bottom := d.bottom.Load()
	size := d.dirtySize(bottom, a.top)
	if size <= 0 || size == len(d.buf)-1 {
		return Task(0), false
	}
	return d.buf[a.top&d.mask], true
}

// Reset clears the deque back to empty without reallocating its backing
// array, for reuse across mark phases.
func (d *BoundedDeque) Reset() {
	d.bottom.Store(0)
	d.age.Store(0)
}
