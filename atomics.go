// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mark

import "sync/atomic"

// casUintptr atomically stores newVal into *p if *p still equals oldVal,
// reporting whether it succeeded. Used by RefClosure's CasUpdate policy to
// update a reference field concurrently with a mutator's write barrier.
func casUintptr(p *uintptr, oldVal, newVal uintptr) bool {
	return atomic.CompareAndSwapUintptr(p, oldVal, newVal)
}
