// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build markdebug

package mark

import "fmt"

// debugAssert panics if cond is false. It is compiled in only under the
// markdebug build tag; violated invariants are programmer errors, not
// runtime conditions to recover from.
func debugAssert(cond bool, format string, args ...any) {
	if !cond {
		panic("mark: assertion failed: " + fmt.Sprintf(format, args...))
	}
}

const debugBuild = true
