// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !markdebug

package mark

// debugAssert is a no-op in release builds. Violated invariants are
// undefined behavior, not a runtime condition to be handled.
func debugAssert(cond bool, format string, args ...any) {}

const debugBuild = false
