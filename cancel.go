// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mark

import (
	"context"
	"sync/atomic"
)

// CancelToken bridges a context.Context into a single atomic flag
// observable via IsCancelled. A Heap implementation embeds a CancelToken
// and exposes IsCancelled/CheckCancelAndYield by delegating to it, rather
// than checking ctx.Done() on every call - CheckCancelAndYield only
// actually samples the context every checkInterval calls, since it is
// invoked once per stride from the hot loop.
type CancelToken struct {
	ctx           context.Context
	checkInterval int64
	counter       int64
	cancelled     atomic.Bool
}

// NewCancelToken creates a token that samples ctx.Done() every
// checkInterval calls to CheckCancelAndYield. A non-positive checkInterval
// defaults to 1000.
func NewCancelToken(ctx context.Context, checkInterval int) *CancelToken {
	if ctx == nil {
		ctx = context.Background()
	}
	if checkInterval <= 0 {
		checkInterval = 1000
	}
	return &CancelToken{ctx: ctx, checkInterval: int64(checkInterval)}
}

// IsCancelled reports the flag without touching the context; cheap enough
// to call from do_task/Apply.
func (c *CancelToken) IsCancelled() bool {
	return c.cancelled.Load()
}

// CheckCancelAndYield samples the context every checkInterval calls and
// latches the cancelled flag permanently once observed, so subsequent
// IsCancelled calls short-circuit. Returns the (possibly just-updated)
// cancelled state.
func (c *CancelToken) CheckCancelAndYield() bool {
	if c.cancelled.Load() {
		return true
	}
	n := atomic.AddInt64(&c.counter, 1)
	if n%c.checkInterval != 0 {
		return false
	}
	select {
	case <-c.ctx.Done():
		c.cancelled.Store(true)
		return true
	default:
		return false
	}
}

// Cancel latches the flag directly, for callers (like tests) that want to
// force cancellation without a context.
func (c *CancelToken) Cancel() {
	c.cancelled.Store(true)
}
