// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mark

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Log is the package-level logger. It defaults to a no-op logger so that
// importing this package is silent by default; callers that want
// diagnostics call SetLogger or SetLogOutput.
//
// The marking hot path never logs per-task events - only RunPhase's single
// event per completed phase goes through Log, matching the volume a GC log
// consumer actually wants to see.
var Log zerolog.Logger = zerolog.Nop()

// SetLogger replaces the package logger outright.
func SetLogger(l zerolog.Logger) {
	Log = l
}

// SetLogOutput installs a human-readable console logger writing to w, or a
// silent logger if w is nil. cmd/gcmarkdemo uses this to wire -verbose.
func SetLogOutput(w io.Writer) {
	if w == nil {
		Log = zerolog.Nop()
		return
	}
	Log = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000"}).With().Timestamp().Logger()
}

func init() {
	if os.Getenv("GCMARK_DEBUG") != "" {
		SetLogOutput(os.Stderr)
	}
}
