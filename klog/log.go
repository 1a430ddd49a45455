// Kernel diagnostics
// https://github.com/ko6/ko6
//
// Copyright (c) The ko6 Authors.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package klog provides the kernel's logging and panic primitives. It
// wraps the standard library log package the way bring-up code is
// expected to: a single configured logger, no ambient global state beyond
// the default writer.
package klog

import (
	"io"
	"log"
	"os"
)

var logger = log.New(os.Stderr, "ko6: ", 0)

// SetOutput redirects kernel log output, for tests and for platforms that
// route the console through a character device instead of stderr.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// Printf logs a formatted diagnostic message.
func Printf(format string, args ...any) {
	logger.Printf(format, args...)
}

// Context is the minimal register snapshot a panic report prints. Real
// CPU packages provide richer context; klog only needs a stringer.
type Context interface {
	String() string
}

// Panic prints the cause and the saved register context of the thread
// that triggered an unrecoverable trap, then halts. On this host-hosted
// build "halt" means terminating the process, standing in for the
// bare-metal infinite loop the kernel would otherwise enter.
func Panic(cause string, ctx Context) {
	if ctx != nil {
		logger.Printf("PANIC: %s\n%s", cause, ctx.String())
	} else {
		logger.Printf("PANIC: %s", cause)
	}
	haltFn()
}

// haltFn backs Panic/Fatalf's halt step. Production code calls os.Exit;
// tests override it so the panic path can be exercised without killing
// the test binary.
var haltFn = func() { os.Exit(1) }

// Fatalf logs a formatted message and halts, for bring-up failures that
// the spec marks fatal (platform.Bring returning an error).
func Fatalf(format string, args ...any) {
	logger.Printf(format, args...)
	haltFn()
}
