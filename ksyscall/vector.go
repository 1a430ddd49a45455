// Syscall dispatcher
// https://github.com/ko6/ko6
//
// Copyright (c) The ko6 Authors.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package ksyscall implements ko6's syscall dispatcher: a fixed-size
// vector indexed by syscall number. It is named ksyscall, rather than
// syscall, to avoid colliding with the standard library package of that
// name.
package ksyscall

import (
	"github.com/ko6/ko6/kerrno"
	"github.com/ko6/ko6/klog"
)

// Num identifies a syscall.
type Num int

const (
	EXIT Num = iota
	READ
	WRITE
	CLOCK
	DMA_MEMCPY
	CACHELINESIZE
	DCACHEBUFINVAL
	DCACHEINVAL
	SBRK
	ERRNO
	THREAD_CREATE
	THREAD_YIELD
	THREAD_EXIT
	SCHED_DUMP
	THREAD_JOIN
	MUTEX_INIT
	MUTEX_LOCK
	MUTEX_UNLOCK
	MUTEX_DESTROY
	BARRIER_INIT
	BARRIER_WAIT
	BARRIER_DESTROY
	KSHELL
	numSyscalls
)

// VectorSize is the dispatcher's fixed capacity, the next power of two
// at or above the recognized syscall count.
const VectorSize = 32

// Args is the syscall ABI's integer inputs, minus the syscall number
// itself (which selects the Handler): a0..a3.
type Args struct {
	A0, A1, A2, A3 int64
}

// Handler services one syscall number. Its return value is the ABI's
// single signed integer: non-negative on success, a negated kerrno.Errno
// on failure.
type Handler func(Args) int64

// Vector is ko6's syscall dispatch table.
type Vector struct {
	handlers [VectorSize]Handler
}

// NewVector creates an empty dispatch vector.
func NewVector() *Vector {
	return &Vector{}
}

// Register binds handler to syscall number num.
func (v *Vector) Register(num Num, handler Handler) {
	if int(num) < 0 || int(num) >= VectorSize {
		return
	}
	v.handlers[num] = handler
}

// Dispatch indexes the vector by num and runs its handler. An unknown
// number returns NotImplemented and logs the four argument values.
func (v *Vector) Dispatch(num Num, a Args) int64 {
	if int(num) < 0 || int(num) >= VectorSize || v.handlers[num] == nil {
		klog.Printf("syscall: unknown number %d args=(%d,%d,%d,%d)", num, a.A0, a.A1, a.A2, a.A3)
		return int64(kerrno.NotImplemented.Neg())
	}
	return v.handlers[num](a)
}
