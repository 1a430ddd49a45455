// CPU-family agnostic primitives
// https://github.com/ko6/ko6
//
// Copyright (c) The ko6 Authors.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package cpu declares the primitives every supported CPU family must
// provide: a cycle counter, a stable per-core id, cache maintenance
// operations, an atomic exchange/add pair, IRQ mask/unmask, and thread
// context save/load. cpu/arm and cpu/riscv each implement Primitives for
// one of ko6's two supported CPU families; platform bring-up selects one
// at init time.
package cpu

import "sync/atomic"

// Context is a saved thread context: callee-saved registers, return
// address, stack pointer and status/mode register. CPU families embed
// additional architecture-specific fields but must satisfy this shape
// so the scheduler can treat a context opaquely.
type Context interface {
	// SP returns the saved stack pointer.
	SP() uintptr
	// PC returns the saved return address.
	PC() uintptr
	// String renders the context for panic reports.
	String() string
}

// Primitives is the capability set a CPU family implementation exposes to
// the rest of the kernel. It deliberately has no virtual-class hierarchy:
// a concrete family type implements this method set directly.
type Primitives interface {
	// ID returns a stable small integer identifying this core. ko6 is
	// uniprocessor in practice, so this is always 0, but the call
	// exists for forward SMP compatibility.
	ID() int

	// Cycles returns a free-running cycle counter.
	Cycles() int64

	// EnableInterrupts / DisableInterrupts mask and unmask IRQs for this
	// core. DisableInterrupts returns the prior mask state so a critical
	// section can restore it exactly on every exit path.
	EnableInterrupts()
	DisableInterrupts() (wasEnabled bool)
	RestoreInterrupts(wasEnabled bool)

	// CacheFlushData / CacheInvalidateData are the data-cache
	// maintenance operations DMA drivers need.
	CacheFlushData()
	CacheInvalidateData()

	// NewContext allocates a zeroed Context for this family.
	NewContext() Context

	// ContextInit prepares a freshly allocated context so that the
	// first ContextLoad of it jumps into fn via the bootstrap shim,
	// running on the given stack.
	ContextInit(ctx Context, fn uintptr, stack uintptr)

	// ContextSave snapshots the currently running thread's registers
	// into ctx. ContextLoad restores a previously saved context.
	ContextSave(ctx Context)
	ContextLoad(ctx Context)
}

// Spinlock is a test-and-set lock, implemented with sync/atomic rather
// than inline assembly since ko6's correctness never depends on it on
// uniprocessor. It exists for future SMP extension.
type Spinlock struct {
	state uint32
}

// Lock blocks until the spinlock is acquired.
func (s *Spinlock) Lock() {
	for !atomic.CompareAndSwapUint32(&s.state, 0, 1) {
	}
}

// Unlock releases the spinlock.
func (s *Spinlock) Unlock() {
	atomic.StoreUint32(&s.state, 0)
}

// TryLock attempts to acquire the spinlock without blocking.
func (s *Spinlock) TryLock() bool {
	return atomic.CompareAndSwapUint32(&s.state, 0, 1)
}

// AtomicAdd adds val to *counter and returns the new value.
func AtomicAdd(counter *int32, val int32) int32 {
	return atomic.AddInt32(counter, val)
}
