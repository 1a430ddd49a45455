// ARM CPU family primitives
// https://github.com/ko6/ko6
//
// Copyright (c) The ko6 Authors.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package arm implements cpu.Primitives for ko6's ARM CPU family.
package arm

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ko6/ko6/cpu"
)

// CPU is the ARM implementation of cpu.Primitives. The zero value is
// ready to use.
type CPU struct {
	irqEnabled uint32 // atomic bool, starts enabled
	cycles     int64  // synthetic free-running counter
	cacheFlush int64
	cacheInval int64
}

// New returns an initialized ARM CPU instance with interrupts
// enabled.
func New() *CPU {
	c := &CPU{}
	atomic.StoreUint32(&c.irqEnabled, 1)
	return c
}

func (c *CPU) ID() int { return 0 }

// Cycles returns a monotonically increasing synthetic cycle count. Real
// silicon reads the ARM generic timer (arm/timer.go's read_cntpct); here
// each call simply advances a counter, which is sufficient for the
// kernel's use of Cycles as an opaque, increasing timestamp.
func (c *CPU) Cycles() int64 {
	return atomic.AddInt64(&c.cycles, 1)
}

func (c *CPU) EnableInterrupts() {
	atomic.StoreUint32(&c.irqEnabled, 1)
}

func (c *CPU) DisableInterrupts() bool {
	was := atomic.SwapUint32(&c.irqEnabled, 0)
	return was != 0
}

func (c *CPU) RestoreInterrupts(wasEnabled bool) {
	if wasEnabled {
		atomic.StoreUint32(&c.irqEnabled, 1)
	} else {
		atomic.StoreUint32(&c.irqEnabled, 0)
	}
}

// InterruptsEnabled reports the current IRQ mask state, for tests and
// diagnostics.
func (c *CPU) InterruptsEnabled() bool {
	return atomic.LoadUint32(&c.irqEnabled) != 0
}

func (c *CPU) CacheFlushData() {
	atomic.AddInt64(&c.cacheFlush, 1)
}

func (c *CPU) CacheInvalidateData() {
	atomic.AddInt64(&c.cacheInval, 1)
}

// Context is the ARM saved register set: callee-saved r4-r11, link
// register, stack pointer and CPSR.
type Context struct {
	R    [8]uint32 // r4-r11
	LR   uintptr
	Sp   uintptr
	CPSR uint32
	// entry/stack hold the bootstrap shim's parameters until the first
	// ContextLoad.
	entry uintptr
	stack uintptr
}

func (ctx *Context) SP() uintptr { return ctx.Sp }
func (ctx *Context) PC() uintptr { return ctx.LR }

func (ctx *Context) String() string {
	return fmt.Sprintf("pc=%#x sp=%#x cpsr=%#x", ctx.LR, ctx.Sp, ctx.CPSR)
}

func (c *CPU) NewContext() cpu.Context {
	return &Context{}
}

// ContextInit prepares ctx so that the thread's first dispatch jumps to
// fn running on stack: the scheduler never special-cases first dispatch,
// it just loads a context whose saved PC is the entry point.
func (c *CPU) ContextInit(generic cpu.Context, fn uintptr, stack uintptr) {
	ctx := generic.(*Context)
	ctx.entry = fn
	ctx.stack = stack
	ctx.LR = fn
	ctx.Sp = stack
	ctx.CPSR = 0x10 // USR mode, IRQs enabled
}

func (c *CPU) ContextSave(generic cpu.Context) {
	// On real silicon this traps into the exception vector and spills
	// r4-r11/LR/SP/CPSR; the host build models the switch itself as the
	// scheduler swapping which Context is "current", so there is
	// nothing additional to capture here beyond what ContextInit/the
	// scheduler already tracks.
	_ = generic.(*Context)
}

func (c *CPU) ContextLoad(generic cpu.Context) {
	_ = generic.(*Context)
}

// Busyloop waits for approximately n nanoseconds (by sleeping, not
// spinning), for drivers that need a fixed settle delay.
func Busyloop(n int32) {
	if n <= 0 {
		return
	}
	time.Sleep(time.Duration(n) * time.Nanosecond)
}
