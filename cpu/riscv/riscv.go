// RISC-V CPU family primitives
// https://github.com/ko6/ko6
//
// Copyright (c) The ko6 Authors.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package riscv implements cpu.Primitives for ko6's RISC-V CPU family.
package riscv

import (
	"fmt"
	"sync/atomic"

	"github.com/ko6/ko6/cpu"
)

// RISC-V trap causes (non-interrupt), Table 3.6, Volume II: RISC-V
// Privileged Architecture, for use in panic diagnostics.
const (
	InstructionAddressMisaligned = 0
	IllegalInstruction           = 2
	Breakpoint                   = 3
	EnvironmentCallFromU         = 8
	EnvironmentCallFromM         = 11
)

// CPU is the RISC-V implementation of cpu.Primitives.
type CPU struct {
	irqEnabled uint32
	cycles     int64
}

// New returns an initialized RISC-V CPU instance with interrupts enabled.
func New() *CPU {
	c := &CPU{}
	atomic.StoreUint32(&c.irqEnabled, 1)
	return c
}

func (c *CPU) ID() int { return 0 }

func (c *CPU) Cycles() int64 {
	return atomic.AddInt64(&c.cycles, 1)
}

func (c *CPU) EnableInterrupts() {
	atomic.StoreUint32(&c.irqEnabled, 1)
}

func (c *CPU) DisableInterrupts() bool {
	return atomic.SwapUint32(&c.irqEnabled, 0) != 0
}

func (c *CPU) RestoreInterrupts(wasEnabled bool) {
	if wasEnabled {
		atomic.StoreUint32(&c.irqEnabled, 1)
	} else {
		atomic.StoreUint32(&c.irqEnabled, 0)
	}
}

func (c *CPU) InterruptsEnabled() bool {
	return atomic.LoadUint32(&c.irqEnabled) != 0
}

func (c *CPU) CacheFlushData()      {}
func (c *CPU) CacheInvalidateData() {}

// Context is the RISC-V saved register set: callee-saved s0-s11, the
// return address, stack pointer and mstatus.
type Context struct {
	S       [12]uint64 // s0-s11
	Ra      uintptr
	Sp      uintptr
	Mstatus uint64
	entry   uintptr
	stack   uintptr
}

func (ctx *Context) SP() uintptr { return ctx.Sp }
func (ctx *Context) PC() uintptr { return ctx.Ra }

func (ctx *Context) String() string {
	return fmt.Sprintf("pc=%#x sp=%#x mstatus=%#x", ctx.Ra, ctx.Sp, ctx.Mstatus)
}

func (c *CPU) NewContext() cpu.Context {
	return &Context{}
}

func (c *CPU) ContextInit(generic cpu.Context, fn uintptr, stack uintptr) {
	ctx := generic.(*Context)
	ctx.entry = fn
	ctx.stack = stack
	ctx.Ra = fn
	ctx.Sp = stack
	ctx.Mstatus = 1 << 3 // MIE: machine interrupts enabled
}

func (c *CPU) ContextSave(generic cpu.Context) {
	_ = generic.(*Context)
}

func (c *CPU) ContextLoad(generic cpu.Context) {
	_ = generic.(*Context)
}

// CauseName returns a human name for an mcause exception code, for panic
// reports.
func CauseName(code int) string {
	switch code {
	case InstructionAddressMisaligned:
		return "InstructionAddressMisaligned"
	case IllegalInstruction:
		return "IllegalInstruction"
	case Breakpoint:
		return "Breakpoint"
	case EnvironmentCallFromU:
		return "EnvironmentCallFromU"
	case EnvironmentCallFromM:
		return "EnvironmentCallFromM"
	default:
		return "Unknown"
	}
}
