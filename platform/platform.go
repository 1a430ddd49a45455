// Platform bring-up
// https://github.com/ko6/ko6
//
// Copyright (c) The ko6 Authors.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package platform wires ko6's device, scheduler, memory and syscall
// subsystems into one running instance from an explicit configuration
// value: base addresses arrive as plain fields, never from environment
// variables or config files. platform/qemuvirt and platform/socboard
// each supply a concrete Config for one board.
package platform

import (
	"github.com/ko6/ko6/blockio"
	"github.com/ko6/ko6/cpu"
	"github.com/ko6/ko6/device"
	"github.com/ko6/ko6/kerrno"
	"github.com/ko6/ko6/kirq"
	"github.com/ko6/ko6/kmem"
	"github.com/ko6/ko6/ksyscall"
	"github.com/ko6/ko6/sched"
	"github.com/ko6/ko6/tty"
	"github.com/ko6/ko6/umem"
)

// Fixed IRQ lines shared by every supported board: the periodic timer
// and the first character device.
const (
	TimerIRQ   = 0
	ConsoleIRQ = 1
)

// Config describes one board's device bases, sizing, and CPU family.
type Config struct {
	Board string

	// NewCPU constructs this board's CPU primitives (cpu/arm.New,
	// cpu/riscv.New, ...).
	NewCPU func() cpu.Primitives

	ConsoleBase  uint32
	AuxConsBase  uint32
	Baudrate     int
	ICUBase      uint32
	TimerBase    uint32
	TimerTick    int64
	DMABase      uint32
	BlockBase    uint32
	BlockCount   int
	ArenaPages   int
	NumStacks    int
	UserHeapBase uintptr
	UserHeapSize uintptr
}

// System is one brought-up ko6 instance: every subsystem wired together
// and ready to dispatch syscalls. Bring constructs it in this order: CPU,
// registry, IRQ routing table, allocator, drivers (the block driver
// together with the block cache), user stacks and scheduler, user heap,
// timer/console/IRQ bindings, syscall dispatcher.
type System struct {
	Config Config

	CPU      cpu.Primitives
	Registry *device.Registry
	IRQ      *kirq.Table
	Arena    *kmem.Arena
	Kmem     *kmem.Kmem
	Sched    *sched.Scheduler
	Stacks   *umem.StackAllocator
	Heap     *umem.Heap
	Blocks   *blockio.Cache
	Console  *tty.Console
	Kernel   *ksyscall.Kernel

	Console0 *device.SoclibTTY
	Console1 *device.SoclibTTY
	ICU      *device.GenericICU
	Timer    *device.GenericTimer
	DMA      *device.GenericDMA
	Block    *device.RAMBlockDevice
}

// Bring constructs a System from cfg: allocate each device's registry
// record, run its driver Init, bind the timer event and console ISR,
// and unmask the routed IRQ lines. Failure is fatal to the caller.
func Bring(cfg Config) (*System, error) {
	sys := &System{Config: cfg}

	sys.CPU = cfg.NewCPU()
	sys.Registry = device.NewRegistry()
	sys.IRQ = kirq.New()

	km, err := kmem.New(cfg.ArenaPages)
	if err != nil {
		return nil, kerrno.New("platform.Bring", kerrno.OutOfMemory)
	}
	sys.Kmem = km
	sys.Arena = km.Arena()

	if err := sys.bringConsole(cfg); err != nil {
		return nil, err
	}
	if err := sys.bringICU(cfg); err != nil {
		return nil, err
	}
	if err := sys.bringTimer(cfg); err != nil {
		return nil, err
	}
	if err := sys.bringDMA(cfg); err != nil {
		return nil, err
	}
	if err := sys.bringBlock(cfg); err != nil {
		return nil, err
	}

	stacks, err := umem.NewStackAllocator(cfg.NumStacks)
	if err != nil {
		return nil, err
	}
	sys.Stacks = stacks
	sys.Sched = sched.New(sys.CPU, stacks)

	sys.Heap = umem.NewHeap(cfg.UserHeapBase, cfg.UserHeapBase+cfg.UserHeapSize)

	sys.Timer.SetEvent(func(arg any) { sys.Sched.Yield() }, nil)
	sys.Console0.Yield = sys.Sched.Yield
	if sys.Console1 != nil {
		sys.Console1.Yield = sys.Sched.Yield
	}

	sys.IRQ.Register(TimerIRQ, func(irq int, arg any) { sys.Timer.Fire() }, nil)
	sys.IRQ.Register(ConsoleIRQ, func(irq int, arg any) { sys.Console0.ServiceRX() }, nil)

	for _, irq := range []int{TimerIRQ, ConsoleIRQ} {
		if sys.IRQ.Registered(irq) {
			if err := sys.ICU.Unmask(irq); err != nil {
				return nil, err
			}
		}
	}

	sys.Kernel = ksyscall.NewKernel()
	sys.Kernel.Sched = sys.Sched
	sys.Kernel.CPU = sys.CPU
	sys.Kernel.Console = sys.Console
	sys.Kernel.DMA = sys.DMA
	sys.Kernel.Heap = sys.Heap
	sys.Kernel.User = ksyscall.NewUserSpace()
	sys.Kernel.User.AddRegion(stacks.Region())

	return sys, nil
}

// Trap runs the trap-entry path: ask the interrupt controller for the
// highest-priority pending IRQ, acknowledge it, and route it, until
// nothing is pending. Handlers run with interrupts masked.
func (sys *System) Trap() {
	was := sys.CPU.DisableInterrupts()
	defer sys.CPU.RestoreInterrupts(was)

	for {
		irq := sys.ICU.GetHighest()
		if irq < 0 {
			return
		}
		sys.ICU.Acknowledge(irq)
		sys.IRQ.Route(irq)
	}
}

func (sys *System) bringConsole(cfg Config) error {
	dev := &device.SoclibTTY{}
	if err := dev.Init(cfg.ConsoleBase, cfg.Baudrate); err != nil {
		return err
	}
	rec := sys.Registry.Allocate(device.CharDev, cfg.ConsoleBase)
	rec.Ops = dev

	sys.Console0 = dev
	sys.Console = tty.NewConsole(dev)

	if cfg.AuxConsBase == 0 {
		return nil
	}
	aux := &device.SoclibTTY{}
	if err := aux.Init(cfg.AuxConsBase, cfg.Baudrate); err != nil {
		return err
	}
	rec = sys.Registry.Allocate(device.CharDev, cfg.AuxConsBase)
	rec.Ops = aux

	sys.Console1 = aux
	return sys.Console.Bind(2, aux, true, true)
}

func (sys *System) bringICU(cfg Config) error {
	icu := &device.GenericICU{}
	if err := icu.Init(cfg.ICUBase); err != nil {
		return err
	}
	rec := sys.Registry.Allocate(device.InterruptController, cfg.ICUBase)
	rec.Ops = icu
	sys.ICU = icu
	return nil
}

func (sys *System) bringTimer(cfg Config) error {
	timer := &device.GenericTimer{}
	if err := timer.Init(cfg.TimerBase, cfg.TimerTick); err != nil {
		return err
	}
	rec := sys.Registry.Allocate(device.TimerDev, cfg.TimerBase)
	rec.Ops = timer
	sys.Timer = timer
	return nil
}

func (sys *System) bringDMA(cfg Config) error {
	dma := device.NewGenericDMA(sys.CPU)
	if err := dma.Init(cfg.DMABase); err != nil {
		return err
	}
	rec := sys.Registry.Allocate(device.DMADev, cfg.DMABase)
	rec.Ops = dma
	sys.DMA = dma
	return nil
}

func (sys *System) bringBlock(cfg Config) error {
	blk := device.NewRAMBlockDevice(cfg.BlockCount)
	rec := sys.Registry.Allocate(device.BlockDev, cfg.BlockBase)
	if err := blk.Init(rec.Minor, cfg.BlockBase, device.BlockSize); err != nil {
		return err
	}
	rec.Ops = blk
	sys.Block = blk

	sys.Blocks = blockio.New(sys.Arena)
	sys.Blocks.RegisterDevice(uint32(rec.Minor), blk)
	return nil
}
