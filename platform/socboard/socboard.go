// Second board description
// https://github.com/ko6/ko6
//
// Copyright (c) The ko6 Authors.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package socboard describes a second, differently-addressed board: a
// small embedded SoC bound to the RISC-V CPU family. It shares
// platform.Bring's device/driver/registry machinery with qemuvirt; only
// addressing, sizing and the CPU package differ.
package socboard

import (
	"github.com/ko6/ko6/cpu"
	"github.com/ko6/ko6/cpu/riscv"
	"github.com/ko6/ko6/platform"
)

// Base addresses: one peripheral per 1 MiB window from 0x9000_0000, a
// compact memory map of the kind a small embedded SoC (rather than a
// QEMU virt machine) would use.
const (
	ConsoleBase = 0x9000_0000
	AuxConsBase = 0x9050_0000
	ICUBase     = 0x9010_0000
	TimerBase   = 0x9020_0000
	DMABase     = 0x9030_0000
	BlockBase   = 0x9040_0000
)

// Default returns this board's configuration.
func Default() platform.Config {
	return platform.Config{
		Board:        "socboard",
		NewCPU:       func() cpu.Primitives { return riscv.New() },
		ConsoleBase:  ConsoleBase,
		AuxConsBase:  AuxConsBase,
		Baudrate:     57600,
		ICUBase:      ICUBase,
		TimerBase:    TimerBase,
		TimerTick:    2000,
		DMABase:      DMABase,
		BlockBase:    BlockBase,
		BlockCount:   128,
		ArenaPages:   32,
		NumStacks:    4,
		UserHeapBase: 0x8000_0000,
		UserHeapSize: 0x0008_0000,
	}
}
