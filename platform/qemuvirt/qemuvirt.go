// QEMU virt-style board description
// https://github.com/ko6/ko6
//
// Copyright (c) The ko6 Authors.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package qemuvirt describes a generic QEMU virt-style board: one of
// each device kind at the base addresses a virt machine's device tree
// typically assigns them, bound to the ARM CPU family.
package qemuvirt

import (
	"github.com/ko6/ko6/cpu"
	"github.com/ko6/ko6/cpu/arm"
	"github.com/ko6/ko6/platform"
)

// Base addresses, matching a virt machine's conventional memory map
// order (UART, GIC, timer, virtio devices).
const (
	ConsoleBase = 0x0900_0000
	AuxConsBase = 0x0900_1000
	ICUBase     = 0x0800_0000
	TimerBase   = 0x0802_0000
	DMABase     = 0x0a00_0000
	BlockBase   = 0x0a00_0200
)

// Default returns this board's configuration.
func Default() platform.Config {
	return platform.Config{
		Board:        "qemuvirt",
		NewCPU:       func() cpu.Primitives { return arm.New() },
		ConsoleBase:  ConsoleBase,
		AuxConsBase:  AuxConsBase,
		Baudrate:     115200,
		ICUBase:      ICUBase,
		TimerBase:    TimerBase,
		TimerTick:    1000,
		DMABase:      DMABase,
		BlockBase:    BlockBase,
		BlockCount:   256,
		ArenaPages:   64,
		NumStacks:    8,
		UserHeapBase: 0x4000_0000,
		UserHeapSize: 0x0010_0000,
	}
}
