// DMA driver-op table
// https://github.com/ko6/ko6
//
// Copyright (c) The ko6 Authors.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package device

import (
	"github.com/ko6/ko6/cpu"
	"github.com/ko6/ko6/kerrno"
)

// DMAOps is the DMA driver-op table. Memcpy must invalidate any CPU
// data-cache lines covering the destination before programming the
// transfer, then poll the length register to zero.
type DMAOps interface {
	Init(base uint32) error
	Memcpy(dst, src []byte, n int) error
}

// GenericDMA is ko6's DMA driver. Transfers invalidate the data cache
// first; callers guarantee destination alignment.
type GenericDMA struct {
	cpu cpu.Primitives

	// lenReg mirrors the hardware transfer-length register ko6's real
	// driver polls until it reaches zero; here the transfer is
	// synchronous so it is set then immediately observed at zero.
	lenReg int
}

// NewGenericDMA creates a DMA driver that invalidates the given CPU's
// data cache before each transfer.
func NewGenericDMA(c cpu.Primitives) *GenericDMA {
	return &GenericDMA{cpu: c}
}

func (d *GenericDMA) Init(base uint32) error {
	return nil
}

// Memcpy copies n bytes from src to dst. Callers are responsible for
// ensuring destination alignment.
func (d *GenericDMA) Memcpy(dst, src []byte, n int) error {
	if n < 0 || n > len(src) || n > len(dst) {
		return kerrno.New("dma.Memcpy", kerrno.InvalidArgument)
	}

	if d.cpu != nil {
		d.cpu.CacheInvalidateData()
	}

	d.lenReg = n
	copy(dst[:n], src[:n])
	d.lenReg = 0 // transfer is synchronous; poll-to-zero is immediate

	return nil
}
