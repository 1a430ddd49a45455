// Block device driver-op table
// https://github.com/ko6/ko6
//
// Copyright (c) The ko6 Authors.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package device

import (
	"sync"

	"github.com/ko6/ko6/kerrno"
)

// BlockSize is the fixed logical block size.
const BlockSize = 4096

// BlockOps is the block-device driver-op table. All I/O is in multiples
// of one logical block.
type BlockOps interface {
	Init(minor int, base uint32, blockSize int) error
	Read(lba int64, buf []byte, count int) error
	Write(lba int64, buf []byte, count int) error
	SetEvent(fn func(arg any), arg any)
}

// RAMBlockDevice is ko6's block-device driver: a simulated disk backed
// by a host byte slice, with the same Init/Read/Write contract a real
// SD/MMC controller driver would carry.
type RAMBlockDevice struct {
	mu        sync.Mutex
	minor     int
	blockSize int
	data      []byte

	fn  func(arg any)
	arg any
}

// NewRAMBlockDevice creates a block device with capacity nblocks logical
// blocks.
func NewRAMBlockDevice(nblocks int) *RAMBlockDevice {
	return &RAMBlockDevice{data: make([]byte, nblocks*BlockSize)}
}

func (b *RAMBlockDevice) Init(minor int, base uint32, blockSize int) error {
	if blockSize != BlockSize {
		return kerrno.New("block.Init", kerrno.InvalidArgument)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.minor = minor
	b.blockSize = blockSize
	return nil
}

func (b *RAMBlockDevice) SetEvent(fn func(arg any), arg any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fn = fn
	b.arg = arg
}

func (b *RAMBlockDevice) bounds(lba int64, count int) (int64, int64, error) {
	if count <= 0 || count%BlockSize != 0 {
		return 0, 0, kerrno.New("block", kerrno.InvalidArgument)
	}
	start := lba * BlockSize
	end := start + int64(count)
	if start < 0 || end > int64(len(b.data)) {
		return 0, 0, kerrno.New("block", kerrno.NoSuchAddress)
	}
	return start, end, nil
}

// Read fills buf[:count] with count bytes starting at logical block lba.
func (b *RAMBlockDevice) Read(lba int64, buf []byte, count int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	start, end, err := b.bounds(lba, count)
	if err != nil {
		return err
	}
	if len(buf) < count {
		return kerrno.New("block.Read", kerrno.InvalidArgument)
	}

	copy(buf[:count], b.data[start:end])
	b.event()
	return nil
}

// Write stores count bytes from buf starting at logical block lba.
func (b *RAMBlockDevice) Write(lba int64, buf []byte, count int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	start, end, err := b.bounds(lba, count)
	if err != nil {
		return err
	}
	if len(buf) < count {
		return kerrno.New("block.Write", kerrno.InvalidArgument)
	}

	copy(b.data[start:end], buf[:count])
	b.event()
	return nil
}

func (b *RAMBlockDevice) event() {
	if b.fn != nil {
		b.fn(b.arg)
	}
}

// Capacity reports the device's size in logical blocks.
func (b *RAMBlockDevice) Capacity() int {
	return len(b.data) / BlockSize
}
