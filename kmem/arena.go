// Kernel page arena
// https://github.com/ko6/ko6
//
// Copyright (c) The ko6 Authors.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package kmem implements ko6's kernel page/slab allocator: a single
// page-sized arena managed as an array of page descriptors, backing both
// the slab allocator (kmalloc/kcalloc/kfree) and the block I/O cache's
// BLOCK-kind pages.
//
// Descriptors live out of band, in a slice parallel to the page payloads,
// so kmalloc'd objects stay cache-line alignable and metadata never sits
// inside a buffer.
package kmem

import (
	"container/list"
	"unsafe"

	"github.com/ko6/ko6/kerrno"
)

// PageSize is the fixed kernel page size; slab classes and block-cache
// pages are both sized against it.
const PageSize = 4096

// PageKind classifies a page descriptor's current use.
type PageKind int

const (
	KindFree PageKind = iota
	KindSlab
	KindBlock
)

// Page flags.
const (
	FlagValid  = 1 << 0
	FlagLocked = 1 << 1
	FlagDirty  = 1 << 2
)

// pageDesc is the out-of-band metadata for one arena page. Payload bytes
// live in Arena.mem; descriptors live in a parallel slice.
type pageDesc struct {
	kind     PageKind
	flags    uint32
	refcount int32

	bdev uint32
	lba  uint32

	slab *slab // non-nil when kind == KindSlab
}

// Arena is the contiguous page-sized region backing the kernel allocator:
// on real hardware, the RAM between the top of the user heap and the top
// of memory, with bounds taken from the linker.
type Arena struct {
	mem   []byte
	descs []pageDesc
	free  *list.List // free page indices, front = next to allocate
}

// NewArena allocates an arena of n pages. newArenaBytes supplies the
// backing bytes, mmap-based on Linux and a plain allocation elsewhere.
func NewArena(n int) (*Arena, error) {
	if n <= 0 {
		return nil, kerrno.New("kmem.NewArena", kerrno.InvalidArgument)
	}

	mem, err := newArenaBytes(n * PageSize)
	if err != nil {
		return nil, kerrno.New("kmem.NewArena", kerrno.OutOfMemory)
	}

	a := &Arena{
		mem:   mem,
		descs: make([]pageDesc, n),
		free:  list.New(),
	}

	for i := 0; i < n; i++ {
		a.free.PushBack(i)
	}

	return a, nil
}

// NumPages returns the arena's page capacity.
func (a *Arena) NumPages() int {
	return len(a.descs)
}

// Page returns the backing bytes for page index idx.
func (a *Arena) Page(idx int) []byte {
	return a.mem[idx*PageSize : (idx+1)*PageSize]
}

// pageIndexOf locates the page containing a byte previously returned by
// Page or a slab carve, by pointer arithmetic against the arena's single
// contiguous backing array.
func (a *Arena) pageIndexOf(p []byte) (int, bool) {
	if len(p) == 0 {
		return 0, false
	}

	base := uintptr(unsafe.Pointer(&a.mem[0]))
	addr := uintptr(unsafe.Pointer(&p[0]))

	if addr < base || addr >= base+uintptr(len(a.mem)) {
		return 0, false
	}

	return int(addr-base) / PageSize, true
}

// AllocPage removes a page from the free list and returns its index. The
// caller is responsible for setting the descriptor's kind.
func (a *Arena) AllocPage() (int, error) {
	e := a.free.Front()
	if e == nil {
		return 0, kerrno.New("kmem.AllocPage", kerrno.OutOfMemory)
	}

	a.free.Remove(e)
	idx := e.Value.(int)

	a.descs[idx] = pageDesc{kind: KindFree}

	return idx, nil
}

// FreePage returns a page to the free list, clearing its descriptor.
func (a *Arena) FreePage(idx int) {
	a.descs[idx] = pageDesc{kind: KindFree}
	a.free.PushBack(idx)
}

func (a *Arena) desc(idx int) *pageDesc {
	return &a.descs[idx]
}

// --- Page descriptor accessors ---

func (a *Arena) SetFree(idx int)  { a.desc(idx).kind = KindFree }
func (a *Arena) SetSlab(idx int)  { a.desc(idx).kind = KindSlab }
func (a *Arena) SetBlock(idx int) { a.desc(idx).kind = KindBlock }

func (a *Arena) IsFree(idx int) bool  { return a.desc(idx).kind == KindFree }
func (a *Arena) IsSlab(idx int) bool  { return a.desc(idx).kind == KindSlab }
func (a *Arena) IsBlock(idx int) bool { return a.desc(idx).kind == KindBlock }

func (a *Arena) SetValid(idx int) { a.desc(idx).flags |= FlagValid }
func (a *Arena) ClrValid(idx int) { a.desc(idx).flags &^= FlagValid }
func (a *Arena) IsValid(idx int) bool {
	return a.desc(idx).flags&FlagValid != 0
}

func (a *Arena) SetLock(idx int) { a.desc(idx).flags |= FlagLocked }
func (a *Arena) ClrLock(idx int) { a.desc(idx).flags &^= FlagLocked }
func (a *Arena) IsLock(idx int) bool {
	return a.desc(idx).flags&FlagLocked != 0
}

func (a *Arena) SetDirty(idx int) { a.desc(idx).flags |= FlagDirty }
func (a *Arena) ClrDirty(idx int) { a.desc(idx).flags &^= FlagDirty }
func (a *Arena) IsDirty(idx int) bool {
	return a.desc(idx).flags&FlagDirty != 0
}

func (a *Arena) IncRefcount(idx int) int {
	d := a.desc(idx)
	d.refcount++
	return int(d.refcount)
}

func (a *Arena) DecRefcount(idx int) int {
	d := a.desc(idx)
	if d.refcount > 0 {
		d.refcount--
	}
	return int(d.refcount)
}

func (a *Arena) GetRefcount(idx int) int {
	return int(a.desc(idx).refcount)
}

func (a *Arena) SetLBA(idx int, bdev, lba uint32) {
	d := a.desc(idx)
	d.bdev = bdev
	d.lba = lba
}

func (a *Arena) GetLBA(idx int) (bdev, lba uint32) {
	d := a.desc(idx)
	return d.bdev, d.lba
}
