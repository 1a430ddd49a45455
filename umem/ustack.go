// User-stack allocator
// https://github.com/ko6/ko6
//
// Copyright (c) The ko6 Authors.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package umem implements ko6's user-stack allocator and brk-style heap
// manager, carving the user stack region into fixed-size 16-page slots
// and moving a heap high-water mark on Sbrk.
package umem

import (
	"container/list"

	"github.com/ko6/ko6/kerrno"
	"github.com/ko6/ko6/kmem"
)

// StackPages is the fixed size, in kernel pages, of every user stack
// slot.
const StackPages = 16

// StackBytes is StackPages expressed in bytes.
const StackBytes = StackPages * kmem.PageSize

// stackMagic is the sentinel word written in the first four bytes (the
// low end) of every stack slot, the end a downward-growing stack
// overflows into. Validation is periodic, not per-access.
const stackMagic uint32 = 0xDEADC0DE

// StackAllocator carves a fixed region into StackPages-sized slots.
type StackAllocator struct {
	mem   []byte
	slots int
	free  *list.List // free slot indices
}

// NewStackAllocator creates an allocator managing n stack slots backed
// by a freshly allocated region; on real hardware the region's bounds
// come from the linker.
func NewStackAllocator(n int) (*StackAllocator, error) {
	if n <= 0 {
		return nil, kerrno.New("umem.NewStackAllocator", kerrno.InvalidArgument)
	}

	a := &StackAllocator{
		mem:   make([]byte, n*StackBytes),
		slots: n,
		free:  list.New(),
	}
	for i := 0; i < n; i++ {
		a.free.PushBack(i)
		a.writeSentinel(i)
	}
	return a, nil
}

// Region exposes the whole stack region's backing bytes, so the syscall
// layer can admit pointers into user stacks when bounds-checking.
func (a *StackAllocator) Region() []byte {
	return a.mem
}

func (a *StackAllocator) slot(idx int) []byte {
	return a.mem[idx*StackBytes : (idx+1)*StackBytes]
}

func (a *StackAllocator) writeSentinel(idx int) {
	s := a.slot(idx)
	magic := stackMagic
	s[0] = byte(magic)
	s[1] = byte(magic >> 8)
	s[2] = byte(magic >> 16)
	s[3] = byte(magic >> 24)
}

func (a *StackAllocator) sentinelIntact(idx int) bool {
	s := a.slot(idx)
	got := uint32(s[0]) | uint32(s[1])<<8 | uint32(s[2])<<16 | uint32(s[3])<<24
	return got == stackMagic
}

// MallocUstack returns a fresh stack slot's bytes and the index used to
// free it later. The index stands in for the address just above the
// stack, since this host build has no flat address space to compute
// from.
func (a *StackAllocator) MallocUstack() (stack []byte, idx int, err error) {
	e := a.free.Front()
	if e == nil {
		return nil, 0, kerrno.New("umem.MallocUstack", kerrno.OutOfMemory)
	}
	a.free.Remove(e)
	idx = e.Value.(int)
	return a.slot(idx), idx, nil
}

// FreeUstack returns a stack slot to the free list and reasserts its
// overflow sentinel.
func (a *StackAllocator) FreeUstack(idx int) error {
	if idx < 0 || idx >= a.slots {
		return kerrno.New("umem.FreeUstack", kerrno.InvalidArgument)
	}
	a.writeSentinel(idx)
	a.free.PushBack(idx)
	return nil
}

// CheckSentinel validates idx's overflow sentinel. Callers run it
// periodically, not per-access.
func (a *StackAllocator) CheckSentinel(idx int) bool {
	if idx < 0 || idx >= a.slots {
		return false
	}
	return a.sentinelIntact(idx)
}

// CheckAll validates every currently allocated slot's sentinel, returning
// the indices whose sentinel was corrupted (a stack overflowed into its
// guard word).
func (a *StackAllocator) CheckAll() []int {
	inFree := make(map[int]bool)
	for e := a.free.Front(); e != nil; e = e.Next() {
		inFree[e.Value.(int)] = true
	}

	var bad []int
	for i := 0; i < a.slots; i++ {
		if inFree[i] {
			continue
		}
		if !a.sentinelIntact(i) {
			bad = append(bad, i)
		}
	}
	return bad
}
