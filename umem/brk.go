// User heap (brk) manager
// https://github.com/ko6/ko6
//
// Copyright (c) The ko6 Authors.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package umem

import "github.com/ko6/ko6/kerrno"

const cacheLineSize = 64

// alignUp rounds n up to the next cache-line boundary; brk increments
// are always cache-line aligned.
func alignUp(n int) int {
	return (n + cacheLineSize - 1) &^ (cacheLineSize - 1)
}

// Heap manages a process's brk-style user heap: a high-water mark that
// Sbrk moves by a cache-line-aligned increment, failing once it would
// collide with the stack region.
type Heap struct {
	base  uintptr
	limit uintptr // first address reserved for the stack region
	brk   uintptr
}

// NewHeap creates a heap starting at base, forbidden from growing past
// limit (the low end of the user-stack region).
func NewHeap(base, limit uintptr) *Heap {
	return &Heap{base: base, limit: limit, brk: base}
}

// Sbrk moves the heap high-water mark by increment (which may be
// negative to shrink the heap) and returns the previous break, matching
// the conventional sbrk(2) contract. A zero increment queries the
// current break without moving it.
func (h *Heap) Sbrk(increment int) (uintptr, error) {
	prev := h.brk

	aligned := alignUp(abs(increment))
	if increment < 0 {
		aligned = -aligned
	}

	next := uintptr(int64(h.brk) + int64(aligned))
	if next < h.base || next > h.limit {
		return 0, kerrno.New("umem.Sbrk", kerrno.NoSpace)
	}

	h.brk = next
	return prev, nil
}

// Break reports the current heap high-water mark.
func (h *Heap) Break() uintptr {
	return h.brk
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
