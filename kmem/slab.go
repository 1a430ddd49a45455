// Slab allocator
// https://github.com/ko6/ko6
//
// Copyright (c) The ko6 Authors.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package kmem

import (
	"unsafe"

	"github.com/ko6/ko6/kerrno"
)

// classSizes is the fixed geometric ladder of slab size classes, up to
// PageSize. Larger allocations are refused.
var classSizes = []int{8, 16, 32, 64, 128, 256, 512, 1024, 2048, 4096}

// slab is a page carved into equal-size objects for one size class.
type slab struct {
	size     int
	pageIdx  int
	objects  int   // total objects on the page
	freeOffs []int // free object byte-offsets within the page, stack order
}

// Kmem is the kernel's page/slab allocator, combining an Arena with the
// open-slab bookkeeping kmalloc/kfree need.
type Kmem struct {
	arena   *Arena
	classes []int
	// open holds, for each class size, the slabs that currently have at
	// least one free object.
	open map[int][]*slab
	// bySlab maps a page index back to its slab, for kfree's
	// page-from-address lookup.
	bySlab map[int]*slab
}

// New creates a kernel allocator backed by an arena of n pages.
func New(n int) (*Kmem, error) {
	arena, err := NewArena(n)
	if err != nil {
		return nil, err
	}

	return &Kmem{
		arena:   arena,
		classes: classSizes,
		open:    make(map[int][]*slab),
		bySlab:  make(map[int]*slab),
	}, nil
}

// Arena exposes the underlying page arena, for the block I/O cache which
// needs to allocate and flag BLOCK pages directly.
func (k *Kmem) Arena() *Arena {
	return k.arena
}

func (k *Kmem) classFor(size int) (int, bool) {
	for _, c := range k.classes {
		if size <= c {
			return c, true
		}
	}
	return 0, false
}

// openSlabWithRoom returns a slab in class with a free object,
// allocating a fresh page and carving it if none has room.
func (k *Kmem) openSlabWithRoom(class int) (*slab, error) {
	slabs := k.open[class]
	if len(slabs) > 0 {
		return slabs[len(slabs)-1], nil
	}

	idx, err := k.arena.AllocPage()
	if err != nil {
		return nil, err
	}
	k.arena.SetSlab(idx)

	objects := PageSize / class
	offs := make([]int, objects)
	for i := range offs {
		offs[i] = i * class
	}

	s := &slab{
		size:     class,
		pageIdx:  idx,
		objects:  objects,
		freeOffs: offs,
	}

	k.arena.desc(idx).slab = s
	k.bySlab[idx] = s
	k.open[class] = append(k.open[class], s)

	return s, nil
}

// Kmalloc allocates a zero-filled object of at least size bytes. size
// must be at most PageSize.
func (k *Kmem) Kmalloc(size int) ([]byte, error) {
	if size <= 0 {
		size = 1
	}

	class, ok := k.classFor(size)
	if !ok {
		return nil, kerrno.New("kmalloc", kerrno.OutOfMemory)
	}

	s, err := k.openSlabWithRoom(class)
	if err != nil {
		return nil, err
	}

	off := s.freeOffs[len(s.freeOffs)-1]
	s.freeOffs = s.freeOffs[:len(s.freeOffs)-1]

	if len(s.freeOffs) == 0 {
		k.removeOpenSlab(class, s)
	}

	page := k.arena.Page(s.pageIdx)
	obj := page[off : off+class][:size:class]

	for i := range obj {
		obj[i] = 0
	}

	return obj, nil
}

func (k *Kmem) removeOpenSlab(class int, target *slab) {
	slabs := k.open[class]
	for i, s := range slabs {
		if s == target {
			k.open[class] = append(slabs[:i], slabs[i+1:]...)
			return
		}
	}
}

// Kcalloc allocates n*size zero-filled bytes, failing with Overflow if
// the product overflows.
func (k *Kmem) Kcalloc(n, size int) ([]byte, error) {
	if n < 0 || size < 0 {
		return nil, kerrno.New("kcalloc", kerrno.InvalidArgument)
	}
	if n != 0 && size > (1<<31)/n {
		return nil, kerrno.New("kcalloc", kerrno.Overflow)
	}
	return k.Kmalloc(n * size)
}

// Kstrdup duplicates a string into kernel memory.
func (k *Kmem) Kstrdup(s string) ([]byte, error) {
	buf, err := k.Kmalloc(len(s) + 1)
	if err != nil {
		return nil, err
	}
	copy(buf, s)
	buf[len(s)] = 0
	return buf, nil
}

// Kfree returns obj, previously returned by Kmalloc/Kcalloc/Kstrdup, to
// its slab's free list. When a slab page becomes entirely free it is
// returned to FREE.
func (k *Kmem) Kfree(obj []byte) error {
	if len(obj) == 0 {
		return nil
	}

	idx, ok := k.arena.pageIndexOf(obj)
	if !ok {
		return kerrno.New("kfree", kerrno.BadAddress)
	}

	s := k.arena.desc(idx).slab
	if s == nil {
		return kerrno.New("kfree", kerrno.InvalidArgument)
	}

	pageBase := uintptr(unsafe.Pointer(&k.arena.Page(idx)[0]))
	objBase := uintptr(unsafe.Pointer(&obj[0]))
	off := int(objBase - pageBase)

	wasFull := len(s.freeOffs) == 0
	s.freeOffs = append(s.freeOffs, off)

	if wasFull {
		k.open[s.size] = append(k.open[s.size], s)
	}

	if len(s.freeOffs) == s.objects {
		k.removeOpenSlab(s.size, s)
		delete(k.bySlab, idx)
		k.arena.FreePage(idx)
	}

	return nil
}

// ClassStat reports a size class's free/used object counts, for kernel
// diagnostics and allocator introspection.
type ClassStat struct {
	Size int
	Free int
	Used int
}

// Stats reports per-size-class usage across every live slab, full ones
// included (fully-freed slabs are not counted since their pages have
// already returned to FREE).
func (k *Kmem) Stats() []ClassStat {
	byClass := make(map[int]*ClassStat)
	for _, s := range k.bySlab {
		st := byClass[s.size]
		if st == nil {
			st = &ClassStat{Size: s.size}
			byClass[s.size] = st
		}
		st.Free += len(s.freeOffs)
		st.Used += s.objects - len(s.freeOffs)
	}

	var out []ClassStat
	for _, class := range k.classes {
		if st, ok := byClass[class]; ok {
			out = append(out, *st)
		}
	}
	return out
}
