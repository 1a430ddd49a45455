// User address-range bounds checking
// https://github.com/ko6/ko6
//
// Copyright (c) The ko6 Authors.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package ksyscall

import (
	"unsafe"

	"github.com/ko6/ko6/kerrno"
)

// region is one contiguous byte range the user process may legitimately
// name a pointer into (the heap, a user stack slot, ...).
type region struct {
	base uintptr
	mem  []byte
}

// UserSpace tracks every region of host memory that backs ko6's
// simulated user address space, so syscalls that touch user memory can
// bounds-check a pointer before dereferencing it.
type UserSpace struct {
	regions []region
}

// NewUserSpace creates an empty address-range tracker.
func NewUserSpace() *UserSpace {
	return &UserSpace{}
}

// AddRegion registers mem (a heap arena, a stack slot, ...) as part of
// the user address range. Pointers are later validated against mem's
// real backing address, the same pointer-arithmetic technique kmem.Arena
// uses to map an object address back to its page.
func (u *UserSpace) AddRegion(mem []byte) {
	if len(mem) == 0 {
		return
	}
	u.regions = append(u.regions, region{
		base: uintptr(unsafe.Pointer(&mem[0])),
		mem:  mem,
	})
}

// Translate resolves a user-supplied address and length into a host
// byte slice, failing with NotPermitted if the range is not fully
// contained in a single registered region.
func (u *UserSpace) Translate(addr uintptr, n int) ([]byte, error) {
	if n < 0 {
		return nil, kerrno.New("ksyscall.Translate", kerrno.InvalidArgument)
	}
	for _, r := range u.regions {
		if addr >= r.base && addr+uintptr(n) <= r.base+uintptr(len(r.mem)) {
			off := addr - r.base
			return r.mem[off : off+uintptr(n)], nil
		}
	}
	return nil, kerrno.New("ksyscall.Translate", kerrno.NotPermitted)
}

// Addr reports the host address of buf's first byte, for callers that
// need to hand a "user pointer" back across the ABI (e.g. ERRNO).
func Addr(buf []byte) uintptr {
	if len(buf) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&buf[0]))
}
