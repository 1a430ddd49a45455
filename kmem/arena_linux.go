//go:build linux

// https://github.com/ko6/ko6
//
// Copyright (c) The ko6 Authors.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package kmem

import "golang.org/x/sys/unix"

// newArenaBytes backs the arena with an anonymous, private mmap region:
// the host stand-in for "the contiguous region between the top of the
// user heap and the top of memory" that real ko6 carves out of linker-
// defined physical RAM bounds.
func newArenaBytes(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
}
