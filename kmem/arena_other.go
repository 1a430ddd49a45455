//go:build !linux

// https://github.com/ko6/ko6
//
// Copyright (c) The ko6 Authors.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package kmem

// newArenaBytes backs the arena with a plain Go allocation on platforms
// where an anonymous mmap region isn't available.
func newArenaBytes(size int) ([]byte, error) {
	return make([]byte, size), nil
}
