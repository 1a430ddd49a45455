// Console read/write glue
// https://github.com/ko6/ko6
//
// Copyright (c) The ko6 Authors.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package tty provides the fd-to-device glue the READ/WRITE syscalls
// dispatch through: a fixed-size open-file table whose first two
// descriptors are bound to the primary character device as standard
// in/out.
package tty

import (
	"github.com/ko6/ko6/device"
	"github.com/ko6/ko6/kerrno"
)

// Stdin and Stdout are the descriptors every process starts with.
const (
	Stdin  = 0
	Stdout = 1
)

// NumFiles is the open-file table's fixed capacity.
const NumFiles = 64

type openFile struct {
	dev      device.CharOps
	readable bool
	writable bool
}

// Console is the process-wide open-file table. Read routes to a
// descriptor's receive path and Write to its transmit path; the two
// standard descriptors share the same CharOps in ko6's single-process
// model.
type Console struct {
	// Dev is the primary character device, bound as both stdin and
	// stdout.
	Dev device.CharOps

	files [NumFiles]openFile
}

// NewConsole wraps dev as both stdin and stdout.
func NewConsole(dev device.CharOps) *Console {
	c := &Console{Dev: dev}
	c.files[Stdin] = openFile{dev: dev, readable: true}
	c.files[Stdout] = openFile{dev: dev, writable: true}
	return c
}

// Bind attaches dev to fd with the given access mode, for platforms
// carrying character devices beyond the two standard descriptors.
func (c *Console) Bind(fd int, dev device.CharOps, readable, writable bool) error {
	if fd < 0 || fd >= NumFiles {
		return kerrno.New("tty.Bind", kerrno.BadDescriptor)
	}
	c.files[fd] = openFile{dev: dev, readable: readable, writable: writable}
	return nil
}

// Read services the READ syscall for fd, failing BadDescriptor unless
// fd is bound readable.
func (c *Console) Read(fd int, buf []byte, count int) (int, error) {
	if fd < 0 || fd >= NumFiles || !c.files[fd].readable {
		return 0, kerrno.New("tty.Read", kerrno.BadDescriptor)
	}
	return c.files[fd].dev.Read(buf, count)
}

// Write services the WRITE syscall for fd, failing BadDescriptor unless
// fd is bound writable.
func (c *Console) Write(fd int, buf []byte, count int) (int, error) {
	if fd < 0 || fd >= NumFiles || !c.files[fd].writable {
		return 0, kerrno.New("tty.Write", kerrno.BadDescriptor)
	}
	return c.files[fd].dev.Write(buf, count)
}
