// Disk image packager
// https://github.com/ko6/ko6
//
// Copyright (c) The ko6 Authors.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Command mkdx packs a list of files into a ko6 disk image: a 128-entry
// directory at block 0 followed by the files themselves, laid out
// sequentially from block 1.
package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/ko6/ko6/device"
)

// dirEntries is the fixed directory capacity.
const dirEntries = 128

// nameSize is the fixed NUL-terminated name field width.
const nameSize = 24

// dirEntrySize is one directory slot's on-disk width: a 24-byte name
// plus two little-endian uint32s (lba, size).
const dirEntrySize = nameSize + 4 + 4

func init() {
	log.SetFlags(0)
}

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("mkdx: usage: mkdx <image> <file>...")
	}
	if err := pack(os.Args[1], os.Args[2:]); err != nil {
		log.Fatalf("mkdx: %v", err)
	}
}

// pack writes image as a directory block followed by files, each padded
// up to the next block boundary.
func pack(image string, files []string) error {
	if len(files) > dirEntries {
		return fmt.Errorf("too many files: %d exceeds directory capacity %d", len(files), dirEntries)
	}

	out, err := os.Create(image)
	if err != nil {
		return fmt.Errorf("create %s: %w", image, err)
	}
	defer out.Close()

	dir := make([]byte, device.BlockSize)
	lba := uint32(1)

	if _, err := out.Write(dir); err != nil { // reserve block 0 for the directory
		return fmt.Errorf("write directory placeholder: %w", err)
	}

	for i, path := range files {
		size, err := appendFile(out, path)
		if err != nil {
			return fmt.Errorf("pack %s: %w", path, err)
		}
		writeDirEntry(dir, i, filepath.Base(path), lba, size)
		lba += blocksFor(size)
	}

	if _, err := out.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek directory: %w", err)
	}
	if _, err := out.Write(dir); err != nil {
		return fmt.Errorf("write directory: %w", err)
	}
	return nil
}

// blocksFor reports how many BlockSize-sized blocks size bytes occupy.
func blocksFor(size uint32) uint32 {
	return (size + device.BlockSize - 1) / device.BlockSize
}

// appendFile copies path's contents to out, padded to a block boundary,
// and returns its unpadded size.
func appendFile(out *os.File, path string) (uint32, error) {
	in, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	n, err := io.Copy(out, in)
	if err != nil {
		return 0, err
	}

	if pad := int(blocksFor(uint32(n))*device.BlockSize - uint32(n)); pad > 0 {
		if _, err := out.Write(make([]byte, pad)); err != nil {
			return 0, err
		}
	}
	return uint32(n), nil
}

// writeDirEntry encodes the i-th directory slot in place.
func writeDirEntry(dir []byte, i int, name string, lba, size uint32) {
	off := i * dirEntrySize
	n := copy(dir[off:off+nameSize], name)
	for ; n < nameSize; n++ {
		dir[off+n] = 0
	}
	binary.LittleEndian.PutUint32(dir[off+nameSize:], lba)
	binary.LittleEndian.PutUint32(dir[off+nameSize+4:], size)
}
