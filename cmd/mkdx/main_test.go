package main

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/ko6/ko6/device"
)

func TestPackWritesDirectoryAndFiles(t *testing.T) {
	dir := t.TempDir()

	f1 := filepath.Join(dir, "a.txt")
	f2 := filepath.Join(dir, "b.txt")
	if err := os.WriteFile(f1, []byte("hello"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(f2, make([]byte, device.BlockSize+1), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	image := filepath.Join(dir, "disk.img")
	if err := pack(image, []string{f1, f2}); err != nil {
		t.Fatalf("pack: %v", err)
	}

	raw, err := os.ReadFile(image)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	name0 := string(raw[0:24])
	for i, c := range name0 {
		if c == 0 {
			name0 = name0[:i]
			break
		}
	}
	if name0 != "a.txt" {
		t.Fatalf("entry 0 name = %q", name0)
	}
	lba0 := binary.LittleEndian.Uint32(raw[24:28])
	size0 := binary.LittleEndian.Uint32(raw[28:32])
	if lba0 != 1 || size0 != 5 {
		t.Fatalf("entry 0 lba=%d size=%d", lba0, size0)
	}

	lba1 := binary.LittleEndian.Uint32(raw[32+24 : 32+28])
	size1 := binary.LittleEndian.Uint32(raw[32+28 : 32+32])
	if lba1 != 2 || size1 != device.BlockSize+1 {
		t.Fatalf("entry 1 lba=%d size=%d", lba1, size1)
	}

	wantLen := device.BlockSize + device.BlockSize + 2*device.BlockSize
	if len(raw) != wantLen {
		t.Fatalf("image length = %d, want %d", len(raw), wantLen)
	}

	got := raw[device.BlockSize : device.BlockSize+5]
	if string(got) != "hello" {
		t.Fatalf("file content = %q", got)
	}
}

func TestPackTooManyFilesFails(t *testing.T) {
	files := make([]string, dirEntries+1)
	if err := pack(filepath.Join(t.TempDir(), "x.img"), files); err == nil {
		t.Fatalf("expected error for directory overflow")
	}
}
