// ELF section extractor
// https://github.com/ko6/ko6
//
// Copyright (c) The ko6 Authors.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Command elfloader extracts PROGBITS/NOBITS sections from an ELF
// binary into standalone .bin files, using the standard library's
// debug/elf.
package main

import (
	"debug/elf"
	"fmt"
	"log"
	"os"
)

func init() {
	log.SetFlags(0)
}

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("elfloader: usage: elfloader <elf> [section...]")
	}
	if err := extract(os.Args[1], os.Args[2:]); err != nil {
		log.Fatalf("elfloader: %v", err)
	}
}

// extract writes one <section>.bin file per requested section (or every
// PROGBITS/NOBITS section, if names is empty) found in path.
func extract(path string, names []string) error {
	f, err := elf.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	found := make(map[string]bool)
	for _, sec := range f.Sections {
		if sec.Type != elf.SHT_PROGBITS && sec.Type != elf.SHT_NOBITS {
			continue
		}
		if len(wanted) > 0 && !wanted[sec.Name] {
			continue
		}
		if err := writeSection(sec); err != nil {
			return fmt.Errorf("section %s: %w", sec.Name, err)
		}
		found[sec.Name] = true
	}

	for n := range wanted {
		if !found[n] {
			return fmt.Errorf("section %s not found", n)
		}
	}
	return nil
}

// writeSection dumps sec's raw bytes to "<name>.bin". A NOBITS (.bss)
// section has no file content, so it is written as its declared size in
// zero bytes.
func writeSection(sec *elf.Section) error {
	var data []byte
	if sec.Type == elf.SHT_NOBITS {
		data = make([]byte, sec.Size)
	} else {
		raw, err := sec.Data()
		if err != nil {
			return err
		}
		data = raw
	}
	return os.WriteFile(sec.Name+".bin", data, 0644)
}
