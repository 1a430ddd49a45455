// Device registry
// https://github.com/ko6/ko6
//
// Copyright (c) The ko6 Authors.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package device implements ko6's device registry and the driver-op
// tables for the character, block, interrupt-controller, timer and DMA
// device kinds.
//
// The kernel only ever talks to a device through the fixed capability
// table (Init/Read/Write/...) held in its Record, so platform bring-up
// can allocate and drive any device kind without importing the concrete
// driver package: one Ops interface per Kind, a kind tag plus an opaque
// driver-data slot per Record, no inheritance.
package device

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/ko6/ko6/kerrno"
)

// Kind identifies a device's major number.
type Kind int

const (
	CharDev Kind = iota
	InterruptController
	DMADev
	TimerDev
	BlockDev
)

func (k Kind) String() string {
	switch k {
	case CharDev:
		return "char"
	case InterruptController:
		return "icu"
	case DMADev:
		return "dma"
	case TimerDev:
		return "timer"
	case BlockDev:
		return "block"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Record is one entry in the device registry. DriverData and Ops are
// driver-kind-specific; callers type-assert Ops to the concrete Ops
// table for Kind.
type Record struct {
	Kind  Kind
	Minor int

	Base       uint32 // simulated MMIO base, opaque outside the driver
	DriverData any
	Ops        any

	elem *list.Element
}

// Registry is ko6's device list, doubly-linked in allocation order with
// a side index per kind for O(1) lookup and minor-number allocation.
// Records are never reordered.
type Registry struct {
	mu    sync.Mutex
	all   *list.List
	byKey map[Kind]map[int]*list.Element
	next  map[Kind]int
}

// NewRegistry creates an empty device registry.
func NewRegistry() *Registry {
	return &Registry{
		all:   list.New(),
		byKey: make(map[Kind]map[int]*list.Element),
		next:  make(map[Kind]int),
	}
}

// NextMinor reports the minor number the next Allocate would hand out
// for kind, without allocating it.
func (r *Registry) NextMinor(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.next[kind]
}

// Allocate registers a new device of kind, assigning it the next minor
// number for that kind. base is the device's simulated register base;
// the caller fills DriverData/Ops after Init succeeds.
func (r *Registry) Allocate(kind Kind, base uint32) *Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	minor := r.next[kind]
	r.next[kind] = minor + 1

	rec := &Record{Kind: kind, Minor: minor, Base: base}
	rec.elem = r.all.PushBack(rec)

	if r.byKey[kind] == nil {
		r.byKey[kind] = make(map[int]*list.Element)
	}
	r.byKey[kind][minor] = rec.elem

	return rec
}

// Get looks up a device by kind and minor number.
func (r *Registry) Get(kind Kind, minor int) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byKey[kind][minor]
	if !ok {
		return nil, kerrno.New("device.Get", kerrno.NoSuchDevice)
	}
	return e.Value.(*Record), nil
}

// Free unlinks a device from the registry. It does not
// touch the arena pages backing DriverData; callers that own kernel
// memory must kfree it themselves first.
func (r *Registry) Free(rec *Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.all.Remove(rec.elem)
	delete(r.byKey[rec.Kind], rec.Minor)
}

// Len reports how many devices of kind are currently registered.
func (r *Registry) Len(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byKey[kind])
}
