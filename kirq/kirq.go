// Interrupt routing table
// https://github.com/ko6/ko6
//
// Copyright (c) The ko6 Authors.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package kirq implements ko6's interrupt routing table: a fixed-size
// vector mapping a hardware IRQ number to a handler and its opaque
// argument. Handlers run with interrupts disabled and must not block;
// they may enqueue work and wake threads.
package kirq

import (
	"sync"

	"github.com/ko6/ko6/kerrno"
)

// NumIRQs is the routing table's fixed capacity.
const NumIRQs = 1024

// Handler is invoked with the IRQ number and the argument stored at
// registration time. It must not block.
type Handler func(irq int, arg any)

type entry struct {
	handler Handler
	arg     any
}

// Table is ko6's interrupt routing table. The zero value is an empty
// table with every entry unassigned; New returns one.
type Table struct {
	mu      sync.Mutex
	entries [NumIRQs]entry
}

// New creates an empty routing table, every entry unassigned.
func New() *Table {
	return &Table{}
}

// Register binds handler to irq with the given opaque argument,
// overwriting any prior binding. Platform bring-up and later
// registrations both call this.
func (t *Table) Register(irq int, handler Handler, arg any) error {
	if irq < 0 || irq >= NumIRQs {
		return kerrno.New("kirq.Register", kerrno.InvalidArgument)
	}
	if handler == nil {
		return kerrno.New("kirq.Register", kerrno.InvalidArgument)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[irq] = entry{handler: handler, arg: arg}
	return nil
}

// Unregister clears irq's binding, making it "unassigned, drop the IRQ".
func (t *Table) Unregister(irq int) error {
	if irq < 0 || irq >= NumIRQs {
		return kerrno.New("kirq.Unregister", kerrno.InvalidArgument)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[irq] = entry{}
	return nil
}

// Route invokes the handler bound to irq with its stored argument. An
// irq with no handler is silently ignored. Route itself does not disable
// interrupts; the platform trap-entry path that calls Route is
// responsible for that.
func (t *Table) Route(irq int) {
	if irq < 0 || irq >= NumIRQs {
		return
	}

	t.mu.Lock()
	e := t.entries[irq]
	t.mu.Unlock()

	if e.handler == nil {
		return
	}
	e.handler(irq, e.arg)
}

// Registered reports whether irq currently has a non-nil handler bound,
// used by platform bring-up to decide whether to unmask an IRQ at the
// interrupt controller.
func (t *Table) Registered(irq int) bool {
	if irq < 0 || irq >= NumIRQs {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entries[irq].handler != nil
}
