// Interrupt-controller driver-op table
// https://github.com/ko6/ko6
//
// Copyright (c) The ko6 Authors.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package device

import (
	"sync"

	"github.com/ko6/ko6/kerrno"
)

// ICUOps is the interrupt-controller driver-op table. Priority and
// Acknowledge may be no-ops on hardware models with no such notion;
// this implementation gives them real behavior.
type ICUOps interface {
	Init(base uint32) error
	GetHighest() int
	SetPriority(irq, pri int) error
	Acknowledge(irq int) error
	Mask(irq int) error
	Unmask(irq int) error
}

// GenericICU is ko6's interrupt-controller driver: a priority/pending
// bitmap with a single per-core pending set, matching ko6's
// uniprocessor scope.
type GenericICU struct {
	mu       sync.Mutex
	n        int
	pending  []bool
	masked   []bool
	priority []int
}

// Init allocates state for the controller's IRQ lines. All lines reset
// masked with priority 0; bring-up unmasks the ones it routes.
func (g *GenericICU) Init(base uint32) error {
	g.n = 1024
	g.pending = make([]bool, g.n)
	g.masked = make([]bool, g.n)
	g.priority = make([]int, g.n)
	for i := range g.masked {
		g.masked[i] = true
	}
	return nil
}

// Raise marks irq pending, standing in for the hardware line being
// asserted by a peripheral.
func (g *GenericICU) Raise(irq int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if irq >= 0 && irq < g.n {
		g.pending[irq] = true
	}
}

// GetHighest returns the highest-priority pending, unmasked IRQ number,
// or -1 if none is pending. Ties break toward the lower IRQ number.
func (g *GenericICU) GetHighest() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	best := -1
	bestPri := -1
	for irq := 0; irq < g.n; irq++ {
		if !g.pending[irq] || g.masked[irq] {
			continue
		}
		if g.priority[irq] > bestPri {
			best = irq
			bestPri = g.priority[irq]
		}
	}
	return best
}

func (g *GenericICU) SetPriority(irq, pri int) error {
	if irq < 0 || irq >= g.n {
		return kerrno.New("icu.SetPriority", kerrno.InvalidArgument)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.priority[irq] = pri
	return nil
}

// Acknowledge clears irq's pending flag, the host-hosted equivalent of
// writing the controller's EOI register.
func (g *GenericICU) Acknowledge(irq int) error {
	if irq < 0 || irq >= g.n {
		return kerrno.New("icu.Acknowledge", kerrno.InvalidArgument)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending[irq] = false
	return nil
}

func (g *GenericICU) Mask(irq int) error {
	if irq < 0 || irq >= g.n {
		return kerrno.New("icu.Mask", kerrno.InvalidArgument)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.masked[irq] = true
	return nil
}

func (g *GenericICU) Unmask(irq int) error {
	if irq < 0 || irq >= g.n {
		return kerrno.New("icu.Unmask", kerrno.InvalidArgument)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.masked[irq] = false
	return nil
}
