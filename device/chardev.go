// Character device driver-op table
// https://github.com/ko6/ko6
//
// Copyright (c) The ko6 Authors.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package device

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/ko6/ko6/internal/regs"
	"github.com/ko6/ko6/kerrno"
)

// FIFODepth is the character device's fixed software receive-FIFO
// depth.
const FIFODepth = 20

// charFIFO is a single-producer (ISR push), single-consumer (reader
// thread drain) ring buffer. Overflow drops the newest byte.
type charFIFO struct {
	mu   sync.Mutex
	buf  [FIFODepth]byte
	head int
	n    int
}

func (f *charFIFO) push(b byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.n == FIFODepth {
		return false
	}
	f.buf[(f.head+f.n)%FIFODepth] = b
	f.n++
	return true
}

func (f *charFIFO) pop() (byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.n == 0 {
		return 0, false
	}
	b := f.buf[f.head]
	f.head = (f.head + 1) % FIFODepth
	f.n--
	return b, true
}

func (f *charFIFO) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}

// CharOps is the character-device driver-op table.
type CharOps interface {
	Init(base uint32, baudrate int) error
	// Read drains bytes from the device's receive FIFO into buf. With
	// count > 0 it blocks until count bytes are available. With count
	// == 0 it is a non-blocking poll: it returns (0, nil) if the FIFO
	// is non-empty, or a TemporarilyUnavailable error otherwise.
	Read(buf []byte, count int) (int, error)
	// Write sends count bytes from buf synchronously, one byte at a
	// time.
	Write(buf []byte, count int) (int, error)
}

// socLibRegs is the soclib-tty register bank: write, status, read,
// unused, one 32-bit word each.
type socLibRegs struct {
	write  uint32
	status uint32
	read   uint32
	unused uint32
}

// Status register bit positions, polled through package regs rather
// than by comparing whole words.
const (
	statusRXReady = iota
	statusTXBusy
)

// SoclibTTY is ko6's character-device driver, driving the 4-word
// soclib-tty register bank. Received bytes land in a software FIFO
// behind the op-table; transmit is synchronous per byte.
type SoclibTTY struct {
	regs socLibRegs
	fifo charFIFO

	baudrate int
	limiter  *rate.Limiter

	// Yield, if set, is called by a blocking Read while the FIFO is
	// empty, so the reader spins with the scheduler instead of against
	// it. Tests may leave it nil and push bytes before calling Read; with
	// Yield nil, a blocking Read that finds the FIFO empty returns the
	// bytes read so far with a TemporarilyUnavailable error.
	Yield func()
}

// Init configures the driver for the given simulated base and baud
// rate. The write rate limiter models the device's per-byte transmit
// delay as a real, testable timing contract instead of a spin count.
func (t *SoclibTTY) Init(base uint32, baudrate int) error {
	if baudrate <= 0 {
		return kerrno.New("chardev.Init", kerrno.InvalidArgument)
	}
	t.baudrate = baudrate
	bytesPerSec := float64(baudrate) / 10.0 // 8N1 framing
	t.limiter = rate.NewLimiter(rate.Limit(bytesPerSec), 1)
	return nil
}

// LatchRX stores b in the receive register, standing in for the wire
// delivering a byte. The interrupt controller line is raised by the
// caller; ServiceRX later moves the byte into the software FIFO.
func (t *SoclibTTY) LatchRX(b byte) {
	t.regs.read = uint32(b)
}

// ServiceRX is the receive ISR body: it moves the latched byte from the
// read register into the software FIFO. It returns false when the FIFO
// was full and the byte was dropped.
func (t *SoclibTTY) ServiceRX() bool {
	return t.Push(byte(t.regs.read))
}

// Push delivers one received byte into the driver's FIFO. It returns
// false (and drops the byte) if the FIFO is full.
func (t *SoclibTTY) Push(b byte) bool {
	ok := t.fifo.push(b)
	if ok {
		regs.Set(&t.regs.status, statusRXReady)
	}
	return ok
}

// Read implements CharOps.Read.
func (t *SoclibTTY) Read(buf []byte, count int) (int, error) {
	if count == 0 {
		if regs.Is(&t.regs.status, statusRXReady) {
			return 0, nil
		}
		return 0, kerrno.New("chardev.Read", kerrno.TemporarilyUnavailable)
	}
	if count < 0 || count > len(buf) {
		return 0, kerrno.New("chardev.Read", kerrno.InvalidArgument)
	}

	got := 0
	for got < count {
		b, ok := t.fifo.pop()
		if !ok {
			regs.Clear(&t.regs.status, statusRXReady)
			if t.Yield == nil {
				return got, kerrno.New("chardev.Read", kerrno.TemporarilyUnavailable)
			}
			t.Yield()
			continue
		}
		if t.fifo.len() == 0 {
			regs.Clear(&t.regs.status, statusRXReady)
		}
		buf[got] = b
		got++
	}
	return got, nil
}

// Write implements CharOps.Write, sending bytes one at a time gated by
// the configured baud-rate limiter.
func (t *SoclibTTY) Write(buf []byte, count int) (int, error) {
	if count < 0 || count > len(buf) {
		return 0, kerrno.New("chardev.Write", kerrno.InvalidArgument)
	}
	if t.limiter == nil {
		return 0, kerrno.New("chardev.Write", kerrno.InvalidArgument)
	}

	regs.Set(&t.regs.status, statusTXBusy)
	defer regs.Clear(&t.regs.status, statusTXBusy)

	for i := 0; i < count; i++ {
		if err := t.limiter.Wait(context.Background()); err != nil {
			return i, kerrno.New("chardev.Write", kerrno.IOError)
		}
		t.regs.write = uint32(buf[i])
	}
	return count, nil
}

