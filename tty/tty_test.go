package tty

import (
	"errors"
	"testing"

	"github.com/ko6/ko6/device"
	"github.com/ko6/ko6/kerrno"
)

func newTestConsole(t *testing.T) (*Console, *device.SoclibTTY) {
	t.Helper()
	dev := &device.SoclibTTY{}
	if err := dev.Init(0, 115200); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return NewConsole(dev), dev
}

func TestReadRejectsNonStdin(t *testing.T) {
	c, _ := newTestConsole(t)
	_, err := c.Read(1, make([]byte, 1), 1)
	if !errors.Is(err, kerrno.BadDescriptor) {
		t.Fatalf("expected BadDescriptor, got %v", err)
	}
}

func TestWriteRejectsNonStdout(t *testing.T) {
	c, _ := newTestConsole(t)
	_, err := c.Write(0, []byte("x"), 1)
	if !errors.Is(err, kerrno.BadDescriptor) {
		t.Fatalf("expected BadDescriptor, got %v", err)
	}
}

func TestReadDrainsPushedByte(t *testing.T) {
	c, dev := newTestConsole(t)
	dev.Push('z')

	buf := make([]byte, 1)
	n, err := c.Read(Stdin, buf, 1)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 1 || buf[0] != 'z' {
		t.Fatalf("got n=%d buf=%v", n, buf)
	}
}

func TestBindAttachesAuxDescriptor(t *testing.T) {
	c, _ := newTestConsole(t)

	aux := &device.SoclibTTY{}
	if err := aux.Init(0, 9600); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := c.Bind(2, aux, true, true); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	aux.Push('w')
	buf := make([]byte, 1)
	n, err := c.Read(2, buf, 1)
	if err != nil || n != 1 || buf[0] != 'w' {
		t.Fatalf("Read(2) = %q (%d), %v", buf[:n], n, err)
	}
}

func TestBindOutOfRangeFails(t *testing.T) {
	c, dev := newTestConsole(t)
	if err := c.Bind(NumFiles, dev, true, true); err == nil {
		t.Fatal("expected BadDescriptor for fd beyond the file table")
	}
}

func TestWriteSendsBytes(t *testing.T) {
	c, _ := newTestConsole(t)
	n, err := c.Write(Stdout, []byte("hi"), 2)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 2 {
		t.Fatalf("got n=%d", n)
	}
}
