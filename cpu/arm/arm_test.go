package arm

import "testing"

func TestInterruptMaskRestore(t *testing.T) {
	c := New()

	if !c.InterruptsEnabled() {
		t.Fatal("new CPU should start with interrupts enabled")
	}

	was := c.DisableInterrupts()
	if !was {
		t.Fatal("DisableInterrupts should report prior state as enabled")
	}
	if c.InterruptsEnabled() {
		t.Fatal("interrupts should be masked")
	}

	c.RestoreInterrupts(was)
	if !c.InterruptsEnabled() {
		t.Fatal("RestoreInterrupts should re-enable")
	}
}

func TestCyclesMonotonic(t *testing.T) {
	c := New()

	a := c.Cycles()
	b := c.Cycles()

	if b <= a {
		t.Fatalf("Cycles not monotonic: %d then %d", a, b)
	}
}

func TestContextInitSetsEntry(t *testing.T) {
	c := New()
	ctx := c.NewContext()

	c.ContextInit(ctx, 0x1000, 0x9000)

	if ctx.PC() != 0x1000 {
		t.Errorf("PC = %#x, want 0x1000", ctx.PC())
	}
	if ctx.SP() != 0x9000 {
		t.Errorf("SP = %#x, want 0x9000", ctx.SP())
	}
}
