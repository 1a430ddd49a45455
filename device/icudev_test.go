package device

import "testing"

func TestGetHighestPicksHighestPriorityPending(t *testing.T) {
	var icu GenericICU
	icu.Init(0)

	icu.Unmask(3)
	icu.Unmask(7)
	icu.Raise(3)
	icu.Raise(7)
	icu.SetPriority(3, 1)
	icu.SetPriority(7, 5)

	if got := icu.GetHighest(); got != 7 {
		t.Fatalf("GetHighest = %d, want 7", got)
	}
}

func TestGetHighestReturnsMinusOneWhenNonePending(t *testing.T) {
	var icu GenericICU
	icu.Init(0)

	if got := icu.GetHighest(); got != -1 {
		t.Fatalf("GetHighest = %d, want -1", got)
	}
}

func TestMaskedIRQIsSkipped(t *testing.T) {
	var icu GenericICU
	icu.Init(0)

	icu.Raise(2) // lines reset masked

	if got := icu.GetHighest(); got != -1 {
		t.Fatalf("GetHighest = %d, want -1 (masked)", got)
	}

	icu.Unmask(2)
	if got := icu.GetHighest(); got != 2 {
		t.Fatalf("GetHighest = %d, want 2 after unmask", got)
	}
}

func TestAcknowledgeClearsPending(t *testing.T) {
	var icu GenericICU
	icu.Init(0)

	icu.Unmask(9)
	icu.Raise(9)
	icu.Acknowledge(9)

	if got := icu.GetHighest(); got != -1 {
		t.Fatalf("GetHighest = %d, want -1 after ack", got)
	}
}
