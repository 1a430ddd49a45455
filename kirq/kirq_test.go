package kirq

import "testing"

func TestRouteInvokesStoredHandlerAndArg(t *testing.T) {
	tab := New()

	var gotIRQ int
	var gotArg any
	tab.Register(7, func(irq int, arg any) {
		gotIRQ = irq
		gotArg = arg
	}, "payload")

	tab.Route(7)

	if gotIRQ != 7 || gotArg != "payload" {
		t.Fatalf("handler called with (%d, %v), want (7, payload)", gotIRQ, gotArg)
	}
}

func TestRouteUnassignedIsNoop(t *testing.T) {
	tab := New()
	tab.Route(3) // must not panic
}

func TestUnregisterDropsIRQ(t *testing.T) {
	tab := New()

	called := false
	tab.Register(1, func(int, any) { called = true }, nil)
	tab.Unregister(1)
	tab.Route(1)

	if called {
		t.Fatal("handler should not run after Unregister")
	}
}

func TestRegisterOutOfRangeFails(t *testing.T) {
	tab := New()
	if err := tab.Register(NumIRQs, func(int, any) {}, nil); err == nil {
		t.Fatal("expected error for out-of-range irq")
	}
}

func TestRegisteredReflectsBinding(t *testing.T) {
	tab := New()
	if tab.Registered(5) {
		t.Fatal("should start unregistered")
	}
	tab.Register(5, func(int, any) {}, nil)
	if !tab.Registered(5) {
		t.Fatal("should be registered after Register")
	}
}
