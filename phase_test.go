package authcore

import "testing"

func TestPhaseTransitions(t *testing.T) {
	p := PhaseInitialising

	p, err := p.next(PhaseCheckingSetup)
	if err != nil || p != PhaseCheckingSetup {
		t.Fatalf("expected checking-setup, got %s (%v)", p, err)
	}

	p, err = p.next(PhaseReady)
	if err != nil || p != PhaseReady {
		t.Fatalf("expected ready, got %s (%v)", p, err)
	}

	// No transition leaves ready.
	if _, err := p.next(PhaseInitialising); err == nil {
		t.Fatal("ready must not transition backwards")
	}
	if _, err := p.next(PhaseReady + 1); err == nil {
		t.Fatal("ready has no successor")
	}
}

func TestPhaseRestoreShortcut(t *testing.T) {
	// Token restore jumps initialising straight to ready.
	p, err := PhaseInitialising.next(PhaseReady)
	if err != nil || p != PhaseReady {
		t.Fatalf("expected ready, got %s (%v)", p, err)
	}
}

func TestPhaseIllegalTransitions(t *testing.T) {
	if _, err := PhaseCheckingSetup.next(PhaseCheckingSetup); err == nil {
		t.Fatal("self-transition is illegal")
	}
	if _, err := PhaseCheckingSetup.next(PhaseInitialising); err == nil {
		t.Fatal("checking-setup must not transition backwards")
	}
	if _, err := PhaseInitialising.next(PhaseInitialising); err == nil {
		t.Fatal("self-transition is illegal")
	}
}

func TestPhaseString(t *testing.T) {
	for phase, want := range map[Phase]string{
		PhaseInitialising:  "initialising",
		PhaseCheckingSetup: "checking-setup",
		PhaseReady:         "ready",
	} {
		if got := phase.String(); got != want {
			t.Fatalf("Phase(%d).String() = %q, want %q", phase, got, want)
		}
	}
}
