package authcore

import "fmt"

// Phase is the manager's startup state. Transitions are one-way:
// initialising → checking-setup → ready, with a direct shortcut from
// initialising to ready when a stored session token survives a restart.
// Operations that need a fully started core are guarded by ErrNotReady
// until the final phase.
type Phase int32

const (
	PhaseInitialising Phase = iota
	PhaseCheckingSetup
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseInitialising:
		return "initialising"
	case PhaseCheckingSetup:
		return "checking-setup"
	case PhaseReady:
		return "ready"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// next returns the legal successor phase, or an error for any other
// transition. Besides the ordered progression, initialising may jump
// straight to ready: that is the token-restore path, which has no setup
// check to run. Backwards and self transitions are never legal.
func (p Phase) next(to Phase) (Phase, error) {
	switch {
	case to == p+1 && to <= PhaseReady:
		return to, nil
	case p == PhaseInitialising && to == PhaseReady:
		return to, nil
	}
	return p, fmt.Errorf("illegal phase transition %s -> %s", p, to)
}
