package engine

import (
	"fmt"
	"time"

	"sentinel/domain/core/valueobjects"
)

// Phase is the closed set of confirmation phases
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhasePending
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePending:
		return "pending"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// MarshalText implements encoding.TextMarshaler
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *Phase) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*p = PhaseIdle
	case "pending":
		*p = PhasePending
	default:
		return fmt.Errorf("unknown phase %q", text)
	}
	return nil
}

// ConfirmationState is either Idle or Pending(Remaining). Cycle and Deadline
// are only meaningful while pending.
type ConfirmationState struct {
	Phase     Phase                `json:"phase"`
	Remaining int                  `json:"remaining"`
	Cycle     valueobjects.CycleID `json:"cycle_id,omitempty"`
	Deadline  time.Time            `json:"deadline,omitempty"`
}

// Idle returns the resting state
func Idle() ConfirmationState {
	return ConfirmationState{Phase: PhaseIdle}
}

// Pending returns a countdown state
func Pending(cycle valueobjects.CycleID, remaining int, deadline time.Time) ConfirmationState {
	return ConfirmationState{Phase: PhasePending, Remaining: remaining, Cycle: cycle, Deadline: deadline}
}

// IsPending reports whether a countdown is in flight
func (s ConfirmationState) IsPending() bool {
	return s.Phase == PhasePending
}

func (s ConfirmationState) String() string {
	if s.IsPending() {
		return fmt.Sprintf("pending(%d)", s.Remaining)
	}
	return s.Phase.String()
}
