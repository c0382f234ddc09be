package cursor

import (
	"time"

	"github.com/vietddude/firstbuy/internal/core/domain"
)

// State is the pass state tracked by the syncer.
type State = domain.PassState

const (
	StateIdle           = domain.PassStateIdle
	StateComputingRange = domain.PassStateComputingRange
	StateFetching       = domain.PassStateFetching
	StateScanning       = domain.PassStateScanning
	StatePersisting     = domain.PassStatePersisting
)

// next maps each state to the state a successful step leads to.
// Any non-idle state may also drop back to idle.
var next = map[State]State{
	StateIdle:           StateComputingRange,
	StateComputingRange: StateFetching,
	StateFetching:       StateScanning,
	StateScanning:       StatePersisting,
	StatePersisting:     StateIdle,
}

// CanTransition reports whether the pass state machine allows from -> to.
func CanTransition(from, to State) bool {
	step, known := next[from]
	if !known {
		return false
	}
	return to == step || (to == StateIdle && from != StateIdle)
}

// Transition is one recorded state change.
type Transition struct {
	From      State     `json:"from"`
	To        State     `json:"to"`
	Reason    string    `json:"reason,omitempty"`
	Abort     bool      `json:"abort,omitempty"` // the pass failed and was abandoned
	Timestamp time.Time `json:"timestamp"`
}

// NewTransition stamps a transition with the current time.
func NewTransition(from, to State, reason string) Transition {
	return Transition{From: from, To: to, Reason: reason, Timestamp: time.Now()}
}

// IsValid reports whether the transition is allowed.
func (t Transition) IsValid() bool {
	return CanTransition(t.From, t.To)
}

// NewAbort records a failed pass dropping back to idle from any state.
func NewAbort(from State, reason string) Transition {
	t := NewTransition(from, StateIdle, reason)
	t.Abort = true
	return t
}
