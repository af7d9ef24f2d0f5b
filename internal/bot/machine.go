package bot

import (
	"fmt"

	"github.com/mohamedkhairy/trading-bot/pkg/logger"
)

// StateTransitionError reports a trigger fired in a state that has no
// transition for it. It is fatal for the current cycle: the machine moves to
// ERROR and stays there until an explicit error_reset.
type StateTransitionError struct {
	From    State
	Trigger Trigger
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("trigger %q is not valid in state %q", e.Trigger, e.From)
}

// transitions is the complete transition table. A (state, trigger) pair
// absent from the table is invalid.
//
// EXITED is terminal per trade: the only way out is position_closed back to
// FLAT, fired in the same cycle. manual_pause is only valid while no
// position exists, keeping the position-exists-iff-ENTERED-or-MANAGE
// invariant trivially true in PAUSED.
var transitions = map[State]map[Trigger]State{
	StateFlat: {
		TriggerBarClosed:      StateFlat,
		TriggerSignalDetected: StateSignal,
		TriggerRulesBlocked:   StateFlat,
		TriggerManualPause:    StatePaused,
		TriggerErrorRaised:    StateError,
	},
	StateSignal: {
		TriggerBarClosed:       StateSignal,
		TriggerSignalConfirmed: StateEntered,
		TriggerSignalExpired:   StateFlat,
		TriggerRulesBlocked:    StateFlat,
		TriggerManualPause:     StatePaused,
		TriggerErrorRaised:     StateError,
	},
	StateEntered: {
		TriggerEntryFilled:   StateManage,
		TriggerEntryRejected: StateFlat,
		TriggerErrorRaised:   StateError,
	},
	StateManage: {
		TriggerBarClosed:         StateManage,
		TriggerStopHit:           StateExited,
		TriggerTakeProfitHit:     StateExited,
		TriggerExitRuleTriggered: StateExited,
		TriggerTrailingStopHit:   StateExited,
		TriggerMaxBarsReached:    StateExited,
		TriggerRegimeFlip:        StateExited,
		TriggerErrorRaised:       StateError,
	},
	StateExited: {
		TriggerPositionClosed: StateFlat,
		TriggerErrorRaised:    StateError,
	},
	StatePaused: {
		TriggerBarClosed:    StatePaused,
		TriggerManualResume: StateFlat,
		TriggerErrorRaised:  StateError,
	},
	StateError: {
		TriggerErrorReset: StateFlat,
	},
}

// Machine holds the bot's single state field and applies the transition
// table. It is not safe for concurrent use; the per-bar pipeline is
// single-threaded by contract.
type Machine struct {
	state State
}

// NewMachine creates a machine in the FLAT state
func NewMachine() *Machine {
	return &Machine{state: StateFlat}
}

// Current returns the current state
func (m *Machine) Current() State {
	return m.state
}

// Fire applies the trigger. An invalid (state, trigger) pair forces the
// machine into ERROR and returns a StateTransitionError; recovery requires
// error_reset.
func (m *Machine) Fire(t Trigger) (State, error) {
	next, ok := transitions[m.state][t]
	if !ok {
		err := &StateTransitionError{From: m.state, Trigger: t}
		logger.Error("Invalid state transition",
			logger.String("state", string(m.state)),
			logger.String("trigger", string(t)),
		)
		m.state = StateError
		return m.state, err
	}

	if next != m.state {
		logger.Debug("State transition",
			logger.String("from", string(m.state)),
			logger.String("trigger", string(t)),
			logger.String("to", string(next)),
		)
	}
	m.state = next
	return next, nil
}

// CanFire reports whether the trigger is valid in the current state without
// applying it
func (m *Machine) CanFire(t Trigger) bool {
	_, ok := transitions[m.state][t]
	return ok
}
