package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachine_StartsFlat(t *testing.T) {
	assert.Equal(t, StateFlat, NewMachine().Current())
}

func TestMachine_TradeLifecycle(t *testing.T) {
	m := NewMachine()

	steps := []struct {
		trigger Trigger
		want    State
	}{
		{TriggerBarClosed, StateFlat},
		{TriggerSignalDetected, StateSignal},
		{TriggerBarClosed, StateSignal},
		{TriggerSignalConfirmed, StateEntered},
		{TriggerEntryFilled, StateManage},
		{TriggerBarClosed, StateManage},
		{TriggerStopHit, StateExited},
		{TriggerPositionClosed, StateFlat},
	}
	for _, step := range steps {
		got, err := m.Fire(step.trigger)
		require.NoError(t, err, "trigger %s", step.trigger)
		assert.Equal(t, step.want, got, "trigger %s", step.trigger)
	}
}

func TestMachine_SignalExpiry(t *testing.T) {
	m := NewMachine()
	m.Fire(TriggerSignalDetected)

	got, err := m.Fire(TriggerSignalExpired)
	require.NoError(t, err)
	assert.Equal(t, StateFlat, got)
}

func TestMachine_EntryRejected(t *testing.T) {
	m := NewMachine()
	m.Fire(TriggerSignalDetected)
	m.Fire(TriggerSignalConfirmed)

	got, err := m.Fire(TriggerEntryRejected)
	require.NoError(t, err)
	assert.Equal(t, StateFlat, got)
}

func TestMachine_AllManageExits(t *testing.T) {
	exits := []Trigger{
		TriggerStopHit,
		TriggerTakeProfitHit,
		TriggerExitRuleTriggered,
		TriggerTrailingStopHit,
		TriggerMaxBarsReached,
		TriggerRegimeFlip,
	}
	for _, trigger := range exits {
		t.Run(string(trigger), func(t *testing.T) {
			m := &Machine{state: StateManage}
			got, err := m.Fire(trigger)
			require.NoError(t, err)
			assert.Equal(t, StateExited, got)
		})
	}
}

func TestMachine_PauseResume(t *testing.T) {
	m := NewMachine()

	got, err := m.Fire(TriggerManualPause)
	require.NoError(t, err)
	assert.Equal(t, StatePaused, got)

	got, err = m.Fire(TriggerBarClosed)
	require.NoError(t, err)
	assert.Equal(t, StatePaused, got)

	got, err = m.Fire(TriggerManualResume)
	require.NoError(t, err)
	assert.Equal(t, StateFlat, got)
}

func TestMachine_InvalidTriggerForcesError(t *testing.T) {
	m := NewMachine()

	// stop_hit makes no sense while flat
	got, err := m.Fire(TriggerStopHit)
	require.Error(t, err)
	assert.Equal(t, StateError, got)

	var terr *StateTransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, StateFlat, terr.From)
	assert.Equal(t, TriggerStopHit, terr.Trigger)
}

func TestMachine_ErrorRequiresExplicitReset(t *testing.T) {
	m := NewMachine()
	m.Fire(TriggerStopHit) // force ERROR

	// Nothing but error_reset leaves ERROR
	for _, trigger := range []Trigger{TriggerBarClosed, TriggerSignalDetected, TriggerManualResume} {
		got, err := m.Fire(trigger)
		require.Error(t, err)
		assert.Equal(t, StateError, got)
	}

	got, err := m.Fire(TriggerErrorReset)
	require.NoError(t, err)
	assert.Equal(t, StateFlat, got)
}

func TestMachine_PauseInvalidWithOpenPosition(t *testing.T) {
	m := &Machine{state: StateManage}
	assert.False(t, m.CanFire(TriggerManualPause))

	m = &Machine{state: StateEntered}
	assert.False(t, m.CanFire(TriggerManualPause))
}

func TestMachine_CanFire(t *testing.T) {
	m := NewMachine()
	assert.True(t, m.CanFire(TriggerSignalDetected))
	assert.False(t, m.CanFire(TriggerPositionClosed))

	// CanFire never mutates
	assert.Equal(t, StateFlat, m.Current())
}
