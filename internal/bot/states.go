// Package bot is the decision core: a table-driven state machine fed one bar
// at a time, wiring the feature engine, regime classifier, rule executor and
// stop management into per-bar trade decisions.
package bot

// State is the bot's lifecycle state. There is exactly one State field per
// bot and it changes only through Machine.Fire.
type State string

const (
	StateFlat    State = "FLAT"
	StateSignal  State = "SIGNAL"
	StateEntered State = "ENTERED"
	StateManage  State = "MANAGE"
	StateExited  State = "EXITED"
	StatePaused  State = "PAUSED"
	StateError   State = "ERROR"
)

// Trigger is a named event driving a state transition. Every transition in
// the bot goes through one of these; there is no implicit fallthrough.
type Trigger string

const (
	TriggerBarClosed         Trigger = "bar_closed"
	TriggerSignalDetected    Trigger = "signal_detected"
	TriggerSignalConfirmed   Trigger = "signal_confirmed"
	TriggerSignalExpired     Trigger = "signal_expired"
	TriggerEntryFilled       Trigger = "entry_filled"
	TriggerEntryRejected     Trigger = "entry_rejected"
	TriggerRulesBlocked      Trigger = "rules_blocked"
	TriggerStopHit           Trigger = "stop_hit"
	TriggerTakeProfitHit     Trigger = "take_profit_hit"
	TriggerExitRuleTriggered Trigger = "exit_rule_triggered"
	TriggerTrailingStopHit   Trigger = "trailing_stop_hit"
	TriggerMaxBarsReached    Trigger = "max_bars_reached"
	TriggerRegimeFlip        Trigger = "regime_flip"
	TriggerPositionClosed    Trigger = "position_closed"
	TriggerManualPause       Trigger = "manual_pause"
	TriggerManualResume      Trigger = "manual_resume"
	TriggerErrorRaised       Trigger = "error_raised"
	TriggerErrorReset        Trigger = "error_reset"
)
