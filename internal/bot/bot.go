package bot

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mohamedkhairy/trading-bot/internal/config"
	"github.com/mohamedkhairy/trading-bot/internal/expr"
	"github.com/mohamedkhairy/trading-bot/internal/features"
	"github.com/mohamedkhairy/trading-bot/internal/models"
	"github.com/mohamedkhairy/trading-bot/internal/regime"
	"github.com/mohamedkhairy/trading-bot/internal/rulepack"
	"github.com/mohamedkhairy/trading-bot/internal/stops"
	"github.com/mohamedkhairy/trading-bot/internal/telemetry"
	"github.com/mohamedkhairy/trading-bot/pkg/logger"
)

// pendingSignal tracks an entry candidate waiting for confirmation
type pendingSignal struct {
	sig         *Signal
	barsWaiting int
}

// Bot is the per-symbol decision core. It consumes one bar at a time and
// emits one TradeDecision per bar. Processing is strictly synchronous:
// feature computation, regime classification, rule evaluation and the state
// transition all complete before the next bar is accepted. A single mutex
// serializes ProcessBar against the control and reporting surface, so the
// API server may call into the bot while the bar loop runs.
type Bot struct {
	mu sync.Mutex

	cfg      config.BotConfig
	machine  *Machine
	features *features.Engine
	regimes  *regime.Classifier
	rules    *rulepack.Engine
	trailer  *stops.Trailer
	stopper  StopStrategy

	position *models.Position
	pending  *pendingSignal

	lastRegime regime.State

	// overrides are extra expression fields merged into every evaluation
	// context, for operator experiments and tests
	overrides map[string]map[string]expr.Value
}

// New creates a bot wired to the given rule engine. The engine may have no
// pack installed; the bot then trades on its built-in scoring and trailing
// logic alone.
func New(cfg *config.Config, rules *rulepack.Engine) (*Bot, error) {
	if rules == nil {
		return nil, fmt.Errorf("rule engine cannot be nil")
	}

	feats, err := features.NewEngine(cfg.Bot.Symbol, cfg.Bot.Timeframe, cfg.Bot.LookbackBars)
	if err != nil {
		return nil, fmt.Errorf("failed to create feature engine: %w", err)
	}

	trailer := stops.NewTrailer(cfg.Stops)
	return &Bot{
		cfg:      cfg.Bot,
		machine:  NewMachine(),
		features: feats,
		regimes:  regime.NewClassifier(),
		rules:    rules,
		trailer:  trailer,
		stopper:  NewRuleStops(rules, NewBuiltinStops(trailer)),
	}, nil
}

// State returns the current lifecycle state
func (b *Bot) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.machine.Current()
}

// Position returns a copy of the open position, or nil when flat
func (b *Bot) Position() *models.Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.position == nil {
		return nil
	}
	cp := *b.position
	return &cp
}

// Rules returns the rule engine for the reporting surface
func (b *Bot) Rules() *rulepack.Engine {
	return b.rules
}

// Regime returns the most recent regime classification
func (b *Bot) Regime() regime.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastRegime
}

// BarsProcessed returns the number of bars fed through the bot
func (b *Bot) BarsProcessed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.features.BarsProcessed()
}

// SetOverrides installs extra expression fields merged into every
// evaluation context
func (b *Bot) SetOverrides(overrides map[string]map[string]expr.Value) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overrides = overrides
}

// Pause moves the bot to PAUSED. It is rejected while a position is open;
// close the position first.
func (b *Bot) Pause() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.machine.CanFire(TriggerManualPause) {
		return &StateTransitionError{From: b.machine.Current(), Trigger: TriggerManualPause}
	}
	b.fire(TriggerManualPause)
	return nil
}

// Resume moves the bot from PAUSED back to FLAT
func (b *Bot) Resume() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.machine.CanFire(TriggerManualResume) {
		return &StateTransitionError{From: b.machine.Current(), Trigger: TriggerManualResume}
	}
	b.fire(TriggerManualResume)
	return nil
}

// Reset clears the ERROR state back to FLAT
func (b *Bot) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.machine.CanFire(TriggerErrorReset) {
		return &StateTransitionError{From: b.machine.Current(), Trigger: TriggerErrorReset}
	}
	b.fire(TriggerErrorReset)
	return nil
}

// ProcessBar runs one full decision cycle for the bar and returns the
// resulting decision. Exactly one decision is produced per accepted bar.
func (b *Bot) ProcessBar(bar *models.Bar) (*models.TradeDecision, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	start := time.Now()

	vec, err := b.features.Update(bar)
	if err != nil {
		b.raiseError(fmt.Errorf("feature update failed: %w", err))
		return nil, err
	}
	rs := b.regimes.Classify(vec)
	b.lastRegime = rs
	telemetry.BarsProcessed.WithLabelValues(bar.Symbol, bar.Timeframe).Inc()

	var decision *models.TradeDecision
	switch b.machine.Current() {
	case StatePaused:
		b.fire(TriggerBarClosed)
		decision = b.hold(bar, rs, 0, "paused")
	case StateError:
		decision = b.hold(bar, rs, 0, "error_state")
	case StateFlat:
		b.fire(TriggerBarClosed)
		decision = b.processFlat(bar, vec, rs)
	case StateSignal:
		b.fire(TriggerBarClosed)
		decision = b.processSignal(bar, vec, rs)
	case StateManage:
		b.fire(TriggerBarClosed)
		decision = b.processManage(bar, vec, rs)
	default:
		// ENTERED and EXITED are transient within a cycle; seeing them here
		// means a transition was left half-applied
		b.raiseError(fmt.Errorf("bar received in transient state %s", b.machine.Current()))
		decision = b.hold(bar, rs, 0, "error_state")
	}

	elapsed := time.Since(start)
	telemetry.BarCycleDuration.Observe(elapsed.Seconds())
	if b.cfg.BarTimeout > 0 && elapsed > b.cfg.BarTimeout {
		telemetry.WatchdogTrips.Inc()
		b.raiseError(fmt.Errorf("bar cycle took %s, watchdog bound is %s", elapsed, b.cfg.BarTimeout))
	}

	if decision != nil {
		telemetry.Decisions.WithLabelValues(bar.Symbol, string(decision.Action)).Inc()
	}
	return decision, nil
}

// processFlat looks for a new entry candidate
func (b *Bot) processFlat(bar *models.Bar, vec *features.Vector, rs regime.State) *models.TradeDecision {
	if !b.features.Warm() {
		return b.hold(bar, rs, 0, "warmup")
	}

	sig := ScoreEntry(vec, rs, b.cfg.EntryScoreMin)
	if sig == nil {
		return b.hold(bar, rs, 0)
	}

	if blocked := b.entryGate(vec, rs); blocked != nil {
		b.fire(TriggerRulesBlocked)
		return b.hold(bar, rs, sig.Score, blocked...)
	}

	b.fire(TriggerSignalDetected)
	b.pending = &pendingSignal{sig: sig}

	if b.cfg.ConfirmBars <= 0 {
		return b.confirmEntry(bar, vec, rs)
	}
	return b.hold(bar, rs, sig.Score, "signal_pending")
}

// processSignal waits for the candidate to persist through the confirmation
// window
func (b *Bot) processSignal(bar *models.Bar, vec *features.Vector, rs regime.State) *models.TradeDecision {
	sig := ScoreEntry(vec, rs, b.cfg.EntryScoreMin)
	if sig == nil || sig.Side != b.pending.sig.Side {
		b.fire(TriggerSignalExpired)
		b.pending = nil
		return b.hold(bar, rs, 0, "signal_expired")
	}

	b.pending.sig = sig
	b.pending.barsWaiting++
	if b.pending.barsWaiting < b.cfg.ConfirmBars {
		return b.hold(bar, rs, sig.Score, "signal_confirming")
	}

	if blocked := b.entryGate(vec, rs); blocked != nil {
		b.fire(TriggerRulesBlocked)
		b.pending = nil
		return b.hold(bar, rs, sig.Score, blocked...)
	}
	return b.confirmEntry(bar, vec, rs)
}

// entryGate runs the risk and entry packs for a flat-side evaluation. A nil
// result means the entry may proceed; otherwise the reason codes are
// returned. Evaluation failures are fail-closed: new risk is never opened on
// an unevaluable rule.
func (b *Bot) entryGate(vec *features.Vector, rs regime.State) []string {
	ectx := BuildContext(vec, rs, b.cfg, nil, b.overrides)
	summary := b.rules.Execute(ectx, nil, []rulepack.PackType{rulepack.PackRisk, rulepack.PackEntry})
	telemetry.ObserveRuleEval(summary.Elapsed, len(summary.Failures))

	if summary.HadFailures() {
		return append([]string{"rule_failure"}, summary.TriggeredIDs()...)
	}
	if !summary.Allowed() {
		return summary.TriggeredIDs()
	}
	return nil
}

// confirmEntry fills the pending signal into a position. Runs through the
// transient ENTERED state within the same cycle.
func (b *Bot) confirmEntry(bar *models.Bar, vec *features.Vector, rs regime.State) *models.TradeDecision {
	sig := b.pending.sig
	b.fire(TriggerSignalConfirmed)

	atr, _ := vec.Field("atr_14", "value")
	entry := bar.Close
	stop := b.trailer.InitialStop(sig.Side, entry, atr)
	if stop <= 0 || stop == entry {
		b.fire(TriggerEntryRejected)
		b.pending = nil
		return b.hold(bar, rs, sig.Score, "entry_rejected")
	}

	riskPerUnit := math.Abs(entry - stop)
	qty := b.cfg.Capital * b.cfg.RiskPerTrade / riskPerUnit

	b.position = &models.Position{
		Symbol:       bar.Symbol,
		Side:         sig.Side,
		EntryPrice:   entry,
		StopLoss:     stop,
		TakeProfit:   b.trailer.TakeProfit(sig.Side, entry, stop),
		Quantity:     qty,
		CurrentPrice: entry,
		EntryTime:    bar.Timestamp,
	}
	b.pending = nil
	b.fire(TriggerEntryFilled)

	logger.Info("Position opened",
		logger.String("symbol", bar.Symbol),
		logger.String("side", string(sig.Side)),
		logger.Float64("entry", entry),
		logger.Float64("stop", stop),
		logger.Float64("quantity", qty),
	)

	d := b.newDecision(bar, models.ActionEnter, rs)
	d.Side = sig.Side
	d.Price = entry
	d.StopLoss = stop
	d.Score = sig.Score
	d.ReasonCodes = sig.Reasons
	return d
}

// processManage runs the exit ladder for an open position: hard stop and
// take-profit against candle extremes first (rules cannot override these),
// then exit rules, then the time and regime exits, then the stop update.
func (b *Bot) processManage(bar *models.Bar, vec *features.Vector, rs regime.State) *models.TradeDecision {
	pos := b.position
	pos.BarsHeld++
	pos.CurrentPrice = bar.Close

	if hit, price := stopHit(pos, bar); hit {
		return b.closePosition(bar, rs, TriggerStopHit, price, "stop_loss_hit")
	}
	if hit, price := takeProfitHit(pos, bar); hit {
		return b.closePosition(bar, rs, TriggerTakeProfitHit, price, "take_profit_hit")
	}

	ectx := BuildContext(vec, rs, b.cfg, pos, b.overrides)
	summary := b.rules.Execute(ectx, pos, []rulepack.PackType{rulepack.PackExit})
	telemetry.ObserveRuleEval(summary.Elapsed, len(summary.Failures))
	// Failures in exit context are fail-safe: no trigger, protection stays
	if summary.Result == rulepack.ResultExit {
		return b.closePosition(bar, rs, TriggerExitRuleTriggered, bar.Close, summary.TriggeredIDs()...)
	}

	if b.cfg.MaxBarsHeld > 0 && pos.BarsHeld >= b.cfg.MaxBarsHeld {
		return b.closePosition(bar, rs, TriggerMaxBarsReached, bar.Close, "max_bars_reached")
	}

	if regimeAgainst(pos.Side, rs.Regime) {
		return b.closePosition(bar, rs, TriggerRegimeFlip, bar.Close, "regime_flip")
	}

	if candidate, ok := b.stopper.Propose(ectx, vec, pos); ok {
		enforced := stops.Enforce(pos.Side, pos.StopLoss, candidate)
		if enforced != pos.StopLoss {
			pos.StopLoss = enforced
			d := b.newDecision(bar, models.ActionUpdateStop, rs)
			d.Side = pos.Side
			d.Price = bar.Close
			d.StopLoss = enforced
			d.ReasonCodes = []string{"stop_tightened"}
			return d
		}
	}

	return b.hold(bar, rs, 0, "holding")
}

// closePosition runs EXITED and back to FLAT within the same cycle
func (b *Bot) closePosition(bar *models.Bar, rs regime.State, t Trigger, price float64, reasons ...string) *models.TradeDecision {
	pos := b.position
	b.fire(t)
	b.fire(TriggerPositionClosed)
	b.position = nil

	logger.Info("Position closed",
		logger.String("symbol", bar.Symbol),
		logger.String("side", string(pos.Side)),
		logger.String("trigger", string(t)),
		logger.Float64("exit_price", price),
		logger.Int("bars_held", pos.BarsHeld),
	)

	d := b.newDecision(bar, models.ActionExit, rs)
	d.Side = pos.Side
	d.Price = price
	d.ReasonCodes = reasons
	return d
}

// raiseError forces the machine into ERROR and drops any open position and
// pending signal so the position-exists invariant holds in ERROR
func (b *Bot) raiseError(err error) {
	logger.Error("Bot cycle error", logger.ErrorField(err))
	if b.machine.Current() != StateError {
		b.fire(TriggerErrorRaised)
	}
	b.position = nil
	b.pending = nil
}

// fire applies a trigger and records the transition metric. Invalid
// triggers land the machine in ERROR by Machine contract.
func (b *Bot) fire(t Trigger) State {
	from := b.machine.Current()
	next, err := b.machine.Fire(t)
	if err != nil {
		b.position = nil
		b.pending = nil
	}
	telemetry.StateTransitions.WithLabelValues(string(from), string(next), string(t)).Inc()
	return next
}

func (b *Bot) hold(bar *models.Bar, rs regime.State, score float64, reasons ...string) *models.TradeDecision {
	d := b.newDecision(bar, models.ActionHold, rs)
	d.Score = score
	d.ReasonCodes = reasons
	return d
}

func (b *Bot) newDecision(bar *models.Bar, action models.DecisionAction, rs regime.State) *models.TradeDecision {
	return &models.TradeDecision{
		ID:        uuid.NewString(),
		Symbol:    bar.Symbol,
		Action:    action,
		Regime:    string(rs.Regime),
		Timestamp: bar.Timestamp,
	}
}

// stopHit tests the hard stop against the candle extremes
func stopHit(pos *models.Position, bar *models.Bar) (bool, float64) {
	if pos.Side == models.SideShort {
		if bar.High >= pos.StopLoss {
			return true, pos.StopLoss
		}
		return false, 0
	}
	if bar.Low <= pos.StopLoss {
		return true, pos.StopLoss
	}
	return false, 0
}

// takeProfitHit tests the target against the candle extremes
func takeProfitHit(pos *models.Position, bar *models.Bar) (bool, float64) {
	if pos.TakeProfit <= 0 {
		return false, 0
	}
	if pos.Side == models.SideShort {
		if bar.Low <= pos.TakeProfit {
			return true, pos.TakeProfit
		}
		return false, 0
	}
	if bar.High >= pos.TakeProfit {
		return true, pos.TakeProfit
	}
	return false, 0
}

// regimeAgainst reports whether the classified trend now opposes the
// position's direction
func regimeAgainst(side models.Side, r regime.Regime) bool {
	if side == models.SideLong {
		return r == regime.TrendDown
	}
	return r == regime.TrendUp
}
