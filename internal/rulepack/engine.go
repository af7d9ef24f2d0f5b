package rulepack

import (
	"fmt"
	"sync"
	"time"

	"github.com/mohamedkhairy/trading-bot/internal/expr"
	"github.com/mohamedkhairy/trading-bot/internal/models"
	"github.com/mohamedkhairy/trading-bot/internal/stops"
	"github.com/mohamedkhairy/trading-bot/pkg/logger"
)

// Engine owns the active RulePack, its compile cache, and the per-rule
// profiling counters. It is an explicitly owned object passed into the bot,
// never a process-wide singleton. Install and Execute may race with a
// reporting path reading stats; all shared state is mutex-guarded.
type Engine struct {
	mu    sync.RWMutex
	pack  *RulePack
	cache *expr.Cache
	stats *statsTable
}

// NewEngine creates an engine with no rule pack installed. In that state
// every Execute call returns ALLOW unconditionally: rule evaluation is
// additive, never a hard dependency of bot operation.
func NewEngine() *Engine {
	return &Engine{
		cache: expr.NewCache(),
		stats: newStatsTable(),
	}
}

// Install validates and activates a rule pack. Every enabled expression is
// compiled up front; a ParseError aborts the install and leaves the
// previously active pack (or none) untouched. The swap is atomic: an
// in-flight Execute uses either the old pack or the new one in full.
func (e *Engine) Install(pack *RulePack) error {
	if pack == nil {
		return fmt.Errorf("rule pack cannot be nil")
	}

	// Compile into a fresh cache so a failure cannot poison the active one
	fresh := expr.NewCache()
	for _, p := range pack.Packs {
		for _, rule := range p.Rules {
			if !rule.Enabled {
				continue
			}
			if _, err := fresh.Get(rule.Expression); err != nil {
				return fmt.Errorf("rule %q: %w", rule.ID, err)
			}
		}
	}

	e.mu.Lock()
	e.pack = pack
	e.cache = fresh
	e.stats.reset()
	e.mu.Unlock()

	logger.Info("Rule pack installed",
		logger.String("rules_version", pack.RulesVersion),
		logger.Int("packs", len(pack.Packs)),
		logger.Int("rules", pack.RuleCount()),
	)
	return nil
}

// Uninstall removes the active pack, returning the engine to its
// allow-everything state
func (e *Engine) Uninstall() {
	e.mu.Lock()
	e.pack = nil
	e.cache = expr.NewCache()
	e.stats.reset()
	e.mu.Unlock()
}

// Active returns the currently installed pack, or nil
func (e *Engine) Active() *RulePack {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pack
}

// Execute evaluates the requested pack types against the context, strictly
// in the order exit -> update_stop -> risk -> entry (filtered to the
// request). pos carries the open position for monotonic stop reduction and
// may be nil when flat.
//
// Contracts enforced here:
//   - an exit-severity rule evaluating true short-circuits with EXIT;
//     nothing later is evaluated that call
//   - update_stop candidates are reduced through stops.Enforce; a candidate
//     that would loosen the stop counts as not fired
//   - block-severity expressions are pass conditions: the rule fires when
//     the condition does NOT hold, and fired rules union into BLOCK
//   - warn and exit expressions are trigger conditions: they fire when true
//   - per-rule evaluation failures are recorded and skipped, never fatal
func (e *Engine) Execute(ctx *expr.Context, pos *models.Position, packTypes []PackType) *Summary {
	start := time.Now()

	e.mu.RLock()
	pack := e.pack
	cache := e.cache
	e.mu.RUnlock()

	summary := &Summary{Result: ResultAllow}
	defer func() { summary.Elapsed = time.Since(start) }()

	if pack == nil || len(packTypes) == 0 {
		return summary
	}

	var blocked []RuleRef
	for _, ptype := range orderTypes(packTypes) {
		var stopTriggered []RuleRef
		var stopCandidates []float64

		for _, p := range pack.PacksOfType(ptype) {
			for _, rule := range p.Rules {
				if !rule.Enabled {
					continue
				}
				summary.Evaluated++
				e.stats.recordEval(rule.ID)

				compiled, err := cache.Get(rule.Expression)
				if err != nil {
					e.recordFailure(summary, rule, err)
					continue
				}

				if rule.Severity == SeverityUpdateStop {
					candidate, fired, err := evalStopCandidate(compiled, ctx)
					if err != nil {
						e.recordFailure(summary, rule, err)
						continue
					}
					if !fired {
						continue
					}
					e.stats.recordTrigger(rule.ID)
					stopTriggered = append(stopTriggered, RuleRef{ID: rule.ID, Message: rule.Message})
					stopCandidates = append(stopCandidates, candidate)
					continue
				}

				holds, err := compiled.EvalBool(ctx)
				if err != nil {
					e.recordFailure(summary, rule, err)
					continue
				}

				switch rule.Severity {
				case SeverityExit:
					if !holds {
						continue
					}
					// Exit has absolute priority: short-circuit the call
					e.stats.recordTrigger(rule.ID)
					summary.Result = ResultExit
					summary.Triggered = append(summary.Triggered, RuleRef{ID: rule.ID, Message: rule.Message})
					return summary
				case SeverityBlock:
					// A block expression states what must hold for the action
					// to proceed; the rule fires when it does not
					if holds {
						continue
					}
					e.stats.recordTrigger(rule.ID)
					blocked = append(blocked, RuleRef{ID: rule.ID, Message: rule.Message})
				case SeverityWarn:
					if !holds {
						continue
					}
					e.stats.recordTrigger(rule.ID)
					summary.Warnings = append(summary.Warnings, RuleRef{ID: rule.ID, Message: rule.Message})
				}
			}
		}

		if ptype == PackUpdateStop && len(stopCandidates) > 0 && pos != nil {
			newStop := pos.StopLoss
			for _, candidate := range stopCandidates {
				newStop = stops.Enforce(pos.Side, newStop, candidate)
			}
			if newStop != pos.StopLoss {
				summary.Result = ResultUpdateStop
				summary.Stop = newStop
				summary.HasStop = true
				summary.Triggered = append(summary.Triggered, stopTriggered...)
				return summary
			}
			// Every candidate would have loosened the stop: not fired
		}
	}

	if len(blocked) > 0 {
		summary.Result = ResultBlock
		summary.Triggered = append(summary.Triggered, blocked...)
	}
	return summary
}

func (e *Engine) recordFailure(summary *Summary, rule Rule, err error) {
	summary.Failures = append(summary.Failures, RuleFailure{ID: rule.ID, Error: err.Error()})
	logger.Warn("Rule evaluation failed",
		logger.String("rule_id", rule.ID),
		logger.String("expression", rule.Expression),
		logger.ErrorField(err),
	)
}

// evalStopCandidate evaluates an update_stop rule. The expression yields a
// numeric stop candidate; null means no trigger this bar. Any other result
// kind is an evaluation failure.
func evalStopCandidate(compiled *expr.Compiled, ctx *expr.Context) (float64, bool, error) {
	v, err := compiled.Eval(ctx)
	if err != nil {
		return 0, false, err
	}
	if v.IsNull() {
		return 0, false, nil
	}
	candidate, err := v.AsNumber()
	if err != nil {
		return 0, false, fmt.Errorf("update_stop expression must yield a number or null: %w", err)
	}
	return candidate, true, nil
}

// orderTypes filters the canonical execution order down to the requested
// known types, then appends explicitly requested unknown types in request
// order. Duplicate requests collapse to one evaluation.
func orderTypes(requested []PackType) []PackType {
	want := make(map[PackType]bool, len(requested))
	for _, t := range requested {
		want[t] = true
	}

	ordered := make([]PackType, 0, len(requested))
	for _, t := range ExecutionOrder {
		if want[t] {
			ordered = append(ordered, t)
			delete(want, t)
		}
	}
	for _, t := range requested {
		if want[t] && !t.Known() {
			ordered = append(ordered, t)
			delete(want, t)
		}
	}
	return ordered
}
