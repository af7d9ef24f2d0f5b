package bot

import (
	"github.com/mohamedkhairy/trading-bot/internal/expr"
	"github.com/mohamedkhairy/trading-bot/internal/features"
	"github.com/mohamedkhairy/trading-bot/internal/models"
	"github.com/mohamedkhairy/trading-bot/internal/rulepack"
	"github.com/mohamedkhairy/trading-bot/internal/stops"
)

// StopStrategy proposes the next stop for an open position. The bot swaps
// implementations without the state machine knowing which one is active;
// the caller passes every proposal through monotonic enforcement before
// accepting it.
type StopStrategy interface {
	// Propose returns the new stop and whether it improves on the current
	// one. A false result means the stop stays where it is this bar.
	Propose(ectx *expr.Context, vec *features.Vector, pos *models.Position) (float64, bool)

	// Describe identifies the strategy for logging and decisions
	Describe() string
}

// builtinStops trails the stop with the configured algorithm, independent of
// any rule pack.
type builtinStops struct {
	trailer *stops.Trailer
}

// NewBuiltinStops wraps the trailing-stop fallback as a strategy
func NewBuiltinStops(trailer *stops.Trailer) StopStrategy {
	return &builtinStops{trailer: trailer}
}

func (s *builtinStops) Propose(_ *expr.Context, vec *features.Vector, pos *models.Position) (float64, bool) {
	atr, _ := vec.Field("atr_14", "value")
	return s.trailer.Candidate(pos, vec.Close, atr, vec.Series["low"], vec.Series["high"])
}

func (s *builtinStops) Describe() string {
	return "builtin:" + s.trailer.Mode()
}

// ruleStops asks the update_stop rule pack first and falls back to the
// built-in trailer when no pack is installed, no rule fires, or every firing
// rule fails to evaluate.
type ruleStops struct {
	engine   *rulepack.Engine
	fallback StopStrategy
}

// NewRuleStops wraps the rule executor as a stop strategy with the given
// fallback
func NewRuleStops(engine *rulepack.Engine, fallback StopStrategy) StopStrategy {
	return &ruleStops{engine: engine, fallback: fallback}
}

func (s *ruleStops) Propose(ectx *expr.Context, vec *features.Vector, pos *models.Position) (float64, bool) {
	summary := s.engine.Execute(ectx, pos, []rulepack.PackType{rulepack.PackUpdateStop})
	if summary.HasStop {
		return summary.Stop, true
	}
	// Evaluation failures count as no trigger here: existing protection is
	// preserved and the trailer still gets its chance
	return s.fallback.Propose(ectx, vec, pos)
}

func (s *ruleStops) Describe() string {
	return "rules+" + s.fallback.Describe()
}
