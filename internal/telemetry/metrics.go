// Package telemetry defines the Prometheus metrics for the trading bot
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BarsProcessed counts bars fed through the decision pipeline
	BarsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_bars_processed_total",
			Help: "Total number of bars processed",
		},
		[]string{"symbol", "timeframe"},
	)

	// Decisions counts emitted trade decisions by action
	Decisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_decisions_total",
			Help: "Total number of trade decisions by action",
		},
		[]string{"symbol", "action"},
	)

	// RuleEvalDuration observes the wall-clock time of one executor call
	RuleEvalDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bot_rule_eval_duration_seconds",
			Help:    "Duration of rule executor calls",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		},
	)

	// RuleEvalFailures counts per-rule evaluation failures
	RuleEvalFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_rule_eval_failures_total",
			Help: "Total number of rule evaluation failures",
		},
	)

	// RulePackReloads counts rule pack install attempts by outcome
	RulePackReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_rulepack_reloads_total",
			Help: "Total number of rule pack reload attempts",
		},
		[]string{"status"},
	)

	// StateTransitions counts state machine transitions by trigger
	StateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_state_transitions_total",
			Help: "Total number of state machine transitions",
		},
		[]string{"from", "to", "trigger"},
	)

	// BarCycleDuration observes end-to-end per-bar processing time
	BarCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bot_bar_cycle_duration_seconds",
			Help:    "Duration of one full bar processing cycle",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 2},
		},
	)

	// WatchdogTrips counts bar cycles that exceeded the configured bound
	WatchdogTrips = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_watchdog_trips_total",
			Help: "Total number of bar cycles exceeding the watchdog bound",
		},
	)
)

// ObserveRuleEval records one executor call
func ObserveRuleEval(elapsed time.Duration, failures int) {
	RuleEvalDuration.Observe(elapsed.Seconds())
	if failures > 0 {
		RuleEvalFailures.Add(float64(failures))
	}
}
