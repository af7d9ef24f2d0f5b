// Package stops owns stop-loss arithmetic: the monotonic enforcement rule
// every stop update passes through, and the built-in trailing fallback used
// when no update_stop rule produces a candidate.
package stops

import (
	"math"

	"github.com/mohamedkhairy/trading-bot/internal/config"
	"github.com/mohamedkhairy/trading-bot/internal/models"
)

// Enforce applies the monotonic stop rule: a stop only ever moves in the
// risk-reducing direction. For LONG the stop is non-decreasing, for SHORT
// non-increasing. This is the single authority for every stop value before
// acceptance, whatever produced the candidate.
func Enforce(side models.Side, current, candidate float64) float64 {
	if side == models.SideShort {
		return math.Min(current, candidate)
	}
	return math.Max(current, candidate)
}

// Trailer computes the built-in trailing-stop fallback. The mode is fixed
// from config; every candidate it returns has already passed Enforce.
type Trailer struct {
	cfg config.StopsConfig
}

// NewTrailer creates a trailer with the given configuration
func NewTrailer(cfg config.StopsConfig) *Trailer {
	return &Trailer{cfg: cfg}
}

// Mode returns the configured trailing mode
func (t *Trailer) Mode() string {
	return t.cfg.Mode
}

// Candidate computes the next stop for the position. close is the latest
// close, atr the current ATR value, and lows/highs the recent lookback used
// by the structural mode. The second result is false when the stop would
// not improve (the enforced value equals the current stop).
func (t *Trailer) Candidate(pos *models.Position, close, atr float64, lows, highs []float64) (float64, bool) {
	var raw float64
	switch t.cfg.Mode {
	case "percent":
		raw = percentStop(pos.Side, close, t.cfg.TrailPercent)
	case "atr":
		if atr <= 0 {
			return pos.StopLoss, false
		}
		raw = volatilityStop(pos.Side, close, atr, t.cfg.ATRMultiple)
	case "structure":
		var ok bool
		raw, ok = structuralStop(pos.Side, lows, highs, t.cfg.SwingLookback)
		if !ok {
			return pos.StopLoss, false
		}
	default:
		return pos.StopLoss, false
	}

	enforced := Enforce(pos.Side, pos.StopLoss, raw)
	return enforced, enforced != pos.StopLoss
}

// InitialStop computes the protective stop placed at entry, a fixed ATR
// multiple away from the entry price.
func (t *Trailer) InitialStop(side models.Side, entryPrice, atr float64) float64 {
	distance := atr * t.cfg.InitialATRMul
	if distance <= 0 {
		// Degenerate ATR: fall back to the percent distance
		distance = entryPrice * t.cfg.TrailPercent
	}
	if side == models.SideShort {
		return entryPrice + distance
	}
	return entryPrice - distance
}

// TakeProfit computes the target as a multiple of initial risk
func (t *Trailer) TakeProfit(side models.Side, entryPrice, stopLoss float64) float64 {
	risk := math.Abs(entryPrice - stopLoss)
	if side == models.SideShort {
		return entryPrice - risk*t.cfg.TakeProfitRR
	}
	return entryPrice + risk*t.cfg.TakeProfitRR
}

func percentStop(side models.Side, close, pct float64) float64 {
	if side == models.SideShort {
		return close * (1 + pct)
	}
	return close * (1 - pct)
}

func volatilityStop(side models.Side, close, atr, multiple float64) float64 {
	if side == models.SideShort {
		return close + atr*multiple
	}
	return close - atr*multiple
}

// structuralStop trails behind the most recent swing extreme: the lowest low
// of the lookback for LONG, the highest high for SHORT.
func structuralStop(side models.Side, lows, highs []float64, lookback int) (float64, bool) {
	if side == models.SideShort {
		window := tail(highs, lookback)
		if len(window) == 0 {
			return 0, false
		}
		max := window[0]
		for _, h := range window[1:] {
			if h > max {
				max = h
			}
		}
		return max, true
	}

	window := tail(lows, lookback)
	if len(window) == 0 {
		return 0, false
	}
	min := window[0]
	for _, l := range window[1:] {
		if l < min {
			min = l
		}
	}
	return min, true
}

func tail(s []float64, n int) []float64 {
	if n <= 0 || len(s) == 0 {
		return nil
	}
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
