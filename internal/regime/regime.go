// Package regime classifies market conditions per bar: trend direction from
// ADX and EMA alignment, volatility bucket from the ATR's position within
// its own recent history.
package regime

import (
	"math"
	"sort"

	"github.com/mohamedkhairy/trading-bot/internal/features"
)

// Regime is the classified trend condition
type Regime string

const (
	TrendUp   Regime = "TREND_UP"
	TrendDown Regime = "TREND_DOWN"
	Range     Regime = "RANGE"
)

// Volatility is the classified volatility bucket
type Volatility string

const (
	VolLow     Volatility = "LOW"
	VolNormal  Volatility = "NORMAL"
	VolHigh    Volatility = "HIGH"
	VolExtreme Volatility = "EXTREME"
)

// State is the per-bar regime classification. It is derived fresh each bar
// and never stored beyond the cycle.
type State struct {
	Regime     Regime
	Volatility Volatility
	Confidence float64 // [0, 1]
}

// Classifier derives a RegimeState from a FeatureVector
type Classifier struct {
	adxTrendMin float64 // ADX at or above this means the market is trending
	adxStrong   float64 // ADX here or above saturates confidence

	// Volatility bucket boundaries, as percentile ranks of the current ATR
	// within its lookback history
	lowPctl     float64
	highPctl    float64
	extremePctl float64
}

// NewClassifier creates a classifier with the default thresholds
func NewClassifier() *Classifier {
	return &Classifier{
		adxTrendMin: 20,
		adxStrong:   40,
		lowPctl:     25,
		highPctl:    75,
		extremePctl: 95,
	}
}

// Classify derives the regime state for one bar. When the vector lacks the
// required indicator groups (warm-up), it returns a RANGE/NORMAL state with
// zero confidence rather than guessing.
func (c *Classifier) Classify(vec *features.Vector) State {
	adx, adxOK := vec.Field("adx_14", "value")
	plusDI, _ := vec.Field("adx_14", "plus_di")
	minusDI, _ := vec.Field("adx_14", "minus_di")
	emaFast, fastOK := vec.Field("ema_20", "value")
	emaSlow, slowOK := vec.Field("ema_50", "value")

	state := State{Regime: Range, Volatility: VolNormal}
	if !adxOK || !fastOK || !slowOK {
		return state
	}

	trending := adx >= c.adxTrendMin
	if trending {
		if plusDI > minusDI && emaFast > emaSlow {
			state.Regime = TrendUp
		} else if minusDI > plusDI && emaFast < emaSlow {
			state.Regime = TrendDown
		}
		// Directional indicators disagreeing with EMA alignment stays RANGE
	}

	state.Volatility = c.volatilityBucket(vec)
	state.Confidence = c.confidence(adx, plusDI, minusDI, state.Regime)
	return state
}

func (c *Classifier) volatilityBucket(vec *features.Vector) Volatility {
	atr, ok := vec.Field("atr_14", "value")
	if !ok || vec.Close <= 0 {
		return VolNormal
	}
	hist := vec.Series["atr"]
	if len(hist) < 10 {
		return VolNormal
	}

	rank := percentileRank(hist, atr)
	switch {
	case rank >= c.extremePctl:
		return VolExtreme
	case rank >= c.highPctl:
		return VolHigh
	case rank < c.lowPctl:
		return VolLow
	default:
		return VolNormal
	}
}

// confidence blends trend strength (ADX) with directional-index separation.
// A RANGE classification keeps a low score by construction.
func (c *Classifier) confidence(adx, plusDI, minusDI float64, r Regime) float64 {
	strength := (adx - c.adxTrendMin) / (c.adxStrong - c.adxTrendMin)
	strength = clamp01(strength)

	diSum := plusDI + minusDI
	var separation float64
	if diSum > 0 {
		separation = math.Abs(plusDI-minusDI) / diSum
	}

	score := 0.6*strength + 0.4*clamp01(separation)
	if r == Range {
		// Confidence that the market is range-bound rises as ADX falls
		return clamp01(1 - adx/c.adxTrendMin*0.5 - 0.5*clamp01(separation))
	}
	return score
}

// percentileRank returns the percentage of history values at or below v
func percentileRank(hist []float64, v float64) float64 {
	sorted := make([]float64, len(hist))
	copy(sorted, hist)
	sort.Float64s(sorted)
	idx := sort.SearchFloat64s(sorted, v)
	// Count equal values as below-or-at
	for idx < len(sorted) && sorted[idx] == v {
		idx++
	}
	return float64(idx) / float64(len(sorted)) * 100
}

func clamp01(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}
