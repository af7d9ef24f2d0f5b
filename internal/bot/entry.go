package bot

import (
	"github.com/mohamedkhairy/trading-bot/internal/features"
	"github.com/mohamedkhairy/trading-bot/internal/models"
	"github.com/mohamedkhairy/trading-bot/internal/regime"
)

// Signal is a scored entry candidate produced in the FLAT state. It still
// has to pass the risk/entry rule packs and the confirmation window before
// it becomes a position.
type Signal struct {
	Side    models.Side
	Score   float64  // [0, 1]
	Reasons []string // reason codes behind the score
}

// Component weights of the entry score. They sum to 1 so the score stays in
// [0, 1] and the threshold is comparable across symbols.
const (
	weightRegime    = 0.35
	weightAlignment = 0.25
	weightMomentum  = 0.20
	weightPullback  = 0.20
)

// ScoreEntry scores both directions against the current features and regime
// and returns the better candidate when it clears minScore. Extreme
// volatility vetoes every entry regardless of score.
func ScoreEntry(vec *features.Vector, rs regime.State, minScore float64) *Signal {
	if rs.Volatility == regime.VolExtreme {
		return nil
	}

	long := scoreSide(vec, rs, models.SideLong)
	short := scoreSide(vec, rs, models.SideShort)

	best := long
	if short.Score > long.Score {
		best = short
	}
	if best.Score < minScore {
		return nil
	}
	return best
}

func scoreSide(vec *features.Vector, rs regime.State, side models.Side) *Signal {
	sig := &Signal{Side: side}

	rsi, rsiOK := vec.Field("rsi_14", "value")
	emaFast, fastOK := vec.Field("ema_20", "value")
	emaSlow, slowOK := vec.Field("ema_50", "value")
	hist, histOK := vec.Field("macd", "histogram")

	if side == models.SideLong {
		if rs.Regime == regime.TrendUp {
			sig.add(weightRegime, "regime_trend_up")
		}
		if fastOK && slowOK && vec.Close > emaFast && emaFast > emaSlow {
			sig.add(weightAlignment, "ema_alignment_bull")
		}
		if histOK && hist > 0 {
			sig.add(weightMomentum, "macd_bullish")
		}
		if rsiOK && rsi < 45 {
			sig.add(weightPullback, "rsi_pullback")
		}
		return sig
	}

	if rs.Regime == regime.TrendDown {
		sig.add(weightRegime, "regime_trend_down")
	}
	if fastOK && slowOK && vec.Close < emaFast && emaFast < emaSlow {
		sig.add(weightAlignment, "ema_alignment_bear")
	}
	if histOK && hist < 0 {
		sig.add(weightMomentum, "macd_bearish")
	}
	if rsiOK && rsi > 55 {
		sig.add(weightPullback, "rsi_rebound")
	}
	return sig
}

func (s *Signal) add(weight float64, reason string) {
	s.Score += weight
	s.Reasons = append(s.Reasons, reason)
}
