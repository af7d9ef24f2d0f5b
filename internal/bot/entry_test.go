package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/trading-bot/internal/features"
	"github.com/mohamedkhairy/trading-bot/internal/models"
	"github.com/mohamedkhairy/trading-bot/internal/regime"
)

func bullishVector() *features.Vector {
	return &features.Vector{
		Symbol: "TEST",
		Close:  105,
		Groups: map[string]map[string]float64{
			"rsi_14": {"value": 40},
			"ema_20": {"value": 103},
			"ema_50": {"value": 100},
			"macd":   {"value": 1.2, "signal": 0.8, "histogram": 0.4},
		},
	}
}

func bearishVector() *features.Vector {
	return &features.Vector{
		Symbol: "TEST",
		Close:  95,
		Groups: map[string]map[string]float64{
			"rsi_14": {"value": 60},
			"ema_20": {"value": 97},
			"ema_50": {"value": 100},
			"macd":   {"value": -1.2, "signal": -0.8, "histogram": -0.4},
		},
	}
}

func TestScoreEntry_LongSetup(t *testing.T) {
	rs := regime.State{Regime: regime.TrendUp, Volatility: regime.VolNormal, Confidence: 0.8}

	sig := ScoreEntry(bullishVector(), rs, 0.5)
	require.NotNil(t, sig)
	assert.Equal(t, models.SideLong, sig.Side)
	assert.InDelta(t, 1.0, sig.Score, 1e-9) // all four components line up
	assert.Contains(t, sig.Reasons, "regime_trend_up")
	assert.Contains(t, sig.Reasons, "ema_alignment_bull")
	assert.Contains(t, sig.Reasons, "macd_bullish")
	assert.Contains(t, sig.Reasons, "rsi_pullback")
}

func TestScoreEntry_ShortSetup(t *testing.T) {
	rs := regime.State{Regime: regime.TrendDown, Volatility: regime.VolNormal, Confidence: 0.8}

	sig := ScoreEntry(bearishVector(), rs, 0.5)
	require.NotNil(t, sig)
	assert.Equal(t, models.SideShort, sig.Side)
	assert.InDelta(t, 1.0, sig.Score, 1e-9)
	assert.Contains(t, sig.Reasons, "regime_trend_down")
}

func TestScoreEntry_BelowThreshold(t *testing.T) {
	// A ranging market with only a weak pullback component on either side
	vec := &features.Vector{
		Close: 100,
		Groups: map[string]map[string]float64{
			"rsi_14": {"value": 50},
			"ema_20": {"value": 100},
			"ema_50": {"value": 100},
			"macd":   {"value": 0, "signal": 0, "histogram": 0},
		},
	}
	rs := regime.State{Regime: regime.Range, Volatility: regime.VolNormal}

	assert.Nil(t, ScoreEntry(vec, rs, 0.5))
}

func TestScoreEntry_ExtremeVolatilityVetoes(t *testing.T) {
	rs := regime.State{Regime: regime.TrendUp, Volatility: regime.VolExtreme, Confidence: 0.9}
	assert.Nil(t, ScoreEntry(bullishVector(), rs, 0.5))
}

func TestScoreEntry_MissingIndicatorsScorePartially(t *testing.T) {
	vec := &features.Vector{
		Close:  105,
		Groups: map[string]map[string]float64{},
	}
	rs := regime.State{Regime: regime.TrendUp, Volatility: regime.VolNormal}

	// Only the regime component can contribute
	sig := ScoreEntry(vec, rs, 0.3)
	require.NotNil(t, sig)
	assert.InDelta(t, weightRegime, sig.Score, 1e-9)
	assert.Equal(t, []string{"regime_trend_up"}, sig.Reasons)
}
