package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/trading-bot/internal/config"
	"github.com/mohamedkhairy/trading-bot/internal/expr"
	"github.com/mohamedkhairy/trading-bot/internal/features"
	"github.com/mohamedkhairy/trading-bot/internal/models"
	"github.com/mohamedkhairy/trading-bot/internal/regime"
)

func contextVector() *features.Vector {
	return &features.Vector{
		Symbol: "TEST",
		Open:   99, High: 101, Low: 98.5, Close: 100.5, Volume: 1200,
		Groups: map[string]map[string]float64{
			"rsi_14": {"value": 28.5, "period": 14},
		},
		Series: map[string][]float64{
			"close": {99, 100, 100.5},
		},
	}
}

func TestBuildContext_Groups(t *testing.T) {
	rs := regime.State{Regime: regime.TrendUp, Volatility: regime.VolHigh, Confidence: 0.7}
	cfg := config.BotConfig{Capital: 10000, RiskPerTrade: 0.01}

	ctx := BuildContext(contextVector(), rs, cfg, nil, nil)

	v, ok := ctx.Lookup("rsi_14", "value")
	require.True(t, ok)
	n, err := v.AsNumber()
	require.NoError(t, err)
	assert.Equal(t, 28.5, n)

	v, ok = ctx.Lookup("price", "close")
	require.True(t, ok)
	n, _ = v.AsNumber()
	assert.Equal(t, 100.5, n)

	v, ok = ctx.Lookup("cfg", "capital")
	require.True(t, ok)
	n, _ = v.AsNumber()
	assert.Equal(t, 10000.0, n)

	v, ok = ctx.Lookup("regime", "regime")
	require.True(t, ok)
	assert.Equal(t, `"TREND_UP"`, v.GoString())

	v, ok = ctx.Lookup("hist", "close")
	require.True(t, ok)
	series, err := v.AsSeries()
	require.NoError(t, err)
	assert.Len(t, series, 3)

	// No position: no trade group
	assert.False(t, ctx.HasGroup("trade"))
}

func TestBuildContext_TradeGroup(t *testing.T) {
	pos := &models.Position{
		Symbol: "TEST", Side: models.SideLong,
		EntryPrice: 100, StopLoss: 97, TakeProfit: 106,
		Quantity: 10, BarsHeld: 3, CurrentPrice: 102,
	}

	ctx := BuildContext(contextVector(), regime.State{Regime: regime.Range}, config.BotConfig{}, pos, nil)

	require.True(t, ctx.HasGroup("trade"))
	v, _ := ctx.Lookup("trade", "bars_held")
	n, _ := v.AsNumber()
	assert.Equal(t, 3.0, n)

	v, _ = ctx.Lookup("trade", "unrealized_pnl")
	n, _ = v.AsNumber()
	assert.Equal(t, 2.0, n)

	// The group is usable from a compiled expression end to end
	compiled, err := expr.Compile("trade.stop_loss < price.close && trade.bars_held >= 3.0")
	require.NoError(t, err)
	got, err := compiled.EvalBool(ctx)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestBuildContext_OverridesShadow(t *testing.T) {
	overrides := map[string]map[string]expr.Value{
		"cfg":    {"capital": expr.Number(42)},
		"custom": {"flag": expr.Bool(true)},
	}

	ctx := BuildContext(contextVector(), regime.State{}, config.BotConfig{Capital: 10000}, nil, overrides)

	v, _ := ctx.Lookup("cfg", "capital")
	n, _ := v.AsNumber()
	assert.Equal(t, 42.0, n)

	v, ok := ctx.Lookup("custom", "flag")
	require.True(t, ok)
	b, err := v.AsBool()
	require.NoError(t, err)
	assert.True(t, b)
}
