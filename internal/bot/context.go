package bot

import (
	"github.com/mohamedkhairy/trading-bot/internal/config"
	"github.com/mohamedkhairy/trading-bot/internal/expr"
	"github.com/mohamedkhairy/trading-bot/internal/features"
	"github.com/mohamedkhairy/trading-bot/internal/models"
	"github.com/mohamedkhairy/trading-bot/internal/regime"
)

// BuildContext assembles the evaluation context for one rules call. It is
// built fresh each cycle and read-only during evaluation.
//
// Groups exposed to expressions:
//   - one group per ready indicator (rsi_14, ema_20, ema_50, atr_14, adx_14,
//     macd), fields as produced by the feature engine
//   - "price": open, high, low, close, volume of the current bar
//   - "hist": close, high, low, atr lookback series for pctl()
//   - "regime": regime, volatility, confidence
//   - "cfg": capital, risk_per_trade
//   - "trade": present only while a position exists; side, entry_price,
//     stop_loss, take_profit, bars_held, current_price, unrealized_pnl
//
// overrides are merged last, group by group, so callers can shadow or extend
// any of the above.
func BuildContext(vec *features.Vector, rs regime.State, cfg config.BotConfig, pos *models.Position, overrides map[string]map[string]expr.Value) *expr.Context {
	ctx := expr.NewContext()

	for name, fields := range vec.Groups {
		group := make(map[string]expr.Value, len(fields))
		for field, v := range fields {
			group[field] = expr.Number(v)
		}
		ctx.SetGroup(name, group)
	}

	ctx.SetGroup("price", map[string]expr.Value{
		"open":   expr.Number(vec.Open),
		"high":   expr.Number(vec.High),
		"low":    expr.Number(vec.Low),
		"close":  expr.Number(vec.Close),
		"volume": expr.Number(float64(vec.Volume)),
	})

	hist := make(map[string]expr.Value, len(vec.Series))
	for name, series := range vec.Series {
		hist[name] = expr.Series(series)
	}
	ctx.SetGroup("hist", hist)

	ctx.SetGroup("regime", map[string]expr.Value{
		"regime":     expr.String(string(rs.Regime)),
		"volatility": expr.String(string(rs.Volatility)),
		"confidence": expr.Number(rs.Confidence),
	})

	ctx.SetGroup("cfg", map[string]expr.Value{
		"capital":        expr.Number(cfg.Capital),
		"risk_per_trade": expr.Number(cfg.RiskPerTrade),
	})

	if pos != nil {
		ctx.SetGroup("trade", map[string]expr.Value{
			"side":           expr.String(string(pos.Side)),
			"entry_price":    expr.Number(pos.EntryPrice),
			"stop_loss":      expr.Number(pos.StopLoss),
			"take_profit":    expr.Number(pos.TakeProfit),
			"bars_held":      expr.Number(float64(pos.BarsHeld)),
			"current_price":  expr.Number(pos.CurrentPrice),
			"unrealized_pnl": expr.Number(pos.UnrealizedPnL()),
		})
	}

	for name, fields := range overrides {
		for field, v := range fields {
			ctx.SetField(name, field, v)
		}
	}

	return ctx
}
