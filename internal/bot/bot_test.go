package bot

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/trading-bot/internal/config"
	"github.com/mohamedkhairy/trading-bot/internal/models"
	"github.com/mohamedkhairy/trading-bot/internal/rulepack"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		LogLevel:    "error",
		Bot: config.BotConfig{
			Symbol:        "TEST",
			Timeframe:     "1m",
			EntryScoreMin: 0.5,
			ConfirmBars:   0,
			RiskPerTrade:  0.01,
			Capital:       10000,
			LookbackBars:  150,
		},
		Stops: config.StopsConfig{
			Mode:          "atr",
			TrailPercent:  0.02,
			ATRMultiple:   2,
			SwingLookback: 5,
			InitialATRMul: 2,
			TakeProfitRR:  100, // far away so tests control the exit path
		},
	}
}

func newTestBot(t *testing.T, cfg *config.Config) *Bot {
	t.Helper()
	b, err := New(cfg, rulepack.NewEngine())
	require.NoError(t, err)
	return b
}

// upBar produces bar i of a steady uptrend with slowly shrinking ranges, so
// the trend classifies as TREND_UP while volatility stays low.
func upBar(i int) *models.Bar {
	c := 100 + 0.5*float64(i)
	r := math.Max(1.0, 2.0-0.01*float64(i))
	return &models.Bar{
		Symbol:    "TEST",
		Timeframe: "1m",
		Timestamp: time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute),
		Open:      c - 0.5,
		High:      c + r/2,
		Low:       c - r/2,
		Close:     c,
		Volume:    1000,
	}
}

// feedUntil feeds uptrend bars starting at index from until the bot emits
// the wanted action, returning the decision and the next bar index
func feedUntil(t *testing.T, b *Bot, from, max int, action models.DecisionAction) (*models.TradeDecision, int) {
	t.Helper()
	for i := from; i < max; i++ {
		d, err := b.ProcessBar(upBar(i))
		require.NoError(t, err)
		require.NotNil(t, d)
		if d.Action == action {
			return d, i + 1
		}
	}
	t.Fatalf("no %s decision within %d bars", action, max-from)
	return nil, 0
}

func singleRulePack(ptype rulepack.PackType, r rulepack.Rule) *rulepack.RulePack {
	return &rulepack.RulePack{
		RulesVersion: "1.0.0",
		Packs:        []rulepack.Pack{{Type: ptype, Rules: []rulepack.Rule{r}}},
	}
}

func TestBot_WarmupHolds(t *testing.T) {
	b := newTestBot(t, testConfig())

	d, err := b.ProcessBar(upBar(0))
	require.NoError(t, err)
	assert.Equal(t, models.ActionHold, d.Action)
	assert.Equal(t, []string{"warmup"}, d.ReasonCodes)
	assert.Equal(t, StateFlat, b.State())
}

func TestBot_EntersOnUptrend(t *testing.T) {
	b := newTestBot(t, testConfig())

	enter, _ := feedUntil(t, b, 0, 120, models.ActionEnter)
	assert.Equal(t, models.SideLong, enter.Side)
	assert.GreaterOrEqual(t, enter.Score, 0.5)
	assert.NotEmpty(t, enter.ReasonCodes)
	assert.NotEmpty(t, enter.ID)

	assert.Equal(t, StateManage, b.State())
	pos := b.Position()
	require.NotNil(t, pos)
	assert.Equal(t, models.SideLong, pos.Side)
	assert.Less(t, pos.StopLoss, pos.EntryPrice)
	assert.Greater(t, pos.TakeProfit, pos.EntryPrice)
	assert.Greater(t, pos.Quantity, 0.0)
}

func TestBot_HardStopBypassesRules(t *testing.T) {
	b := newTestBot(t, testConfig())

	// An exit rule that would also fire must not own the outcome: the hard
	// stop check runs before any rule evaluation
	require.NoError(t, b.Rules().Install(singleRulePack(rulepack.PackExit, rulepack.Rule{
		ID: "exit_always", Name: "always", Expression: "true",
		Severity: rulepack.SeverityExit, Message: "rule exit", Enabled: true,
	})))

	_, next := feedUntil(t, b, 0, 120, models.ActionEnter)
	pos := b.Position()
	require.NotNil(t, pos)

	crash := upBar(next)
	crash.Open = pos.EntryPrice
	crash.High = pos.EntryPrice
	crash.Close = pos.EntryPrice - 8
	crash.Low = pos.EntryPrice - 10

	d, err := b.ProcessBar(crash)
	require.NoError(t, err)
	assert.Equal(t, models.ActionExit, d.Action)
	assert.Equal(t, []string{"stop_loss_hit"}, d.ReasonCodes)
	assert.Equal(t, pos.StopLoss, d.Price)

	// Terminal per trade, immediately back to FLAT
	assert.Equal(t, StateFlat, b.State())
	assert.Nil(t, b.Position())
}

func TestBot_TakeProfitExit(t *testing.T) {
	cfg := testConfig()
	cfg.Stops.TakeProfitRR = 1
	b := newTestBot(t, cfg)

	_, next := feedUntil(t, b, 0, 120, models.ActionEnter)
	pos := b.Position()
	require.NotNil(t, pos)

	d, _ := feedUntil(t, b, next, next+30, models.ActionExit)
	assert.Equal(t, []string{"take_profit_hit"}, d.ReasonCodes)
	assert.Equal(t, pos.TakeProfit, d.Price)
	assert.Equal(t, StateFlat, b.State())
}

func TestBot_ExitRuleClosesPosition(t *testing.T) {
	b := newTestBot(t, testConfig())
	_, next := feedUntil(t, b, 0, 120, models.ActionEnter)

	require.NoError(t, b.Rules().Install(singleRulePack(rulepack.PackExit, rulepack.Rule{
		ID: "exit_after_one_bar", Name: "time exit", Expression: "trade.bars_held >= 1",
		Severity: rulepack.SeverityExit, Message: "held long enough", Enabled: true,
	})))

	d, err := b.ProcessBar(upBar(next))
	require.NoError(t, err)
	assert.Equal(t, models.ActionExit, d.Action)
	assert.Equal(t, []string{"exit_after_one_bar"}, d.ReasonCodes)
	assert.Equal(t, StateFlat, b.State())
}

func TestBot_MaxBarsExit(t *testing.T) {
	cfg := testConfig()
	cfg.Bot.MaxBarsHeld = 2
	b := newTestBot(t, cfg)

	_, next := feedUntil(t, b, 0, 120, models.ActionEnter)
	d, _ := feedUntil(t, b, next, next+5, models.ActionExit)
	assert.Equal(t, []string{"max_bars_reached"}, d.ReasonCodes)
}

func TestBot_EntryBlockedByRules(t *testing.T) {
	cfg := testConfig()
	cfg.Bot.Capital = 500
	b := newTestBot(t, cfg)

	require.NoError(t, b.Rules().Install(singleRulePack(rulepack.PackEntry, rulepack.Rule{
		ID: "entry_min_capital", Name: "min capital", Expression: "cfg.capital >= 1000.0",
		Severity: rulepack.SeverityBlock, Message: "insufficient capital", Enabled: true,
	})))

	for i := 0; i < 120; i++ {
		d, err := b.ProcessBar(upBar(i))
		require.NoError(t, err)
		require.NotEqual(t, models.ActionEnter, d.Action)
		if len(d.ReasonCodes) > 0 && d.ReasonCodes[0] == "entry_min_capital" {
			assert.Equal(t, models.ActionHold, d.Action)
			assert.Equal(t, StateFlat, b.State())
			return
		}
	}
	t.Fatal("entry was never evaluated against the rule pack")
}

func TestBot_UnevaluableEntryRuleFailsClosed(t *testing.T) {
	b := newTestBot(t, testConfig())

	require.NoError(t, b.Rules().Install(singleRulePack(rulepack.PackEntry, rulepack.Rule{
		ID: "entry_broken", Name: "broken", Expression: "nonexistent.value > 1",
		Severity: rulepack.SeverityBlock, Message: "broken", Enabled: true,
	})))

	for i := 0; i < 120; i++ {
		d, err := b.ProcessBar(upBar(i))
		require.NoError(t, err)
		require.NotEqual(t, models.ActionEnter, d.Action, "entry must never open on an unevaluable rule")
		if len(d.ReasonCodes) > 0 && d.ReasonCodes[0] == "rule_failure" {
			assert.Equal(t, StateFlat, b.State())
			return
		}
	}
	t.Fatal("entry gate was never reached")
}

func TestBot_ConfirmationWindow(t *testing.T) {
	cfg := testConfig()
	cfg.Bot.ConfirmBars = 2
	b := newTestBot(t, cfg)

	// First candidate bar raises the signal but does not enter
	var pendingAt int
	for i := 0; i < 120; i++ {
		d, err := b.ProcessBar(upBar(i))
		require.NoError(t, err)
		if b.State() == StateSignal {
			assert.Equal(t, []string{"signal_pending"}, d.ReasonCodes)
			pendingAt = i
			break
		}
	}
	require.Equal(t, StateSignal, b.State())

	// Next bar is still confirming
	d, err := b.ProcessBar(upBar(pendingAt + 1))
	require.NoError(t, err)
	assert.Equal(t, StateSignal, b.State())
	assert.Equal(t, []string{"signal_confirming"}, d.ReasonCodes)

	// Second bar completes the window and fills
	d, err = b.ProcessBar(upBar(pendingAt + 2))
	require.NoError(t, err)
	assert.Equal(t, models.ActionEnter, d.Action)
	assert.Equal(t, StateManage, b.State())
}

func TestBot_SignalExpiresOnVolatilitySpike(t *testing.T) {
	cfg := testConfig()
	cfg.Bot.ConfirmBars = 5
	b := newTestBot(t, cfg)

	var pendingAt int
	for i := 0; i < 120; i++ {
		_, err := b.ProcessBar(upBar(i))
		require.NoError(t, err)
		if b.State() == StateSignal {
			pendingAt = i
			break
		}
	}
	require.Equal(t, StateSignal, b.State())

	// A huge-range bar pushes volatility to EXTREME, vetoing the candidate
	spike := upBar(pendingAt + 1)
	spike.High = spike.Close + 25
	spike.Low = spike.Close - 25

	d, err := b.ProcessBar(spike)
	require.NoError(t, err)
	assert.Equal(t, models.ActionHold, d.Action)
	assert.Equal(t, []string{"signal_expired"}, d.ReasonCodes)
	assert.Equal(t, StateFlat, b.State())
}

func TestBot_TrailingStopNeverLoosens(t *testing.T) {
	b := newTestBot(t, testConfig())
	_, next := feedUntil(t, b, 0, 120, models.ActionEnter)
	initial := b.Position().StopLoss

	var updates []float64
	for i := next; i < next+20 && b.State() == StateManage; i++ {
		d, err := b.ProcessBar(upBar(i))
		require.NoError(t, err)
		if d.Action == models.ActionUpdateStop {
			updates = append(updates, d.StopLoss)
		}
	}

	require.NotEmpty(t, updates, "uptrend should tighten the trailing stop")
	prev := initial
	for _, s := range updates {
		assert.GreaterOrEqual(t, s, prev)
		prev = s
	}
	if b.State() == StateManage {
		assert.Equal(t, prev, b.Position().StopLoss)
	}
}

func TestBot_PauseAndResume(t *testing.T) {
	b := newTestBot(t, testConfig())

	require.NoError(t, b.Pause())
	assert.Equal(t, StatePaused, b.State())

	d, err := b.ProcessBar(upBar(0))
	require.NoError(t, err)
	assert.Equal(t, models.ActionHold, d.Action)
	assert.Equal(t, []string{"paused"}, d.ReasonCodes)

	require.NoError(t, b.Resume())
	assert.Equal(t, StateFlat, b.State())
}

func TestBot_PauseRejectedWithOpenPosition(t *testing.T) {
	b := newTestBot(t, testConfig())
	feedUntil(t, b, 0, 120, models.ActionEnter)

	err := b.Pause()
	require.Error(t, err)
	var terr *StateTransitionError
	assert.ErrorAs(t, err, &terr)

	// The rejection must not disturb the machine or the position
	assert.Equal(t, StateManage, b.State())
	assert.NotNil(t, b.Position())
}

func TestBot_ControlSurfaceIsSafeDuringProcessing(t *testing.T) {
	b := newTestBot(t, testConfig())

	// Hammer the reporting and control surface from a second goroutine while
	// the bar loop runs; run with -race to check the serialization
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 300; i++ {
			_ = b.State()
			_ = b.Position()
			_ = b.Regime()
			_ = b.BarsProcessed()
			// Rejected transitions must leave the machine untouched
			_ = b.Pause()
			_ = b.Resume()
		}
	}()

	for i := 0; i < 300; i++ {
		_, err := b.ProcessBar(upBar(i))
		require.NoError(t, err)
	}
	<-done

	// Whatever interleaving happened, the bot never fell into ERROR
	assert.NotEqual(t, StateError, b.State())
	if b.State() == StatePaused {
		require.NoError(t, b.Resume())
	}
}

func TestBot_WatchdogForcesError(t *testing.T) {
	cfg := testConfig()
	cfg.Bot.BarTimeout = time.Nanosecond
	b := newTestBot(t, cfg)

	_, err := b.ProcessBar(upBar(0))
	require.NoError(t, err)
	assert.Equal(t, StateError, b.State())

	// ERROR holds until an explicit reset
	d, err := b.ProcessBar(upBar(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"error_state"}, d.ReasonCodes)

	require.NoError(t, b.Reset())
	assert.Equal(t, StateFlat, b.State())
}

func TestBot_InvalidBarRaisesError(t *testing.T) {
	b := newTestBot(t, testConfig())

	bad := upBar(0)
	bad.High = bad.Low - 1

	_, err := b.ProcessBar(bad)
	require.Error(t, err)
	assert.Equal(t, StateError, b.State())
	assert.Nil(t, b.Position())
}

func TestBot_ExitedIsTerminalPerTradeOnly(t *testing.T) {
	b := newTestBot(t, testConfig())
	_, next := feedUntil(t, b, 0, 120, models.ActionEnter)
	pos := b.Position()

	crash := upBar(next)
	crash.Open = pos.EntryPrice
	crash.High = pos.EntryPrice
	crash.Close = pos.EntryPrice - 8
	crash.Low = pos.EntryPrice - 10
	_, err := b.ProcessBar(crash)
	require.NoError(t, err)
	require.Equal(t, StateFlat, b.State())

	// The bot can trade again after the reset to FLAT
	d, err := b.ProcessBar(upBar(next + 1))
	require.NoError(t, err)
	assert.NotNil(t, d)
}
