// Package features turns incoming bars into per-bar FeatureVectors: a named
// group of indicator values plus the lookback series the rest of the bot
// queries for percentiles and swing structure.
package features

import (
	"fmt"

	"github.com/mohamedkhairy/trading-bot/internal/models"
	"github.com/mohamedkhairy/trading-bot/pkg/indicator"
)

// Standard indicator periods used by the bot
const (
	RSIPeriod     = 14
	EMAFastPeriod = 20
	EMASlowPeriod = 50
	ATRPeriod     = 14
	ADXPeriod     = 14
	MACDFast      = 12
	MACDSlow      = 26
	MACDSignal    = 9
)

// Engine computes a FeatureVector for each bar of a single symbol and
// timeframe. Update is not safe for concurrent use; the bot's per-bar
// pipeline is single-threaded by contract.
type Engine struct {
	symbol    string
	timeframe string
	lookback  int

	registry *indicator.Registry
	rsi      *indicator.RSI
	emaFast  *indicator.EMA
	emaSlow  *indicator.EMA
	atr      *indicator.ATR
	adx      *indicator.ADX
	macd     *indicator.MACD

	closes  []float64
	highs   []float64
	lows    []float64
	atrHist []float64

	processed int
}

// NewEngine creates a feature engine with the bot's standard indicator set.
// lookback bounds the retained history windows.
func NewEngine(symbol, timeframe string, lookback int) (*Engine, error) {
	if lookback < 1 {
		return nil, fmt.Errorf("lookback must be at least 1, got %d", lookback)
	}

	e := &Engine{
		symbol:    symbol,
		timeframe: timeframe,
		lookback:  lookback,
		registry:  indicator.NewRegistry(),
		closes:    make([]float64, 0, lookback),
		highs:     make([]float64, 0, lookback),
		lows:      make([]float64, 0, lookback),
		atrHist:   make([]float64, 0, lookback),
	}

	var err error
	if e.rsi, err = indicator.NewRSI(RSIPeriod); err != nil {
		return nil, err
	}
	if e.emaFast, err = indicator.NewEMA(EMAFastPeriod); err != nil {
		return nil, err
	}
	if e.emaSlow, err = indicator.NewEMA(EMASlowPeriod); err != nil {
		return nil, err
	}
	if e.atr, err = indicator.NewATR(ATRPeriod); err != nil {
		return nil, err
	}
	if e.adx, err = indicator.NewADX(ADXPeriod); err != nil {
		return nil, err
	}
	if e.macd, err = indicator.NewMACD(MACDFast, MACDSlow, MACDSignal); err != nil {
		return nil, err
	}

	for _, calc := range []indicator.Calculator{e.rsi, e.emaFast, e.emaSlow, e.atr, e.adx, e.macd} {
		if err := e.registry.Register(calc); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Update feeds one bar through every calculator and returns the resulting
// FeatureVector. Indicators that are not ready yet simply do not appear as
// groups; expressions referencing them must guard with isnull/nz.
func (e *Engine) Update(bar *models.Bar) (*Vector, error) {
	if bar == nil {
		return nil, fmt.Errorf("bar cannot be nil")
	}
	if err := bar.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bar: %w", err)
	}

	if err := e.registry.Each(func(calc indicator.Calculator) error {
		_, err := calc.Update(bar)
		return err
	}); err != nil {
		return nil, fmt.Errorf("indicator update failed: %w", err)
	}

	e.closes = pushBounded(e.closes, bar.Close, e.lookback)
	e.highs = pushBounded(e.highs, bar.High, e.lookback)
	e.lows = pushBounded(e.lows, bar.Low, e.lookback)
	if e.atr.IsReady() {
		atrVal, _ := e.atr.Value()
		e.atrHist = pushBounded(e.atrHist, atrVal, e.lookback)
	}
	e.processed++

	vec := &Vector{
		Symbol:    e.symbol,
		Timeframe: e.timeframe,
		Timestamp: bar.Timestamp,
		Groups:    make(map[string]map[string]float64),
		Series:    make(map[string][]float64),
		Open:      bar.Open,
		High:      bar.High,
		Low:       bar.Low,
		Close:     bar.Close,
		Volume:    bar.Volume,
	}

	e.addSingleValue(vec, e.rsi, e.rsi.Name(), RSIPeriod)
	e.addSingleValue(vec, e.emaFast, e.emaFast.Name(), EMAFastPeriod)
	e.addSingleValue(vec, e.emaSlow, e.emaSlow.Name(), EMASlowPeriod)
	e.addSingleValue(vec, e.atr, e.atr.Name(), ATRPeriod)

	if e.adx.IsReady() {
		if vals, err := e.adx.Values(); err == nil {
			vals["period"] = float64(ADXPeriod)
			vec.Groups[e.adx.Name()] = vals
		}
	}
	if e.macd.IsReady() {
		if vals, err := e.macd.Values(); err == nil {
			vals["period"] = float64(MACDSlow)
			vec.Groups["macd"] = vals
		}
	}

	vec.Series["close"] = copyFloats(e.closes)
	vec.Series["high"] = copyFloats(e.highs)
	vec.Series["low"] = copyFloats(e.lows)
	vec.Series["atr"] = copyFloats(e.atrHist)

	return vec, nil
}

// BarsProcessed returns the number of bars fed through the engine
func (e *Engine) BarsProcessed() int {
	return e.processed
}

// Warm reports whether the slowest indicator in the standard set is ready
func (e *Engine) Warm() bool {
	return e.macd.IsReady() && e.adx.IsReady() && e.emaSlow.IsReady()
}

// Reset clears all indicator and lookback state
func (e *Engine) Reset() {
	e.registry.ResetAll()
	e.closes = e.closes[:0]
	e.highs = e.highs[:0]
	e.lows = e.lows[:0]
	e.atrHist = e.atrHist[:0]
	e.processed = 0
}

func (e *Engine) addSingleValue(vec *Vector, calc indicator.Calculator, name string, period int) {
	if !calc.IsReady() {
		return
	}
	val, err := calc.Value()
	if err != nil {
		return
	}
	vec.Groups[name] = map[string]float64{
		"value":  val,
		"period": float64(period),
	}
}

func pushBounded(s []float64, v float64, max int) []float64 {
	s = append(s, v)
	if len(s) > max {
		s = s[1:]
	}
	return s
}

func copyFloats(s []float64) []float64 {
	out := make([]float64, len(s))
	copy(out, s)
	return out
}
