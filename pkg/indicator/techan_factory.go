package indicator

import (
	"fmt"
	"time"

	"github.com/sdcoffey/techan"
)

// NewTechanRSI creates an RSI calculator backed by techan
func NewTechanRSI(period int, barPeriod time.Duration) *TechanCalculator {
	return NewTechanCalculator(
		fmt.Sprintf("rsi_%d", period),
		period+1,
		barPeriod,
		func(series *techan.TimeSeries) techan.Indicator {
			return techan.NewRelativeStrengthIndexIndicator(techan.NewClosePriceIndicator(series), period)
		},
	)
}

// NewTechanEMA creates an EMA calculator backed by techan
func NewTechanEMA(period int, barPeriod time.Duration) *TechanCalculator {
	return NewTechanCalculator(
		fmt.Sprintf("ema_%d", period),
		period,
		barPeriod,
		func(series *techan.TimeSeries) techan.Indicator {
			return techan.NewEMAIndicator(techan.NewClosePriceIndicator(series), period)
		},
	)
}

// NewTechanSMA creates an SMA calculator backed by techan
func NewTechanSMA(period int, barPeriod time.Duration) *TechanCalculator {
	return NewTechanCalculator(
		fmt.Sprintf("sma_%d", period),
		period,
		barPeriod,
		func(series *techan.TimeSeries) techan.Indicator {
			return techan.NewSimpleMovingAverage(techan.NewClosePriceIndicator(series), period)
		},
	)
}

// NewTechanMACD creates a MACD-line calculator backed by techan
func NewTechanMACD(fastPeriod, slowPeriod int, barPeriod time.Duration) *TechanCalculator {
	return NewTechanCalculator(
		fmt.Sprintf("macd_%d_%d", fastPeriod, slowPeriod),
		slowPeriod,
		barPeriod,
		func(series *techan.TimeSeries) techan.Indicator {
			return techan.NewMACDIndicator(techan.NewClosePriceIndicator(series), fastPeriod, slowPeriod)
		},
	)
}

// NewTechanBollingerUpper creates an upper Bollinger band calculator backed by techan
func NewTechanBollingerUpper(period int, sigma float64, barPeriod time.Duration) *TechanCalculator {
	return NewTechanCalculator(
		fmt.Sprintf("bb_upper_%d", period),
		period,
		barPeriod,
		func(series *techan.TimeSeries) techan.Indicator {
			return techan.NewBollingerUpperBandIndicator(techan.NewClosePriceIndicator(series), period, sigma)
		},
	)
}

// NewTechanBollingerLower creates a lower Bollinger band calculator backed by techan
func NewTechanBollingerLower(period int, sigma float64, barPeriod time.Duration) *TechanCalculator {
	return NewTechanCalculator(
		fmt.Sprintf("bb_lower_%d", period),
		period,
		barPeriod,
		func(series *techan.TimeSeries) techan.Indicator {
			return techan.NewBollingerLowerBandIndicator(techan.NewClosePriceIndicator(series), period, sigma)
		},
	)
}
