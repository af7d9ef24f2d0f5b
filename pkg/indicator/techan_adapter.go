package indicator

import (
	"fmt"
	"time"

	"github.com/mohamedkhairy/trading-bot/internal/models"
	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"
)

// TechanCalculator wraps a techan indicator to implement Calculator.
// Used for indicators the streaming implementations do not cover and for
// cross-checking the streaming values in tests.
type TechanCalculator struct {
	name      string
	series    *techan.TimeSeries
	build     func(series *techan.TimeSeries) techan.Indicator
	indicator techan.Indicator
	period    int
	barPeriod time.Duration
	ready     bool
}

// NewTechanCalculator creates a new techan-backed calculator. The build
// function binds the indicator to the calculator's own TimeSeries.
func NewTechanCalculator(
	name string,
	period int,
	barPeriod time.Duration,
	build func(series *techan.TimeSeries) techan.Indicator,
) *TechanCalculator {
	series := techan.NewTimeSeries()

	return &TechanCalculator{
		name:      name,
		series:    series,
		build:     build,
		indicator: build(series),
		period:    period,
		barPeriod: barPeriod,
	}
}

func (t *TechanCalculator) Name() string {
	return t.name
}

// Period returns the configured period
func (t *TechanCalculator) Period() int {
	return t.period
}

func (t *TechanCalculator) Update(bar *models.Bar) (float64, error) {
	if bar == nil {
		return 0, fmt.Errorf("bar cannot be nil")
	}

	timePeriod := techan.NewTimePeriod(bar.Timestamp, t.barPeriod)
	candle := techan.NewCandle(timePeriod)
	candle.OpenPrice = big.NewDecimal(bar.Open)
	candle.MaxPrice = big.NewDecimal(bar.High)
	candle.MinPrice = big.NewDecimal(bar.Low)
	candle.ClosePrice = big.NewDecimal(bar.Close)
	candle.Volume = big.NewDecimal(float64(bar.Volume))

	t.series.AddCandle(candle)

	lastIndex := t.series.LastIndex()
	if lastIndex < 0 {
		return 0, nil
	}

	value := t.indicator.Calculate(lastIndex).Float()
	if value != value { // NaN
		return 0, nil
	}

	if lastIndex+1 >= t.period {
		t.ready = true
	}
	if !t.ready {
		return 0, nil
	}
	return value, nil
}

func (t *TechanCalculator) Value() (float64, error) {
	if !t.ready {
		return 0, fmt.Errorf("indicator not ready: need at least %d bars", t.period)
	}
	return t.indicator.Calculate(t.series.LastIndex()).Float(), nil
}

func (t *TechanCalculator) Reset() {
	t.series = techan.NewTimeSeries()
	t.indicator = t.build(t.series)
	t.ready = false
}

func (t *TechanCalculator) IsReady() bool {
	return t.ready
}

// WindowSize returns the number of bars required for this indicator
func (t *TechanCalculator) WindowSize() int {
	return t.period
}

// BarsProcessed returns the number of bars processed so far
func (t *TechanCalculator) BarsProcessed() int {
	return t.series.LastIndex() + 1
}
