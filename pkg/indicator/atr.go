package indicator

import (
	"fmt"
	"math"

	"github.com/mohamedkhairy/trading-bot/internal/models"
)

// ATR calculates the Average True Range using Wilder's smoothing
// TR = max(High - Low, |High - PrevClose|, |Low - PrevClose|)
type ATR struct {
	period    int
	name      string
	prevClose float64
	atr       float64
	ready     bool
	processed int
	sumTR     float64 // accumulator for the initial simple average
}

// NewATR creates a new ATR calculator with the specified period (typically 14)
func NewATR(period int) (*ATR, error) {
	if period < 1 {
		return nil, fmt.Errorf("ATR period must be at least 1, got %d", period)
	}

	return &ATR{
		period: period,
		name:   fmt.Sprintf("atr_%d", period),
	}, nil
}

// Name returns the indicator name
func (a *ATR) Name() string {
	return a.name
}

// Period returns the configured period
func (a *ATR) Period() int {
	return a.period
}

// Update processes a new bar and updates the ATR calculation
func (a *ATR) Update(bar *models.Bar) (float64, error) {
	if bar == nil {
		return 0, fmt.Errorf("bar cannot be nil")
	}

	var tr float64
	if a.prevClose == 0 {
		// First bar: TR is just the bar range
		tr = bar.High - bar.Low
	} else {
		tr1 := bar.High - bar.Low
		tr2 := math.Abs(bar.High - a.prevClose)
		tr3 := math.Abs(bar.Low - a.prevClose)
		tr = math.Max(tr1, math.Max(tr2, tr3))
	}
	a.prevClose = bar.Close
	a.processed++

	if a.processed <= a.period {
		// Still accumulating: simple average of true ranges so far
		a.sumTR += tr
		a.atr = a.sumTR / float64(a.processed)
		if a.processed == a.period {
			a.ready = true
		}
	} else {
		// Wilder's smoothing: ATR = (Previous ATR * (Period - 1) + Current TR) / Period
		a.atr = ((a.atr * float64(a.period-1)) + tr) / float64(a.period)
	}

	if !a.ready {
		return 0, nil
	}
	return a.atr, nil
}

// Value returns the current ATR value
func (a *ATR) Value() (float64, error) {
	if !a.ready {
		return 0, fmt.Errorf("ATR not ready: need at least %d bars", a.period)
	}
	return a.atr, nil
}

// Reset clears the ATR state
func (a *ATR) Reset() {
	a.prevClose = 0
	a.atr = 0
	a.sumTR = 0
	a.ready = false
	a.processed = 0
}

// IsReady returns true if the ATR has enough data
func (a *ATR) IsReady() bool {
	return a.ready
}

// WindowSize returns the number of bars required
func (a *ATR) WindowSize() int {
	return a.period
}

// BarsProcessed returns the number of bars processed
func (a *ATR) BarsProcessed() int {
	return a.processed
}
