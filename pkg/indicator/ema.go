package indicator

import (
	"fmt"
	"math"

	"github.com/mohamedkhairy/trading-bot/internal/models"
)

// EMA calculates the Exponential Moving Average
// EMA = (Price - Previous EMA) * Multiplier + Previous EMA
// Multiplier = 2 / (Period + 1)
type EMA struct {
	period     int
	name       string
	multiplier float64
	value      float64
	ready      bool
	processed  int
}

// NewEMA creates a new EMA calculator with the specified period
func NewEMA(period int) (*EMA, error) {
	if period < 1 {
		return nil, fmt.Errorf("EMA period must be at least 1, got %d", period)
	}

	return &EMA{
		period:     period,
		name:       fmt.Sprintf("ema_%d", period),
		multiplier: 2.0 / float64(period+1),
	}, nil
}

// Name returns the indicator name
func (e *EMA) Name() string {
	return e.name
}

// Period returns the configured period
func (e *EMA) Period() int {
	return e.period
}

// Update processes a new bar and updates the EMA calculation
func (e *EMA) Update(bar *models.Bar) (float64, error) {
	if bar == nil {
		return 0, fmt.Errorf("bar cannot be nil")
	}

	return e.UpdatePrice(bar.Close), nil
}

// UpdatePrice feeds a raw price into the EMA. Used by indicators that
// smooth a derived series rather than the close (e.g., MACD signal line).
func (e *EMA) UpdatePrice(price float64) float64 {
	// For the first value, EMA = price
	if !e.ready {
		e.value = price
		e.ready = true
		e.processed++
		return e.value
	}

	e.value = (price-e.value)*e.multiplier + e.value
	e.processed++

	if math.IsNaN(e.value) || math.IsInf(e.value, 0) {
		e.value = price // Fallback to current price
	}

	return e.value
}

// Value returns the current EMA value
func (e *EMA) Value() (float64, error) {
	if !e.ready {
		return 0, fmt.Errorf("EMA not ready: need at least 1 bar")
	}
	return e.value, nil
}

// Reset clears the EMA state
func (e *EMA) Reset() {
	e.value = 0
	e.ready = false
	e.processed = 0
}

// IsReady returns true if the EMA has enough data
func (e *EMA) IsReady() bool {
	return e.ready
}

// WindowSize returns 1 (EMA can start immediately)
func (e *EMA) WindowSize() int {
	return 1
}

// BarsProcessed returns the number of bars processed
func (e *EMA) BarsProcessed() int {
	return e.processed
}
