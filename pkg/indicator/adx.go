package indicator

import (
	"fmt"
	"math"

	"github.com/mohamedkhairy/trading-bot/internal/models"
)

// ADX calculates the Average Directional Index (Wilder)
// Directional movement is smoothed into +DI/-DI; their normalized spread (DX)
// is smoothed again into ADX. Exposes value/plus_di/minus_di via Values().
type ADX struct {
	period    int
	name      string
	prevHigh  float64
	prevLow   float64
	prevClose float64

	smoothTR      float64
	smoothPlusDM  float64
	smoothMinusDM float64
	adx           float64
	plusDI        float64
	minusDI       float64

	dxSum     float64 // accumulator for the initial ADX average
	dxCount   int
	ready     bool
	processed int
}

// NewADX creates a new ADX calculator with the specified period (typically 14)
func NewADX(period int) (*ADX, error) {
	if period < 2 {
		return nil, fmt.Errorf("ADX period must be at least 2, got %d", period)
	}

	return &ADX{
		period: period,
		name:   fmt.Sprintf("adx_%d", period),
	}, nil
}

// Name returns the indicator name
func (a *ADX) Name() string {
	return a.name
}

// Period returns the configured period
func (a *ADX) Period() int {
	return a.period
}

// Update processes a new bar and updates the ADX calculation
func (a *ADX) Update(bar *models.Bar) (float64, error) {
	if bar == nil {
		return 0, fmt.Errorf("bar cannot be nil")
	}

	if a.processed == 0 {
		a.prevHigh = bar.High
		a.prevLow = bar.Low
		a.prevClose = bar.Close
		a.processed++
		return 0, nil
	}

	upMove := bar.High - a.prevHigh
	downMove := a.prevLow - bar.Low

	var plusDM, minusDM float64
	if upMove > downMove && upMove > 0 {
		plusDM = upMove
	}
	if downMove > upMove && downMove > 0 {
		minusDM = downMove
	}

	tr1 := bar.High - bar.Low
	tr2 := math.Abs(bar.High - a.prevClose)
	tr3 := math.Abs(bar.Low - a.prevClose)
	tr := math.Max(tr1, math.Max(tr2, tr3))

	a.prevHigh = bar.High
	a.prevLow = bar.Low
	a.prevClose = bar.Close
	a.processed++

	if a.processed <= a.period+1 {
		// Accumulation phase: simple sums seed the smoothed values
		a.smoothTR += tr
		a.smoothPlusDM += plusDM
		a.smoothMinusDM += minusDM
		if a.processed < a.period+1 {
			return 0, nil
		}
	} else {
		// Wilder's smoothing
		a.smoothTR = a.smoothTR - (a.smoothTR / float64(a.period)) + tr
		a.smoothPlusDM = a.smoothPlusDM - (a.smoothPlusDM / float64(a.period)) + plusDM
		a.smoothMinusDM = a.smoothMinusDM - (a.smoothMinusDM / float64(a.period)) + minusDM
	}

	if a.smoothTR == 0 {
		return 0, nil
	}

	a.plusDI = 100 * a.smoothPlusDM / a.smoothTR
	a.minusDI = 100 * a.smoothMinusDM / a.smoothTR

	diSum := a.plusDI + a.minusDI
	var dx float64
	if diSum > 0 {
		dx = 100 * math.Abs(a.plusDI-a.minusDI) / diSum
	}

	if !a.ready {
		a.dxSum += dx
		a.dxCount++
		if a.dxCount >= a.period {
			a.adx = a.dxSum / float64(a.period)
			a.ready = true
		}
		if !a.ready {
			return 0, nil
		}
	} else {
		a.adx = ((a.adx * float64(a.period-1)) + dx) / float64(a.period)
	}

	return a.adx, nil
}

// Value returns the current ADX value
func (a *ADX) Value() (float64, error) {
	if !a.ready {
		return 0, fmt.Errorf("ADX not ready: need at least %d bars", a.WindowSize())
	}
	return a.adx, nil
}

// Values returns the ADX value along with +DI and -DI
func (a *ADX) Values() (map[string]float64, error) {
	if !a.ready {
		return nil, fmt.Errorf("ADX not ready: need at least %d bars", a.WindowSize())
	}
	return map[string]float64{
		"value":    a.adx,
		"plus_di":  a.plusDI,
		"minus_di": a.minusDI,
	}, nil
}

// Reset clears the ADX state
func (a *ADX) Reset() {
	*a = ADX{period: a.period, name: a.name}
}

// IsReady returns true if the ADX has enough data
func (a *ADX) IsReady() bool {
	return a.ready
}

// WindowSize returns the number of bars required
func (a *ADX) WindowSize() int {
	return 2*a.period + 1
}

// BarsProcessed returns the number of bars processed
func (a *ADX) BarsProcessed() int {
	return a.processed
}
