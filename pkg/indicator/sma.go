package indicator

import (
	"fmt"

	"github.com/mohamedkhairy/trading-bot/internal/models"
)

// SMA calculates the Simple Moving Average over a rolling window of closes
type SMA struct {
	period    int
	name      string
	window    []float64
	sum       float64
	processed int
}

// NewSMA creates a new SMA calculator with the specified period
func NewSMA(period int) (*SMA, error) {
	if period < 1 {
		return nil, fmt.Errorf("SMA period must be at least 1, got %d", period)
	}

	return &SMA{
		period: period,
		name:   fmt.Sprintf("sma_%d", period),
		window: make([]float64, 0, period),
	}, nil
}

// Name returns the indicator name
func (s *SMA) Name() string {
	return s.name
}

// Period returns the configured period
func (s *SMA) Period() int {
	return s.period
}

// Update processes a new bar and updates the SMA calculation
func (s *SMA) Update(bar *models.Bar) (float64, error) {
	if bar == nil {
		return 0, fmt.Errorf("bar cannot be nil")
	}

	s.window = append(s.window, bar.Close)
	s.sum += bar.Close
	s.processed++

	if len(s.window) > s.period {
		s.sum -= s.window[0]
		s.window = s.window[1:]
	}

	if len(s.window) < s.period {
		return 0, nil
	}

	return s.sum / float64(s.period), nil
}

// Value returns the current SMA value
func (s *SMA) Value() (float64, error) {
	if len(s.window) < s.period {
		return 0, fmt.Errorf("SMA not ready: need at least %d bars", s.period)
	}
	return s.sum / float64(s.period), nil
}

// Reset clears the SMA state
func (s *SMA) Reset() {
	s.window = s.window[:0]
	s.sum = 0
	s.processed = 0
}

// IsReady returns true if the SMA has enough data
func (s *SMA) IsReady() bool {
	return len(s.window) >= s.period
}

// WindowSize returns the number of bars required
func (s *SMA) WindowSize() int {
	return s.period
}

// BarsProcessed returns the number of bars processed
func (s *SMA) BarsProcessed() int {
	return s.processed
}
