package indicator

import (
	"fmt"

	"github.com/mohamedkhairy/trading-bot/internal/models"
)

// MACD calculates Moving Average Convergence Divergence
// MACD line = EMA(fast) - EMA(slow); signal = EMA(signalPeriod) of the MACD
// line; histogram = MACD - signal. All three outputs are exposed via Values().
type MACD struct {
	name         string
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
	fastEMA      *EMA
	slowEMA      *EMA
	signalEMA    *EMA
	macd         float64
	signal       float64
	histogram    float64
	processed    int
}

// NewMACD creates a new MACD calculator (typically 12, 26, 9)
func NewMACD(fastPeriod, slowPeriod, signalPeriod int) (*MACD, error) {
	if fastPeriod < 1 || slowPeriod < 1 || signalPeriod < 1 {
		return nil, fmt.Errorf("MACD periods must be at least 1, got %d/%d/%d", fastPeriod, slowPeriod, signalPeriod)
	}
	if fastPeriod >= slowPeriod {
		return nil, fmt.Errorf("MACD fast period must be shorter than slow period, got %d/%d", fastPeriod, slowPeriod)
	}

	fast, err := NewEMA(fastPeriod)
	if err != nil {
		return nil, err
	}
	slow, err := NewEMA(slowPeriod)
	if err != nil {
		return nil, err
	}
	signal, err := NewEMA(signalPeriod)
	if err != nil {
		return nil, err
	}

	return &MACD{
		name:         fmt.Sprintf("macd_%d_%d_%d", fastPeriod, slowPeriod, signalPeriod),
		fastPeriod:   fastPeriod,
		slowPeriod:   slowPeriod,
		signalPeriod: signalPeriod,
		fastEMA:      fast,
		slowEMA:      slow,
		signalEMA:    signal,
	}, nil
}

// Name returns the indicator name
func (m *MACD) Name() string {
	return m.name
}

// Period returns the slow period (the window that gates readiness)
func (m *MACD) Period() int {
	return m.slowPeriod
}

// Update processes a new bar and updates the MACD calculation
func (m *MACD) Update(bar *models.Bar) (float64, error) {
	if bar == nil {
		return 0, fmt.Errorf("bar cannot be nil")
	}

	fast := m.fastEMA.UpdatePrice(bar.Close)
	slow := m.slowEMA.UpdatePrice(bar.Close)
	m.macd = fast - slow
	m.signal = m.signalEMA.UpdatePrice(m.macd)
	m.histogram = m.macd - m.signal
	m.processed++

	if !m.IsReady() {
		return 0, nil
	}
	return m.macd, nil
}

// Value returns the current MACD line value
func (m *MACD) Value() (float64, error) {
	if !m.IsReady() {
		return 0, fmt.Errorf("MACD not ready: need at least %d bars", m.WindowSize())
	}
	return m.macd, nil
}

// Values returns the MACD line, signal line, and histogram
func (m *MACD) Values() (map[string]float64, error) {
	if !m.IsReady() {
		return nil, fmt.Errorf("MACD not ready: need at least %d bars", m.WindowSize())
	}
	return map[string]float64{
		"value":     m.macd,
		"signal":    m.signal,
		"histogram": m.histogram,
	}, nil
}

// Reset clears the MACD state
func (m *MACD) Reset() {
	m.fastEMA.Reset()
	m.slowEMA.Reset()
	m.signalEMA.Reset()
	m.macd = 0
	m.signal = 0
	m.histogram = 0
	m.processed = 0
}

// IsReady returns true if the MACD has enough data
func (m *MACD) IsReady() bool {
	return m.processed >= m.WindowSize()
}

// WindowSize returns the number of bars required for a settled signal line
func (m *MACD) WindowSize() int {
	return m.slowPeriod + m.signalPeriod
}

// BarsProcessed returns the number of bars processed
func (m *MACD) BarsProcessed() int {
	return m.processed
}
