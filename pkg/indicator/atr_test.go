package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/mohamedkhairy/trading-bot/internal/models"
)

func rangeBar(i int, high, low, close float64) *models.Bar {
	return &models.Bar{
		Symbol:    "BTCUSDT",
		Timeframe: "1m",
		Timestamp: time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute),
		Open:      close,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    1000,
	}
}

func TestATR_ConstantRange(t *testing.T) {
	atr, err := NewATR(14)
	if err != nil {
		t.Fatalf("Failed to create ATR: %v", err)
	}

	// Bars with a constant 2-point range, no gaps: every TR is 2
	for i := 0; i < 20; i++ {
		if _, err := atr.Update(rangeBar(i, 101, 99, 100)); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
	}

	if !atr.IsReady() {
		t.Fatal("ATR should be ready after 20 bars")
	}

	val, err := atr.Value()
	if err != nil {
		t.Fatalf("Value() failed: %v", err)
	}
	if math.Abs(val-2.0) > 1e-9 {
		t.Errorf("Expected ATR 2.0 for constant range, got %f", val)
	}
}

func TestATR_GapCountsInTrueRange(t *testing.T) {
	atr, _ := NewATR(2)

	_, _ = atr.Update(rangeBar(0, 101, 99, 100))
	// Gap up: high-low is 2, but |low - prevClose| = 5 dominates via |high - prevClose| = 7
	if _, err := atr.Update(rangeBar(1, 107, 105, 106)); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	val, err := atr.Value()
	if err != nil {
		t.Fatalf("Value() failed: %v", err)
	}
	// TR sequence: 2 (first bar), 7 (gap) -> simple average 4.5
	if math.Abs(val-4.5) > 1e-9 {
		t.Errorf("Expected ATR 4.5 after gap, got %f", val)
	}
}

func TestATR_NotReady(t *testing.T) {
	atr, _ := NewATR(14)

	for i := 0; i < 5; i++ {
		_, _ = atr.Update(rangeBar(i, 101, 99, 100))
	}

	if atr.IsReady() {
		t.Error("ATR should not be ready after 5 bars")
	}
	if _, err := atr.Value(); err == nil {
		t.Error("Expected error before ready")
	}
}
