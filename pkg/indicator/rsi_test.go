package indicator

import (
	"testing"
	"time"

	"github.com/mohamedkhairy/trading-bot/internal/models"
)

func barAt(i int, close float64) *models.Bar {
	return &models.Bar{
		Symbol:    "BTCUSDT",
		Timeframe: "1m",
		Timestamp: time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute),
		Open:      close,
		High:      close,
		Low:       close,
		Close:     close,
		Volume:    1000,
	}
}

func TestRSI_NewRSI(t *testing.T) {
	rsi, err := NewRSI(14)
	if err != nil {
		t.Fatalf("Failed to create RSI: %v", err)
	}
	if rsi.Name() != "rsi_14" {
		t.Errorf("Expected name 'rsi_14', got '%s'", rsi.Name())
	}

	_, err = NewRSI(1)
	if err == nil {
		t.Error("Expected error for period < 2")
	}
}

func TestRSI_Update(t *testing.T) {
	rsi, _ := NewRSI(14)

	val, err := rsi.Update(barAt(0, 100.0))
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if val != 0 {
		t.Errorf("Expected 0 for first bar, got %f", val)
	}
	if rsi.IsReady() {
		t.Error("RSI should not be ready after first bar")
	}

	// 14 more bars with steady gains
	for i := 1; i <= 14; i++ {
		if _, err = rsi.Update(barAt(i, 100.0+float64(i))); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
	}

	if !rsi.IsReady() {
		t.Error("RSI should be ready after 15 bars")
	}

	val, err = rsi.Value()
	if err != nil {
		t.Fatalf("Value() failed: %v", err)
	}
	// All gains, no losses
	if val != 100.0 {
		t.Errorf("Expected RSI 100 for all gains, got %f", val)
	}
}

func TestRSI_MixedMoves(t *testing.T) {
	rsi, _ := NewRSI(14)

	closes := []float64{100, 101, 100.5, 102, 101.5, 103, 102, 104, 103.5, 105, 104, 106, 105.5, 107, 106.5, 108}
	for i, c := range closes {
		if _, err := rsi.Update(barAt(i, c)); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
	}

	val, err := rsi.Value()
	if err != nil {
		t.Fatalf("Value() failed: %v", err)
	}
	if val <= 50 || val >= 100 {
		t.Errorf("Expected RSI between 50 and 100 for a mild uptrend, got %f", val)
	}
}

func TestRSI_Reset(t *testing.T) {
	rsi, _ := NewRSI(14)

	for i := 0; i < 16; i++ {
		_, _ = rsi.Update(barAt(i, 100.0+float64(i)))
	}

	rsi.Reset()

	if rsi.IsReady() {
		t.Error("RSI should not be ready after reset")
	}
	if _, err := rsi.Value(); err == nil {
		t.Error("Expected error after reset")
	}
	if rsi.BarsProcessed() != 0 {
		t.Errorf("Expected 0 bars processed after reset, got %d", rsi.BarsProcessed())
	}
}
