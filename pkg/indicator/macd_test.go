package indicator

import (
	"math"
	"testing"
)

func TestMACD_NewMACD(t *testing.T) {
	macd, err := NewMACD(12, 26, 9)
	if err != nil {
		t.Fatalf("Failed to create MACD: %v", err)
	}
	if macd.Name() != "macd_12_26_9" {
		t.Errorf("Expected name 'macd_12_26_9', got '%s'", macd.Name())
	}

	if _, err := NewMACD(26, 12, 9); err == nil {
		t.Error("Expected error for fast >= slow")
	}
}

func TestMACD_FlatPricesGiveZero(t *testing.T) {
	macd, _ := NewMACD(12, 26, 9)

	for i := 0; i < 40; i++ {
		if _, err := macd.Update(barAt(i, 100.0)); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
	}

	if !macd.IsReady() {
		t.Fatal("MACD should be ready after 40 bars")
	}

	vals, err := macd.Values()
	if err != nil {
		t.Fatalf("Values() failed: %v", err)
	}
	for _, key := range []string{"value", "signal", "histogram"} {
		if math.Abs(vals[key]) > 1e-9 {
			t.Errorf("Expected %s ~0 for flat prices, got %f", key, vals[key])
		}
	}
}

func TestMACD_UptrendIsPositive(t *testing.T) {
	macd, _ := NewMACD(12, 26, 9)

	for i := 0; i < 60; i++ {
		if _, err := macd.Update(barAt(i, 100.0+float64(i))); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
	}

	val, err := macd.Value()
	if err != nil {
		t.Fatalf("Value() failed: %v", err)
	}
	if val <= 0 {
		t.Errorf("Expected positive MACD in a steady uptrend, got %f", val)
	}
}

func TestMACD_Reset(t *testing.T) {
	macd, _ := NewMACD(12, 26, 9)

	for i := 0; i < 40; i++ {
		_, _ = macd.Update(barAt(i, 100.0+float64(i)))
	}
	macd.Reset()

	if macd.IsReady() {
		t.Error("MACD should not be ready after reset")
	}
	if _, err := macd.Values(); err == nil {
		t.Error("Expected error after reset")
	}
}
