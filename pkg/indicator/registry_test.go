package indicator

import (
	"testing"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()

	rsi, _ := NewRSI(14)
	if err := reg.Register(rsi); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// Duplicate names are rejected
	dup, _ := NewRSI(14)
	if err := reg.Register(dup); err == nil {
		t.Error("Expected error for duplicate registration")
	}

	got, err := reg.Get("rsi_14")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name() != "rsi_14" {
		t.Errorf("Expected rsi_14, got %s", got.Name())
	}

	if _, err := reg.Get("missing"); err == nil {
		t.Error("Expected error for unknown calculator")
	}
}

func TestRegistry_EachPreservesOrder(t *testing.T) {
	reg := NewRegistry()

	ema20, _ := NewEMA(20)
	ema50, _ := NewEMA(50)
	rsi, _ := NewRSI(14)
	for _, c := range []Calculator{ema20, ema50, rsi} {
		if err := reg.Register(c); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	var seen []string
	_ = reg.Each(func(calc Calculator) error {
		seen = append(seen, calc.Name())
		return nil
	})

	want := []string{"ema_20", "ema_50", "rsi_14"}
	if len(seen) != len(want) {
		t.Fatalf("Expected %d calculators, got %d", len(want), len(seen))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], seen[i])
		}
	}
}

func TestRegistry_ResetAll(t *testing.T) {
	reg := NewRegistry()
	ema, _ := NewEMA(20)
	_ = reg.Register(ema)

	_, _ = ema.Update(barAt(0, 100))
	if !ema.IsReady() {
		t.Fatal("EMA should be ready")
	}

	reg.ResetAll()
	if ema.IsReady() {
		t.Error("EMA should not be ready after ResetAll")
	}
}
