package features

import (
	"time"
)

// Vector is the immutable per-bar snapshot of computed indicator values.
// It is created once per bar by the Engine and never mutated afterwards;
// lookback state stays inside the Engine.
type Vector struct {
	Symbol    string
	Timeframe string
	Timestamp time.Time

	// Groups maps indicator name to its named fields. Every group carries
	// at least "value" and "period"; multi-output indicators add their
	// auxiliary fields (e.g. macd exposes value/signal/histogram).
	Groups map[string]map[string]float64

	// Series holds lookback windows for percentile and structural queries:
	// "close", "high", "low", "atr". Slices are copies owned by the vector.
	Series map[string][]float64

	// Bar-level fields, exposed to expressions as the "price" group
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Group returns the named indicator group, or nil if the indicator is not
// ready yet for this bar.
func (v *Vector) Group(name string) map[string]float64 {
	return v.Groups[name]
}

// Field returns a single indicator field. The second result is false when
// the group is absent or the field is unknown.
func (v *Vector) Field(group, field string) (float64, bool) {
	g, ok := v.Groups[group]
	if !ok {
		return 0, false
	}
	val, ok := g[field]
	return val, ok
}
