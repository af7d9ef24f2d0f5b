package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBar_Validate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		bar     Bar
		wantErr error
	}{
		{
			name: "valid bar",
			bar:  Bar{Symbol: "BTCUSDT", Timeframe: "1m", Timestamp: now, Open: 100, High: 105, Low: 99, Close: 104, Volume: 1000},
		},
		{
			name:    "missing symbol",
			bar:     Bar{Timeframe: "1m", Timestamp: now, Open: 100, High: 105, Low: 99, Close: 104},
			wantErr: ErrInvalidSymbol,
		},
		{
			name:    "zero timestamp",
			bar:     Bar{Symbol: "BTCUSDT", Open: 100, High: 105, Low: 99, Close: 104},
			wantErr: ErrInvalidTimestamp,
		},
		{
			name:    "high below low",
			bar:     Bar{Symbol: "BTCUSDT", Timestamp: now, Open: 100, High: 98, Low: 99, Close: 98},
			wantErr: ErrInvalidBar,
		},
		{
			name:    "negative volume",
			bar:     Bar{Symbol: "BTCUSDT", Timestamp: now, Open: 100, High: 105, Low: 99, Close: 104, Volume: -1},
			wantErr: ErrInvalidVolume,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bar.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPosition_Validate(t *testing.T) {
	valid := Position{Symbol: "BTCUSDT", Side: SideLong, EntryPrice: 100, StopLoss: 95, Quantity: 1}
	assert.NoError(t, valid.Validate())

	badSide := valid
	badSide.Side = "SIDEWAYS"
	assert.ErrorIs(t, badSide.Validate(), ErrInvalidSide)

	noStop := valid
	noStop.StopLoss = 0
	assert.ErrorIs(t, noStop.Validate(), ErrInvalidStop)
}

func TestPosition_UnrealizedPnL(t *testing.T) {
	long := Position{Side: SideLong, EntryPrice: 100, CurrentPrice: 104}
	assert.InDelta(t, 4.0, long.UnrealizedPnL(), 1e-9)

	short := Position{Side: SideShort, EntryPrice: 100, CurrentPrice: 104}
	assert.InDelta(t, -4.0, short.UnrealizedPnL(), 1e-9)
}
