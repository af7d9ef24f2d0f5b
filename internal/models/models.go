package models

import (
	"time"
)

// Side is the direction of an open position.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Valid reports whether the side is one of the two known directions.
func (s Side) Valid() bool {
	return s == SideLong || s == SideShort
}

// Bar represents a finalized OHLCV bar for one symbol and timeframe
type Bar struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"` // e.g., "1m", "5m", "1h"
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// Validate validates a Bar
func (b *Bar) Validate() error {
	if b.Symbol == "" {
		return ErrInvalidSymbol
	}
	if b.Timestamp.IsZero() {
		return ErrInvalidTimestamp
	}
	if b.High < b.Low {
		return ErrInvalidBar
	}
	if b.Volume < 0 {
		return ErrInvalidVolume
	}
	return nil
}

// Position represents one open trade. It exists only while the bot is in
// the ENTERED or MANAGE state and is mutated only through state-machine
// transitions and accepted stop updates.
type Position struct {
	Symbol       string    `json:"symbol"`
	Side         Side      `json:"side"`
	EntryPrice   float64   `json:"entry_price"`
	StopLoss     float64   `json:"stop_loss"`
	TakeProfit   float64   `json:"take_profit"`
	Quantity     float64   `json:"quantity"`
	BarsHeld     int       `json:"bars_held"`
	CurrentPrice float64   `json:"current_price"`
	EntryTime    time.Time `json:"entry_time"`
}

// Validate validates a Position
func (p *Position) Validate() error {
	if p.Symbol == "" {
		return ErrInvalidSymbol
	}
	if !p.Side.Valid() {
		return ErrInvalidSide
	}
	if p.EntryPrice <= 0 {
		return ErrInvalidPrice
	}
	if p.StopLoss <= 0 {
		return ErrInvalidStop
	}
	return nil
}

// UnrealizedPnL returns the open profit per unit at the current price.
func (p *Position) UnrealizedPnL() float64 {
	if p.Side == SideShort {
		return p.EntryPrice - p.CurrentPrice
	}
	return p.CurrentPrice - p.EntryPrice
}

// DecisionAction is the action the bot asks the execution layer to take.
type DecisionAction string

const (
	ActionEnter      DecisionAction = "enter"
	ActionExit       DecisionAction = "exit"
	ActionHold       DecisionAction = "hold"
	ActionUpdateStop DecisionAction = "update_stop"
)

// TradeDecision is the per-bar output of the bot, consumed by the
// order-execution component and by telemetry.
type TradeDecision struct {
	ID          string         `json:"id"`
	Symbol      string         `json:"symbol"`
	Action      DecisionAction `json:"action"`
	Side        Side           `json:"side,omitempty"`
	Price       float64        `json:"price,omitempty"`
	StopLoss    float64        `json:"stop_loss,omitempty"`
	Score       float64        `json:"score,omitempty"`
	Regime      string         `json:"regime,omitempty"`
	ReasonCodes []string       `json:"reason_codes,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}
