package domain

import (
	"fmt"
	"time"
)

// Direction is the side of a trading signal.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// String returns the string representation of Direction.
func (d Direction) String() string {
	return string(d)
}

// IsValid checks if the direction is a valid value.
func (d Direction) IsValid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// UnitSystem selects how outcome deltas are measured: pips for forex,
// raw currency units for crypto. It also selects the truth log partition.
type UnitSystem string

const (
	UnitSystemForex  UnitSystem = "forex"
	UnitSystemCrypto UnitSystem = "crypto"
)

// String returns the string representation of UnitSystem.
func (u UnitSystem) String() string {
	return string(u)
}

// IsValid checks if the unit system is a valid value.
func (u UnitSystem) IsValid() bool {
	return u == UnitSystemForex || u == UnitSystemCrypto
}

// SignalTracker is an open signal under observation. Exactly one tracker
// per signal id may ever exist over the engine's lifetime; the registry
// enforces this with a permanent processed set.
type SignalTracker struct {
	ID              string     // globally unique, dedup key
	Symbol          string     // e.g. EURUSD, BTCUSD
	Direction       Direction  // BUY | SELL
	EntryPrice      float64    // declared entry level
	StopLoss        float64    // exit level on the losing side
	TakeProfit      float64    // exit level on the winning side
	ConfidenceScore float64    // upstream score, passed through opaquely
	CreatedAt       time.Time  // signal authoring time
	StartedAt       time.Time  // tracking start time, >= CreatedAt
	UnitSystem      UnitSystem // forex | crypto
	SourceTag       string     // generator provenance, authorization-checked
	EngineTag       string     // engine provenance, authorization-checked

	// Opaque provenance carried into the Result.
	RiskModelScore *float64 // upstream risk-model score (nullable)
	FilterPassed   *bool    // upstream ML filter verdict (nullable)
}

// Validate checks structural invariants: required fields present and
// SL/TP on the correct side of the entry price for the direction.
func (t *SignalTracker) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("missing signal id")
	}
	if t.Symbol == "" {
		return fmt.Errorf("missing symbol")
	}
	if !t.Direction.IsValid() {
		return fmt.Errorf("invalid direction %q", t.Direction)
	}
	if !t.UnitSystem.IsValid() {
		return fmt.Errorf("invalid unit system %q", t.UnitSystem)
	}
	if t.EntryPrice == 0 || t.StopLoss == 0 || t.TakeProfit == 0 {
		return fmt.Errorf("entry/stop/target must all be non-zero")
	}

	switch t.Direction {
	case DirectionBuy:
		if t.StopLoss >= t.EntryPrice {
			return fmt.Errorf("BUY stop loss %.5f not below entry %.5f", t.StopLoss, t.EntryPrice)
		}
		if t.TakeProfit <= t.EntryPrice {
			return fmt.Errorf("BUY take profit %.5f not above entry %.5f", t.TakeProfit, t.EntryPrice)
		}
	case DirectionSell:
		if t.StopLoss <= t.EntryPrice {
			return fmt.Errorf("SELL stop loss %.5f not above entry %.5f", t.StopLoss, t.EntryPrice)
		}
		if t.TakeProfit >= t.EntryPrice {
			return fmt.Errorf("SELL take profit %.5f not below entry %.5f", t.TakeProfit, t.EntryPrice)
		}
	}

	return nil
}
