package domain

import (
	"testing"
	"time"
)

func validBuyTracker() *SignalTracker {
	return &SignalTracker{
		ID:         "sig-1",
		Symbol:     "EURUSD",
		Direction:  DirectionBuy,
		EntryPrice: 1.1000,
		StopLoss:   1.0980,
		TakeProfit: 1.1040,
		UnitSystem: UnitSystemForex,
		SourceTag:  "pulse_fx",
		EngineTag:  "pulse_fx",
		CreatedAt:  time.Now(),
		StartedAt:  time.Now(),
	}
}

func TestSignalTracker_ValidateBuy(t *testing.T) {
	tr := validBuyTracker()
	if err := tr.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestSignalTracker_ValidateSell(t *testing.T) {
	tr := validBuyTracker()
	tr.Direction = DirectionSell
	tr.StopLoss = 1.1020
	tr.TakeProfit = 1.0960
	if err := tr.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestSignalTracker_RejectsWrongSideLevels(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*SignalTracker)
	}{
		{"buy stop above entry", func(tr *SignalTracker) { tr.StopLoss = 1.1010 }},
		{"buy target below entry", func(tr *SignalTracker) { tr.TakeProfit = 1.0990 }},
		{"zero entry", func(tr *SignalTracker) { tr.EntryPrice = 0 }},
		{"zero stop", func(tr *SignalTracker) { tr.StopLoss = 0 }},
		{"zero target", func(tr *SignalTracker) { tr.TakeProfit = 0 }},
		{"missing symbol", func(tr *SignalTracker) { tr.Symbol = "" }},
		{"missing id", func(tr *SignalTracker) { tr.ID = "" }},
		{"bad direction", func(tr *SignalTracker) { tr.Direction = "HOLD" }},
		{"bad unit system", func(tr *SignalTracker) { tr.UnitSystem = "metals" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := validBuyTracker()
			tc.mutate(tr)
			if err := tr.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestSignalTracker_RejectsSellWrongSide(t *testing.T) {
	tr := validBuyTracker()
	tr.Direction = DirectionSell
	// Levels still on BUY sides.
	if err := tr.Validate(); err == nil {
		t.Error("expected validation error for SELL with BUY-side levels")
	}
}
