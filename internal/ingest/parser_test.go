package ingest

import (
	"testing"
	"time"

	"signal-truth/internal/domain"
)

var parseNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestParseDeclaration_SignalConvention(t *testing.T) {
	data := []byte(`{
		"signal_id": "sig-001",
		"symbol": "eurusd",
		"direction": "buy",
		"entry_price": 1.1000,
		"stop_loss": 1.0980,
		"take_profit": 1.1040,
		"source": "pulse_fx",
		"tcs_score": 87.5,
		"created_at": 1748779200
	}`)

	tracker, err := ParseDeclaration(data, parseNow)
	if err != nil {
		t.Fatalf("ParseDeclaration: %v", err)
	}
	if tracker.ID != "sig-001" {
		t.Errorf("ID = %q", tracker.ID)
	}
	if tracker.Symbol != "EURUSD" {
		t.Errorf("Symbol = %q, want normalized upper case", tracker.Symbol)
	}
	if tracker.Direction != domain.DirectionBuy {
		t.Errorf("Direction = %q", tracker.Direction)
	}
	if tracker.EntryPrice != 1.1000 || tracker.StopLoss != 1.0980 || tracker.TakeProfit != 1.1040 {
		t.Errorf("prices = %v/%v/%v", tracker.EntryPrice, tracker.StopLoss, tracker.TakeProfit)
	}
	if tracker.UnitSystem != domain.UnitSystemForex {
		t.Errorf("UnitSystem = %q", tracker.UnitSystem)
	}
	if tracker.ConfidenceScore != 87.5 {
		t.Errorf("ConfidenceScore = %v", tracker.ConfidenceScore)
	}
	if !tracker.StartedAt.Equal(parseNow) {
		t.Errorf("StartedAt = %v, want %v", tracker.StartedAt, parseNow)
	}
	if tracker.StartedAt.Before(tracker.CreatedAt) {
		t.Errorf("StartedAt %v before CreatedAt %v", tracker.StartedAt, tracker.CreatedAt)
	}
}

func TestParseDeclaration_MissionConvention(t *testing.T) {
	data := []byte(`{
		"mission_id": "m-42",
		"symbol": "BTCUSD",
		"direction": "SELL",
		"entry": 60000,
		"sl": 61000,
		"tp": 58000,
		"source": "pulse_crypto",
		"citadel_score": 0.91,
		"ml_filter_passed": true
	}`)

	tracker, err := ParseDeclaration(data, parseNow)
	if err != nil {
		t.Fatalf("ParseDeclaration: %v", err)
	}
	if tracker.ID != "m-42" {
		t.Errorf("ID = %q", tracker.ID)
	}
	if tracker.EntryPrice != 60000 || tracker.StopLoss != 61000 || tracker.TakeProfit != 58000 {
		t.Errorf("alias prices = %v/%v/%v", tracker.EntryPrice, tracker.StopLoss, tracker.TakeProfit)
	}
	if tracker.UnitSystem != domain.UnitSystemCrypto {
		t.Errorf("UnitSystem = %q, want crypto inferred from tag", tracker.UnitSystem)
	}
	if tracker.RiskModelScore == nil || *tracker.RiskModelScore != 0.91 {
		t.Errorf("RiskModelScore = %v", tracker.RiskModelScore)
	}
	if tracker.FilterPassed == nil || !*tracker.FilterPassed {
		t.Errorf("FilterPassed = %v", tracker.FilterPassed)
	}
}

func TestParseDeclaration_CanonicalWinsOverAlias(t *testing.T) {
	data := []byte(`{
		"signal_id": "sig-002",
		"mission_id": "m-002",
		"symbol": "EURUSD",
		"direction": "BUY",
		"entry_price": 1.2000,
		"entry": 1.1000,
		"stop_loss": 1.1980,
		"take_profit": 1.2040,
		"source": "pulse_fx"
	}`)

	tracker, err := ParseDeclaration(data, parseNow)
	if err != nil {
		t.Fatalf("ParseDeclaration: %v", err)
	}
	if tracker.ID != "sig-002" {
		t.Errorf("ID = %q, want canonical signal_id", tracker.ID)
	}
	if tracker.EntryPrice != 1.2000 {
		t.Errorf("EntryPrice = %v, want canonical entry_price", tracker.EntryPrice)
	}
}

func TestParseDeclaration_MissingID(t *testing.T) {
	data := []byte(`{"symbol": "EURUSD", "direction": "BUY"}`)
	if _, err := ParseDeclaration(data, parseNow); err == nil {
		t.Fatal("expected error for declaration without an id")
	}
}

func TestParseDeclaration_BadJSON(t *testing.T) {
	if _, err := ParseDeclaration([]byte("{not json"), parseNow); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestResolveUnitSystem_ExplicitWins(t *testing.T) {
	got := resolveUnitSystem("forex", "pulse_crypto", "")
	if got != domain.UnitSystemForex {
		t.Errorf("resolveUnitSystem = %q, want explicit forex", got)
	}
}
