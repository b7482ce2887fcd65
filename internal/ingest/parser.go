// Package ingest discovers signal declaration files and admits valid,
// authorized signals into the tracker registry exactly once.
package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"signal-truth/internal/domain"
)

// declarationFile is the raw JSON shape of a signal declaration. Two
// generator conventions are accepted, so most fields carry an alias
// (signal_id/mission_id, entry_price/entry, stop_loss/sl,
// take_profit/tp). The canonical name wins when both are present.
type declarationFile struct {
	SignalID  string `json:"signal_id"`
	MissionID string `json:"mission_id"`

	Symbol    string `json:"symbol"`
	Direction string `json:"direction"`

	EntryPrice float64 `json:"entry_price"`
	Entry      float64 `json:"entry"`
	StopLoss   float64 `json:"stop_loss"`
	SL         float64 `json:"sl"`
	TakeProfit float64 `json:"take_profit"`
	TP         float64 `json:"tp"`

	Source string `json:"source"`
	Engine string `json:"engine"`

	UnitSystem string  `json:"unit_system"`
	CreatedAt  float64 `json:"created_at"` // epoch seconds, optional

	TCSScore       float64  `json:"tcs_score"`
	CitadelScore   *float64 `json:"citadel_score"`
	MLFilterPassed *bool    `json:"ml_filter_passed"`
}

// ParseDeclaration decodes one declaration file into a tracker. The
// tracker's StartedAt is set to now; structural validity (required
// fields, SL/TP sides) is checked later at admission.
func ParseDeclaration(data []byte, now time.Time) (*domain.SignalTracker, error) {
	var decl declarationFile
	if err := json.Unmarshal(data, &decl); err != nil {
		return nil, fmt.Errorf("decode declaration: %w", err)
	}

	id := firstNonEmpty(decl.SignalID, decl.MissionID)
	if id == "" {
		return nil, fmt.Errorf("declaration missing signal_id/mission_id")
	}

	createdAt := now
	if decl.CreatedAt > 0 {
		createdAt = time.Unix(int64(decl.CreatedAt), 0).UTC()
	}
	if createdAt.After(now) {
		createdAt = now
	}

	t := &domain.SignalTracker{
		ID:              id,
		Symbol:          strings.ToUpper(strings.TrimSpace(decl.Symbol)),
		Direction:       domain.Direction(strings.ToUpper(strings.TrimSpace(decl.Direction))),
		EntryPrice:      firstNonZero(decl.EntryPrice, decl.Entry),
		StopLoss:        firstNonZero(decl.StopLoss, decl.SL),
		TakeProfit:      firstNonZero(decl.TakeProfit, decl.TP),
		ConfidenceScore: decl.TCSScore,
		CreatedAt:       createdAt,
		StartedAt:       now,
		UnitSystem:      resolveUnitSystem(decl.UnitSystem, decl.Source, decl.Engine),
		SourceTag:       strings.TrimSpace(decl.Source),
		EngineTag:       strings.TrimSpace(decl.Engine),
		RiskModelScore:  decl.CitadelScore,
		FilterPassed:    decl.MLFilterPassed,
	}
	return t, nil
}

// resolveUnitSystem picks the unit system: an explicit field wins, then
// provenance tags containing "crypto" select crypto, otherwise forex.
func resolveUnitSystem(explicit, source, engine string) domain.UnitSystem {
	if u := domain.UnitSystem(strings.ToLower(strings.TrimSpace(explicit))); u.IsValid() {
		return u
	}
	tags := strings.ToLower(source + " " + engine)
	if strings.Contains(tags, "crypto") {
		return domain.UnitSystemCrypto
	}
	return domain.UnitSystemForex
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstNonZero(a, b float64) float64 {
	if a != 0 {
		return a
	}
	return b
}
