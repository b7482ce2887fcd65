// Package evaluate applies the outcome policy to active trackers and
// seals terminal ones into immutable results.
package evaluate

import (
	"strings"

	"signal-truth/internal/domain"
)

// Pip sizes. JPY-quoted pairs tick in hundredths, everything else in
// ten-thousandths.
const (
	pipSizeDefault = 0.0001
	pipSizeJPY     = 0.01
)

// PipSize returns the pip size for a forex symbol.
func PipSize(symbol string) float64 {
	if strings.Contains(strings.ToUpper(symbol), "JPY") {
		return pipSizeJPY
	}
	return pipSizeDefault
}

// ComputeDelta measures the signed gain from entry to exit: pips for
// forex, raw currency units for crypto. Positive is always profit,
// regardless of direction.
func ComputeDelta(t *domain.SignalTracker, exitPrice float64) float64 {
	move := exitPrice - t.EntryPrice
	if t.Direction == domain.DirectionSell {
		move = t.EntryPrice - exitPrice
	}
	if t.UnitSystem == domain.UnitSystemForex {
		return move / PipSize(t.Symbol)
	}
	return move
}
