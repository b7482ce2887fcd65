package domain

import "time"

// OutcomeAggregate summarizes resolved results for one unit system and
// source tag: counts per outcome class, win rate, and delta statistics
// in that unit system's measure (pips or dollars).
type OutcomeAggregate struct {
	UnitSystem UnitSystem
	SourceTag  string

	TotalSignals int
	Wins         int
	Losses       int
	Timeouts     int

	WinRate            float64 // wins / decided (timeouts excluded)
	NetDelta           float64
	MeanDelta          float64
	MeanRuntimeSeconds float64

	ComputedAt time.Time
}
