package domain

import "time"

// Outcome classifies a resolved signal.
type Outcome string

const (
	OutcomeWin     Outcome = "WIN"
	OutcomeLoss    Outcome = "LOSS"
	OutcomeTimeout Outcome = "TIMEOUT"
)

// Exit reason codes. Exactly one is recorded per Result.
const (
	ExitReasonStopLoss   = "STOP_LOSS"
	ExitReasonTakeProfit = "TAKE_PROFIT"
	ExitReasonTimeClose  = "TIME_CLOSE"
	ExitReasonTimeout    = "TIMEOUT"
)

// Result is the terminal, immutable record of a resolved tracker.
// Results are write-once: they are appended to the truth log and
// optionally mirrored to archive stores, never updated.
type Result struct {
	RecordID        string     // deterministic hash, see idhash
	SignalID        string     // tracker id
	Symbol          string
	Direction       Direction
	EntryPrice      float64
	StopLoss        float64
	TakeProfit      float64
	ConfidenceScore float64
	UnitSystem      UnitSystem
	SourceTag       string
	EngineTag       string

	Outcome        Outcome // WIN | LOSS | TIMEOUT
	ExitReason     string  // STOP_LOSS | TAKE_PROFIT | TIME_CLOSE | TIMEOUT
	ExitPrice      float64 // level the position is deemed to have exited at
	RuntimeSeconds int64   // StartedAt -> CompletedAt
	Delta          float64 // pips (forex) or currency units (crypto), signed
	ObservedPrice  float64 // market price that triggered resolution

	CreatedAt   time.Time // signal authoring time
	StartedAt   time.Time // tracking start
	CompletedAt time.Time // resolution time

	// Provenance, carried through opaquely.
	RiskModelScore *float64
	FilterPassed   *bool
}
