// Package truthlog maintains the append-only audit trail of resolved
// signal outcomes: one JSONL partition per unit system, every record
// schema-complete, every write flushed before it is acknowledged.
package truthlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"signal-truth/internal/domain"
	"signal-truth/internal/observability"
)

// Truth log errors.
var (
	// ErrUnauthorized is returned when a result's provenance fails the
	// allow-list. This check runs again here even though ingestion
	// already enforced it; a result with untrusted provenance must never
	// reach disk.
	ErrUnauthorized = errors.New("result provenance not on allow-list")

	// ErrIncomplete is returned when a result is missing a mandatory
	// field.
	ErrIncomplete = errors.New("result missing mandatory field")
)

// UnknownSentinel fills optional metadata that upstream never supplied,
// so every record carries the same keys.
const UnknownSentinel = "unknown"

// Partition file names, one per unit system.
const (
	forexPartition  = "truth_log_forex.jsonl"
	cryptoPartition = "truth_log_crypto.jsonl"
)

// PartitionPath returns the log file path for a unit system.
func PartitionPath(dir string, unit domain.UnitSystem) string {
	name := forexPartition
	if unit == domain.UnitSystemCrypto {
		name = cryptoPartition
	}
	return filepath.Join(dir, name)
}

// Record is the on-disk schema: one JSON object per line, field set
// stable across the process lifetime. Optional metadata is string-typed
// so an absent value can be written as the "unknown" sentinel instead
// of a dropped key.
type Record struct {
	RecordID        string  `json:"record_id"`
	SignalID        string  `json:"signal_id"`
	Symbol          string  `json:"symbol"`
	Direction       string  `json:"direction"`
	EntryPrice      float64 `json:"entry_price"`
	StopLoss        float64 `json:"stop_loss"`
	TakeProfit      float64 `json:"take_profit"`
	ConfidenceScore float64 `json:"confidence_score"`
	UnitSystem      string  `json:"unit_system"`
	Source          string  `json:"source"`
	Engine          string  `json:"engine"`

	Outcome        string  `json:"outcome"`
	ExitReason     string  `json:"exit_reason"`
	ExitPrice      float64 `json:"exit_price"`
	RuntimeSeconds int64   `json:"runtime_seconds"`
	Delta          float64 `json:"delta"`
	ObservedPrice  float64 `json:"observed_price"`

	CreatedAt   string `json:"created_at"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at"`

	RiskModelScore string `json:"citadel_score"`
	FilterPassed   string `json:"ml_filter_passed"`
}

// Logger appends results to the partitioned truth log. Writes are
// serialized and fsynced; a crash right after Log returns never loses
// the record.
type Logger struct {
	dir         string
	allowedTags func() []string
	logger      *log.Logger
	mu          sync.Mutex
}

// NewLogger creates a truth logger writing under dir. allowedTags is
// read per write so a config reload takes effect without restart.
func NewLogger(dir string, allowedTags func() []string, logger *log.Logger) *Logger {
	if logger == nil {
		logger = log.New(os.Stderr, "[truthlog] ", log.LstdFlags)
	}
	return &Logger{
		dir:         dir,
		allowedTags: allowedTags,
		logger:      logger,
	}
}

// Log validates and appends one result to its unit system's partition.
func (l *Logger) Log(result *domain.Result) error {
	if err := validateMandatory(result); err != nil {
		observability.RecordTruthLogRejection("incomplete")
		return err
	}

	if !l.authorized(result) {
		observability.RecordTruthLogRejection("unauthorized")
		l.logger.Printf("REFUSED to log %s: source=%q engine=%q not on allow-list",
			result.SignalID, result.SourceTag, result.EngineTag)
		return fmt.Errorf("%w: source=%q engine=%q", ErrUnauthorized, result.SourceTag, result.EngineTag)
	}

	line, err := json.Marshal(toRecord(result))
	if err != nil {
		return fmt.Errorf("encode truth record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	path := PartitionPath(l.dir, result.UnitSystem)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open truth log %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append truth log %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync truth log %s: %w", path, err)
	}

	observability.RecordResultLogged(string(result.Outcome), string(result.UnitSystem))
	return nil
}

func (l *Logger) authorized(result *domain.Result) bool {
	allowed := make(map[string]struct{})
	for _, tag := range l.allowedTags() {
		allowed[tag] = struct{}{}
	}
	if _, ok := allowed[result.SourceTag]; !ok {
		return false
	}
	if result.EngineTag != "" {
		if _, ok := allowed[result.EngineTag]; !ok {
			return false
		}
	}
	return true
}

func validateMandatory(r *domain.Result) error {
	switch {
	case r == nil:
		return fmt.Errorf("%w: nil result", ErrIncomplete)
	case r.RecordID == "":
		return fmt.Errorf("%w: record_id", ErrIncomplete)
	case r.SignalID == "":
		return fmt.Errorf("%w: signal_id", ErrIncomplete)
	case r.Symbol == "":
		return fmt.Errorf("%w: symbol", ErrIncomplete)
	case !r.Direction.IsValid():
		return fmt.Errorf("%w: direction", ErrIncomplete)
	case !r.UnitSystem.IsValid():
		return fmt.Errorf("%w: unit_system", ErrIncomplete)
	case r.Outcome == "":
		return fmt.Errorf("%w: outcome", ErrIncomplete)
	case r.ExitReason == "":
		return fmt.Errorf("%w: exit_reason", ErrIncomplete)
	case r.CompletedAt.IsZero():
		return fmt.Errorf("%w: completed_at", ErrIncomplete)
	}
	return nil
}

// toRecord maps a Result to the stable on-disk schema, filling absent
// optional metadata with the unknown sentinel.
func toRecord(r *domain.Result) Record {
	rec := Record{
		RecordID:        r.RecordID,
		SignalID:        r.SignalID,
		Symbol:          r.Symbol,
		Direction:       string(r.Direction),
		EntryPrice:      r.EntryPrice,
		StopLoss:        r.StopLoss,
		TakeProfit:      r.TakeProfit,
		ConfidenceScore: r.ConfidenceScore,
		UnitSystem:      string(r.UnitSystem),
		Source:          r.SourceTag,
		Engine:          r.EngineTag,

		Outcome:        string(r.Outcome),
		ExitReason:     r.ExitReason,
		ExitPrice:      r.ExitPrice,
		RuntimeSeconds: r.RuntimeSeconds,
		Delta:          r.Delta,
		ObservedPrice:  r.ObservedPrice,

		CreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339),
		StartedAt:   r.StartedAt.UTC().Format(time.RFC3339),
		CompletedAt: r.CompletedAt.UTC().Format(time.RFC3339),

		RiskModelScore: UnknownSentinel,
		FilterPassed:   UnknownSentinel,
	}

	if rec.Engine == "" {
		rec.Engine = UnknownSentinel
	}
	if r.RiskModelScore != nil {
		rec.RiskModelScore = strconv.FormatFloat(*r.RiskModelScore, 'f', -1, 64)
	}
	if r.FilterPassed != nil {
		rec.FilterPassed = strconv.FormatBool(*r.FilterPassed)
	}
	return rec
}
