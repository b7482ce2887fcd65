// Package inspect renders read-only summaries of the truth log.
package inspect

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"signal-truth/internal/domain"
	"signal-truth/internal/truthlog"
)

// Partition selectors accepted by Load.
const (
	TypeForex  = "forex"
	TypeCrypto = "crypto"
	TypeBoth   = "both"
)

// Load reads the requested partitions, merges them, sorts by completion
// time, and keeps the newest count records. count <= 0 keeps everything.
func Load(dir, which string, count int) ([]truthlog.Record, error) {
	var units []domain.UnitSystem
	switch which {
	case TypeForex:
		units = []domain.UnitSystem{domain.UnitSystemForex}
	case TypeCrypto:
		units = []domain.UnitSystem{domain.UnitSystemCrypto}
	case TypeBoth, "":
		units = []domain.UnitSystem{domain.UnitSystemForex, domain.UnitSystemCrypto}
	default:
		return nil, fmt.Errorf("unknown log type %q (want forex, crypto, or both)", which)
	}

	var merged []truthlog.Record
	for _, unit := range units {
		records, err := truthlog.ReadPartition(dir, unit, 0)
		if err != nil {
			return nil, err
		}
		merged = append(merged, records...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return completedAt(merged[i]).Before(completedAt(merged[j]))
	})

	if count > 0 && len(merged) > count {
		merged = merged[len(merged)-count:]
	}
	return merged, nil
}

func completedAt(rec truthlog.Record) time.Time {
	ts, err := time.Parse(time.RFC3339, rec.CompletedAt)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// Render formats records as a fixed-width table followed by outcome
// counts and aggregate deltas per unit system.
func Render(records []truthlog.Record) string {
	if len(records) == 0 {
		return "no records\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-20s  %-14s  %-8s  %-4s  %-7s  %-11s  %12s  %10s  %-6s\n",
		"COMPLETED", "SIGNAL", "SYMBOL", "DIR", "OUTCOME", "REASON", "EXIT", "DELTA", "UNIT")
	b.WriteString(strings.Repeat("-", 106))
	b.WriteByte('\n')

	var wins, losses, timeouts int
	var forexDelta, cryptoDelta float64
	var haveForex, haveCrypto bool

	for _, rec := range records {
		fmt.Fprintf(&b, "%-20s  %-14s  %-8s  %-4s  %-7s  %-11s  %12.5f  %+10.2f  %-6s\n",
			shortTime(rec.CompletedAt), clip(rec.SignalID, 14), rec.Symbol, rec.Direction,
			rec.Outcome, rec.ExitReason, rec.ExitPrice, rec.Delta, rec.UnitSystem)

		switch domain.Outcome(rec.Outcome) {
		case domain.OutcomeWin:
			wins++
		case domain.OutcomeLoss:
			losses++
		case domain.OutcomeTimeout:
			timeouts++
		}
		switch domain.UnitSystem(rec.UnitSystem) {
		case domain.UnitSystemForex:
			forexDelta += rec.Delta
			haveForex = true
		case domain.UnitSystemCrypto:
			cryptoDelta += rec.Delta
			haveCrypto = true
		}
	}

	b.WriteByte('\n')
	fmt.Fprintf(&b, "records: %d   wins: %d   losses: %d   timeouts: %d\n",
		len(records), wins, losses, timeouts)
	if haveForex {
		fmt.Fprintf(&b, "net forex: %+.1f pips\n", forexDelta)
	}
	if haveCrypto {
		fmt.Fprintf(&b, "net crypto: %+.2f\n", cryptoDelta)
	}
	return b.String()
}

func shortTime(rfc3339 string) string {
	ts, err := time.Parse(time.RFC3339, rfc3339)
	if err != nil {
		return rfc3339
	}
	return ts.UTC().Format("2006-01-02 15:04:05")
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
