// Package metrics computes outcome aggregates over truth log records.
package metrics

import (
	"errors"
	"sort"
	"time"

	"signal-truth/internal/domain"
	"signal-truth/internal/truthlog"
)

// ErrNoResults is returned when no records are available for aggregation.
var ErrNoResults = errors.New("no results available for aggregation")

// aggregateKey groups records by unit system and source tag.
type aggregateKey struct {
	unit   domain.UnitSystem
	source string
}

// ComputeAggregates folds truth log records into one aggregate per
// (unit_system, source_tag) pair. Win rate counts only decided
// outcomes; timeouts carry a zero delta and are excluded from it.
func ComputeAggregates(records []truthlog.Record, computedAt time.Time) ([]*domain.OutcomeAggregate, error) {
	if len(records) == 0 {
		return nil, ErrNoResults
	}

	groups := make(map[aggregateKey][]truthlog.Record)
	for _, rec := range records {
		key := aggregateKey{unit: domain.UnitSystem(rec.UnitSystem), source: rec.Source}
		groups[key] = append(groups[key], rec)
	}

	aggregates := make([]*domain.OutcomeAggregate, 0, len(groups))
	for key, group := range groups {
		aggregates = append(aggregates, computeOne(key, group, computedAt))
	}

	sort.Slice(aggregates, func(i, j int) bool {
		if aggregates[i].UnitSystem != aggregates[j].UnitSystem {
			return aggregates[i].UnitSystem < aggregates[j].UnitSystem
		}
		return aggregates[i].SourceTag < aggregates[j].SourceTag
	})
	return aggregates, nil
}

func computeOne(key aggregateKey, records []truthlog.Record, computedAt time.Time) *domain.OutcomeAggregate {
	agg := &domain.OutcomeAggregate{
		UnitSystem: key.unit,
		SourceTag:  key.source,
		ComputedAt: computedAt,
	}

	var totalRuntime int64
	for _, rec := range records {
		agg.TotalSignals++
		agg.NetDelta += rec.Delta
		totalRuntime += rec.RuntimeSeconds

		switch domain.Outcome(rec.Outcome) {
		case domain.OutcomeWin:
			agg.Wins++
		case domain.OutcomeLoss:
			agg.Losses++
		case domain.OutcomeTimeout:
			agg.Timeouts++
		}
	}

	if decided := agg.Wins + agg.Losses; decided > 0 {
		agg.WinRate = float64(agg.Wins) / float64(decided)
	}
	agg.MeanDelta = agg.NetDelta / float64(agg.TotalSignals)
	agg.MeanRuntimeSeconds = float64(totalRuntime) / float64(agg.TotalSignals)
	return agg
}
