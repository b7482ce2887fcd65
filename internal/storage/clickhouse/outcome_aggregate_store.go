package clickhouse

import (
	"context"
	"fmt"
	"time"

	"signal-truth/internal/domain"
	"signal-truth/internal/storage"
)

// OutcomeAggregateStore implements storage.OutcomeAggregateStore using
// ClickHouse. The table is a ReplacingMergeTree keyed by unit system
// and source tag, so re-running aggregation supersedes old snapshots
// instead of erroring.
type OutcomeAggregateStore struct {
	conn *Conn
}

// NewOutcomeAggregateStore creates a new OutcomeAggregateStore.
func NewOutcomeAggregateStore(conn *Conn) *OutcomeAggregateStore {
	return &OutcomeAggregateStore{conn: conn}
}

// Compile-time interface check.
var _ storage.OutcomeAggregateStore = (*OutcomeAggregateStore)(nil)

// Insert adds one aggregate snapshot.
func (s *OutcomeAggregateStore) Insert(ctx context.Context, a *domain.OutcomeAggregate) error {
	return s.InsertBulk(ctx, []*domain.OutcomeAggregate{a})
}

// InsertBulk adds multiple aggregates in one batch.
func (s *OutcomeAggregateStore) InsertBulk(ctx context.Context, aggregates []*domain.OutcomeAggregate) error {
	if len(aggregates) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO outcome_aggregates (
			unit_system, source_tag,
			total_signals, wins, losses, timeouts,
			win_rate, net_delta, mean_delta, mean_runtime_seconds,
			computed_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare aggregate batch: %w", err)
	}

	for _, a := range aggregates {
		if a == nil || !a.UnitSystem.IsValid() {
			return storage.ErrInvalidInput
		}
		computedAt := a.ComputedAt
		if computedAt.IsZero() {
			computedAt = time.Now().UTC()
		}
		err := batch.Append(
			string(a.UnitSystem), a.SourceTag,
			uint32(a.TotalSignals), uint32(a.Wins), uint32(a.Losses), uint32(a.Timeouts),
			a.WinRate, a.NetDelta, a.MeanDelta, a.MeanRuntimeSeconds,
			computedAt,
		)
		if err != nil {
			return fmt.Errorf("append aggregate: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send aggregate batch: %w", err)
	}
	return nil
}

const aggregateSelect = `
	SELECT
		unit_system, source_tag,
		total_signals, wins, losses, timeouts,
		win_rate, net_delta, mean_delta, mean_runtime_seconds,
		computed_at
	FROM outcome_aggregates FINAL
`

// GetByKey retrieves the latest aggregate for a unit system and source
// tag. Returns ErrNotFound if not exists.
func (s *OutcomeAggregateStore) GetByKey(ctx context.Context, unit domain.UnitSystem, sourceTag string) (*domain.OutcomeAggregate, error) {
	rows, err := s.conn.Query(ctx, aggregateSelect+` WHERE unit_system = $1 AND source_tag = $2`, string(unit), sourceTag)
	if err != nil {
		return nil, fmt.Errorf("query aggregate: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, storage.ErrNotFound
	}
	return scanAggregate(rows)
}

// GetAll retrieves the latest aggregate per key.
func (s *OutcomeAggregateStore) GetAll(ctx context.Context) ([]*domain.OutcomeAggregate, error) {
	rows, err := s.conn.Query(ctx, aggregateSelect+` ORDER BY unit_system, source_tag`)
	if err != nil {
		return nil, fmt.Errorf("query aggregates: %w", err)
	}
	defer rows.Close()

	var aggregates []*domain.OutcomeAggregate
	for rows.Next() {
		a, err := scanAggregate(rows)
		if err != nil {
			return nil, err
		}
		aggregates = append(aggregates, a)
	}
	return aggregates, rows.Err()
}

type aggregateScanner interface {
	Scan(dest ...any) error
}

func scanAggregate(rows aggregateScanner) (*domain.OutcomeAggregate, error) {
	var (
		a                              domain.OutcomeAggregate
		unitSystem                     string
		total, wins, losses, timeouts  uint32
	)
	err := rows.Scan(
		&unitSystem, &a.SourceTag,
		&total, &wins, &losses, &timeouts,
		&a.WinRate, &a.NetDelta, &a.MeanDelta, &a.MeanRuntimeSeconds,
		&a.ComputedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan aggregate: %w", err)
	}
	a.UnitSystem = domain.UnitSystem(unitSystem)
	a.TotalSignals = int(total)
	a.Wins = int(wins)
	a.Losses = int(losses)
	a.Timeouts = int(timeouts)
	return &a, nil
}
