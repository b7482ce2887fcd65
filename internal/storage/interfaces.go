package storage

import (
	"context"

	"signal-truth/internal/domain"
)

// ResultStore provides access to resolved signal result storage. The
// truth log remains the record of authority; stores mirror it for
// queryability.
type ResultStore interface {
	// Insert adds a new result. Returns ErrDuplicateKey if record_id exists.
	Insert(ctx context.Context, r *domain.Result) error

	// GetByID retrieves a result by its record ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, recordID string) (*domain.Result, error)

	// GetBySignalID retrieves the result for a signal. Returns ErrNotFound if not exists.
	GetBySignalID(ctx context.Context, signalID string) (*domain.Result, error)

	// GetRecent retrieves the newest results for a unit system, ordered
	// by completion time DESC, up to limit.
	GetRecent(ctx context.Context, unit domain.UnitSystem, limit int) ([]*domain.Result, error)

	// GetByTimeRange retrieves results completed within [start, end]
	// (inclusive), ordered by completion time ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Result, error)
}

// OutcomeAggregateStore provides access to outcome aggregate storage.
type OutcomeAggregateStore interface {
	// Insert adds a new aggregate snapshot.
	Insert(ctx context.Context, a *domain.OutcomeAggregate) error

	// InsertBulk adds multiple aggregates. Fails the entire batch on any error.
	InsertBulk(ctx context.Context, aggregates []*domain.OutcomeAggregate) error

	// GetByKey retrieves the latest aggregate for a unit system and
	// source tag. Returns ErrNotFound if not exists.
	GetByKey(ctx context.Context, unit domain.UnitSystem, sourceTag string) (*domain.OutcomeAggregate, error)

	// GetAll retrieves the latest aggregate per key.
	GetAll(ctx context.Context) ([]*domain.OutcomeAggregate, error)
}
