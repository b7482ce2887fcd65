package postgres

import (
	"context"
	"fmt"
	"time"

	"signal-truth/internal/domain"
	"signal-truth/internal/observability"
	"signal-truth/internal/storage"
)

// ResultStore implements storage.ResultStore using PostgreSQL.
type ResultStore struct {
	pool *Pool
}

// NewResultStore creates a new ResultStore.
func NewResultStore(pool *Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ResultStore = (*ResultStore)(nil)

const resultColumns = `
	record_id, signal_id, symbol, direction,
	entry_price, stop_loss, take_profit, confidence_score,
	unit_system, source_tag, engine_tag,
	outcome, exit_reason, exit_price, runtime_seconds, delta, observed_price,
	created_at, started_at, completed_at,
	citadel_score, ml_filter_passed
`

// Insert adds a new result. Returns ErrDuplicateKey if record_id exists.
func (s *ResultStore) Insert(ctx context.Context, r *domain.Result) error {
	if r == nil || r.RecordID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO signal_results (` + resultColumns + `) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11,
			$12, $13, $14, $15, $16, $17,
			$18, $19, $20,
			$21, $22
		)
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		r.RecordID, r.SignalID, r.Symbol, string(r.Direction),
		r.EntryPrice, r.StopLoss, r.TakeProfit, r.ConfidenceScore,
		string(r.UnitSystem), r.SourceTag, r.EngineTag,
		string(r.Outcome), r.ExitReason, r.ExitPrice, r.RuntimeSeconds, r.Delta, r.ObservedPrice,
		r.CreatedAt, r.StartedAt, r.CompletedAt,
		r.RiskModelScore, r.FilterPassed,
	)
	observability.RecordDBQuery("postgres", "insert_result", time.Since(start).Seconds(), err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert signal result: %w", err)
	}
	return nil
}

// GetByID retrieves a result by its record ID. Returns ErrNotFound if not exists.
func (s *ResultStore) GetByID(ctx context.Context, recordID string) (*domain.Result, error) {
	query := `SELECT ` + resultColumns + ` FROM signal_results WHERE record_id = $1`
	return s.queryOne(ctx, query, recordID)
}

// GetBySignalID retrieves the result for a signal. Returns ErrNotFound if not exists.
func (s *ResultStore) GetBySignalID(ctx context.Context, signalID string) (*domain.Result, error) {
	query := `SELECT ` + resultColumns + ` FROM signal_results WHERE signal_id = $1`
	return s.queryOne(ctx, query, signalID)
}

// GetRecent retrieves the newest results for a unit system, ordered by
// completion time DESC, up to limit.
func (s *ResultStore) GetRecent(ctx context.Context, unit domain.UnitSystem, limit int) ([]*domain.Result, error) {
	query := `
		SELECT ` + resultColumns + `
		FROM signal_results
		WHERE unit_system = $1
		ORDER BY completed_at DESC
		LIMIT $2
	`
	return s.queryMany(ctx, query, string(unit), limit)
}

// GetByTimeRange retrieves results completed within [start, end]
// (inclusive, unix seconds), ordered by completion time ASC.
func (s *ResultStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Result, error) {
	query := `
		SELECT ` + resultColumns + `
		FROM signal_results
		WHERE completed_at >= to_timestamp($1) AND completed_at <= to_timestamp($2)
		ORDER BY completed_at ASC
	`
	return s.queryMany(ctx, query, start, end)
}

func (s *ResultStore) queryOne(ctx context.Context, query string, args ...any) (*domain.Result, error) {
	row := s.pool.QueryRow(ctx, query, args...)
	r, err := scanResult(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("query signal result: %w", err)
	}
	return r, nil
}

func (s *ResultStore) queryMany(ctx context.Context, query string, args ...any) ([]*domain.Result, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query signal results: %w", err)
	}
	defer rows.Close()

	var results []*domain.Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signal result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal results: %w", err)
	}
	return results, nil
}

// rowScanner covers pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (*domain.Result, error) {
	var r domain.Result
	var direction, unitSystem, outcome string

	err := row.Scan(
		&r.RecordID, &r.SignalID, &r.Symbol, &direction,
		&r.EntryPrice, &r.StopLoss, &r.TakeProfit, &r.ConfidenceScore,
		&unitSystem, &r.SourceTag, &r.EngineTag,
		&outcome, &r.ExitReason, &r.ExitPrice, &r.RuntimeSeconds, &r.Delta, &r.ObservedPrice,
		&r.CreatedAt, &r.StartedAt, &r.CompletedAt,
		&r.RiskModelScore, &r.FilterPassed,
	)
	if err != nil {
		return nil, err
	}

	r.Direction = domain.Direction(direction)
	r.UnitSystem = domain.UnitSystem(unitSystem)
	r.Outcome = domain.Outcome(outcome)
	return &r, nil
}
