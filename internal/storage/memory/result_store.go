package memory

import (
	"context"
	"sort"
	"sync"

	"signal-truth/internal/domain"
	"signal-truth/internal/storage"
)

// ResultStore is an in-memory implementation of storage.ResultStore.
type ResultStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Result // keyed by record_id
}

// NewResultStore creates a new in-memory result store.
func NewResultStore() *ResultStore {
	return &ResultStore{
		data: make(map[string]*domain.Result),
	}
}

// Insert adds a new result. Returns ErrDuplicateKey if record_id exists.
func (s *ResultStore) Insert(_ context.Context, r *domain.Result) error {
	if r == nil || r.RecordID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RecordID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *r
	s.data[r.RecordID] = &cp
	return nil
}

// GetByID retrieves a result by its record ID. Returns ErrNotFound if not exists.
func (s *ResultStore) GetByID(_ context.Context, recordID string) (*domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[recordID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	cp := *r
	return &cp, nil
}

// GetBySignalID retrieves the result for a signal. Returns ErrNotFound if not exists.
func (s *ResultStore) GetBySignalID(_ context.Context, signalID string) (*domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.data {
		if r.SignalID == signalID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

// GetRecent retrieves the newest results for a unit system, ordered by
// completion time DESC, up to limit.
func (s *ResultStore) GetRecent(_ context.Context, unit domain.UnitSystem, limit int) ([]*domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Result
	for _, r := range s.data {
		if r.UnitSystem == unit {
			cp := *r
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CompletedAt.After(result[j].CompletedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// GetByTimeRange retrieves results completed within [start, end]
// (inclusive, unix seconds), ordered by completion time ASC.
func (s *ResultStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Result
	for _, r := range s.data {
		ts := r.CompletedAt.Unix()
		if ts >= start && ts <= end {
			cp := *r
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CompletedAt.Before(result[j].CompletedAt)
	})

	return result, nil
}

var _ storage.ResultStore = (*ResultStore)(nil)
