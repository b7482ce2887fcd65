// Package registry holds the single source of truth for which signals
// are currently being tracked. All mutation goes through one mutex;
// iteration works on point-in-time snapshots so evaluation (which does
// network I/O) never blocks ingestion.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"signal-truth/internal/domain"
)

// Registry errors.
var (
	// ErrAlreadyProcessed is returned when admitting a signal id that is
	// active or has already been resolved. Ids are never reused.
	ErrAlreadyProcessed = errors.New("signal already processed")

	// ErrRejected is returned (wrapped, with a reason) when a tracker
	// fails admission validation.
	ErrRejected = errors.New("signal rejected")

	// ErrNotActive is returned when resolving an id that is not in the
	// active set.
	ErrNotActive = errors.New("signal not active")
)

// TrackerRegistry owns all live SignalTracker instances. The processed
// set is permanent for the life of the process (and can be seeded from
// the truth log on startup), so a resolved id can never be re-admitted.
type TrackerRegistry struct {
	mu        sync.Mutex
	active    map[string]*domain.SignalTracker
	processed map[string]struct{}
}

// New creates an empty TrackerRegistry.
func New() *TrackerRegistry {
	return &TrackerRegistry{
		active:    make(map[string]*domain.SignalTracker),
		processed: make(map[string]struct{}),
	}
}

// Admit validates and registers a new tracker. Returns nil on admission,
// ErrAlreadyProcessed for a known id, or an error wrapping ErrRejected
// when validation fails. The registry stores its own copy.
func (r *TrackerRegistry) Admit(t *domain.SignalTracker) error {
	if t == nil {
		return fmt.Errorf("%w: nil tracker", ErrRejected)
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, seen := r.processed[t.ID]; seen {
		return ErrAlreadyProcessed
	}
	if _, live := r.active[t.ID]; live {
		return ErrAlreadyProcessed
	}

	cp := *t
	r.active[t.ID] = &cp
	return nil
}

// Snapshot returns copies of all active trackers. The lock is released
// before the caller touches the slice, so long-running evaluation never
// holds up Admit or Resolve.
func (r *TrackerRegistry) Snapshot() []*domain.SignalTracker {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.SignalTracker, 0, len(r.active))
	for _, t := range r.active {
		cp := *t
		out = append(out, &cp)
	}
	return out
}

// Resolve removes id from the active set and marks it permanently
// processed. It must be called before the Result is handed to the truth
// logger so a slow write can never race a duplicate admission.
func (r *TrackerRegistry) Resolve(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, live := r.active[id]; !live {
		return ErrNotActive
	}
	delete(r.active, id)
	r.processed[id] = struct{}{}
	return nil
}

// SeedProcessed marks ids as already processed without requiring them to
// be active. Used on startup to replay the truth log so restarts do not
// re-admit resolved signals.
func (r *TrackerRegistry) SeedProcessed(ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		if id != "" {
			r.processed[id] = struct{}{}
		}
	}
}

// ActiveCount returns the number of trackers currently being watched.
func (r *TrackerRegistry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
