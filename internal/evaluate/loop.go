package evaluate

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"signal-truth/internal/config"
	"signal-truth/internal/domain"
	"signal-truth/internal/idhash"
	"signal-truth/internal/marketdata"
	"signal-truth/internal/observability"
	"signal-truth/internal/registry"
)

// TruthSink receives every sealed Result. A write failure here is fatal
// for the daemon: a lost record corrupts the audit trail, so the error
// propagates instead of being swallowed.
type TruthSink interface {
	Log(result *domain.Result) error
}

// Mirror is an optional archive store for sealed results. Mirror
// failures are logged and tolerated; the truth log remains the record
// of authority.
type Mirror interface {
	Insert(ctx context.Context, result *domain.Result) error
}

// Loop drives the outcome policy: each tick it refreshes market data,
// snapshots the registry, and resolves any tracker that hit a terminal
// condition. It is the only writer to the truth sink.
type Loop struct {
	registry *registry.TrackerRegistry
	provider marketdata.Provider
	cfg      *config.Watcher
	truth    TruthSink
	mirrors  []Mirror
	logger   *log.Logger
	now      func() time.Time
}

// NewLoop creates an evaluation loop.
func NewLoop(reg *registry.TrackerRegistry, provider marketdata.Provider, cfg *config.Watcher, truth TruthSink, mirrors []Mirror, logger *log.Logger) *Loop {
	if logger == nil {
		logger = log.New(os.Stderr, "[evaluate] ", log.LstdFlags)
	}
	return &Loop{
		registry: reg,
		provider: provider,
		cfg:      cfg,
		truth:    truth,
		mirrors:  mirrors,
		logger:   logger,
		now:      time.Now,
	}
}

// Run evaluates on every tick until ctx is canceled or a truth log
// write fails. The returned error is nil only on clean shutdown.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.cfg.Current().EvalInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := l.tick(ctx); err != nil {
				return err
			}
		}
	}
}

// tick runs one evaluation pass. Feed failures and missing symbols are
// transient: the affected trackers are skipped this tick and stay
// active. Only a truth log write failure returns an error.
func (l *Loop) tick(ctx context.Context) error {
	observability.RecordEvaluationTick()

	start := l.now()
	err := l.provider.Refresh(ctx)
	observability.RecordFeedPoll(l.now().Sub(start).Seconds(), err)
	if err != nil {
		l.logger.Printf("market feed refresh failed, serving cached quotes: %v", err)
	} else {
		observability.MarkFeedPollSuccess(l.now().Unix())
	}

	// Read fresh each tick so a config edit takes effect immediately.
	autoClose := l.cfg.AutoCloseSeconds()

	for _, tracker := range l.registry.Snapshot() {
		quote, ok := l.provider.Quote(tracker.Symbol)
		if !ok {
			observability.RecordQuoteMiss()
			continue
		}

		now := l.now().UTC()
		decision, terminal := Decide(tracker, quote, now, autoClose)
		if !terminal {
			continue
		}

		if err := l.registry.Resolve(tracker.ID); err != nil {
			l.logger.Printf("resolve %s: %v", tracker.ID, err)
			continue
		}

		result := sealResult(tracker, decision, now)
		l.logger.Printf("resolved %s %s %s exit=%.5f delta=%+.2f (%s)",
			result.SignalID, result.Symbol, result.Outcome,
			result.ExitPrice, result.Delta, result.ExitReason)
		observability.RecordResolved(string(result.Outcome), string(result.UnitSystem))

		if err := l.truth.Log(result); err != nil {
			observability.RecordTruthLogWriteError()
			return fmt.Errorf("truth log write for %s: %w", result.SignalID, err)
		}

		for _, mirror := range l.mirrors {
			if err := mirror.Insert(ctx, result); err != nil {
				l.logger.Printf("mirror insert for %s failed: %v", result.SignalID, err)
			}
		}
	}

	observability.UpdateActiveTrackers(l.registry.ActiveCount())
	return nil
}

// sealResult builds the immutable Result for a terminal decision.
func sealResult(t *domain.SignalTracker, d Decision, completedAt time.Time) *domain.Result {
	return &domain.Result{
		RecordID:        idhash.ComputeRecordID(t.ID, t.Symbol, t.StartedAt.UnixMilli()),
		SignalID:        t.ID,
		Symbol:          t.Symbol,
		Direction:       t.Direction,
		EntryPrice:      t.EntryPrice,
		StopLoss:        t.StopLoss,
		TakeProfit:      t.TakeProfit,
		ConfidenceScore: t.ConfidenceScore,
		UnitSystem:      t.UnitSystem,
		SourceTag:       t.SourceTag,
		EngineTag:       t.EngineTag,

		Outcome:        d.Outcome,
		ExitReason:     d.ExitReason,
		ExitPrice:      d.ExitPrice,
		RuntimeSeconds: int64(completedAt.Sub(t.StartedAt).Seconds()),
		Delta:          d.Delta,
		ObservedPrice:  d.ObservedPrice,

		CreatedAt:   t.CreatedAt,
		StartedAt:   t.StartedAt,
		CompletedAt: completedAt,

		RiskModelScore: t.RiskModelScore,
		FilterPassed:   t.FilterPassed,
	}
}
