package evaluate

import (
	"context"
	"errors"
	"testing"
	"time"

	"signal-truth/internal/config"
	"signal-truth/internal/domain"
	"signal-truth/internal/registry"
	"signal-truth/internal/storage/memory"
)

// fakeProvider serves a fixed quote set and counts refreshes.
type fakeProvider struct {
	quotes     map[string]domain.MarketQuote
	refreshErr error
	refreshes  int
}

func (f *fakeProvider) Refresh(_ context.Context) error {
	f.refreshes++
	return f.refreshErr
}

func (f *fakeProvider) Quote(symbol string) (domain.MarketQuote, bool) {
	q, ok := f.quotes[symbol]
	return q, ok
}

// captureSink records logged results and can be told to fail.
type captureSink struct {
	results []*domain.Result
	err     error
}

func (s *captureSink) Log(r *domain.Result) error {
	if s.err != nil {
		return s.err
	}
	s.results = append(s.results, r)
	return nil
}

type captureMirror struct {
	results []*domain.Result
	err     error
}

func (m *captureMirror) Insert(_ context.Context, r *domain.Result) error {
	if m.err != nil {
		return m.err
	}
	m.results = append(m.results, r)
	return nil
}

func newEvalFixture(t *testing.T, provider *fakeProvider, sink *captureSink, mirrors ...Mirror) (*Loop, *registry.TrackerRegistry) {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	reg := registry.New()
	return NewLoop(reg, provider, cfg, sink, mirrors, nil), reg
}

func admitBuy(t *testing.T, reg *registry.TrackerRegistry, startedAt time.Time) {
	t.Helper()
	err := reg.Admit(&domain.SignalTracker{
		ID:         "sig-loop",
		Symbol:     "EURUSD",
		Direction:  domain.DirectionBuy,
		EntryPrice: 1.1000,
		StopLoss:   1.0980,
		TakeProfit: 1.1040,
		UnitSystem: domain.UnitSystemForex,
		SourceTag:  "pulse_fx",
		CreatedAt:  startedAt,
		StartedAt:  startedAt,
	})
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
}

func TestTick_ResolvesAndLogsOnce(t *testing.T) {
	provider := &fakeProvider{quotes: map[string]domain.MarketQuote{
		"EURUSD": {Symbol: "EURUSD", Bid: 1.1041, Ask: 1.1043, ObservedAt: time.Now()},
	}}
	sink := &captureSink{}
	mirror := &captureMirror{}
	loop, reg := newEvalFixture(t, provider, sink, mirror)
	admitBuy(t, reg, time.Now().Add(-time.Minute))

	if err := loop.tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	if len(sink.results) != 1 {
		t.Fatalf("logged %d results, want 1", len(sink.results))
	}
	res := sink.results[0]
	if res.Outcome != domain.OutcomeWin || res.ExitReason != domain.ExitReasonTakeProfit {
		t.Errorf("got %s/%s", res.Outcome, res.ExitReason)
	}
	if res.RecordID == "" {
		t.Error("RecordID must be set")
	}
	if res.SignalID != "sig-loop" {
		t.Errorf("SignalID = %q", res.SignalID)
	}
	if reg.ActiveCount() != 0 {
		t.Errorf("tracker still active after resolution")
	}
	if len(mirror.results) != 1 {
		t.Errorf("mirror received %d results, want 1", len(mirror.results))
	}

	// The resolved id can never come back.
	if err := reg.Admit(&domain.SignalTracker{
		ID: "sig-loop", Symbol: "EURUSD", Direction: domain.DirectionBuy,
		EntryPrice: 1.1000, StopLoss: 1.0980, TakeProfit: 1.1040,
		UnitSystem: domain.UnitSystemForex,
	}); !errors.Is(err, registry.ErrAlreadyProcessed) {
		t.Errorf("re-admission after resolve = %v, want ErrAlreadyProcessed", err)
	}

	// A second tick must not produce a second record.
	if err := loop.tick(context.Background()); err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if len(sink.results) != 1 {
		t.Errorf("logged %d results after second tick, want still 1", len(sink.results))
	}
}

func TestTick_MissingQuoteSkipsTracker(t *testing.T) {
	provider := &fakeProvider{quotes: map[string]domain.MarketQuote{}}
	sink := &captureSink{}
	loop, reg := newEvalFixture(t, provider, sink)
	admitBuy(t, reg, time.Now().Add(-time.Minute))

	if err := loop.tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if reg.ActiveCount() != 1 {
		t.Error("tracker without a quote must stay active")
	}
	if len(sink.results) != 0 {
		t.Error("no result may be produced without a quote")
	}
}

func TestTick_RefreshFailureServesCache(t *testing.T) {
	provider := &fakeProvider{
		quotes: map[string]domain.MarketQuote{
			"EURUSD": {Symbol: "EURUSD", Bid: 1.1041, Ask: 1.1043, ObservedAt: time.Now()},
		},
		refreshErr: errors.New("feed down"),
	}
	sink := &captureSink{}
	loop, reg := newEvalFixture(t, provider, sink)
	admitBuy(t, reg, time.Now().Add(-time.Minute))

	// A failed refresh is transient; cached quotes still resolve.
	if err := loop.tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(sink.results) != 1 {
		t.Fatalf("logged %d results, want 1 from cached quote", len(sink.results))
	}
}

func TestTick_TruthLogFailureIsFatal(t *testing.T) {
	provider := &fakeProvider{quotes: map[string]domain.MarketQuote{
		"EURUSD": {Symbol: "EURUSD", Bid: 1.1041, Ask: 1.1043, ObservedAt: time.Now()},
	}}
	sink := &captureSink{err: errors.New("disk full")}
	loop, reg := newEvalFixture(t, provider, sink)
	admitBuy(t, reg, time.Now().Add(-time.Minute))

	if err := loop.tick(context.Background()); err == nil {
		t.Fatal("a truth log write failure must surface as an error")
	}
	_ = reg
}

func TestTick_MirrorsToResultStore(t *testing.T) {
	provider := &fakeProvider{quotes: map[string]domain.MarketQuote{
		"EURUSD": {Symbol: "EURUSD", Bid: 1.1041, Ask: 1.1043, ObservedAt: time.Now()},
	}}
	sink := &captureSink{}
	store := memory.NewResultStore()
	loop, reg := newEvalFixture(t, provider, sink, store)
	admitBuy(t, reg, time.Now().Add(-time.Minute))

	if err := loop.tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	got, err := store.GetBySignalID(context.Background(), "sig-loop")
	if err != nil {
		t.Fatalf("GetBySignalID: %v", err)
	}
	if got.Outcome != domain.OutcomeWin || got.RecordID == "" {
		t.Errorf("mirrored result = %s record_id=%q", got.Outcome, got.RecordID)
	}
}

func TestTick_MirrorFailureIsTolerated(t *testing.T) {
	provider := &fakeProvider{quotes: map[string]domain.MarketQuote{
		"EURUSD": {Symbol: "EURUSD", Bid: 1.1041, Ask: 1.1043, ObservedAt: time.Now()},
	}}
	sink := &captureSink{}
	mirror := &captureMirror{err: errors.New("db down")}
	loop, reg := newEvalFixture(t, provider, sink, mirror)
	admitBuy(t, reg, time.Now().Add(-time.Minute))

	if err := loop.tick(context.Background()); err != nil {
		t.Fatalf("tick: %v, mirror failure must not be fatal", err)
	}
	if len(sink.results) != 1 {
		t.Errorf("truth log got %d results, want 1", len(sink.results))
	}
	_ = reg
}
