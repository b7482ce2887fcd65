package ingest

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"signal-truth/internal/config"
	"signal-truth/internal/domain"
	"signal-truth/internal/observability"
	"signal-truth/internal/registry"
)

// Loop periodically scans the signal source and admits new signals.
// Authorization is a hard gate: a declaration whose provenance tags are
// not on the allow-list is dropped here and never tracked.
type Loop struct {
	registry *registry.TrackerRegistry
	scanner  *Scanner
	cfg      *config.Watcher
	logger   *log.Logger
	now      func() time.Time
}

// NewLoop creates an ingestion loop.
func NewLoop(reg *registry.TrackerRegistry, scanner *Scanner, cfg *config.Watcher, logger *log.Logger) *Loop {
	if logger == nil {
		logger = log.New(os.Stderr, "[ingest] ", log.LstdFlags)
	}
	return &Loop{
		registry: reg,
		scanner:  scanner,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Run scans once immediately, then on every tick until ctx is canceled.
func (l *Loop) Run(ctx context.Context) {
	l.tick()

	ticker := time.NewTicker(l.cfg.Current().ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.tick()
		}
	}
}

// tick processes every declaration file that appeared since the last
// scan. A bad file is logged and skipped; it never aborts the rest of
// the batch.
func (l *Loop) tick() {
	files, err := l.scanner.Next()
	if err != nil {
		l.logger.Printf("scan failed: %v", err)
		return
	}

	allowed := allowedTagSet(l.cfg.Current().AllowedTags)
	for _, path := range files {
		observability.RecordFileScanned()
		l.ingestFile(path, allowed)
	}
	observability.UpdateActiveTrackers(l.registry.ActiveCount())
}

func (l *Loop) ingestFile(path string, allowed map[string]struct{}) {
	data, err := os.ReadFile(path)
	if err != nil {
		l.logger.Printf("skipping unreadable declaration %s: %v", path, err)
		observability.RecordMalformedFile()
		return
	}

	tracker, err := ParseDeclaration(data, l.now().UTC())
	if err != nil {
		l.logger.Printf("skipping malformed declaration %s: %v", path, err)
		observability.RecordMalformedFile()
		return
	}

	if !Authorized(tracker, allowed) {
		l.logger.Printf("REJECTED unauthorized signal %s from %s (source=%q engine=%q)",
			tracker.ID, path, tracker.SourceTag, tracker.EngineTag)
		observability.RecordSignalRejected("unauthorized")
		return
	}

	switch err := l.registry.Admit(tracker); {
	case err == nil:
		l.logger.Printf("tracking %s %s %s entry=%.5f sl=%.5f tp=%.5f",
			tracker.ID, tracker.Symbol, tracker.Direction,
			tracker.EntryPrice, tracker.StopLoss, tracker.TakeProfit)
		observability.RecordSignalAdmitted()
	case errors.Is(err, registry.ErrAlreadyProcessed):
		observability.RecordSignalRejected("duplicate")
	default:
		l.logger.Printf("rejected signal %s from %s: %v", tracker.ID, path, err)
		observability.RecordSignalRejected("invalid")
	}
}

// Authorized reports whether the tracker's provenance passes the
// allow-list: the source tag must be listed, and the engine tag, when
// set, must be listed too.
func Authorized(t *domain.SignalTracker, allowed map[string]struct{}) bool {
	if _, ok := allowed[t.SourceTag]; !ok {
		return false
	}
	if t.EngineTag != "" {
		if _, ok := allowed[t.EngineTag]; !ok {
			return false
		}
	}
	return true
}

func allowedTagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		set[tag] = struct{}{}
	}
	return set
}
