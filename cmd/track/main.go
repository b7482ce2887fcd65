// Command track is the signal outcome tracking daemon: it ingests
// signal declarations from a directory, polls the market feed, and
// adjudicates each signal exactly once into the truth log.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"signal-truth/internal/config"
	"signal-truth/internal/evaluate"
	"signal-truth/internal/ingest"
	"signal-truth/internal/marketdata"
	"signal-truth/internal/observability"
	"signal-truth/internal/registry"
	"signal-truth/internal/storage/migrations"
	pgstore "signal-truth/internal/storage/postgres"
	"signal-truth/internal/truthlog"
)

func main() {
	signalsDir := flag.String("signals-dir", "./signals", "Directory watched for signal declaration files")
	logsDir := flag.String("logs-dir", "./logs", "Directory holding the truth log partitions")
	configPath := flag.String("config", "", "Runtime config file (YAML, hot-reloaded)")
	feedURL := flag.String("feed-url", "http://127.0.0.1:8080/quotes", "Market data feed endpoint")
	feedMode := flag.String("feed-mode", "http", "Market data transport: http or ws")
	postgresDSN := flag.String("postgres-dsn", "", "Optional PostgreSQL mirror for resolved results")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	logger := log.New(os.Stdout, "[track] ", log.LstdFlags)

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	if err := os.MkdirAll(*signalsDir, 0o755); err != nil {
		logger.Fatalf("Create signals dir: %v", err)
	}
	if err := os.MkdirAll(*logsDir, 0o755); err != nil {
		logger.Fatalf("Create logs dir: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.TickUptime(15)
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = run(ctx, logger, cfg, *signalsDir, *logsDir, *feedURL, *feedMode, *postgresDSN)
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Printf("Tracking daemon failed: %v", err)
		os.Exit(1)
	}
	logger.Println("Tracking daemon stopped")
}

func run(ctx context.Context, logger *log.Logger, cfg *config.Watcher, signalsDir, logsDir, feedURL, feedMode, postgresDSN string) error {
	reg := registry.New()

	// Replay the truth log so resolved signals survive restarts: a
	// declaration file that is still on disk must not be re-admitted.
	processed, err := truthlog.CollectSignalIDs(logsDir)
	if err != nil {
		return err
	}
	reg.SeedProcessed(processed)
	logger.Printf("Seeded %d processed signal ids from the truth log", len(processed))

	provider, closeProvider, err := buildProvider(ctx, feedURL, feedMode, logger)
	if err != nil {
		return err
	}
	defer closeProvider()

	truth := truthlog.NewLogger(logsDir, func() []string {
		return cfg.Current().AllowedTags
	}, log.New(os.Stdout, "[truthlog] ", log.LstdFlags))

	var mirrors []evaluate.Mirror
	if postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return err
		}
		mirrors = append(mirrors, pgstore.NewResultStore(pool))
		logger.Println("Mirroring resolved results to PostgreSQL")
	}

	ingestLoop := ingest.NewLoop(reg, ingest.NewScanner(signalsDir), cfg,
		log.New(os.Stdout, "[ingest] ", log.LstdFlags))
	evalLoop := evaluate.NewLoop(reg, provider, cfg, truth, mirrors,
		log.New(os.Stdout, "[evaluate] ", log.LstdFlags))

	go ingestLoop.Run(ctx)

	logger.Printf("Tracking signals from %s, feed %s (%s)", signalsDir, feedURL, feedMode)
	return evalLoop.Run(ctx)
}

func buildProvider(ctx context.Context, feedURL, feedMode string, logger *log.Logger) (marketdata.Provider, func(), error) {
	switch feedMode {
	case "http":
		return marketdata.NewHTTPProvider(feedURL), func() {}, nil
	case "ws":
		ws, err := marketdata.NewWSProvider(ctx, feedURL, nil,
			log.New(os.Stdout, "[marketdata] ", log.LstdFlags))
		if err != nil {
			return nil, nil, err
		}
		return ws, func() { ws.Close() }, nil
	default:
		return nil, nil, errors.New("unknown feed mode " + feedMode + " (want http or ws)")
	}
}
