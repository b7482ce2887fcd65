// Command aggregate folds the truth log into per-source outcome
// aggregates, writes them as CSV, and optionally archives them to
// ClickHouse for dashboarding.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"signal-truth/internal/domain"
	"signal-truth/internal/inspect"
	"signal-truth/internal/metrics"
	chstore "signal-truth/internal/storage/clickhouse"
	"signal-truth/internal/storage/migrations"
)

func main() {
	logsDir := flag.String("logs-dir", "./logs", "Directory holding the truth log partitions")
	out := flag.String("out", "-", "CSV output path, or - for stdout")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "Optional ClickHouse DSN to archive aggregates")

	flag.Parse()

	logger := log.New(os.Stderr, "[aggregate] ", log.LstdFlags)

	records, err := inspect.Load(*logsDir, inspect.TypeBoth, 0)
	if err != nil {
		logger.Fatalf("Read truth log: %v", err)
	}

	aggregates, err := metrics.ComputeAggregates(records, time.Now().UTC())
	if err != nil {
		if errors.Is(err, metrics.ErrNoResults) {
			logger.Println("No results to aggregate")
			return
		}
		logger.Fatalf("Compute aggregates: %v", err)
	}

	if err := writeCSV(*out, aggregates); err != nil {
		logger.Fatalf("Write CSV: %v", err)
	}

	if *clickhouseDSN != "" {
		if err := archiveToClickhouse(context.Background(), *clickhouseDSN, aggregates); err != nil {
			logger.Fatalf("Archive to ClickHouse: %v", err)
		}
		logger.Printf("Archived %d aggregates to ClickHouse", len(aggregates))
	}
}

func writeCSV(path string, aggregates []*domain.OutcomeAggregate) error {
	var dst io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		dst = f
	}

	w := csv.NewWriter(dst)
	header := []string{
		"unit_system", "source_tag",
		"total_signals", "wins", "losses", "timeouts",
		"win_rate", "net_delta", "mean_delta", "mean_runtime_seconds",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, a := range aggregates {
		row := []string{
			string(a.UnitSystem), a.SourceTag,
			strconv.Itoa(a.TotalSignals), strconv.Itoa(a.Wins),
			strconv.Itoa(a.Losses), strconv.Itoa(a.Timeouts),
			strconv.FormatFloat(a.WinRate, 'f', 4, 64),
			strconv.FormatFloat(a.NetDelta, 'f', 2, 64),
			strconv.FormatFloat(a.MeanDelta, 'f', 4, 64),
			strconv.FormatFloat(a.MeanRuntimeSeconds, 'f', 1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func archiveToClickhouse(ctx context.Context, dsn string, aggregates []*domain.OutcomeAggregate) error {
	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return err
	}

	// Bootstrap the database before connecting to it.
	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return err
	}
	if err := admin.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", dbName)); err != nil {
		admin.Close()
		return err
	}
	admin.Close()

	conn, err := chstore.NewConn(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
		return err
	}

	return chstore.NewOutcomeAggregateStore(conn).InsertBulk(ctx, aggregates)
}

func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("clickhouse dsn missing database")
	}
	return db, nil
}
