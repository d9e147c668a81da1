// Package main runs one harvest: it ingests the trailing window of daily
// sales reports, folds them into cumulative metrics, and prints the daily
// summary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"harvest-reports/internal/config"
	"harvest-reports/internal/domain"
	"harvest-reports/internal/ingest"
	"harvest-reports/internal/metrics"
	"harvest-reports/internal/observability"
	"harvest-reports/internal/reportfile"
	"harvest-reports/internal/reporting"
	"harvest-reports/internal/storage"
	chstore "harvest-reports/internal/storage/clickhouse"
	"harvest-reports/internal/storage/memory"
	"harvest-reports/internal/storage/migrations"
	pgstore "harvest-reports/internal/storage/postgres"
	"harvest-reports/internal/timeseries"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Parse flags (environment as defaults)
	reportsDir := flag.String("reports-dir", cfg.ReportsDir, "Directory with S_D_<vendor>_<yyyymmdd>.txt report files")
	remapDir := flag.String("remap-dir", cfg.RemapDir, "Directory with field remap CSVs (empty for pass-through)")
	vendorID := flag.String("vendor", cfg.VendorID, "Vendor identifier the report files are keyed by")
	daysBack := flag.Int("days-back", cfg.DaysBack, "How many calendar days back to ingest")
	apps := flag.String("apps", strings.Join(cfg.Apps, ","), "Comma-separated app filter for reporting projections")
	countries := flag.String("countries", strings.Join(cfg.Countries, ","), "Comma-separated country filter for reporting projections")
	overwrite := flag.Bool("overwrite", false, "Re-ingest days that are already in the ledger")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickhouseDSN, "ClickHouse connection string for delta history (empty to keep it in PostgreSQL)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "Prometheus metrics HTTP address (empty to disable)")
	printSummary := flag.Bool("print-summary", true, "Print the daily summary to stdout after the run")
	production := flag.Bool("production", cfg.Production, "Use the production log encoder")

	flag.Parse()

	logger := newLogger(*production)
	defer logger.Sync()

	if *vendorID == "" {
		logger.Fatal("--vendor is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go serveMetrics(logger, *metricsAddr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, cancelling run", zap.Stringer("signal", sig))
		cancel()
	}()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatal("create stores", zap.Error(err))
	}
	defer cleanup()

	tables := reportfile.NewRemapTables()
	if *remapDir != "" {
		tables, err = reportfile.LoadRemapTables(*remapDir)
		if err != nil {
			logger.Fatal("load remap tables", zap.Error(err))
		}
	}

	aggregator := metrics.NewAggregator(stores.metrics, stores.deltas)
	manager := ingest.NewManager(ingest.ManagerOptions{
		Ledger:       ingest.NewLedger(stores.ledger),
		Aggregator:   aggregator,
		Ratings:      metrics.NewRatingsAggregator(stores.metrics),
		MetricsStore: stores.metrics,
		Logger:       logger,
	})
	runner := ingest.NewRunner(ingest.RunnerOptions{
		Manager:      manager,
		RecordSource: ingest.NewFSRecordSource(*reportsDir, tables),
		RatingSource: ingest.NewFSRatingSource(*reportsDir),
		Logger:       logger,
	})

	opts := domain.RunOptions{
		VendorID:  *vendorID,
		Apps:      splitList(*apps),
		Countries: splitList(*countries),
		DaysBack:  *daysBack,
		Overwrite: *overwrite,
	}

	summary, err := runner.Run(ctx, opts)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("harvest run failed", zap.Error(err))
	}

	if *printSummary && summary != nil {
		generator := reporting.NewGenerator(
			stores.metrics,
			aggregator,
			metrics.NewRetentionCalculator(stores.metrics),
			timeseries.NewBuilder(stores.deltas),
		)
		report, err := generator.Generate(ctx, reporting.GenerateOptions{
			VendorID: *vendorID,
			Filter:   opts.Filter(),
			Summary:  summary,
		})
		if err != nil {
			logger.Fatal("generate summary", zap.Error(err))
		}
		fmt.Print(reporting.RenderText(report))
	}
}

// harvestStores holds the three storage interfaces a run needs.
type harvestStores struct {
	ledger  storage.LedgerStore
	metrics storage.MetricsStore
	deltas  storage.DeltaStore
}

// createStores wires up storage and applies migrations. Delta history lands
// in ClickHouse when a DSN is given, otherwise next to the rest in
// PostgreSQL.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*harvestStores, func(), error) {
	if useMemory {
		stores := &harvestStores{
			ledger:  memory.NewLedgerStore(),
			metrics: memory.NewMetricsStore(),
			deltas:  memory.NewDeltaStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	stores := &harvestStores{
		ledger:  pgstore.NewLedgerStore(pool),
		metrics: pgstore.NewMetricsStore(pool),
		deltas:  pgstore.NewDeltaStore(pool),
	}
	cleanup := func() { pool.Close() }

	if clickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, clickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			conn.Close()
			pool.Close()
			return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		stores.deltas = chstore.NewDeltaStore(conn)
		cleanup = func() {
			conn.Close()
			pool.Close()
		}
	}

	return stores, cleanup, nil
}

func serveMetrics(logger *zap.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	logger.Info("starting metrics server", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("metrics server error", zap.Error(err))
	}
}

func newLogger(production bool) *zap.Logger {
	var logger *zap.Logger
	var err error
	if production {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return logger
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
