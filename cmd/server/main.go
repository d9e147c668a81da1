// Package main runs the harvest service: a daily-scheduled ingestion of
// vendor sales reports plus report generation, with health, status and
// Prometheus metrics over HTTP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

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

// Server drives scheduled harvest runs and report generation.
type Server struct {
	runner    *ingest.Runner
	generator *reporting.Generator
	opts      domain.RunOptions

	outputDir       string
	harvestInterval time.Duration
	windowDays      int

	logger *zap.Logger

	mu          sync.Mutex
	started     time.Time
	lastRun     time.Time
	lastSummary *ingest.RunSummary
	running     bool
	runs        int
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	reportsDir := flag.String("reports-dir", cfg.ReportsDir, "Directory with S_D_<vendor>_<yyyymmdd>.txt report files")
	remapDir := flag.String("remap-dir", cfg.RemapDir, "Directory with field remap CSVs (empty for pass-through)")
	vendorID := flag.String("vendor", cfg.VendorID, "Vendor identifier the report files are keyed by")
	daysBack := flag.Int("days-back", cfg.DaysBack, "How many calendar days back each run ingests")
	apps := flag.String("apps", strings.Join(cfg.Apps, ","), "Comma-separated app filter for reporting projections")
	countries := flag.String("countries", strings.Join(cfg.Countries, ","), "Comma-separated country filter for reporting projections")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickhouseDSN, "ClickHouse connection string for delta history (empty to keep it in PostgreSQL)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	outputDir := flag.String("output-dir", cfg.OutputDir, "Output directory for generated reports")
	harvestInterval := flag.Duration("harvest-interval", 24*time.Hour, "Interval between harvest runs")
	windowDays := flag.Int("window-days", cfg.WindowDays, "Trend window length in generated reports")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "HTTP address for health/status/metrics")
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", zap.Stringer("signal", sig))
		cancel()

		select {
		case <-sigCh:
			logger.Warn("second signal, forcing exit")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Warn("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
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

	server := &Server{
		runner: ingest.NewRunner(ingest.RunnerOptions{
			Manager:      manager,
			RecordSource: ingest.NewFSRecordSource(*reportsDir, tables),
			RatingSource: ingest.NewFSRatingSource(*reportsDir),
			Logger:       logger,
		}),
		generator: reporting.NewGenerator(
			stores.metrics,
			aggregator,
			metrics.NewRetentionCalculator(stores.metrics),
			timeseries.NewBuilder(stores.deltas),
		),
		opts: domain.RunOptions{
			VendorID:  *vendorID,
			Apps:      splitList(*apps),
			Countries: splitList(*countries),
			DaysBack:  *daysBack,
		},
		outputDir:       *outputDir,
		harvestInterval: *harvestInterval,
		windowDays:      *windowDays,
		logger:          logger,
		started:         time.Now(),
	}

	go server.serveHTTP(*metricsAddr)

	err = server.Run(ctx)
	close(done)

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// Run harvests immediately, then on every tick.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting harvest scheduler", zap.Duration("interval", s.harvestInterval))

	s.harvest(ctx)

	ticker := time.NewTicker(s.harvestInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.harvest(ctx)
		}
	}
}

// harvest runs one ingestion pass and regenerates the report files.
func (s *Server) harvest(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Info("harvest already running, skipping tick")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.lastRun = time.Now()
		s.runs++
		s.mu.Unlock()
	}()

	summary, err := s.runner.Run(ctx, s.opts)
	if err != nil {
		s.logger.Error("harvest run failed", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.lastSummary = summary
	s.mu.Unlock()

	report, err := s.generator.Generate(ctx, reporting.GenerateOptions{
		VendorID:   s.opts.VendorID,
		Filter:     s.opts.Filter(),
		WindowEnd:  summary.End,
		WindowDays: s.windowDays,
		Summary:    summary,
	})
	if err != nil {
		s.logger.Error("report generation failed", zap.Error(err))
		return
	}

	if err := s.writeReports(report); err != nil {
		s.logger.Error("write reports failed", zap.Error(err))
		return
	}
	observability.RecordReportGenerated("markdown")
	observability.RecordReportGenerated("csv")
	s.logger.Info("reports written", zap.String("dir", s.outputDir))
}

func (s *Server) writeReports(report *reporting.Report) error {
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	files := map[string]string{
		"report.md":    reporting.RenderMarkdown(report),
		"summary.txt":  reporting.RenderText(report),
		"versions.csv": reporting.RenderVersionsCSV(report),
	}
	for _, app := range report.Apps {
		if len(app.Window) > 0 {
			files[fmt.Sprintf("window_%s.csv", app.App)] = reporting.RenderWindowCSV(app.App, app.Window)
		}
		files[fmt.Sprintf("geo_%s.csv", app.App)] = reporting.RenderGeoCSV(app.App, app.GeoAll)
	}

	for name, content := range files {
		path := filepath.Join(s.outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}

// serveHTTP exposes health, status and Prometheus metrics.
func (s *Server) serveHTTP(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)

	s.logger.Info("starting http server", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Warn("http server error", zap.Error(err))
	}
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status      string    `json:"status"`
	Uptime      string    `json:"uptime"`
	LastRun     time.Time `json:"last_run,omitempty"`
	Runs        int       `json:"runs"`
	Running     bool      `json:"running"`
	LastRunHad  bool      `json:"last_run_had_new_data"`
	LastRunDays int       `json:"last_run_days_ingested"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := StatusResponse{
		Status:  "running",
		Uptime:  time.Since(s.started).String(),
		LastRun: s.lastRun,
		Runs:    s.runs,
		Running: s.running,
	}
	if s.lastSummary != nil {
		resp.LastRunHad = s.lastSummary.HasNewData()
		resp.LastRunDays = len(s.lastSummary.Ingested) + len(s.lastSummary.Overwritten)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
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
