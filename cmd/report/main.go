// Package main generates reports from already-ingested cumulative state.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"harvest-reports/internal/config"
	"harvest-reports/internal/domain"
	"harvest-reports/internal/metrics"
	"harvest-reports/internal/observability"
	"harvest-reports/internal/reporting"
	"harvest-reports/internal/storage"
	chstore "harvest-reports/internal/storage/clickhouse"
	pgstore "harvest-reports/internal/storage/postgres"
	"harvest-reports/internal/timeseries"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickhouseDSN, "ClickHouse connection string for delta history (empty when it lives in PostgreSQL)")
	vendorID := flag.String("vendor", cfg.VendorID, "Vendor identifier stamped on the report")
	apps := flag.String("apps", strings.Join(cfg.Apps, ","), "Comma-separated app filter")
	countries := flag.String("countries", strings.Join(cfg.Countries, ","), "Comma-separated country filter")
	format := flag.String("format", "markdown", "Output format: markdown, csv, or text")
	outputDir := flag.String("output-dir", cfg.OutputDir, "Output directory (empty writes to stdout)")
	windowEnd := flag.String("window-end", "", "Trend window end date, YYYY-MM-DD (default yesterday)")
	windowDays := flag.Int("window-days", cfg.WindowDays, "Trend window length in days")
	production := flag.Bool("production", cfg.Production, "Use the production log encoder")

	flag.Parse()

	logger := newLogger(*production)
	defer logger.Sync()

	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatal("connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	metricsStore := pgstore.NewMetricsStore(pool)
	var deltaStore storage.DeltaStore = pgstore.NewDeltaStore(pool)

	if *clickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatal("connect to clickhouse", zap.Error(err))
		}
		defer conn.Close()
		deltaStore = chstore.NewDeltaStore(conn)
	}

	end := domain.DateOf(time.Now()).AddDays(-1)
	if *windowEnd != "" {
		end, err = domain.ParseDate(*windowEnd)
		if err != nil {
			logger.Fatal("parse window end", zap.Error(err))
		}
	}

	aggregator := metrics.NewAggregator(metricsStore, deltaStore)
	generator := reporting.NewGenerator(
		metricsStore,
		aggregator,
		metrics.NewRetentionCalculator(metricsStore),
		timeseries.NewBuilder(deltaStore),
	)

	report, err := generator.Generate(ctx, reporting.GenerateOptions{
		VendorID:   *vendorID,
		Filter:     domain.NewFilter(splitList(*apps), splitList(*countries)),
		WindowEnd:  end,
		WindowDays: *windowDays,
	})
	if err != nil {
		logger.Fatal("generate report", zap.Error(err))
	}

	if err := render(report, *format, *outputDir); err != nil {
		logger.Fatal("render report", zap.Error(err))
	}
	observability.RecordReportGenerated(*format)
}

// render writes the report in the requested format. An empty output
// directory writes single-document formats to stdout; csv always needs a
// directory because it produces one file per view.
func render(report *reporting.Report, format, outputDir string) error {
	switch format {
	case "markdown":
		return writeOut(outputDir, "report.md", reporting.RenderMarkdown(report))
	case "text":
		return writeOut(outputDir, "summary.txt", reporting.RenderText(report))
	case "csv":
		if outputDir == "" {
			return fmt.Errorf("--output-dir is required for csv format")
		}
		if err := writeOut(outputDir, "versions.csv", reporting.RenderVersionsCSV(report)); err != nil {
			return err
		}
		for _, app := range report.Apps {
			if len(app.Window) > 0 {
				name := fmt.Sprintf("window_%s.csv", app.App)
				if err := writeOut(outputDir, name, reporting.RenderWindowCSV(app.App, app.Window)); err != nil {
					return err
				}
			}
			name := fmt.Sprintf("geo_%s.csv", app.App)
			if err := writeOut(outputDir, name, reporting.RenderGeoCSV(app.App, app.GeoAll)); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeOut(dir, name, content string) error {
	if dir == "" {
		fmt.Print(content)
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
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
