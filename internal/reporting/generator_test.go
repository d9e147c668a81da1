package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"harvest-reports/internal/domain"
	"harvest-reports/internal/ingest"
	"harvest-reports/internal/metrics"
	"harvest-reports/internal/storage/memory"
	"harvest-reports/internal/timeseries"
)

func day(d int) domain.Date {
	return domain.NewDate(2024, time.March, d)
}

type fixture struct {
	generator *Generator
	manager   *ingest.Manager
}

func newFixture() *fixture {
	metricsStore := memory.NewMetricsStore()
	deltaStore := memory.NewDeltaStore()

	aggregator := metrics.NewAggregator(metricsStore, deltaStore)
	manager := ingest.NewManager(ingest.ManagerOptions{
		Ledger:       ingest.NewLedger(memory.NewLedgerStore()),
		Aggregator:   aggregator,
		Ratings:      metrics.NewRatingsAggregator(metricsStore),
		MetricsStore: metricsStore,
	})

	generator := NewGenerator(
		metricsStore,
		aggregator,
		metrics.NewRetentionCalculator(metricsStore),
		timeseries.NewBuilder(deltaStore),
	).WithClock(func() time.Time { return day(10).Time() })

	return &fixture{generator: generator, manager: manager}
}

func (f *fixture) ingest(t *testing.T, date domain.Date, records ...*domain.SaleRecord) {
	t.Helper()
	if _, _, err := f.manager.IngestDay(context.Background(), date, records, ingest.IntentFresh); err != nil {
		t.Fatalf("IngestDay %v failed: %v", date, err)
	}
}

func sale(app, version string, txType domain.TransactionType, date domain.Date, country string, units int64, proceeds float64) *domain.SaleRecord {
	return &domain.SaleRecord{
		App: app, Version: version, Type: txType,
		Date: date, Country: country, Units: units, UnitProceeds: proceeds,
	}
}

func TestGenerator_Generate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.ingest(t, day(1),
		sale("app1", "1.0", domain.TxInstall, day(1), "US", 10, 0.99),
		sale("app1", "1.0", domain.TxInstall, day(1), "DE", 2, 0))
	f.ingest(t, day(2),
		sale("app1", "1.1", domain.TxUpgrade, day(2), "US", 4, 0))

	report, err := f.generator.Generate(ctx, GenerateOptions{
		VendorID:  "800",
		WindowEnd: day(2),
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(report.Apps) != 1 {
		t.Fatalf("expected 1 app, got %d", len(report.Apps))
	}

	app := report.Apps[0]
	if app.Totals.Installs != 12 || app.Totals.Upgrades != 4 {
		t.Errorf("totals = %+v", app.Totals)
	}
	if app.Totals.PaidInstalls != 10 || app.Totals.FreeInstalls != 2 {
		t.Errorf("paid/free = %d/%d", app.Totals.PaidInstalls, app.Totals.FreeInstalls)
	}
	if app.LatestVersion != "1.1" || app.UsersOnLatest != 4 {
		t.Errorf("latest = %q users %d", app.LatestVersion, app.UsersOnLatest)
	}

	if len(app.Versions) != 2 || app.Versions[0].Version != "1.0" || app.Versions[1].Version != "1.1" {
		t.Fatalf("versions out of release order: %+v", app.Versions)
	}
	if len(app.Retention) != 1 || !app.Retention[0].Defined {
		t.Fatalf("retention = %+v", app.Retention)
	}
	if app.Retention[0].Percent != float64(4)/float64(12)*100 {
		t.Errorf("retention percent = %f", app.Retention[0].Percent)
	}

	if len(app.Window) != timeseries.DefaultWindowDays {
		t.Errorf("window length = %d", len(app.Window))
	}
	if app.GeoAll["US"] != 10 || app.GeoAll["DE"] != 2 {
		t.Errorf("geo = %v", app.GeoAll)
	}
}

func TestGenerator_FiltersAreProjections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.ingest(t, day(1),
		sale("app1", "1.0", domain.TxInstall, day(1), "US", 5, 0),
		sale("app1", "1.0", domain.TxInstall, day(1), "DE", 3, 0),
		sale("app2", "1.0", domain.TxInstall, day(1), "US", 7, 0))

	report, err := f.generator.Generate(ctx, GenerateOptions{
		Filter: domain.NewFilter([]string{"app1"}, []string{"US"}),
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(report.Apps) != 1 || report.Apps[0].App != "app1" {
		t.Fatalf("apps = %+v", report.Apps)
	}
	geo := report.Apps[0].GeoAll
	if geo["US"] != 5 {
		t.Errorf("geo[US] = %d, want 5", geo["US"])
	}
	if _, ok := geo["DE"]; ok {
		t.Error("filtered country must not appear in projection")
	}

	// The unfiltered view still carries everything: filtering never
	// dropped counters at ingestion time.
	full, err := f.generator.Generate(ctx, GenerateOptions{})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(full.Apps) != 2 {
		t.Fatalf("unfiltered apps = %d, want 2", len(full.Apps))
	}
	if full.Apps[0].GeoAll["DE"] != 3 {
		t.Errorf("unfiltered geo = %v", full.Apps[0].GeoAll)
	}
}

func TestGenerator_NewDataSection(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.ingest(t, day(2), sale("app1", "1.0", domain.TxInstall, day(2), "US", 3, 0))
	f.ingest(t, day(3), sale("app1", "1.0", domain.TxInstall, day(3), "AU", 2, 0))

	summary := &ingest.RunSummary{
		Start:       day(1),
		End:         day(3),
		Ingested:    []domain.Date{day(3)},
		Filled:      []domain.Date{day(1)},
		NewInstalls: 2,
	}

	report, err := f.generator.Generate(ctx, GenerateOptions{Summary: summary})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if report.NewData == nil || !report.NewData.HasNewData {
		t.Fatalf("NewData = %+v", report.NewData)
	}
	if report.NewData.Installs != 2 {
		t.Errorf("NewData.Installs = %d", report.NewData.Installs)
	}

	// The latest-batch geo snapshot covers only the run's dates.
	geo := report.Apps[0].GeoLatest
	if geo["AU"] != 2 {
		t.Errorf("GeoLatest = %v, want AU only", geo)
	}
	if _, ok := geo["US"]; ok {
		t.Error("GeoLatest must exclude earlier batches")
	}
}

func TestGenerator_UndefinedValuesRendered(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// A version with no users below it and no ratings anywhere.
	f.ingest(t, day(1),
		sale("app1", "1.0", domain.TxInstall, day(1), "US", 0, 0),
		sale("app1", "1.1", domain.TxUpgrade, day(1), "US", 2, 0))

	report, err := f.generator.Generate(ctx, GenerateOptions{})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	app := report.Apps[0]
	if app.RatingDefined {
		t.Error("rating must be undefined without events")
	}
	if len(app.Retention) != 1 || app.Retention[0].Defined {
		t.Errorf("retention = %+v, want undefined", app.Retention)
	}

	// Renderers show undefined as n/a, never as zero.
	for name, out := range map[string]string{
		"markdown": RenderMarkdown(report),
		"text":     RenderText(report),
	} {
		if !strings.Contains(out, "n/a") {
			t.Errorf("%s output must mark undefined values: %q", name, out)
		}
	}
}

func TestRenderCSV(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.ingest(t, day(1), sale("app1", "1.0", domain.TxInstall, day(1), "US", 5, 0.99))

	report, err := f.generator.Generate(ctx, GenerateOptions{WindowEnd: day(2), WindowDays: 2})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	versions := RenderVersionsCSV(report)
	if !strings.Contains(versions, "app1,1.0,5,5,0,0,0,4.95,,0") {
		t.Errorf("versions CSV:\n%s", versions)
	}

	window := RenderWindowCSV("app1", report.Apps[0].Window)
	lines := strings.Split(strings.TrimSpace(window), "\n")
	if len(lines) != 3 {
		t.Fatalf("window CSV lines = %d, want header + 2 days", len(lines))
	}
	if !strings.Contains(lines[1], "2024-03-01,5") {
		t.Errorf("window CSV row: %q", lines[1])
	}

	geo := RenderGeoCSV("app1", report.Apps[0].GeoAll)
	if !strings.Contains(geo, "app1,US,5") {
		t.Errorf("geo CSV:\n%s", geo)
	}
}
