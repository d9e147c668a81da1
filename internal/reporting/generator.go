package reporting

import (
	"context"
	"errors"
	"time"

	"harvest-reports/internal/domain"
	"harvest-reports/internal/ingest"
	"harvest-reports/internal/metrics"
	"harvest-reports/internal/storage"
	"harvest-reports/internal/timeseries"
)

// Generator produces reports from cumulative state. Filters are query-time
// projections: they narrow what the report shows, never what was counted.
type Generator struct {
	metricsStore storage.MetricsStore
	aggregator   *metrics.Aggregator
	retention    *metrics.RetentionCalculator
	builder      *timeseries.Builder
	now          func() time.Time // injectable clock for deterministic output
}

// NewGenerator creates a report generator.
func NewGenerator(
	metricsStore storage.MetricsStore,
	aggregator *metrics.Aggregator,
	retention *metrics.RetentionCalculator,
	builder *timeseries.Builder,
) *Generator {
	return &Generator{
		metricsStore: metricsStore,
		aggregator:   aggregator,
		retention:    retention,
		builder:      builder,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// GenerateOptions scopes one report.
type GenerateOptions struct {
	VendorID string

	// Filter projects the report to selected apps/countries. Nil shows
	// everything.
	Filter *domain.Filter

	// WindowEnd and WindowDays bound the trend window. A zero WindowEnd
	// skips the window; non-positive days default inside the builder.
	WindowEnd  domain.Date
	WindowDays int

	// Summary, when present, feeds the new-data section and the
	// latest-batch geographic snapshot.
	Summary *ingest.RunSummary
}

// Generate builds the full report for all apps passing the filter.
func (g *Generator) Generate(ctx context.Context, opts GenerateOptions) (*Report, error) {
	apps, err := g.metricsStore.Apps(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		GeneratedAt: g.now(),
		VendorID:    opts.VendorID,
	}

	for _, app := range apps {
		if !opts.Filter.MatchApp(app) {
			continue
		}
		section, err := g.appReport(ctx, app, opts)
		if err != nil {
			return nil, err
		}
		report.Apps = append(report.Apps, *section)
	}

	if opts.Summary != nil {
		report.NewData = newDataSummary(opts.Summary)
	}
	return report, nil
}

func (g *Generator) appReport(ctx context.Context, app string, opts GenerateOptions) (*AppReport, error) {
	rows, err := g.metricsStore.ListByApp(ctx, app)
	if err != nil {
		return nil, err
	}

	section := &AppReport{App: app}

	byVersion := make(map[string]*domain.AppVersionMetrics, len(rows))
	versions := make([]string, 0, len(rows))
	var ratingSum, ratingCount int64
	for _, row := range rows {
		ratingSum += row.RatingSum
		ratingCount += row.RatingCount

		section.Totals.Installs += row.Installs
		section.Totals.PaidInstalls += row.PaidInstalls
		section.Totals.FreeInstalls += row.FreeInstalls
		section.Totals.Upgrades += row.Upgrades
		section.Totals.PromoRedemptions += row.PromoRedemptions
		section.Totals.Proceeds += row.Proceeds

		if row.Version == "" {
			continue
		}
		byVersion[row.Version] = row
		versions = append(versions, row.Version)
	}
	domain.SortVersions(versions)

	for _, v := range versions {
		row := byVersion[v]
		versionRow := VersionRow{
			Version:          row.Version,
			Installs:         row.Installs,
			PaidInstalls:     row.PaidInstalls,
			FreeInstalls:     row.FreeInstalls,
			Upgrades:         row.Upgrades,
			PromoRedemptions: row.PromoRedemptions,
			Proceeds:         row.Proceeds,
			RatingCount:      row.RatingCount,
		}
		versionRow.AverageRating, versionRow.RatingDefined = row.AverageRating()
		section.Versions = append(section.Versions, versionRow)
	}

	if ratingCount > 0 {
		section.AverageRating = float64(ratingSum) / float64(ratingCount)
		section.RatingDefined = true
	}
	section.RatingCount = ratingCount

	latest, users, err := g.aggregator.UsersOnLatest(ctx, app)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if err == nil {
		section.LatestVersion = latest
		section.UsersOnLatest = users

		legacy, defined, err := g.aggregator.LegacyUserPercent(ctx, app)
		if err != nil {
			return nil, err
		}
		section.LegacyUserPercent = legacy
		section.LegacyDefined = defined
	}

	edges, err := g.retention.Edges(ctx, app)
	if err != nil {
		return nil, err
	}
	for _, edge := range edges {
		section.Retention = append(section.Retention, RetentionRow{
			FromVersion: edge.FromVersion,
			ToVersion:   edge.ToVersion,
			Percent:     edge.Percent,
			Defined:     edge.Defined,
		})
	}

	if !opts.WindowEnd.IsZero() {
		window, err := g.builder.Window(ctx, app, opts.WindowEnd, opts.WindowDays)
		if err != nil {
			return nil, err
		}
		section.Window = window
	}

	geoAll, err := g.builder.GeoHistory(ctx, app)
	if err != nil {
		return nil, err
	}
	section.GeoAll = projectCountries(geoAll, opts.Filter)

	if opts.Summary != nil && opts.Summary.HasNewData() {
		batch := append([]domain.Date{}, opts.Summary.Ingested...)
		batch = append(batch, opts.Summary.Overwritten...)
		geoLatest, err := g.builder.GeoForDates(ctx, app, batch)
		if err != nil {
			return nil, err
		}
		section.GeoLatest = projectCountries(geoLatest, opts.Filter)
	}
	return section, nil
}

// projectCountries applies the country filter to a geographic snapshot.
func projectCountries(geo map[string]int64, filter *domain.Filter) map[string]int64 {
	result := make(map[string]int64, len(geo))
	for country, count := range geo {
		if filter.MatchCountry(country) {
			result[country] = count
		}
	}
	return result
}

func newDataSummary(s *ingest.RunSummary) *NewDataSummary {
	return &NewDataSummary{
		HasNewData:       s.HasNewData(),
		Start:            s.Start,
		End:              s.End,
		IngestedDates:    append([]domain.Date{}, s.Ingested...),
		FilledDates:      append([]domain.Date{}, s.Filled...),
		Installs:         s.NewInstalls,
		PaidInstalls:     s.NewPaidInstalls,
		FreeInstalls:     s.NewFreeInstalls,
		Upgrades:         s.NewUpgrades,
		PromoRedemptions: s.NewPromoRedemptions,
		Proceeds:         s.NewProceeds,
		Ratings:          s.NewRatings,
	}
}
