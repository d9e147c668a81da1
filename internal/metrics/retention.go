package metrics

import (
	"context"

	"harvest-reports/internal/domain"
	"harvest-reports/internal/storage"
)

// RetentionCalculator derives version-to-version retention from cumulative
// counters. Pure projection over current store values, recomputed on
// demand, never persisted.
type RetentionCalculator struct {
	metricsStore storage.MetricsStore
}

// NewRetentionCalculator creates a retention calculator over the store.
func NewRetentionCalculator(metricsStore storage.MetricsStore) *RetentionCalculator {
	return &RetentionCalculator{metricsStore: metricsStore}
}

// Edges computes retention for every consecutive version pair of an app in
// release order. Retention A->B = upgrades(B) / (installs(A)+upgrades(A))
// as a percentage, capped at 100. A zero denominator yields Defined=false:
// "no prior users" is not "all users churned".
func (c *RetentionCalculator) Edges(ctx context.Context, app string) ([]domain.RetentionEdge, error) {
	rows, err := c.metricsStore.ListByApp(ctx, app)
	if err != nil {
		return nil, err
	}

	byVersion := make(map[string]*domain.AppVersionMetrics, len(rows))
	versions := make([]string, 0, len(rows))
	for _, row := range rows {
		// Version "" holds unattributed rating counters, not a release.
		if row.Version == "" {
			continue
		}
		byVersion[row.Version] = row
		versions = append(versions, row.Version)
	}
	domain.SortVersions(versions)

	var edges []domain.RetentionEdge
	for i := 1; i < len(versions); i++ {
		from := byVersion[versions[i-1]]
		to := byVersion[versions[i]]

		edge := domain.RetentionEdge{
			App:         app,
			FromVersion: from.Version,
			ToVersion:   to.Version,
		}

		denominator := from.Installs + from.Upgrades
		if denominator > 0 {
			edge.Defined = true
			edge.Percent = float64(to.Upgrades) / float64(denominator) * 100
			if edge.Percent > 100 {
				edge.Percent = 100
			}
		}
		edges = append(edges, edge)
	}
	return edges, nil
}
