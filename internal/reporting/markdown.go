package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// RenderMarkdown renders the report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Harvest Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.VendorID != "" {
		sb.WriteString(fmt.Sprintf("Vendor: %s\n\n", r.VendorID))
	}

	if r.NewData != nil {
		sb.WriteString("## New Data\n\n")
		if r.NewData.HasNewData {
			sb.WriteString(fmt.Sprintf("New report days ingested for %s to %s.\n\n", r.NewData.Start, r.NewData.End))
			sb.WriteString("| Metric | Value |\n")
			sb.WriteString("|--------|-------|\n")
			sb.WriteString(fmt.Sprintf("| Days ingested | %d |\n", len(r.NewData.IngestedDates)))
			sb.WriteString(fmt.Sprintf("| Gap days filled | %d |\n", len(r.NewData.FilledDates)))
			sb.WriteString(fmt.Sprintf("| Installs | %d |\n", r.NewData.Installs))
			sb.WriteString(fmt.Sprintf("| Paid installs | %d |\n", r.NewData.PaidInstalls))
			sb.WriteString(fmt.Sprintf("| Free installs | %d |\n", r.NewData.FreeInstalls))
			sb.WriteString(fmt.Sprintf("| Updates | %d |\n", r.NewData.Upgrades))
			sb.WriteString(fmt.Sprintf("| Promo codes | %d |\n", r.NewData.PromoRedemptions))
			sb.WriteString(fmt.Sprintf("| Proceeds | %.2f |\n", r.NewData.Proceeds))
			sb.WriteString(fmt.Sprintf("| New ratings | %d |\n", r.NewData.Ratings))
			sb.WriteString("\n")
		} else {
			sb.WriteString("No new sales or updates since the last run.\n\n")
		}
	}

	for _, app := range r.Apps {
		sb.WriteString(fmt.Sprintf("## %s\n\n", app.App))

		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Installs | %d |\n", app.Totals.Installs))
		sb.WriteString(fmt.Sprintf("| Paid installs | %d |\n", app.Totals.PaidInstalls))
		sb.WriteString(fmt.Sprintf("| Free installs | %d |\n", app.Totals.FreeInstalls))
		sb.WriteString(fmt.Sprintf("| Updates | %d |\n", app.Totals.Upgrades))
		sb.WriteString(fmt.Sprintf("| Promo codes | %d |\n", app.Totals.PromoRedemptions))
		sb.WriteString(fmt.Sprintf("| Proceeds | %.2f |\n", app.Totals.Proceeds))
		if app.LatestVersion != "" {
			sb.WriteString(fmt.Sprintf("| Latest version | %s |\n", app.LatestVersion))
			sb.WriteString(fmt.Sprintf("| Users on latest | %d |\n", app.UsersOnLatest))
		}
		if app.LegacyDefined {
			sb.WriteString(fmt.Sprintf("| Users on old versions | %.1f%% |\n", app.LegacyUserPercent))
		}
		sb.WriteString(fmt.Sprintf("| Average rating | %s |\n", formatRating(app.AverageRating, app.RatingDefined, app.RatingCount)))
		sb.WriteString("\n")

		if len(app.Versions) > 0 {
			sb.WriteString("### Versions\n\n")
			sb.WriteString("| Version | Installs | Paid | Free | Updates | Promo | Proceeds | Rating |\n")
			sb.WriteString("|---------|----------|------|------|---------|-------|----------|--------|\n")
			for _, v := range app.Versions {
				sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d | %d | %.2f | %s |\n",
					v.Version, v.Installs, v.PaidInstalls, v.FreeInstalls,
					v.Upgrades, v.PromoRedemptions, v.Proceeds,
					formatRating(v.AverageRating, v.RatingDefined, v.RatingCount)))
			}
			sb.WriteString("\n")
		}

		if len(app.Retention) > 0 {
			sb.WriteString("### Retention\n\n")
			sb.WriteString("| From | To | Retained |\n")
			sb.WriteString("|------|----|----------|\n")
			for _, edge := range app.Retention {
				retained := "n/a"
				if edge.Defined {
					retained = fmt.Sprintf("%.1f%%", edge.Percent)
				}
				sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", edge.FromVersion, edge.ToVersion, retained))
			}
			sb.WriteString("\n")
		}

		if len(app.GeoAll) > 0 {
			sb.WriteString("### Regions\n\n")
			sb.WriteString("| Country | Installs |\n")
			sb.WriteString("|---------|----------|\n")
			for _, country := range sortedCountries(app.GeoAll) {
				sb.WriteString(fmt.Sprintf("| %s | %d |\n", country, app.GeoAll[country]))
			}
			sb.WriteString("\n")
		}

		if len(app.GeoLatest) > 0 {
			sb.WriteString("### Regions (latest batch)\n\n")
			sb.WriteString("| Country | Installs |\n")
			sb.WriteString("|---------|----------|\n")
			for _, country := range sortedCountries(app.GeoLatest) {
				sb.WriteString(fmt.Sprintf("| %s | %d |\n", country, app.GeoLatest[country]))
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// sortedCountries returns countries ordered by count DESC, name ASC for
// deterministic output.
func sortedCountries(geo map[string]int64) []string {
	countries := make([]string, 0, len(geo))
	for c := range geo {
		countries = append(countries, c)
	}
	sort.Slice(countries, func(i, j int) bool {
		if geo[countries[i]] != geo[countries[j]] {
			return geo[countries[i]] > geo[countries[j]]
		}
		return countries[i] < countries[j]
	})
	return countries
}

func formatRating(avg float64, defined bool, count int64) string {
	if !defined {
		return "n/a"
	}
	return fmt.Sprintf("%.2f (%d ratings)", avg, count)
}
