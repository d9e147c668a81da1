package reporting

import (
	"fmt"
	"strings"
)

// RenderText renders the report as the plain-text daily summary.
func RenderText(r *Report) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Daily Summary for %s\n", r.GeneratedAt.Format("2006-01-02")))
	sb.WriteString(strings.Repeat("=", 40) + "\n")

	if r.NewData != nil && !r.NewData.HasNewData {
		sb.WriteString("No new sales or updates have occurred.\n")
	}

	for _, app := range r.Apps {
		sb.WriteString(fmt.Sprintf("\n%s\n", app.App))
		sb.WriteString(fmt.Sprintf("    Installs            : %6d\n", app.Totals.Installs))
		sb.WriteString(fmt.Sprintf("      Paid              : %6d\n", app.Totals.PaidInstalls))
		sb.WriteString(fmt.Sprintf("      Free              : %6d\n", app.Totals.FreeInstalls))
		sb.WriteString(fmt.Sprintf("    Updates             : %6d\n", app.Totals.Upgrades))
		sb.WriteString(fmt.Sprintf("    Promo Codes         : %6d\n", app.Totals.PromoRedemptions))
		sb.WriteString(fmt.Sprintf("    Proceeds            : %9.2f\n", app.Totals.Proceeds))
		if app.LatestVersion != "" {
			sb.WriteString(fmt.Sprintf("    Latest Version      : %s (%d users)\n", app.LatestVersion, app.UsersOnLatest))
		}
		if app.LegacyDefined {
			sb.WriteString(fmt.Sprintf("    On Old Versions     : %5.1f%%\n", app.LegacyUserPercent))
		}
		sb.WriteString(fmt.Sprintf("    Average Rating      : %s\n", formatRating(app.AverageRating, app.RatingDefined, app.RatingCount)))

		for _, edge := range app.Retention {
			retained := "n/a"
			if edge.Defined {
				retained = fmt.Sprintf("%.1f%%", edge.Percent)
			}
			sb.WriteString(fmt.Sprintf("    Retention %s -> %s: %s\n", edge.FromVersion, edge.ToVersion, retained))
		}
	}
	return sb.String()
}
