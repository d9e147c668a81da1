package reporting

import (
	"fmt"
	"strings"

	"harvest-reports/internal/domain"
)

// RenderVersionsCSV renders every app's per-version counters as CSV.
func RenderVersionsCSV(r *Report) string {
	var sb strings.Builder

	sb.WriteString("app,version,installs,paid_installs,free_installs,updates,promo_redemptions,proceeds,average_rating,rating_count\n")
	for _, app := range r.Apps {
		for _, v := range app.Versions {
			rating := ""
			if v.RatingDefined {
				rating = fmt.Sprintf("%.4f", v.AverageRating)
			}
			sb.WriteString(fmt.Sprintf("%s,%s,%d,%d,%d,%d,%d,%.2f,%s,%d\n",
				app.App, v.Version, v.Installs, v.PaidInstalls, v.FreeInstalls,
				v.Upgrades, v.PromoRedemptions, v.Proceeds, rating, v.RatingCount))
		}
	}
	return sb.String()
}

// RenderWindowCSV renders a trend window as CSV, one row per day. This is
// the data series the charting collaborator consumes.
func RenderWindowCSV(app string, window []*domain.TimeSeriesPoint) string {
	var sb strings.Builder

	sb.WriteString("app,date,installs,paid_installs,free_installs,updates,promo_redemptions,proceeds\n")
	for _, p := range window {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%d,%d,%d,%d,%.2f\n",
			app, p.Date, p.Installs, p.PaidInstalls, p.FreeInstalls,
			p.Upgrades, p.PromoRedemptions, p.Proceeds))
	}
	return sb.String()
}

// RenderGeoCSV renders a geographic snapshot as CSV ordered by installs
// DESC.
func RenderGeoCSV(app string, geo map[string]int64) string {
	var sb strings.Builder

	sb.WriteString("app,country,installs\n")
	for _, country := range sortedCountries(geo) {
		sb.WriteString(fmt.Sprintf("%s,%s,%d\n", app, country, geo[country]))
	}
	return sb.String()
}
