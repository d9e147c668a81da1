package domain

// RunOptions configures one harvest run. There are no hidden defaults:
// an empty app or country filter means "all apps" / "all countries".
type RunOptions struct {
	VendorID  string   // vendor identifier the report files are keyed by
	Apps      []string // app-id filter for reporting/ratings projections
	Countries []string // country-code filter for reporting/ratings projections
	DaysBack  int      // how many calendar days back to ingest
	Overwrite bool     // re-ingest days that are already in the ledger
}

// Filter restricts reporting and ratings projections. Filters are applied
// at query time over fully ingested data, never at ingestion time, so
// counters for filtered-out apps are never lost.
type Filter struct {
	apps      map[string]struct{}
	countries map[string]struct{}
}

// NewFilter builds a Filter from app and country lists. Empty lists match
// everything.
func NewFilter(apps, countries []string) *Filter {
	f := &Filter{}
	if len(apps) > 0 {
		f.apps = make(map[string]struct{}, len(apps))
		for _, a := range apps {
			f.apps[a] = struct{}{}
		}
	}
	if len(countries) > 0 {
		f.countries = make(map[string]struct{}, len(countries))
		for _, c := range countries {
			f.countries[c] = struct{}{}
		}
	}
	return f
}

// Filter built from the run options' app and country lists.
func (o *RunOptions) Filter() *Filter {
	return NewFilter(o.Apps, o.Countries)
}

// MatchApp reports whether the app passes the filter.
func (f *Filter) MatchApp(app string) bool {
	if f == nil || f.apps == nil {
		return true
	}
	_, ok := f.apps[app]
	return ok
}

// MatchCountry reports whether the country code passes the filter.
func (f *Filter) MatchCountry(country string) bool {
	if f == nil || f.countries == nil {
		return true
	}
	_, ok := f.countries[country]
	return ok
}
