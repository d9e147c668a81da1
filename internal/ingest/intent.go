package ingest

// Intent tags how a report day enters the ledger. Overwrite carries the
// reversal obligation explicitly instead of being inferred from flags.
type Intent int

const (
	// IntentFresh admits a date only if it has never been ingested.
	IntentFresh Intent = iota
	// IntentOverwrite re-admits an already ingested date after its prior
	// contributions have been reversed.
	IntentOverwrite
)

func (i Intent) String() string {
	switch i {
	case IntentOverwrite:
		return "overwrite"
	default:
		return "fresh"
	}
}
