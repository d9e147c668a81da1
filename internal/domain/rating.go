package domain

// RatingEvent is one customer rating taken from the store review feed.
// Immutable; only its aggregated effect (sum + count) persists.
type RatingEvent struct {
	App         string // vendor product identifier
	Country     string // storefront country code
	Rating      int    // 1..5
	Version     string // version the rating was left on, empty when unknown
	TimestampMs int64  // Unix timestamp in milliseconds
}

// Valid reports whether the rating value is within the 1..5 scale.
func (e *RatingEvent) Valid() bool {
	return e.Rating >= 1 && e.Rating <= 5
}
