package domain

// TransactionType classifies a sales report row.
type TransactionType string

// Transaction type constants.
const (
	// TxInstall is a first-time purchase or free download.
	TxInstall TransactionType = "install"
	// TxUpgrade is an update of an existing install to the row's version.
	TxUpgrade TransactionType = "upgrade"
	// TxPromoCode is an install delivered through a promo code redemption.
	// It counts toward both the install and promo redemption totals.
	TxPromoCode TransactionType = "promo"
)

// SaleRecord is one parsed row of a daily sales report.
// Immutable once parsed; consumed exactly once by the aggregator.
type SaleRecord struct {
	App          string          // vendor product identifier (SKU column)
	Title        string          // product display name
	Version      string          // version string, e.g. "1.0.2"
	Type         TransactionType // install | upgrade | promo
	Date         Date            // report day the row belongs to
	Country      string          // customer country code
	Units        int64           // unit count for this row
	UnitProceeds float64         // developer proceeds per unit, currency-normalized
	PromoCode    string          // promo code type, empty when none
}

// Proceeds returns the total proceeds for the row.
func (r *SaleRecord) Proceeds() float64 {
	return float64(r.Units) * r.UnitProceeds
}

// Paid reports whether the row represents paid units.
// Zero-proceeds installs are free downloads.
func (r *SaleRecord) Paid() bool {
	return r.UnitProceeds > 0
}
