// Package reportfile parses daily vendor sales report files and rating
// feed records into domain records.
package reportfile

// Column positions of the tab-delimited daily sales report. The vendor
// occasionally drops trailing columns on old data, so lines shorter than
// fieldCount are padded with empty values before extraction.
const (
	fieldProvider = iota
	fieldProviderCountry
	fieldSKU
	fieldDeveloper
	fieldTitle
	fieldVersion
	fieldProductType
	fieldUnits
	fieldUnitProceeds
	fieldBeginDate
	fieldEndDate
	fieldCustomerCurrency
	fieldCountryCode
	fieldProceedsCurrency
	fieldAppleID
	fieldCustomerPrice
	fieldPromoCode
	fieldParentID
	fieldSubscription
	fieldPeriod
	fieldCategory

	fieldCount
)

// fieldNames maps column positions to the vendor's header names.
var fieldNames = [fieldCount]string{
	"Provider",
	"Provider Country",
	"SKU",
	"Developer",
	"Title",
	"Version",
	"Product Type Identifier",
	"Units",
	"Developer Proceeds (per item)",
	"Begin Date",
	"End Date",
	"Customer Currency",
	"Country Code",
	"Currency of Proceeds",
	"Apple Identifier",
	"Customer Price",
	"Promo Code",
	"Parent Identifier",
	"Subscription",
	"Period",
	"Category",
}
