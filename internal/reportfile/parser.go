package reportfile

import (
	"fmt"
	"strconv"
	"strings"

	"harvest-reports/internal/domain"
)

// ParseError describes a report line field that failed to parse.
type ParseError struct {
	Field    string
	Expected string
	Value    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse field %q: expected %s, got %q", e.Field, e.Expected, e.Value)
}

// IsHeader reports whether line is the vendor header row.
func IsHeader(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), fieldNames[fieldProvider]+"\t")
}

// IsBlank reports whether line carries no data.
func IsBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// ParseSalesLine parses one tab-delimited sales report row into a SaleRecord.
// Header and blank lines must be filtered out by the caller; see IsHeader and
// IsBlank. Remap tables may be nil or empty, in which case codes pass
// through unchanged.
func ParseSalesLine(line string, tables *RemapTables) (*domain.SaleRecord, error) {
	if tables == nil {
		tables = NewRemapTables()
	}

	cols := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
	if len(cols) > fieldCount {
		return nil, &ParseError{
			Field:    "line",
			Expected: fmt.Sprintf("at most %d columns", fieldCount),
			Value:    strconv.Itoa(len(cols)),
		}
	}
	// Old report rows drop trailing columns; pad them out.
	for len(cols) < fieldCount {
		cols = append(cols, "")
	}
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}

	units, err := parseUnits(cols[fieldUnits])
	if err != nil {
		return nil, err
	}
	proceeds, err := parseProceeds(cols[fieldUnitProceeds])
	if err != nil {
		return nil, err
	}
	date, err := parseBeginDate(cols[fieldBeginDate])
	if err != nil {
		return nil, err
	}

	app := cols[fieldSKU]
	if app == "" {
		return nil, &ParseError{Field: fieldNames[fieldSKU], Expected: "non-empty product identifier", Value: ""}
	}

	productType, known := tables.ProductType(cols[fieldProductType])
	if !known {
		return nil, &ParseError{
			Field:    fieldNames[fieldProductType],
			Expected: "known product type code",
			Value:    cols[fieldProductType],
		}
	}

	promo := ""
	if raw := cols[fieldPromoCode]; raw != "" {
		promo = tables.PromoType(raw)
	}

	return &domain.SaleRecord{
		App:          app,
		Title:        cols[fieldTitle],
		Version:      cols[fieldVersion],
		Type:         classify(productType, promo),
		Date:         date,
		Country:      tables.Country(cols[fieldCountryCode]),
		Units:        units,
		UnitProceeds: proceeds,
		PromoCode:    promo,
	}, nil
}

// classify derives the transaction type from the remapped product type and
// the promo code. Promo redemptions count as installs with a promo marker.
func classify(productType, promo string) domain.TransactionType {
	if strings.Contains(productType, "Update") {
		return domain.TxUpgrade
	}
	if promo != "" {
		return domain.TxPromoCode
	}
	return domain.TxInstall
}

func parseUnits(raw string) (int64, error) {
	if raw == "" {
		return 0, &ParseError{Field: fieldNames[fieldUnits], Expected: "integer", Value: raw}
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &ParseError{Field: fieldNames[fieldUnits], Expected: "integer", Value: raw}
	}
	return v, nil
}

func parseProceeds(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &ParseError{Field: fieldNames[fieldUnitProceeds], Expected: "decimal", Value: raw}
	}
	return v, nil
}

func parseBeginDate(raw string) (domain.Date, error) {
	date, err := domain.ParseReportDate(raw)
	if err != nil {
		return domain.Date{}, &ParseError{Field: fieldNames[fieldBeginDate], Expected: "MM/DD/YYYY date", Value: raw}
	}
	return date, nil
}

// Rating feed record columns: app id, country, rating, version, timestamp.
const (
	ratingFieldApp = iota
	ratingFieldCountry
	ratingFieldRating
	ratingFieldVersion
	ratingFieldTimestamp

	ratingFieldCount
)

// ParseRatingLine parses one tab-delimited rating feed record. The version
// column may be empty when the store feed does not attribute the rating to
// a release.
func ParseRatingLine(line string) (*domain.RatingEvent, error) {
	cols := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
	for len(cols) < ratingFieldCount {
		cols = append(cols, "")
	}
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}

	if cols[ratingFieldApp] == "" {
		return nil, &ParseError{Field: "app", Expected: "non-empty product identifier", Value: ""}
	}

	rating, err := strconv.Atoi(cols[ratingFieldRating])
	if err != nil {
		return nil, &ParseError{Field: "rating", Expected: "integer 1-5", Value: cols[ratingFieldRating]}
	}

	var ts int64
	if raw := cols[ratingFieldTimestamp]; raw != "" {
		ts, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &ParseError{Field: "timestamp", Expected: "unix milliseconds", Value: raw}
		}
	}

	event := &domain.RatingEvent{
		App:         cols[ratingFieldApp],
		Country:     cols[ratingFieldCountry],
		Rating:      rating,
		Version:     cols[ratingFieldVersion],
		TimestampMs: ts,
	}
	if !event.Valid() {
		return nil, &ParseError{Field: "rating", Expected: "integer 1-5", Value: cols[ratingFieldRating]}
	}
	return event, nil
}
