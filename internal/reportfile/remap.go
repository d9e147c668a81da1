package reportfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Remap table file names, one two-column CSV (code, display value) each.
const (
	countriesFile    = "fields_countries.csv"
	currenciesFile   = "fields_currencies.csv"
	productTypesFile = "fields_productTypes.csv"
	promoTypesFile   = "fields_promoCodes.csv"
)

// RemapTables translate vendor report codes into display values. Every
// table is optional: an empty table passes codes through unchanged.
type RemapTables struct {
	Countries    map[string]string
	Currencies   map[string]string
	ProductTypes map[string]string
	PromoTypes   map[string]string
}

// NewRemapTables returns empty tables; every lookup passes through.
func NewRemapTables() *RemapTables {
	return &RemapTables{
		Countries:    make(map[string]string),
		Currencies:   make(map[string]string),
		ProductTypes: make(map[string]string),
		PromoTypes:   make(map[string]string),
	}
}

// LoadRemapTables reads the remap CSV files from dir. Missing files leave
// the corresponding table empty rather than failing.
func LoadRemapTables(dir string) (*RemapTables, error) {
	t := NewRemapTables()

	for _, f := range []struct {
		name  string
		table map[string]string
	}{
		{countriesFile, t.Countries},
		{currenciesFile, t.Currencies},
		{productTypesFile, t.ProductTypes},
		{promoTypesFile, t.PromoTypes},
	} {
		if err := loadTable(filepath.Join(dir, f.name), f.table); err != nil {
			return nil, fmt.Errorf("load remap table %s: %w", f.name, err)
		}
	}
	return t, nil
}

func loadTable(path string, into map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if len(row) < 2 {
			continue
		}
		into[row[0]] = row[1]
	}
}

// Country maps a country code, passing unknown codes through.
func (t *RemapTables) Country(code string) string {
	return remap(t.Countries, code)
}

// Currency maps a currency code, passing unknown codes through.
func (t *RemapTables) Currency(code string) string {
	return remap(t.Currencies, code)
}

// PromoType maps a promo code type, passing unknown codes through.
func (t *RemapTables) PromoType(code string) string {
	return remap(t.PromoTypes, code)
}

// ProductType maps a product type code. Unlike the other tables, a loaded
// product type table is authoritative: the second return is false when the
// table is non-empty and the code is not in it.
func (t *RemapTables) ProductType(code string) (string, bool) {
	if t == nil || len(t.ProductTypes) == 0 {
		return code, true
	}
	v, ok := t.ProductTypes[code]
	if !ok {
		return code, false
	}
	return v, true
}

func remap(table map[string]string, code string) string {
	if len(table) == 0 {
		return code
	}
	if v, ok := table[code]; ok {
		return v
	}
	return code
}
