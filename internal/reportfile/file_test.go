package reportfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"harvest-reports/internal/domain"
)

func TestReportFileName(t *testing.T) {
	date := domain.NewDate(2024, time.March, 5)
	name := ReportFileName("80012345", date)
	if name != "S_D_80012345_20240305.txt" {
		t.Errorf("ReportFileName = %q", name)
	}

	vendor, parsed, err := ParseReportFileName(name)
	if err != nil {
		t.Fatalf("ParseReportFileName failed: %v", err)
	}
	if vendor != "80012345" || parsed != date {
		t.Errorf("parsed %q/%v, want 80012345/%v", vendor, parsed, date)
	}
}

func TestParseReportFileName_Invalid(t *testing.T) {
	for _, name := range []string{
		"S_D_80012345_20240305.csv",
		"S_W_80012345_20240305.txt",
		"S_D_80012345.txt",
		"S_D_80012345_2024030.txt",
		"S_D_80012345_20241335.txt",
	} {
		if _, _, err := ParseReportFileName(name); err == nil {
			t.Errorf("expected error for %q", name)
		}
	}
}

func TestReadReportFile(t *testing.T) {
	content := strings.Join([]string{
		strings.Join(fieldNames[:], "\t"),
		salesLine(nil),
		"",
		salesLine(map[int]string{fieldCountryCode: "DE", fieldUnits: "1"}),
	}, "\n")

	records, err := ReadReportFile(strings.NewReader(content), nil)
	if err != nil {
		t.Fatalf("ReadReportFile failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[1].Country != "DE" || records[1].Units != 1 {
		t.Errorf("second record = %+v", records[1])
	}
}

func TestReadReportFile_MalformedLineFailsFile(t *testing.T) {
	content := strings.Join([]string{
		strings.Join(fieldNames[:], "\t"),
		salesLine(nil),
		salesLine(map[int]string{fieldUnits: "bogus"}),
	}, "\n")

	_, err := ReadReportFile(strings.NewReader(content), nil)
	if err == nil {
		t.Fatal("expected error for malformed row")
	}
	if !strings.Contains(err.Error(), "line 3") {
		t.Errorf("error must name the line: %v", err)
	}
}

func TestReadRatingFeed(t *testing.T) {
	content := "com.example.app\tUS\t5\t1.0\t1710500000000\n\ncom.example.app\tDE\t3\t\t\n"

	events, err := ReadRatingFeed(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ReadRatingFeed failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Rating != 5 || events[1].Rating != 3 {
		t.Errorf("ratings = %d/%d", events[0].Rating, events[1].Rating)
	}
}

func TestLoadRemapTables(t *testing.T) {
	dir := t.TempDir()
	writeFile := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	writeFile("fields_countries.csv", "US,United States\nAU,Australia\n")
	writeFile("fields_productTypes.csv", "1,App Install\n7,App Update\n")

	tables, err := LoadRemapTables(dir)
	if err != nil {
		t.Fatalf("LoadRemapTables failed: %v", err)
	}
	if tables.Country("AU") != "Australia" {
		t.Errorf("Country(AU) = %q", tables.Country("AU"))
	}

	// Missing files leave tables empty with pass-through behavior.
	if len(tables.Currencies) != 0 {
		t.Errorf("Currencies must be empty, got %v", tables.Currencies)
	}
	if tables.Currency("USD") != "USD" {
		t.Errorf("Currency(USD) = %q, want pass-through", tables.Currency("USD"))
	}

	if v, ok := tables.ProductType("7"); !ok || v != "App Update" {
		t.Errorf("ProductType(7) = %q/%v", v, ok)
	}
	if _, ok := tables.ProductType("99"); ok {
		t.Error("unknown code must not resolve against a loaded table")
	}
}
