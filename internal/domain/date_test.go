package domain

import (
	"testing"
	"time"
)

func TestParseReportDate(t *testing.T) {
	d, err := ParseReportDate("03/15/2024")
	if err != nil {
		t.Fatalf("ParseReportDate failed: %v", err)
	}

	if d != NewDate(2024, time.March, 15) {
		t.Errorf("got %v, want 2024-03-15", d)
	}
	if d.String() != "2024-03-15" {
		t.Errorf("String() = %q, want 2024-03-15", d.String())
	}
	if d.Compact() != "20240315" {
		t.Errorf("Compact() = %q, want 20240315", d.Compact())
	}
}

func TestParseReportDate_Invalid(t *testing.T) {
	if _, err := ParseReportDate("2024-03-15"); err == nil {
		t.Error("expected error for ISO form passed to ParseReportDate")
	}
}

func TestDateAddDays(t *testing.T) {
	d := NewDate(2024, time.February, 28)

	next := d.AddDays(1)
	if next != NewDate(2024, time.February, 29) {
		t.Errorf("2024-02-28 + 1 = %v, want 2024-02-29 (leap year)", next)
	}

	prev := NewDate(2024, time.March, 1).AddDays(-1)
	if prev != NewDate(2024, time.February, 29) {
		t.Errorf("2024-03-01 - 1 = %v, want 2024-02-29", prev)
	}
}

func TestDateDaysUntil(t *testing.T) {
	a := NewDate(2024, time.March, 1)
	b := NewDate(2024, time.March, 31)

	if got := a.DaysUntil(b); got != 30 {
		t.Errorf("DaysUntil = %d, want 30", got)
	}
	if got := b.DaysUntil(a); got != -30 {
		t.Errorf("reverse DaysUntil = %d, want -30", got)
	}
}

func TestDateOrdering(t *testing.T) {
	earlier := NewDate(2024, time.January, 31)
	later := NewDate(2024, time.February, 1)

	if !earlier.Before(later) {
		t.Error("January 31 should be before February 1")
	}
	if !later.After(earlier) {
		t.Error("February 1 should be after January 31")
	}
	// ISO strings must sort in calendar order; storage relies on this.
	if !(earlier.String() < later.String()) {
		t.Error("ISO forms out of order")
	}
}
