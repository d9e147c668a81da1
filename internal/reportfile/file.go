package reportfile

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"harvest-reports/internal/domain"
)

// ReportFileName returns the vendor's daily report file name for a vendor
// id and report date, e.g. "S_D_80012345_20240315.txt".
func ReportFileName(vendorID string, date domain.Date) string {
	return fmt.Sprintf("S_D_%s_%s.txt", vendorID, date.Compact())
}

// ParseReportFileName extracts the vendor id and report date from a daily
// report file name produced by ReportFileName.
func ParseReportFileName(name string) (vendorID string, date domain.Date, err error) {
	base := strings.TrimSuffix(name, ".txt")
	parts := strings.Split(base, "_")
	if len(parts) != 4 || parts[0] != "S" || parts[1] != "D" || !strings.HasSuffix(name, ".txt") {
		return "", domain.Date{}, fmt.Errorf("report file name %q: want S_D_<vendor>_<yyyymmdd>.txt", name)
	}

	compact := parts[3]
	if len(compact) != 8 {
		return "", domain.Date{}, fmt.Errorf("report file name %q: bad date %q", name, compact)
	}
	date, err = domain.ParseDate(compact[:4] + "-" + compact[4:6] + "-" + compact[6:])
	if err != nil {
		return "", domain.Date{}, fmt.Errorf("report file name %q: %w", name, err)
	}
	return parts[2], date, nil
}

// ReadReportFile parses a full daily sales report. The header row and blank
// lines are skipped; any malformed data row fails the whole file.
func ReadReportFile(r io.Reader, tables *RemapTables) ([]*domain.SaleRecord, error) {
	var records []*domain.SaleRecord

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if IsBlank(line) || IsHeader(line) {
			continue
		}

		record, err := ParseSalesLine(line, tables)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	return records, nil
}

// ReadRatingFeed parses a rating feed, one record per line, skipping blanks.
func ReadRatingFeed(r io.Reader) ([]*domain.RatingEvent, error) {
	var events []*domain.RatingEvent

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if IsBlank(line) {
			continue
		}

		event, err := ParseRatingLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read rating feed: %w", err)
	}
	return events, nil
}
