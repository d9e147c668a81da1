// Package idhash computes deterministic content hashes for report batches.
package idhash

import (
	"crypto/sha256"
	"fmt"
	"sort"

	"github.com/mr-tron/base58"

	"harvest-reports/internal/domain"
)

// ComputeBatchHash computes a deterministic content hash for one report
// day's record batch. Records are hashed in canonical order so the hash is
// independent of file or fetch ordering.
// Returns the base58-encoded SHA256 digest.
func ComputeBatchHash(records []*domain.SaleRecord) string {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, recordIdentity(r))
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, line := range lines {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	return base58.Encode(h.Sum(nil))
}

// recordIdentity renders the fields that define a record's identity.
// Formula: app|version|type|date|country|units|unit_proceeds|promo
func recordIdentity(r *domain.SaleRecord) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%d|%.6f|%s",
		r.App,
		r.Version,
		string(r.Type),
		r.Date,
		r.Country,
		r.Units,
		r.UnitProceeds,
		r.PromoCode,
	)
}
