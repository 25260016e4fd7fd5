package importer

import (
	"strconv"
	"strings"

	"github.com/catalogtools/importer/internal/importer/domain"
)

// Candidate is a normalized record together with its duplicate classification.
type Candidate struct {
	Record domain.ProductRecord
	Class  domain.RowClass
}

// NormalizeRow converts one raw row into a validated candidate record.
//
// The seenInFile set holds normalized keys accepted earlier in the same run
// and the existing set is the persistent-store snapshot taken at run start;
// both are consulted read-only. The caller updates seenInFile after accepting
// the candidate.
//
// The second return is false when the row is rejected (missing SKU); rejected
// rows produce no record and count toward failed_rows. All other per-row
// problems are soft-corrected: an empty name is substituted with the
// normalized SKU, and an unparseable or negative price clears the price field.
func NormalizeRow(row Row, seenInFile, existing map[string]struct{}) (Candidate, bool) {
	sku := strings.TrimSpace(row["sku"])
	if sku == "" {
		return Candidate{}, false
	}
	sku = strings.ToLower(sku)

	name := strings.TrimSpace(row["name"])
	if name == "" {
		name = sku
	}

	rec := domain.ProductRecord{
		SKU:         sku,
		Name:        name,
		Description: strings.TrimSpace(row["description"]),
		Price:       parsePrice(row["price"]),
		IsActive:    true,
	}

	class := domain.ClassNew
	if _, ok := seenInFile[sku]; ok {
		class = domain.ClassDuplicateInFile
	} else if _, ok := existing[sku]; ok {
		class = domain.ClassDuplicateExisting
	}

	return Candidate{Record: rec, Class: class}, true
}

// parsePrice returns nil for empty, unparseable, or negative values.
func parsePrice(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}
