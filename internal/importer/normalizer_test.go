package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogtools/importer/internal/importer/domain"
)

func TestNormalizeRow(t *testing.T) {
	tests := []struct {
		name       string
		row        Row
		seenInFile map[string]struct{}
		existing   map[string]struct{}
		wantOK     bool
		wantRec    domain.ProductRecord
		wantClass  domain.RowClass
	}{
		{
			name:      "clean new row",
			row:       Row{"sku": "ABC-1", "name": "Widget", "description": "A widget", "price": "10.50"},
			wantOK:    true,
			wantRec:   domain.ProductRecord{SKU: "abc-1", Name: "Widget", Description: "A widget", Price: floatPtr(10.50), IsActive: true},
			wantClass: domain.ClassNew,
		},
		{
			name:   "empty sku rejected",
			row:    Row{"sku": "", "name": "Widget"},
			wantOK: false,
		},
		{
			name:   "whitespace sku rejected",
			row:    Row{"sku": "   ", "name": "Widget"},
			wantOK: false,
		},
		{
			name:      "sku trimmed and lower-cased",
			row:       Row{"sku": "  AbC-1  ", "name": "Widget"},
			wantOK:    true,
			wantRec:   domain.ProductRecord{SKU: "abc-1", Name: "Widget", IsActive: true},
			wantClass: domain.ClassNew,
		},
		{
			name:      "empty name substituted with sku",
			row:       Row{"sku": "ABC-1", "name": "  "},
			wantOK:    true,
			wantRec:   domain.ProductRecord{SKU: "abc-1", Name: "abc-1", IsActive: true},
			wantClass: domain.ClassNew,
		},
		{
			name:      "unparseable price cleared",
			row:       Row{"sku": "abc-1", "name": "Widget", "price": "abc"},
			wantOK:    true,
			wantRec:   domain.ProductRecord{SKU: "abc-1", Name: "Widget", IsActive: true},
			wantClass: domain.ClassNew,
		},
		{
			name:      "negative price cleared",
			row:       Row{"sku": "abc-1", "name": "Widget", "price": "-5.00"},
			wantOK:    true,
			wantRec:   domain.ProductRecord{SKU: "abc-1", Name: "Widget", IsActive: true},
			wantClass: domain.ClassNew,
		},
		{
			name:      "zero price kept",
			row:       Row{"sku": "abc-1", "name": "Widget", "price": "0"},
			wantOK:    true,
			wantRec:   domain.ProductRecord{SKU: "abc-1", Name: "Widget", Price: floatPtr(0), IsActive: true},
			wantClass: domain.ClassNew,
		},
		{
			name:       "duplicate within file",
			row:        Row{"sku": "ABC-1", "name": "Widget"},
			seenInFile: map[string]struct{}{"abc-1": {}},
			wantOK:     true,
			wantRec:    domain.ProductRecord{SKU: "abc-1", Name: "Widget", IsActive: true},
			wantClass:  domain.ClassDuplicateInFile,
		},
		{
			name:      "duplicate of existing record",
			row:       Row{"sku": "abc-1", "name": "Widget"},
			existing:  map[string]struct{}{"abc-1": {}},
			wantOK:    true,
			wantRec:   domain.ProductRecord{SKU: "abc-1", Name: "Widget", IsActive: true},
			wantClass: domain.ClassDuplicateExisting,
		},
		{
			name:       "in-file duplicate wins over existing",
			row:        Row{"sku": "abc-1", "name": "Widget"},
			seenInFile: map[string]struct{}{"abc-1": {}},
			existing:   map[string]struct{}{"abc-1": {}},
			wantOK:     true,
			wantRec:    domain.ProductRecord{SKU: "abc-1", Name: "Widget", IsActive: true},
			wantClass:  domain.ClassDuplicateInFile,
		},
		{
			name:      "missing columns tolerated",
			row:       Row{"sku": "abc-1"},
			wantOK:    true,
			wantRec:   domain.ProductRecord{SKU: "abc-1", Name: "abc-1", IsActive: true},
			wantClass: domain.ClassNew,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := tt.seenInFile
			if seen == nil {
				seen = map[string]struct{}{}
			}
			existing := tt.existing
			if existing == nil {
				existing = map[string]struct{}{}
			}

			cand, ok := NormalizeRow(tt.row, seen, existing)

			if !tt.wantOK {
				require.False(t, ok)
				return
			}

			require.True(t, ok)
			assert.Equal(t, tt.wantRec, cand.Record)
			assert.Equal(t, tt.wantClass, cand.Class)
		})
	}
}

func TestNormalizeRow_DoesNotMutateSets(t *testing.T) {
	seen := map[string]struct{}{}
	existing := map[string]struct{}{}

	_, ok := NormalizeRow(Row{"sku": "abc-1", "name": "Widget"}, seen, existing)
	require.True(t, ok)

	assert.Empty(t, seen)
	assert.Empty(t, existing)
}

func floatPtr(v float64) *float64 {
	return &v
}
