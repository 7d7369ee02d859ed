// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/book-enricher/pkg/types"
)

func src(name string, reliability float64) types.MetadataSource {
	return types.MetadataSource{Name: name, Reliability: reliability}
}

func TestISBNConversion(t *testing.T) {
	assert.Equal(t, "9780123456786", To13("0123456789"))
	assert.Equal(t, "0123456789", To10("9780123456786"))
	assert.Equal(t, "", To10("9790123456785"))
	assert.True(t, ValidISBN10("0441172717"))
	assert.True(t, ValidISBN10("080442957X"))
	assert.False(t, ValidISBN10("0123456788"))
	assert.True(t, ValidISBN13("9780441013593"))
	assert.False(t, ValidISBN13("9780123456787"))
	assert.False(t, ValidISBN13("1234567890128"), "must carry a 978 or 979 prefix")
}

func TestNormalizeIdentifier(t *testing.T) {
	tests := []struct {
		raw        string
		typ        types.IdentifierType
		normalized string
		valid      bool
	}{
		{"0123456789", types.IdentifierISBN, "9780123456786", true},
		{"9780123456787", types.IdentifierISBN, "9780123456787", false},
		{"978-0-12-345678-6", types.IdentifierISBN, "9780123456786", true},
		{"ISBN 0-12-345678-9", types.IdentifierISBN, "9780123456786", true},
		{"0123456788", types.IdentifierISBN, "0123456788", false},
		{"doi:10.1000/XYZ123", types.IdentifierDOI, "10.1000/xyz123", true},
		{"https://doi.org/10.1000/abc", types.IdentifierDOI, "10.1000/abc", true},
		{"ocm12345678", types.IdentifierOCLC, "12345678", true},
		{"(OCoLC)00012345", types.IdentifierOCLC, "12345", true},
		{"12345678", types.IdentifierOCLC, "12345678", true},
		{"lccn:n78-890351", types.IdentifierLCCN, "n78890351", true},
		{"https://www.amazon.com/dp/B000FC0SIM", types.IdentifierAmazon, "B000FC0SIM", true},
		{"asin:B000FC0SIM", types.IdentifierAmazon, "B000FC0SIM", true},
		{"https://www.goodreads.com/book/show/234225.Dune", types.IdentifierGoodreads, "234225", true},
		{"https://books.google.com/books?id=B1hSG45JCX4C", types.IdentifierGoogle, "B1hSG45JCX4C", true},
		{"some-internal-key", types.IdentifierOther, "some-internal-key", true},
		{"", types.IdentifierOther, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := NormalizeIdentifier(tt.raw)
			assert.Equal(t, tt.typ, got.Type)
			assert.Equal(t, tt.normalized, got.Normalized)
			assert.Equal(t, tt.valid, got.Valid)

			again := NormalizeIdentifier(got.Normalized)
			assert.Equal(t, got.Normalized, again.Normalized, "normalization is idempotent")

			back := NormalizeIdentifier(Qualified(got))
			assert.Equal(t, got.Type, back.Type, "qualified form keeps the type")
			assert.Equal(t, got.Normalized, back.Normalized)
		})
	}
}

func TestReconcileIdentifiers_Agreement(t *testing.T) {
	r := New()
	got, err := r.ReconcileIdentifiers([]Input[[]string]{
		{Value: []string{"B000FC0SIM"}, Source: src("amazon", 0.9)},
		{Value: []string{"0123456789", "ocm12345678"}, Source: src("loc", 0.95)},
		{Value: []string{"978-0-12-345678-6"}, Source: src("openlibrary", 0.85)},
	})
	require.NoError(t, err)
	require.Len(t, got.Value, 3)
	assert.Equal(t, types.IdentifierISBN, got.Value[0].Type)
	assert.Equal(t, "9780123456786", got.Value[0].Normalized)
	assert.Equal(t, "0123456789", got.Value[0].Value, "most reliable source supplies the raw value")
	assert.Equal(t, types.IdentifierOCLC, got.Value[1].Type)
	assert.Equal(t, types.IdentifierAmazon, got.Value[2].Type)
	assert.False(t, got.HasConflicts())
	// loc 0.95 + one agreeing source, capped at loc's 0.98.
	assert.InDelta(t, 0.98, got.Confidence, 1e-9)
	assert.Equal(t, []string{"loc", "amazon", "openlibrary"}, got.SourceNames())
}

func TestReconcileIdentifiers_DisjointISBNs(t *testing.T) {
	r := New()
	got, err := r.ReconcileIdentifiers([]Input[[]string]{
		{Value: []string{"9780441013593"}, Source: src("openlibrary", 0.85)},
		{Value: []string{"9780123456786"}, Source: src("loc", 0.95)},
	})
	require.NoError(t, err)
	require.Len(t, got.Value, 2)
	assert.True(t, got.HasConflicts())
	assert.Equal(t, string(types.FieldISBN), got.Conflicts[0].Field)
	assert.Equal(t, "9780123456786", got.Value[0].Normalized)
	assert.InDelta(t, 0.95*0.9, got.Confidence, 1e-9)
}

func TestReconcileIdentifiers_InvalidPrimary(t *testing.T) {
	r := New()
	got, err := r.ReconcileIdentifiers([]Input[[]string]{
		{Value: []string{"9780123456787"}, Source: src("scraper", 0.8)},
	})
	require.NoError(t, err)
	assert.False(t, got.Value[0].Valid)
	assert.InDelta(t, 0.4, got.Confidence, 1e-9)
	assert.Contains(t, got.Reasoning, "failed validation")
}

func TestReconcileIdentifiers_Degenerate(t *testing.T) {
	r := New()
	_, err := r.ReconcileIdentifiers(nil)
	assert.ErrorIs(t, err, ErrNoInputs)

	got, err := r.ReconcileIdentifiers([]Input[[]string]{{Value: []string{"  "}, Source: src("a", 0.9)}})
	require.NoError(t, err)
	assert.Empty(t, got.Value)
	assert.InDelta(t, 0.1, got.Confidence, 1e-9)
	assert.NotEmpty(t, got.Reasoning)
}

func TestReconcileIdentifiers_OrderIndependent(t *testing.T) {
	r := New()
	a := Input[[]string]{Value: []string{"0441172717", "doi:10.1000/dune"}, Source: src("loc", 0.95)}
	b := Input[[]string]{Value: []string{"9780441172719", "B000FC0SIM"}, Source: src("amazon", 0.9)}
	c := Input[[]string]{Value: []string{"9780441013593"}, Source: src("wikidata", 0.8)}

	first, err := r.ReconcileIdentifiers([]Input[[]string]{a, b, c})
	require.NoError(t, err)
	second, err := r.ReconcileIdentifiers([]Input[[]string]{c, b, a})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
