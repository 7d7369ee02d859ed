// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/book-enricher/internal/provider"
	"github.com/pdiddy/book-enricher/pkg/types"
)

func static(name, kind string, priority int, rel map[types.FieldType]float64) provider.Provider {
	return provider.NewStatic(types.ProviderConfig{Name: name, Kind: kind, Priority: priority, Reliability: rel})
}

func names(ps []provider.Provider) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name()
	}
	return out
}

func fixtureProviders() []provider.Provider {
	return []provider.Provider{
		static("openlibrary", "catalog", 5, map[types.FieldType]float64{
			types.FieldTitle: 0.85, types.FieldISBN: 0.9, types.FieldCover: 0.7,
		}),
		static("loc", "catalog", 10, map[types.FieldType]float64{
			types.FieldTitle: 0.95, types.FieldISBN: 0.98, types.FieldPlace: 0.9,
		}),
		static("wikidata", "knowledge-base", 3, map[types.FieldType]float64{
			types.FieldTitle: 0.8, types.FieldISBN: 0.7,
		}),
		static("amazon", "commercial", 7, map[types.FieldType]float64{
			types.FieldTitle: 0.9, types.FieldISBN: 0.95, types.FieldCover: 0.95, types.FieldRating: 0.8,
		}),
		static("goodreads", "community", 4, map[types.FieldType]float64{
			types.FieldTitle: 0.75, types.FieldRating: 0.9, types.FieldReviews: 0.9,
		}),
	}
}

func TestParseStrategy(t *testing.T) {
	for _, name := range []string{"all", "priority", "fastest", "consensus", " Priority "} {
		_, err := ParseStrategy(name)
		assert.NoError(t, err, name)
	}
	_, err := ParseStrategy("random")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestSelect_UnknownStrategy(t *testing.T) {
	s := &Selector{}
	_, err := s.Select(fixtureProviders(), types.Query{}, "loudest", Options{})
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestSelect_Priority(t *testing.T) {
	s := &Selector{}
	in := fixtureProviders()
	got, err := s.Select(in, types.Query{}, "priority", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"loc", "amazon", "openlibrary", "goodreads", "wikidata"}, names(got))
	assert.Equal(t, "openlibrary", in[0].Name(), "input slice is not reordered")
}

func TestSelect_PriorityTiesStable(t *testing.T) {
	s := &Selector{}
	a := static("b-provider", "catalog", 1, nil)
	b := static("a-provider", "catalog", 1, nil)
	got1, _ := s.Select([]provider.Provider{a, b}, types.Query{}, "priority", Options{})
	got2, _ := s.Select([]provider.Provider{b, a}, types.Query{}, "priority", Options{})
	assert.Equal(t, names(got1), names(got2))
}

func TestSelect_MaxProviders(t *testing.T) {
	s := &Selector{}
	got, err := s.Select(fixtureProviders(), types.Query{}, "priority", Options{MaxProviders: Limit(0)})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.Select(fixtureProviders(), types.Query{}, "priority", Options{MaxProviders: Limit(-1)})
	require.NoError(t, err)
	assert.Len(t, got, 5)

	got, err = s.Select(fixtureProviders(), types.Query{}, "priority", Options{MaxProviders: Limit(2)})
	require.NoError(t, err)
	assert.Equal(t, []string{"loc", "amazon"}, names(got))

	got, err = s.Select(fixtureProviders(), types.Query{}, "all", Options{MaxProviders: Limit(2)})
	require.NoError(t, err)
	assert.Len(t, got, 5, "all never drops providers")
}

func TestSelect_Filters(t *testing.T) {
	s := &Selector{}
	got, err := s.Select(fixtureProviders(), types.Query{}, "priority", Options{
		RequiredDataTypes: []types.FieldType{types.FieldCover},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"amazon", "openlibrary"}, names(got))

	got, err = s.Select(fixtureProviders(), types.Query{}, "priority", Options{
		RequiredDataTypes:   []types.FieldType{types.FieldTitle, types.FieldISBN},
		MinReliabilityScore: 0.85,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"loc", "amazon", "openlibrary"}, names(got))

	got, err = s.Select(fixtureProviders(), types.Query{}, "priority", Options{
		ExcludeProviders: []string{"loc", "amazon"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"openlibrary", "goodreads", "wikidata"}, names(got))
}

func TestSelect_Fastest(t *testing.T) {
	h := provider.NewHistory(0)
	h.Record("wikidata", 10*time.Millisecond)
	h.Record("openlibrary", 50*time.Millisecond)
	h.Record("loc", 200*time.Millisecond)

	s := &Selector{History: h}
	got, err := s.Select(fixtureProviders(), types.Query{}, "fastest", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"wikidata", "openlibrary", "loc", "amazon", "goodreads"}, names(got))

	noHistory := &Selector{}
	got, err = noHistory.Select(fixtureProviders(), types.Query{}, "fastest", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"loc", "amazon", "openlibrary", "goodreads", "wikidata"}, names(got))
}

func TestSelect_Consensus(t *testing.T) {
	s := &Selector{}
	q := types.Query{Title: "Dune", ISBN: "9780441013593"}

	got, err := s.Select(fixtureProviders(), q, "consensus", Options{})
	require.NoError(t, err)
	// Fitness over title+isbn: loc .965, amazon .925, openlibrary .875,
	// wikidata .75, goodreads .375. One per kind first, limited to three.
	assert.Equal(t, []string{"loc", "amazon", "wikidata"}, names(got))

	got, err = s.Select(fixtureProviders(), q, "consensus", Options{MaxProviders: Limit(5)})
	require.NoError(t, err)
	assert.Equal(t, []string{"loc", "amazon", "wikidata", "goodreads", "openlibrary"}, names(got))

	got, err = s.Select(fixtureProviders(), q, "consensus", Options{MaxProviders: Limit(-1)})
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestSelect_LanguageReorder(t *testing.T) {
	reg := NewLanguageRegistry()
	reg.Register("wikidata", "en", "fr", "de")
	reg.Register("goodreads", "French")

	s := &Selector{Languages: reg}
	got, err := s.Select(fixtureProviders(), types.Query{Languages: []string{"fr"}}, "priority", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"goodreads", "wikidata", "loc", "amazon", "openlibrary"}, names(got))

	got, err = s.Select(fixtureProviders(), types.Query{Languages: []string{"en", "fr"}}, "priority", Options{})
	require.NoError(t, err)
	assert.Equal(t, "wikidata", got[0].Name())
	assert.Len(t, got, 5, "language support never excludes")
}

func TestLanguageRegistry(t *testing.T) {
	reg := NewLanguageRegistry()
	assert.Equal(t, []string{"en"}, reg.Languages("unknown"))

	reg.Register("bnf", "fre", "eng")
	assert.Equal(t, []string{"fr", "en"}, reg.Languages("bnf"))
	assert.Equal(t, 2, reg.Coverage("bnf", []string{"en-GB", "French", "de"}))

	reg.Register("bnf", "???")
	assert.Equal(t, []string{"en"}, reg.Languages("bnf"))

	var nilReg *LanguageRegistry
	assert.Equal(t, 1, nilReg.Coverage("x", []string{"en"}))
}
