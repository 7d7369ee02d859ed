// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/book-enricher/internal/provider"
	"github.com/pdiddy/book-enricher/internal/reconcile"
	"github.com/pdiddy/book-enricher/internal/strategy"
	"github.com/pdiddy/book-enricher/pkg/types"
)

var allFields = []types.FieldType{
	types.FieldTitle, types.FieldAuthors, types.FieldISBN, types.FieldPublisher,
	types.FieldDate, types.FieldPageCount,
}

func reliability(v float64) map[types.FieldType]float64 {
	m := make(map[types.FieldType]float64, len(allFields))
	for _, f := range allFields {
		m[f] = v
	}
	return m
}

func locProvider() *provider.Static {
	return provider.NewStatic(types.ProviderConfig{
		Name: "loc", Kind: "catalog", Priority: 10, Reliability: reliability(0.95),
		Records: []types.MetadataRecord{{
			Title: "Duplicate Book", Authors: []string{"Doe, Jane"}, ISBN: []string{"9780123456786"},
			Publisher: "Bantam Books", PublicationDate: "1999-05-01", PageCount: 320,
		}},
	})
}

func openLibraryProvider() *provider.Static {
	return provider.NewStatic(types.ProviderConfig{
		Name: "openlibrary", Kind: "community", Priority: 5, Reliability: reliability(0.85),
		Records: []types.MetadataRecord{{
			Title: "Duplicate Book", ISBN: []string{"978-0-12-345678-6"},
			Publisher: "Penguin", PageCount: 322,
		}},
	})
}

// failingProvider answers every search with err. A non-nil release makes
// it block until the channel is closed.
type failingProvider struct {
	*provider.Static
	err     error
	release chan struct{}
}

func newFailing(name string, err error) *failingProvider {
	return &failingProvider{
		Static: provider.NewStatic(types.ProviderConfig{Name: name, Priority: 1, Reliability: reliability(0.9)}),
		err:    err,
	}
}

func (f *failingProvider) answer() ([]types.MetadataRecord, error) {
	if f.release != nil {
		<-f.release
	}
	return nil, f.err
}

func (f *failingProvider) SearchByISBN(context.Context, string) ([]types.MetadataRecord, error) {
	return f.answer()
}

func (f *failingProvider) SearchByTitle(context.Context, string) ([]types.MetadataRecord, error) {
	return f.answer()
}

func (f *failingProvider) SearchMultiCriteria(context.Context, types.Query) ([]types.MetadataRecord, error) {
	return f.answer()
}

func testEnricher() *Enricher {
	w := provider.NewWrapper(types.RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}, nil, nil, nil)
	return New(w, nil, nil, nil)
}

func baseline() types.MetadataRecord {
	return types.MetadataRecord{
		Title:   "Duplicate Book",
		Authors: []string{"Jane Doe"},
		ISBN:    []string{"0123456789"},
	}
}

func TestQueryFor(t *testing.T) {
	q := QueryFor(types.MetadataRecord{
		Title: "Dune", Authors: []string{"Frank Herbert"}, ISBN: []string{"not-an-isbn", "0441172717"},
		Language: "en", PublicationDate: "1965-08-01",
	})
	assert.Equal(t, "Dune", q.Title)
	assert.Equal(t, "9780441172719", q.ISBN)
	assert.Equal(t, []string{"en"}, q.Languages)
	assert.Equal(t, 1965, q.Year)
}

func TestEnrich_MergesDespiteFailingProvider(t *testing.T) {
	e := testEnricher()
	broken := newFailing("broken", &provider.StatusError{Provider: "broken", StatusCode: 503})
	providers := []provider.Provider{openLibraryProvider(), broken, locProvider()}

	res, err := e.Enrich(context.Background(), baseline(), providers, Options{
		Strategy:            "priority",
		BaselineReliability: 0.5,
		OperationTimeout:    5 * time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, provider.OpISBN, res.Operation)
	require.Len(t, res.Outcomes, 3)
	assert.Equal(t, "loc", res.Outcomes[0].Provider)
	assert.Equal(t, "broken", res.Outcomes[2].Provider)
	assert.True(t, res.Outcomes[2].Degraded())
	assert.Equal(t, 2, res.Outcomes[2].Attempts)

	require.Len(t, res.Clusters, 1, "records sharing an ISBN merge into one")
	assert.Equal(t, 3, res.MergedRecords)

	m := res.Merged
	assert.Equal(t, "Duplicate Book", m.Title)
	assert.Equal(t, 320, m.PageCount)
	assert.Equal(t, "1999-05-01", m.PublicationDate)
	require.NotNil(t, m.Publisher)
	assert.Equal(t, reconcile.NormalizePublisher("Penguin").Normalized, m.Publisher.Normalized)
	require.NotEmpty(t, m.Identifiers)
	assert.Equal(t, "9780123456786", m.Identifiers[0].Normalized)

	assert.Equal(t, []string{"baseline", "loc", "openlibrary"}, res.Sources)
	assert.Equal(t, []string{"loc", "openlibrary", "baseline"}, res.Fields["title"].Sources)
	assert.Contains(t, res.Confidence, "title")
	assert.Greater(t, res.Confidence[OverallConfidence], 0.5)
	assert.NotEqual(t, uuid.Nil, res.ID)
}

func TestEnrich_OperationTimeout(t *testing.T) {
	e := testEnricher()
	slow := newFailing("slow", nil)
	slow.release = make(chan struct{})
	t.Cleanup(func() { close(slow.release) })

	start := time.Now()
	res, err := e.Enrich(context.Background(), baseline(), []provider.Provider{slow, locProvider()}, Options{
		Strategy:         "all",
		OperationTimeout: 100 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	require.Len(t, res.Outcomes, 2)
	var slowOutcome provider.Result
	for _, o := range res.Outcomes {
		if o.Provider == "slow" {
			slowOutcome = o
		}
	}
	assert.True(t, slowOutcome.Degraded())
	assert.Equal(t, 320, res.Merged.PageCount, "data from the fast provider still merges")
}

func TestEnrich_NoProviders(t *testing.T) {
	res, err := testEnricher().Enrich(context.Background(), baseline(), nil, Options{Strategy: "priority"})
	require.NoError(t, err)
	assert.Empty(t, res.Outcomes)
	assert.Equal(t, "Duplicate Book", res.Merged.Title)
	assert.Equal(t, []string{"baseline"}, res.Sources)
}

func TestEnrich_Errors(t *testing.T) {
	e := testEnricher()
	_, err := e.Enrich(context.Background(), types.MetadataRecord{Publisher: "Ace"}, nil, Options{Strategy: "priority"})
	assert.ErrorIs(t, err, ErrNoQuery)

	_, err = e.Enrich(context.Background(), baseline(), nil, Options{Strategy: "loudest"})
	assert.ErrorIs(t, err, strategy.ErrUnknownStrategy)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := types.DefaultConfig().Enrichment
	opts := OptionsFromConfig(cfg)
	assert.Equal(t, "priority", opts.Strategy)
	assert.Nil(t, opts.Selection.MaxProviders, "negative max providers means unlimited")

	cfg.MaxProviders = 2
	opts = OptionsFromConfig(cfg)
	require.NotNil(t, opts.Selection.MaxProviders)
	assert.Equal(t, 2, *opts.Selection.MaxProviders)
}

func TestOptionsFromConfig_DefaultConsensusSize(t *testing.T) {
	var providers []provider.Provider
	for i, kind := range []string{"catalog", "knowledge-base", "commercial", "community", "catalog"} {
		providers = append(providers, provider.NewStatic(types.ProviderConfig{
			Name: fmt.Sprintf("p%d", i), Kind: kind, Priority: i, Reliability: reliability(0.9),
		}))
	}
	cfg := types.DefaultConfig().Enrichment
	cfg.Strategy = "consensus"
	opts := OptionsFromConfig(cfg)

	got, err := (&strategy.Selector{}).Select(providers, types.Query{Title: "Dune"}, opts.Strategy, opts.Selection)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestGroupRecords(t *testing.T) {
	records := []types.MetadataRecord{
		{Title: "Duplicate Book", ISBN: []string{"0123456789"}, Source: types.MetadataSource{Name: "a"}},
		{Title: "Another Book", Authors: []string{"Someone"}, Source: types.MetadataSource{Name: "b"}},
		{Title: "Duplicate Book", ISBN: []string{"9780123456786"}, PageCount: 300, Source: types.MetadataSource{Name: "c"}},
		{Title: "another book!", Authors: []string{"someone"}, ISBN: []string{"9780441172719"}, Source: types.MetadataSource{Name: "d"}},
		{Title: "Dune", ISBN: []string{"0441172717"}, Source: types.MetadataSource{Name: "e"}},
	}
	clusters := GroupRecords(records)
	require.Len(t, clusters, 2)

	assert.Len(t, clusters[0].Records, 2)
	assert.Equal(t, 300, clusters[0].Merged.PageCount)
	assert.Equal(t, "a", clusters[0].Merged.Source.Name)
	assert.Len(t, clusters[0].Merged.ISBN, 1, "equivalent ISBN forms are not appended twice")

	// "Dune" joins through the ISBN it shares with the "another book" copy.
	assert.Len(t, clusters[1].Records, 3)
}

func TestGroupRecords_AuthorlessRecordJoinsTitle(t *testing.T) {
	herbert := types.MetadataRecord{Title: "Dune", Authors: []string{"Frank Herbert"}}
	anon := types.MetadataRecord{Title: "DUNE", PageCount: 412}
	other := types.MetadataRecord{Title: "Dune", Authors: []string{"Someone Else"}}

	tests := []struct {
		name    string
		records []types.MetadataRecord
		want    int
	}{
		{"authored first", []types.MetadataRecord{herbert, anon}, 1},
		{"authorless first", []types.MetadataRecord{anon, herbert}, 1},
		{"different authors stay apart", []types.MetadataRecord{herbert, other}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, GroupRecords(tt.records), tt.want)
		})
	}

	merged := GroupRecords([]types.MetadataRecord{herbert, anon})[0].Merged
	assert.Equal(t, 412, merged.PageCount)
	assert.Equal(t, []string{"Frank Herbert"}, merged.Authors)
}

func TestEnrich_EditionPrefersReconciledLanguage(t *testing.T) {
	edition := func(id, isbn, lang string) types.Edition {
		return types.Edition{
			ID: id, ISBN: isbn, PublicationDate: "2001-01-01", Publisher: "Gallimard",
			PageCount: 300, Format: "hardcover", Language: lang,
		}
	}
	bnf := provider.NewStatic(types.ProviderConfig{
		Name: "bnf", Kind: "catalog", Priority: 10, Reliability: reliability(0.9),
		Records: []types.MetadataRecord{{
			Title: "Duplicate Book", ISBN: []string{"9780123456786"}, Language: "fr",
			Editions: []types.Edition{
				edition("en-ed", "9780441172719", "en"),
				edition("fr-ed", "9782070360024", "fr"),
			},
		}},
	})

	res, err := testEnricher().Enrich(context.Background(), baseline(), []provider.Provider{bnf}, Options{Strategy: "priority"})
	require.NoError(t, err)

	assert.Equal(t, "fr", res.Merged.Language)
	require.NotNil(t, res.Merged.Edition)
	assert.Equal(t, "fr-ed", res.Merged.Edition.SelectedEdition.ID)
}

func TestOverall(t *testing.T) {
	conf := map[string]float64{
		OverallConfidence: 0.1,
		"title":           0.95,
		"authors":         0.9,
		"isbn":            0.98,
		"publisher":       0.7,
		"date":            0.85,
		"pageCount":       0.6,
		"language":        0.33,
	}
	want := overall(conf)
	assert.InDelta(t, (0.95+0.9+0.98+0.7+0.85+0.6+0.33)/7, want, 1e-12)
	for range 50 {
		require.Equal(t, want, overall(conf), "summation order must not vary")
	}
	assert.Zero(t, overall(map[string]float64{OverallConfidence: 0.5}))
}
