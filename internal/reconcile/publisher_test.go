// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePublisher(t *testing.T) {
	assert.Equal(t, NormalizePublisher("Penguin").Normalized, NormalizePublisher("Bantam Books").Normalized)

	tests := []struct {
		raw        string
		normalized string
		location   string
	}{
		{"Bantam Books", "penguin random house", ""},
		{"Random House, Inc.", "penguin random house", ""},
		{"Harper & Row", "harpercollins", ""},
		{"Collins", "harpercollins", ""},
		{"New York : Knopf", "penguin random house", "New York"},
		{"Tor Books", "macmillan", ""},
		{"St. Martin's Press", "macmillan", ""},
		{"Little, Brown and Company", "hachette", ""},
		{"Bantam Spectra", "penguin random house", ""},
		{"[Acme Widgets Inc.]", "acme widgets", ""},
		{"Éditions Gallimard", "editions gallimard", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := NormalizePublisher(tt.raw)
			assert.Equal(t, tt.normalized, got.Normalized)
			assert.Equal(t, tt.location, got.Location)
		})
	}
}

func TestReconcilePublisher(t *testing.T) {
	r := New()
	got, err := r.ReconcilePublisher([]Input[string]{
		{Value: "Penguin", Source: src("openlibrary", 0.85)},
		{Value: "Bantam Books", Source: src("loc", 0.95)},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bantam Books", got.Value.Name)
	assert.Equal(t, "penguin random house", got.Value.Normalized)
	assert.False(t, got.HasConflicts())
	assert.InDelta(t, 0.98, got.Confidence, 1e-9)
	assert.Contains(t, got.Reasoning, "major publisher")
}

func TestReconcilePublisher_Conflict(t *testing.T) {
	r := New()
	got, err := r.ReconcilePublisher([]Input[string]{
		{Value: "Ace Books", Source: src("wikidata", 0.8)},
		{Value: "Chilton Books", Source: src("loc", 0.95)},
	})
	require.NoError(t, err)
	assert.Equal(t, "chilton", got.Value.Normalized)
	require.True(t, got.HasConflicts())
	assert.Len(t, got.Conflicts[0].Values, 2)
	assert.InDelta(t, 0.95*0.9, got.Confidence, 1e-9)
}

func TestReconcilePublisher_Monotonic(t *testing.T) {
	r := New()
	a := Input[string]{Value: "Chilton Books", Source: src("a", 0.8)}
	agree := Input[string]{Value: "Chilton Company", Source: src("b", 0.7)}
	disagree := Input[string]{Value: "Ace", Source: src("c", 0.6)}

	one, err := r.ReconcilePublisher([]Input[string]{a})
	require.NoError(t, err)
	two, err := r.ReconcilePublisher([]Input[string]{a, agree})
	require.NoError(t, err)
	three, err := r.ReconcilePublisher([]Input[string]{a, agree, disagree})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, two.Confidence, one.Confidence)
	assert.LessOrEqual(t, three.Confidence, two.Confidence)
	assert.True(t, three.HasConflicts())
	assert.Equal(t, "chilton", three.Value.Normalized)
}

func TestReconcilePublisher_Degenerate(t *testing.T) {
	r := New()
	_, err := r.ReconcilePublisher(nil)
	assert.ErrorIs(t, err, ErrNoInputs)

	got, err := r.ReconcilePublisher([]Input[string]{{Value: " ", Source: src("a", 0.9)}})
	require.NoError(t, err)
	assert.InDelta(t, 0.1, got.Confidence, 1e-9)
}

func TestNormalizePlace(t *testing.T) {
	tests := []struct {
		raw        string
		normalized string
		country    string
		coords     bool
	}{
		{"New York, N.Y.", "new york", "united states", true},
		{"London", "london", "united kingdom", true},
		{"The City of London", "city of london", "", false},
		{"Cambridge, Mass.", "cambridge", "united states", false},
		{"Cambridge, England", "cambridge", "united kingdom", true},
		{"Philadelphiaa", "philadelphia", "united states", true},
		{"England", "england", "united kingdom", false},
		{"Springfield", "springfield", "", false},
		{"Springfield, Ill.", "springfield", "united states", false},
		{"[Paris]", "paris", "france", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := NormalizePlace(tt.raw)
			assert.Equal(t, tt.normalized, got.Normalized)
			assert.Equal(t, tt.country, got.Country)
			assert.Equal(t, tt.coords, got.Coordinates != nil)
		})
	}
}

func TestExtractCountry(t *testing.T) {
	assert.Equal(t, "united kingdom", ExtractCountry("Oxford, Oxfordshire, UK"))
	assert.Equal(t, "united states", ExtractCountry("Boston, MA, U.S.A."))
	assert.Equal(t, "germany", ExtractCountry("Frankfurt am Main, Deutschland"))
	assert.Equal(t, "", ExtractCountry("Springfield"))
}

func TestReconcilePlace(t *testing.T) {
	r := New()

	plain, err := r.ReconcilePlace([]Input[string]{{Value: "Springfield", Source: src("x", 0.5)}})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, plain.Confidence, 1e-9)

	center, err := r.ReconcilePlace([]Input[string]{{Value: "Boston", Source: src("x", 0.5)}})
	require.NoError(t, err)
	assert.InDelta(t, 0.5*1.10*1.05*1.10, center.Confidence, 1e-9)

	clamped, err := r.ReconcilePlace([]Input[string]{
		{Value: "London, England", Source: src("openlibrary", 0.85)},
		{Value: "London", Source: src("loc", 0.95)},
	})
	require.NoError(t, err)
	assert.Equal(t, "london", clamped.Value.Normalized)
	assert.Equal(t, "united kingdom", clamped.Value.Country)
	assert.InDelta(t, 1.0, clamped.Confidence, 1e-9)

	conflict, err := r.ReconcilePlace([]Input[string]{
		{Value: "London", Source: src("x", 0.6)},
		{Value: "Paris", Source: src("y", 0.5)},
	})
	require.NoError(t, err)
	assert.Equal(t, "london", conflict.Value.Normalized)
	assert.True(t, conflict.HasConflicts())
	assert.InDelta(t, 0.6*1.10*1.05*1.10*0.9, conflict.Confidence, 1e-9)
}
