// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package duplicate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/book-enricher/pkg/types"
)

func seededIndex(t *testing.T) *MemoryIndex {
	t.Helper()
	idx := NewMemoryIndex()
	idx.AddWork(types.ExistingWork{ID: "w-dune", Title: "Dune", Authors: []string{"Frank Herbert"}})
	idx.AddWork(types.ExistingWork{ID: "w-found", Title: "Foundation", Authors: []string{"Isaac Asimov"}})
	idx.AddEdition(types.ExistingEdition{
		ID: "e-dune-pb", WorkID: "w-dune", Title: "Dune", Format: "paperback",
		Identifiers: []types.Identifier{{Value: "0441172717"}},
	})
	idx.AddEdition(types.ExistingEdition{
		ID: "e-dune-kindle", WorkID: "w-dune", Title: "Dune", Format: "ebook",
		Identifiers: []types.Identifier{{Value: "B00B7NPRY8"}},
	})
	idx.AddAsset(types.ExistingAsset{ID: "a-1", EditionID: "e-dune-pb", Checksum: "ABC123"})
	return idx
}

func TestChecksum(t *testing.T) {
	a, err := Checksum(strings.NewReader("same bytes"))
	require.NoError(t, err)
	b, err := Checksum(strings.NewReader("same bytes"))
	require.NoError(t, err)
	c, err := Checksum(strings.NewReader("other bytes"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestDetect_ExactAsset(t *testing.T) {
	idx := seededIndex(t)
	sum, err := Checksum(strings.NewReader("epub payload"))
	require.NoError(t, err)
	idx.AddAsset(types.ExistingAsset{ID: "a-2", Checksum: sum})

	d := NewDetector(idx, nil)
	got, err := d.Detect(context.Background(), Candidate{Title: "Anything", Checksum: strings.ToUpper(sum)})
	require.NoError(t, err)
	assert.True(t, got.HasDuplicate)
	assert.Equal(t, types.DuplicateExactAsset, got.Type)
	assert.Equal(t, 1.0, got.Confidence)
	require.NotNil(t, got.ExistingAsset)
	assert.Equal(t, "a-2", got.ExistingAsset.ID)
}

func TestDetect_SameISBN(t *testing.T) {
	d := NewDetector(seededIndex(t), nil)
	got, err := d.Detect(context.Background(), Candidate{
		Title:       "A Completely Different Title",
		Identifiers: []string{"978-0-441-17271-9"},
	})
	require.NoError(t, err)
	assert.True(t, got.HasDuplicate)
	assert.Equal(t, types.DuplicateSameISBN, got.Type)
	assert.GreaterOrEqual(t, got.Confidence, 0.9)
	require.NotNil(t, got.ExistingEdition)
	assert.Equal(t, "e-dune-pb", got.ExistingEdition.ID)
	require.NotNil(t, got.ExistingWork)
	assert.Equal(t, "w-dune", got.ExistingWork.ID)
}

func TestDetect_SameASIN(t *testing.T) {
	d := NewDetector(seededIndex(t), nil)
	got, err := d.Detect(context.Background(), Candidate{Identifiers: []string{"https://www.amazon.com/dp/B00B7NPRY8"}})
	require.NoError(t, err)
	assert.Equal(t, types.DuplicateSameASIN, got.Type)
	assert.Equal(t, "e-dune-kindle", got.ExistingEdition.ID)
}

func TestDetect_DifferentFormat(t *testing.T) {
	d := NewDetector(seededIndex(t), nil)
	got, err := d.Detect(context.Background(), Candidate{
		Title:       "Dune",
		Authors:     []string{"Herbert, Frank"},
		Identifiers: []string{"9780441013593"},
		Format:      "Hardcover",
	})
	require.NoError(t, err)
	assert.True(t, got.HasDuplicate)
	assert.Equal(t, types.DuplicateDifferentFormat, got.Type)
	assert.GreaterOrEqual(t, got.Confidence, 0.9)
	assert.Equal(t, "w-dune", got.ExistingWork.ID)
	assert.Contains(t, got.Description, "hardcover")
}

func TestDetect_SimilarTitle(t *testing.T) {
	d := NewDetector(seededIndex(t), nil)
	got, err := d.Detect(context.Background(), Candidate{Title: "Foundation.", Authors: []string{"Asimov, Isaac"}})
	require.NoError(t, err)
	assert.True(t, got.HasDuplicate)
	assert.Equal(t, types.DuplicateSimilarTitle, got.Type)
	assert.InDelta(t, 0.9, got.Confidence, 1e-9)
	assert.Equal(t, "w-found", got.ExistingWork.ID)
}

func TestDetect_NoMatch(t *testing.T) {
	d := NewDetector(seededIndex(t), nil)
	got, err := d.Detect(context.Background(), Candidate{
		Title:       "The Left Hand of Darkness",
		Authors:     []string{"Ursula K. Le Guin"},
		Identifiers: []string{"9780441478125"},
		Checksum:    "feedface",
	})
	require.NoError(t, err)
	assert.False(t, got.HasDuplicate)
	assert.Equal(t, 0.0, got.Confidence)
	assert.Empty(t, got.Type)
}

type failingIndex struct{ *MemoryIndex }

var errIndexDown = errors.New("index unavailable")

func (failingIndex) EditionsByIdentifier(context.Context, types.Identifier) ([]types.ExistingEdition, error) {
	return nil, errIndexDown
}

func TestDetect_IndexError(t *testing.T) {
	d := NewDetector(failingIndex{seededIndex(t)}, nil)
	_, err := d.Detect(context.Background(), Candidate{Identifiers: []string{"0441172717"}})
	assert.ErrorIs(t, err, errIndexDown)
}

func TestMatchScore(t *testing.T) {
	tests := []struct {
		name     string
		titleA   string
		authorsA []string
		titleB   string
		authorsB []string
		want     float64
	}{
		{"identical", "Dune", []string{"Frank Herbert"}, "dune", []string{"Herbert, Frank"}, 1.0},
		{"no authors", "Dune", nil, "Dune", []string{"Frank Herbert"}, 0.9},
		{"different", "Dune", []string{"Frank Herbert"}, "Emma", []string{"Jane Austen"}, 0.3 * authorScore("frank herbert", "jane austen")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, MatchScore(tt.titleA, tt.authorsA, tt.titleB, tt.authorsB), 1e-9)
		})
	}
}

func authorScore(a, b string) float64 {
	s, _ := AuthorSimilarity([]string{a}, []string{b})
	return s
}
