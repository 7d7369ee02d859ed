// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/book-enricher/internal/duplicate"
	"github.com/pdiddy/book-enricher/pkg/types"
)

const sampleCatalog = `
works:
  - id: w-dune
    title: Dune
    authors: [Frank Herbert]
    editions:
      - id: e-dune-pb
        format: Paperback
        identifiers: ["ISBN 0-441-17271-7"]
        assets:
          - id: a-dune-epub
            checksum: "ABCDEF0123"
            path: dune.epub
            size: 1024
      - id: e-dune-kindle
        format: Kindle Edition
        identifiers: [B00B7NPRY8]
  - id: w-found
    title: Foundation
    authors: ["Asimov, Isaac"]
  - title: ""
`

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(types.CatalogConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func importSample(t *testing.T, store *Store) ImportSummary {
	t.Helper()
	var out bytes.Buffer
	summary, err := store.Import(context.Background(), strings.NewReader(sampleCatalog), &out)
	require.NoError(t, err)
	return summary
}

func TestNewStore_RequiresDir(t *testing.T) {
	_, err := NewStore(types.CatalogConfig{})
	assert.Error(t, err)
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(types.CatalogConfig{Dir: dir})
	require.NoError(t, err)
	defer store.Close()
	assert.FileExists(t, filepath.Join(dir, indexDir, dbFile))

	// Reopening an existing database keeps the schema.
	again, err := NewStore(types.CatalogConfig{Dir: dir})
	require.NoError(t, err)
	assert.NoError(t, again.Close())
}

func TestImport(t *testing.T) {
	store := testStore(t)
	summary := importSample(t, store)
	assert.Equal(t, ImportSummary{Works: 2, Editions: 2, Assets: 1, Failed: 1}, summary)

	st, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Works: 2, Editions: 2, Identifiers: 2, Assets: 1}, st)

	// Importing the same file again updates in place.
	importSample(t, store)
	st, err = store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, st.Works)
	assert.Equal(t, 2, st.Identifiers)
}

func TestIndexLookups(t *testing.T) {
	store := testStore(t)
	importSample(t, store)
	ctx := context.Background()

	asset, err := store.AssetByChecksum(ctx, "abcdef0123")
	require.NoError(t, err)
	require.NotNil(t, asset)
	assert.Equal(t, "a-dune-epub", asset.ID)
	assert.Equal(t, "e-dune-pb", asset.EditionID)
	assert.Equal(t, int64(1024), asset.Size)

	missing, err := store.AssetByChecksum(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	editions, err := store.EditionsByIdentifier(ctx, types.Identifier{Type: types.IdentifierISBN, Normalized: "9780441172719"})
	require.NoError(t, err)
	require.Len(t, editions, 1)
	assert.Equal(t, "e-dune-pb", editions[0].ID)
	assert.Equal(t, "Dune", editions[0].Title, "edition title defaults to the work title")
	require.Len(t, editions[0].Identifiers, 1)
	assert.True(t, editions[0].Identifiers[0].Valid)

	byWork, err := store.EditionsByWork(ctx, "w-dune")
	require.NoError(t, err)
	assert.Len(t, byWork, 2)

	work, err := store.Work(ctx, "w-found")
	require.NoError(t, err)
	require.NotNil(t, work)
	assert.Equal(t, []string{"Asimov, Isaac"}, work.Authors)

	none, err := store.Work(ctx, "w-none")
	require.NoError(t, err)
	assert.Nil(t, none)

	candidates, err := store.CandidateWorks(ctx, "Dune Messiah", nil)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "w-dune", candidates[0].ID)

	all, err := store.CandidateWorks(ctx, "", nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	importSample(t, store)

	var buf bytes.Buffer
	require.NoError(t, store.Export(ctx, &buf))

	var file File
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &file))
	require.Len(t, file.Works, 2)
	assert.Equal(t, "w-dune", file.Works[0].ID)
	require.Len(t, file.Works[0].Editions, 2)

	other := testStore(t)
	summary, err := other.Import(ctx, bytes.NewReader(buf.Bytes()), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Works)

	st1, err := store.Stats(ctx)
	require.NoError(t, err)
	st2, err := other.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, st1, st2)

	path, err := store.ExportYAML(ctx)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "9780441172719")
	assert.Contains(t, string(data), "asin:B00B7NPRY8", "non-ISBN identifiers keep their scheme")
}

func TestPutAssignsIDs(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	w, err := store.PutWork(ctx, types.ExistingWork{Title: "Emma", Authors: []string{"Jane Austen"}})
	require.NoError(t, err)
	assert.NotEmpty(t, w.ID)

	e, err := store.PutEdition(ctx, types.ExistingEdition{WorkID: w.ID, Identifiers: []types.Identifier{{Value: "9780141439587"}, {Value: "978-0-14-143958-7"}}})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Len(t, e.Identifiers, 1, "duplicate identifiers collapse")

	_, err = store.PutEdition(ctx, types.ExistingEdition{})
	assert.Error(t, err)
	_, err = store.PutAsset(ctx, types.ExistingAsset{})
	assert.Error(t, err)
}

func TestStoreAsDuplicateIndex(t *testing.T) {
	store := testStore(t)
	importSample(t, store)
	d := duplicate.NewDetector(store, nil)
	ctx := context.Background()

	got, err := d.Detect(ctx, duplicate.Candidate{Checksum: "AbCdEf0123"})
	require.NoError(t, err)
	assert.Equal(t, types.DuplicateExactAsset, got.Type)

	got, err = d.Detect(ctx, duplicate.Candidate{Title: "Something Else", Identifiers: []string{"9780441172719"}})
	require.NoError(t, err)
	assert.Equal(t, types.DuplicateSameISBN, got.Type)
	assert.Equal(t, "w-dune", got.ExistingWork.ID)

	got, err = d.Detect(ctx, duplicate.Candidate{Title: "Foundation", Authors: []string{"Isaac Asimov"}})
	require.NoError(t, err)
	assert.Equal(t, types.DuplicateSimilarTitle, got.Type)

	got, err = d.Detect(ctx, duplicate.Candidate{Title: "Emma", Authors: []string{"Jane Austen"}})
	require.NoError(t, err)
	assert.False(t, got.HasDuplicate)
}

func TestCandidateWorks_LargeCatalog(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	for i := range maxCandidates + 10 {
		_, err := store.PutWork(ctx, types.ExistingWork{ID: fmt.Sprintf("w-%03d", i), Title: fmt.Sprintf("The Book Number %d", i)})
		require.NoError(t, err)
	}
	for _, w := range []types.ExistingWork{
		{ID: "z-hobbit", Title: "The Hobbit", Authors: []string{"J.R.R. Tolkien"}},
		{ID: "z-hobbit-book", Title: "The Hobbit Book Club"},
	} {
		_, err := store.PutWork(ctx, w)
		require.NoError(t, err)
	}

	tests := []struct {
		title string
		first string
	}{
		{"The Hobbit", "z-hobbit"},
		{"Hobbit Book", "z-hobbit-book"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			got, err := store.CandidateWorks(ctx, tt.title, nil)
			require.NoError(t, err)
			require.NotEmpty(t, got)
			assert.LessOrEqual(t, len(got), maxCandidates)
			assert.Equal(t, tt.first, got[0].ID)
		})
	}

	res, err := duplicate.NewDetector(store, nil).Detect(ctx, duplicate.Candidate{Title: "The Hobbit", Authors: []string{"J.R.R. Tolkien"}})
	require.NoError(t, err)
	assert.True(t, res.HasDuplicate)
	assert.Equal(t, types.DuplicateSimilarTitle, res.Type)
	require.NotNil(t, res.ExistingWork)
	assert.Equal(t, "z-hobbit", res.ExistingWork.ID)
}
