// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package duplicate

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pdiddy/book-enricher/internal/reconcile"
	"github.com/pdiddy/book-enricher/internal/similarity"
	"github.com/pdiddy/book-enricher/pkg/types"
)

// MemoryIndex is an in-process Index. It is safe for concurrent use.
type MemoryIndex struct {
	mu       sync.RWMutex
	works    map[string]types.ExistingWork
	editions map[string]types.ExistingEdition
	assets   map[string]types.ExistingAsset
}

// NewMemoryIndex returns an empty MemoryIndex.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		works:    make(map[string]types.ExistingWork),
		editions: make(map[string]types.ExistingEdition),
		assets:   make(map[string]types.ExistingAsset),
	}
}

// AddWork stores or replaces a work.
func (m *MemoryIndex) AddWork(w types.ExistingWork) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.works[w.ID] = w
}

// AddEdition stores or replaces an edition. Identifiers are normalized.
func (m *MemoryIndex) AddEdition(e types.ExistingEdition) {
	ids := make([]types.Identifier, len(e.Identifiers))
	for i, id := range e.Identifiers {
		ids[i] = reconcile.NormalizeIdentifier(firstNonEmpty(id.Value, id.Normalized))
	}
	e.Identifiers = ids
	m.mu.Lock()
	defer m.mu.Unlock()
	m.editions[e.ID] = e
}

// AddAsset stores or replaces an asset, keyed by checksum.
func (m *MemoryIndex) AddAsset(a types.ExistingAsset) {
	a.Checksum = strings.ToLower(a.Checksum)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets[a.Checksum] = a
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (m *MemoryIndex) AssetByChecksum(_ context.Context, checksum string) (*types.ExistingAsset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assets[strings.ToLower(checksum)]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *MemoryIndex) EditionsByIdentifier(_ context.Context, id types.Identifier) ([]types.ExistingEdition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []types.ExistingEdition
	for _, e := range m.editions {
		for _, eid := range e.Identifiers {
			if eid.Type == id.Type && eid.Normalized == id.Normalized {
				out = append(out, e)
				break
			}
		}
	}
	sortEditions(out)
	return out, nil
}

func (m *MemoryIndex) EditionsByWork(_ context.Context, workID string) ([]types.ExistingEdition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []types.ExistingEdition
	for _, e := range m.editions {
		if e.WorkID == workID {
			out = append(out, e)
		}
	}
	sortEditions(out)
	return out, nil
}

func (m *MemoryIndex) Work(_ context.Context, id string) (*types.ExistingWork, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.works[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

// CandidateWorks returns works sharing at least one search token with the
// query, or every work when the title has no usable tokens.
func (m *MemoryIndex) CandidateWorks(_ context.Context, title string, _ []string) ([]types.ExistingWork, error) {
	tokens := similarity.SearchTokens(title)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []types.ExistingWork
	for _, w := range m.works {
		if len(tokens) == 0 || similarity.Array(tokens, similarity.TokenSet(w.Title)) > 0 {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func sortEditions(editions []types.ExistingEdition) {
	sort.Slice(editions, func(i, j int) bool { return editions[i].ID < editions[j].ID })
}
