// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package strategy chooses and orders the providers to query for a request.
// Selection filters by required data types and reliability, orders by a
// named strategy, reorders by language coverage, then truncates.
package strategy

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/pdiddy/book-enricher/internal/provider"
	"github.com/pdiddy/book-enricher/pkg/types"
)

// Strategy names a provider ordering.
type Strategy string

const (
	All       Strategy = "all"
	Priority  Strategy = "priority"
	Fastest   Strategy = "fastest"
	Consensus Strategy = "consensus"
)

// defaultConsensusSize is how many providers consensus picks when
// MaxProviders is unset.
const defaultConsensusSize = 3

// ErrUnknownStrategy is returned for a strategy name that is not one of
// all, priority, fastest, or consensus.
var ErrUnknownStrategy = errors.New("unknown provider selection strategy")

// ParseStrategy validates a strategy name.
func ParseStrategy(name string) (Strategy, error) {
	switch s := Strategy(strings.ToLower(strings.TrimSpace(name))); s {
	case All, Priority, Fastest, Consensus:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// Options narrows and bounds the selection.
type Options struct {
	// RequiredDataTypes lists field types every selected provider must support.
	RequiredDataTypes []types.FieldType

	// MinReliabilityScore drops providers whose reliability for any required
	// type (or, with none required, any type the query carries) is lower.
	MinReliabilityScore float64

	// ExcludeProviders lists provider names never to select.
	ExcludeProviders []string

	// MaxProviders truncates the result. nil means no truncation (consensus
	// picks 3), zero yields an empty list, and negative values are ignored.
	MaxProviders *int
}

// Limit is a helper for setting Options.MaxProviders.
func Limit(n int) *int { return &n }

// Selector orders providers. Languages and History are optional: without a
// registry every provider covers English only, and without history the
// fastest strategy falls back to priority.
type Selector struct {
	Languages *LanguageRegistry
	History   *provider.History
}

// Select returns the providers to query for q under the named strategy.
// The input slice is not modified. An unknown strategy is the only error.
func (s *Selector) Select(providers []provider.Provider, q types.Query, strategy string, opts Options) ([]provider.Provider, error) {
	strat, err := ParseStrategy(strategy)
	if err != nil {
		return nil, err
	}
	if opts.MaxProviders != nil && *opts.MaxProviders == 0 {
		return []provider.Provider{}, nil
	}

	out := excludeProviders(providers, opts.ExcludeProviders)
	out = FilterByDataTypeSupport(out, opts.RequiredDataTypes)
	reliabilityTypes := opts.RequiredDataTypes
	if len(reliabilityTypes) == 0 {
		reliabilityTypes = q.PresentFields()
	}
	out = FilterByReliability(out, reliabilityTypes, opts.MinReliabilityScore)

	switch strat {
	case All, Priority:
		sortByPriority(out)
	case Fastest:
		s.sortByLatency(out)
	case Consensus:
		out = selectConsensus(out, q, consensusSize(opts.MaxProviders, len(out)))
	}

	if len(q.Languages) > 0 {
		s.reorderByLanguage(out, q.Languages)
	}

	if strat != All && opts.MaxProviders != nil && *opts.MaxProviders > 0 && len(out) > *opts.MaxProviders {
		out = out[:*opts.MaxProviders]
	}
	return out, nil
}

func excludeProviders(providers []provider.Provider, exclude []string) []provider.Provider {
	out := make([]provider.Provider, 0, len(providers))
	for _, p := range providers {
		if !slices.Contains(exclude, p.Name()) {
			out = append(out, p)
		}
	}
	return out
}

// FilterByDataTypeSupport keeps providers that support every required type.
func FilterByDataTypeSupport(providers []provider.Provider, required []types.FieldType) []provider.Provider {
	if len(required) == 0 {
		return providers
	}
	out := make([]provider.Provider, 0, len(providers))
	for _, p := range providers {
		ok := true
		for _, f := range required {
			if !p.SupportsDataType(f) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, p)
		}
	}
	return out
}

// FilterByReliability drops providers whose reliability for any of the
// given types is below threshold.
func FilterByReliability(providers []provider.Provider, fields []types.FieldType, threshold float64) []provider.Provider {
	if threshold <= 0 || len(fields) == 0 {
		return providers
	}
	out := make([]provider.Provider, 0, len(providers))
	for _, p := range providers {
		ok := true
		for _, f := range fields {
			if p.ReliabilityScore(f) < threshold {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, p)
		}
	}
	return out
}

// sortByPriority orders by descending priority, ties by name so the
// result does not depend on input order.
func sortByPriority(providers []provider.Provider) {
	sort.SliceStable(providers, func(i, j int) bool {
		if providers[i].Priority() != providers[j].Priority() {
			return providers[i].Priority() > providers[j].Priority()
		}
		return providers[i].Name() < providers[j].Name()
	})
}

// sortByLatency orders providers with history by ascending mean latency,
// followed by providers without history in priority order.
func (s *Selector) sortByLatency(providers []provider.Provider) {
	sortByPriority(providers)
	if s.History == nil {
		return
	}
	type timed struct {
		p       provider.Provider
		latency int64
		known   bool
	}
	ts := make([]timed, len(providers))
	for i, p := range providers {
		d, ok := s.History.MeanLatency(p.Name())
		ts[i] = timed{p: p, latency: int64(d), known: ok}
	}
	sort.SliceStable(ts, func(i, j int) bool {
		if ts[i].known != ts[j].known {
			return ts[i].known
		}
		return ts[i].known && ts[i].latency < ts[j].latency
	})
	for i := range ts {
		providers[i] = ts[i].p
	}
}

// reorderByLanguage moves providers covering more of the requested
// languages ahead, keeping the strategy order among equals. It never drops.
func (s *Selector) reorderByLanguage(providers []provider.Provider, requested []string) {
	coverage := make(map[string]int, len(providers))
	for _, p := range providers {
		coverage[p.Name()] = s.Languages.Coverage(p.Name(), requested)
	}
	sort.SliceStable(providers, func(i, j int) bool {
		return coverage[providers[i].Name()] > coverage[providers[j].Name()]
	})
}

func consensusSize(limit *int, available int) int {
	switch {
	case limit == nil:
		return min(defaultConsensusSize, available)
	case *limit < 0:
		return available
	default:
		return min(*limit, available)
	}
}

// fitness is the mean reliability of p over the field types present in q,
// title when the query carries none.
func fitness(p provider.Provider, q types.Query) float64 {
	fields := q.PresentFields()
	if len(fields) == 0 {
		fields = []types.FieldType{types.FieldTitle}
	}
	total := 0.0
	for _, f := range fields {
		total += p.ReliabilityScore(f)
	}
	return total / float64(len(fields))
}

// selectConsensus picks a diverse subset: the fittest provider of each
// kind first, then the fittest of the rest, up to n.
func selectConsensus(providers []provider.Provider, q types.Query, n int) []provider.Provider {
	ranked := slices.Clone(providers)
	scores := make(map[string]float64, len(ranked))
	for _, p := range ranked {
		scores[p.Name()] = fitness(p, q)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if scores[a.Name()] != scores[b.Name()] {
			return scores[a.Name()] > scores[b.Name()]
		}
		if a.Priority() != b.Priority() {
			return a.Priority() > b.Priority()
		}
		return a.Name() < b.Name()
	})

	picked := make([]provider.Provider, 0, n)
	taken := make(map[string]bool, n)
	kinds := make(map[provider.Kind]bool)
	for _, p := range ranked {
		if len(picked) == n {
			return picked
		}
		if kinds[p.Kind()] {
			continue
		}
		kinds[p.Kind()] = true
		taken[p.Name()] = true
		picked = append(picked, p)
	}
	for _, p := range ranked {
		if len(picked) == n {
			break
		}
		if !taken[p.Name()] {
			taken[p.Name()] = true
			picked = append(picked, p)
		}
	}
	return picked
}
