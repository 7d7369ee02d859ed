// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reconcile merges candidate field values offered by several
// providers into a single confidence-scored value. Every reconciler follows
// the same pattern: normalize each candidate, group candidates that agree,
// pick the group holding the most reliable source, score confidence from
// agreement, and record a conflict when normalized values disagree.
//
// Reconcilers are pure: the result depends only on the inputs, never on
// their order. Inputs are sorted by source reliability, then source name,
// then value before any decision is made.
package reconcile

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pdiddy/book-enricher/pkg/types"
)

// ErrNoInputs is returned when a reconciler is called with no inputs at
// all. That is a caller bug; inputs without usable data are not an error.
var ErrNoInputs = errors.New("no inputs to reconcile")

// Input is one candidate value for a field together with its provenance.
type Input[T any] struct {
	Value  T
	Source types.MetadataSource
}

// Reconciler applies a ScoringTable to field reconciliation. The zero
// value is not usable; call New.
type Reconciler struct {
	Table ScoringTable
}

// New returns a Reconciler using the current scoring table.
func New() *Reconciler {
	return &Reconciler{Table: ScoringV1()}
}

func noInputs(field types.FieldType) error {
	return fmt.Errorf("reconcile %s: %w", field, ErrNoInputs)
}

// lowConfidence builds the default result for inputs with no usable data.
func lowConfidence[T any](t ScoringTable, field types.FieldType, value T, inputs int) types.ReconciledField[T] {
	return types.ReconciledField[T]{
		Value:      value,
		Confidence: t.LowConfidence,
		Sources:    []types.MetadataSource{},
		Reasoning:  fmt.Sprintf("none of %d %s candidates carried usable data", inputs, field),
	}
}

// keyed is an input paired with its normalized comparison key.
type keyed[T any] struct {
	Input[T]
	key  string
	repr string
}

// sortInputs drops inputs whose key is empty and orders the rest by
// reliability (descending), source name, key, then the raw value. The
// caller's slice is left untouched.
func sortInputs[T any](inputs []Input[T], key func(T) string) []keyed[T] {
	out := make([]keyed[T], 0, len(inputs))
	for _, in := range inputs {
		k := key(in.Value)
		if k == "" {
			continue
		}
		out = append(out, keyed[T]{Input: in, key: k, repr: fmt.Sprintf("%v", in.Value)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Source.Reliability != b.Source.Reliability {
			return a.Source.Reliability > b.Source.Reliability
		}
		if a.Source.Name != b.Source.Name {
			return a.Source.Name < b.Source.Name
		}
		if a.key != b.key {
			return a.key < b.key
		}
		return a.repr < b.repr
	})
	return out
}

// lessSource orders sources by reliability (descending), then name.
func lessSource(a, b types.MetadataSource) bool {
	if a.Reliability != b.Reliability {
		return a.Reliability > b.Reliability
	}
	return a.Name < b.Name
}

// group is a set of inputs that share a normalized key. members stay in
// resolution order, so members[0] is the group's most reliable source.
type group[T any] struct {
	key     string
	members []keyed[T]
}

func (g group[T]) sources() []types.MetadataSource {
	out := make([]types.MetadataSource, 0, len(g.members))
	seen := make(map[string]bool, len(g.members))
	for _, m := range g.members {
		if seen[m.Source.Name] {
			continue
		}
		seen[m.Source.Name] = true
		out = append(out, m.Source)
	}
	return out
}

// groupSorted buckets sorted inputs by key. Groups are returned in order of
// their most reliable member, so groups[0] is the winner.
func groupSorted[T any](sorted []keyed[T]) []group[T] {
	index := make(map[string]int)
	var groups []group[T]
	for _, k := range sorted {
		i, ok := index[k.key]
		if !ok {
			i = len(groups)
			index[k.key] = i
			groups = append(groups, group[T]{key: k.key})
		}
		groups[i].members = append(groups[i].members, k)
	}
	return groups
}

// resolution is the outcome of the generic group-and-pick step.
type resolution[T any] struct {
	winner   group[T]
	groups   []group[T]
	conflict *types.Conflict
}

// resolve sorts, groups, and picks the group holding the most reliable
// source. It reports false when no input has a usable key.
func resolve[T any](field types.FieldType, inputs []Input[T], key func(T) string) (resolution[T], bool) {
	sorted := sortInputs(inputs, key)
	if len(sorted) == 0 {
		return resolution[T]{}, false
	}
	groups := groupSorted(sorted)
	res := resolution[T]{winner: groups[0], groups: groups}
	if len(groups) > 1 {
		res.conflict = conflictFor(field, groups)
	}
	return res, true
}

// conflictFor lists each group's representative value and explains why the
// first group won.
func conflictFor[T any](field types.FieldType, groups []group[T]) *types.Conflict {
	c := &types.Conflict{Field: string(field)}
	for _, g := range groups {
		top := g.members[0]
		c.Values = append(c.Values, types.ConflictValue{Value: top.Value, Source: top.Source})
	}
	top := groups[0].members[0]
	c.Resolution = fmt.Sprintf("kept value from %s (reliability %.2f, %d agreeing) over %d alternative(s)",
		top.Source.Name, top.Source.Reliability, len(groups[0].sources()), len(groups)-1)
	return c
}

// agreement returns min(maxReliability + bonus*(agreeing-1), cap) for the
// given contributing sources, which must be in resolution order. The cap is
// the highest ceiling among the sources, so an agreeing source with a low
// ceiling never lowers the result.
func (r *Reconciler) agreement(sources []types.MetadataSource) float64 {
	if len(sources) == 0 {
		return r.Table.LowConfidence
	}
	c := sources[0].Reliability + r.Table.AgreementBonus*float64(len(sources)-1)
	ceiling := 0.0
	for _, s := range sources {
		ceiling = math.Max(ceiling, r.Table.capFor(s.Name))
	}
	return math.Min(c, ceiling)
}

// finish applies the conflict penalty and clamps to [0,1].
func (r *Reconciler) finish(c float64, conflicted bool) float64 {
	if conflicted {
		c *= r.Table.ConflictPenalty
	}
	return clamp01(c)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func conflicts(c *types.Conflict) []types.Conflict {
	if c == nil {
		return nil
	}
	return []types.Conflict{*c}
}

// sourceNames renders sources as "a, b" for reasoning strings.
func sourceNames(sources []types.MetadataSource) string {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name
	}
	return strings.Join(names, ", ")
}

// agreementReasoning is the common reasoning line for group-and-pick fields.
func agreementReasoning[T any](field types.FieldType, res resolution[T]) string {
	sources := res.winner.sources()
	msg := fmt.Sprintf("%s from %s", field, sourceNames(sources))
	if len(sources) > 1 {
		msg += fmt.Sprintf("; %d sources agree", len(sources))
	}
	if res.conflict != nil {
		msg += fmt.Sprintf("; %d conflicting value(s) resolved by reliability", len(res.groups)-1)
	}
	return msg
}
