// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/book-enricher/internal/language"
	"github.com/pdiddy/book-enricher/internal/similarity"
	"github.com/pdiddy/book-enricher/pkg/types"
)

// pick is the shared group-and-pick path for single-valued fields.
func pick[T any](r *Reconciler, field types.FieldType, inputs []Input[T], zero T, key func(T) string) (types.ReconciledField[T], error) {
	if len(inputs) == 0 {
		return types.ReconciledField[T]{}, noInputs(field)
	}
	res, ok := resolve(field, inputs, key)
	if !ok {
		return lowConfidence(r.Table, field, zero, len(inputs)), nil
	}
	sources := res.winner.sources()
	return types.ReconciledField[T]{
		Value:      res.winner.members[0].Value,
		Confidence: r.finish(r.agreement(sources), res.conflict != nil),
		Sources:    sources,
		Conflicts:  conflicts(res.conflict),
		Reasoning:  agreementReasoning(field, res),
	}, nil
}

// ReconcileTitle groups titles that match after normalization.
func (r *Reconciler) ReconcileTitle(inputs []Input[string]) (types.ReconciledField[string], error) {
	trimmed := make([]Input[string], len(inputs))
	for i, in := range inputs {
		trimmed[i] = Input[string]{Value: strings.Join(strings.Fields(in.Value), " "), Source: in.Source}
	}
	return pick(r, types.FieldTitle, trimmed, "", similarity.NormalizeTitle)
}

// ReconcileAuthors groups author lists that name the same people in the
// same order.
func (r *Reconciler) ReconcileAuthors(inputs []Input[[]string]) (types.ReconciledField[[]string], error) {
	return pick(r, types.FieldAuthors, inputs, []string{}, func(authors []string) string {
		keys := make([]string, 0, len(authors))
		for _, a := range authors {
			if k := similarity.NormalizeAuthor(a); k != "" {
				keys = append(keys, k)
			}
		}
		return strings.Join(keys, "|")
	})
}

// ReconcileLanguage groups language values by base language code and
// returns the code.
func (r *Reconciler) ReconcileLanguage(inputs []Input[string]) (types.ReconciledField[string], error) {
	codes := make([]Input[string], len(inputs))
	for i, in := range inputs {
		codes[i] = Input[string]{Value: language.Normalize(in.Value), Source: in.Source}
	}
	return pick(r, types.FieldLanguage, codes, "", func(code string) string { return code })
}

// ReconcileSeries groups series by normalized name and volume.
func (r *Reconciler) ReconcileSeries(inputs []Input[types.Series]) (types.ReconciledField[types.Series], error) {
	return pick(r, types.FieldSeries, inputs, types.Series{}, func(s types.Series) string {
		name := similarity.NormalizeTitle(s.Name)
		if name == "" {
			return ""
		}
		return name + "#" + strings.TrimLeft(strings.TrimSpace(s.Volume), "0")
	})
}

// ReconcileDate groups dates by year. Within the winning year the most
// precise date offered by an agreeing source is returned; a more precise
// date that contradicts the winner's month is ignored.
func (r *Reconciler) ReconcileDate(inputs []Input[string]) (types.ReconciledField[string], error) {
	if len(inputs) == 0 {
		return types.ReconciledField[string]{}, noInputs(types.FieldDate)
	}
	dates := make([]Input[similarity.PartialDate], 0, len(inputs))
	for _, in := range inputs {
		d, _ := similarity.ParseDate(in.Value)
		dates = append(dates, Input[similarity.PartialDate]{Value: d, Source: in.Source})
	}
	res, ok := resolve(types.FieldDate, dates, func(d similarity.PartialDate) string {
		if d.Year == 0 {
			return ""
		}
		return strconv.Itoa(d.Year)
	})
	if !ok {
		return lowConfidence(r.Table, types.FieldDate, "", len(inputs)), nil
	}

	best := res.winner.members[0].Value
	for _, m := range res.winner.members[1:] {
		d := m.Value
		if d.Precision() <= best.Precision() {
			continue
		}
		if best.Month != 0 && d.Month != best.Month {
			continue
		}
		best = d
	}

	sources := res.winner.sources()
	reasoning := agreementReasoning(types.FieldDate, res)
	if best != res.winner.members[0].Value {
		reasoning += "; precision taken from an agreeing source"
	}
	return types.ReconciledField[string]{
		Value:      best.String(),
		Confidence: r.finish(r.agreement(sources), res.conflict != nil),
		Sources:    sources,
		Conflicts:  conflicts(res.conflict),
		Reasoning:  reasoning,
	}, nil
}

// ReconcilePageCount keeps the most reliable source's page count. Counts
// within PageCountTolerance of it agree; counts further off are a
// conflict.
func (r *Reconciler) ReconcilePageCount(inputs []Input[int]) (types.ReconciledField[int], error) {
	if len(inputs) == 0 {
		return types.ReconciledField[int]{}, noInputs(types.FieldPageCount)
	}
	sorted := sortInputs(inputs, func(n int) string {
		if n <= 0 {
			return ""
		}
		return fmt.Sprintf("%09d", n)
	})
	if len(sorted) == 0 {
		return lowConfidence(r.Table, types.FieldPageCount, 0, len(inputs)), nil
	}

	top := sorted[0]
	agreeing := []types.MetadataSource{top.Source}
	var conflict *types.Conflict
	for _, k := range sorted[1:] {
		diff := math.Abs(float64(k.Value-top.Value)) / float64(top.Value)
		if diff <= r.Table.PageCountTolerance {
			agreeing = append(agreeing, k.Source)
			continue
		}
		if conflict == nil {
			conflict = &types.Conflict{
				Field:  string(types.FieldPageCount),
				Values: []types.ConflictValue{{Value: top.Value, Source: top.Source}},
			}
		}
		conflict.Values = append(conflict.Values, types.ConflictValue{Value: k.Value, Source: k.Source})
	}
	if conflict != nil {
		conflict.Resolution = fmt.Sprintf("kept %d pages from %s (reliability %.2f)", top.Value, top.Source.Name, top.Source.Reliability)
	}
	agreeing = dedupeSources(agreeing)

	reasoning := fmt.Sprintf("%d pages from %s", top.Value, top.Source.Name)
	if len(agreeing) > 1 {
		reasoning += fmt.Sprintf("; %d sources within %.0f%%", len(agreeing), r.Table.PageCountTolerance*100)
	}
	return types.ReconciledField[int]{
		Value:      top.Value,
		Confidence: r.finish(r.agreement(agreeing), conflict != nil),
		Sources:    agreeing,
		Conflicts:  conflicts(conflict),
		Reasoning:  reasoning,
	}, nil
}

// ReconcileSubjects unions subject headings across sources, merging
// headings that normalize alike and ranking by how many sources name each.
// Confidence follows the most reliable contributing source.
func (r *Reconciler) ReconcileSubjects(inputs []Input[[]string]) (types.ReconciledField[[]string], error) {
	if len(inputs) == 0 {
		return types.ReconciledField[[]string]{}, noInputs(types.FieldSubjects)
	}
	var flat []Input[string]
	for _, in := range inputs {
		for _, s := range in.Value {
			flat = append(flat, Input[string]{Value: strings.TrimSpace(s), Source: in.Source})
		}
	}
	sorted := sortInputs(flat, similarity.NormalizeTitle)
	if len(sorted) == 0 {
		return lowConfidence(r.Table, types.FieldSubjects, []string{}, len(inputs)), nil
	}
	groups := groupSorted(sorted)
	sort.SliceStable(groups, func(i, j int) bool {
		ni, nj := len(groups[i].sources()), len(groups[j].sources())
		if ni != nj {
			return ni > nj
		}
		return groups[i].key < groups[j].key
	})
	subjects := make([]string, len(groups))
	for i, g := range groups {
		subjects[i] = g.members[0].Value
	}

	sources := contributingSources(sorted)
	return types.ReconciledField[[]string]{
		Value:      subjects,
		Confidence: r.finish(r.agreement(sources), false),
		Sources:    sources,
		Reasoning:  fmt.Sprintf("%d distinct subject(s) from %s", len(subjects), sourceNames(sources)),
	}, nil
}
