// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"

	"github.com/pdiddy/book-enricher/internal/similarity"
	"github.com/pdiddy/book-enricher/pkg/types"
)

const (
	mediumDescription = 200
	longDescription   = 1000
)

var (
	htmlTag        = regexp.MustCompile(`(?s)<[^>]*>`)
	markdownLink   = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	markdownMarks  = regexp.MustCompile("(\\*\\*|__|\\*|`|~~)")
	markdownHeader = regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s+`)
	markdownQuote  = regexp.MustCompile(`(?m)^\s*>\s?`)
)

// Keyword cues, matched against lower-cased text.
var (
	blurbCues    = []string{"praise for", "bestselling", "best-selling", "a masterpiece", "unforgettable", "you won't be able to put", "page-turner", "must-read", "” —", "\" -"}
	synopsisCues = []string{"the story follows", "follows the", "tells the story", "when ", "must ", "journey", "protagonist", "discovers", "sets out"}
)

// CleanDescription strips HTML tags and entities and markdown markup and
// collapses whitespace.
func CleanDescription(raw string) string {
	s := htmlTag.ReplaceAllString(raw, " ")
	s = html.UnescapeString(s)
	s = markdownLink.ReplaceAllString(s, "$1")
	s = markdownHeader.ReplaceAllString(s, "")
	s = markdownQuote.ReplaceAllString(s, "")
	s = markdownMarks.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// ClassifyDescription builds a Description from raw text. Blurb cues win
// over synopsis cues; text with neither is a summary.
func ClassifyDescription(raw string) types.Description {
	text := CleanDescription(raw)
	d := types.Description{Text: text, Type: types.DescriptionSummary, Length: descriptionLength(text)}
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, blurbCues):
		d.Type = types.DescriptionBlurb
	case containsAny(lower, synopsisCues):
		d.Type = types.DescriptionSynopsis
	}
	return d
}

func descriptionLength(text string) types.DescriptionLength {
	n := len([]rune(text))
	switch {
	case n < mediumDescription:
		return types.LengthShort
	case n < longDescription:
		return types.LengthMedium
	default:
		return types.LengthLong
	}
}

func containsAny(s string, cues []string) bool {
	for _, c := range cues {
		if strings.Contains(s, c) {
			return true
		}
	}
	return false
}

// descriptionQuality scores a description in [0,1]: 0.6 for length, 0.4
// for type, where synopses beat summaries beat blurbs.
func descriptionQuality(d types.Description) float64 {
	length := map[types.DescriptionLength]float64{
		types.LengthShort: 0.4, types.LengthMedium: 1.0, types.LengthLong: 0.8,
	}[d.Length]
	kind := map[types.DescriptionType]float64{
		types.DescriptionSynopsis: 1.0, types.DescriptionSummary: 0.8, types.DescriptionBlurb: 0.4,
	}[d.Type]
	return 0.6*length + 0.4*kind
}

type scoredDescription struct {
	Input[types.Description]
	score float64
}

// ReconcileDescription picks the description with the highest quality ×
// reliability score. Candidates whose token sets overlap the winner by at
// least the divergence threshold count as agreeing; the rest describe
// something else and are recorded as a conflict.
func (r *Reconciler) ReconcileDescription(inputs []Input[string]) (types.ReconciledField[types.Description], error) {
	if len(inputs) == 0 {
		return types.ReconciledField[types.Description]{}, noInputs(types.FieldDescription)
	}
	var cands []scoredDescription
	for _, in := range inputs {
		d := ClassifyDescription(in.Value)
		if d.Text == "" {
			continue
		}
		cands = append(cands, scoredDescription{
			Input: Input[types.Description]{Value: d, Source: in.Source},
			score: descriptionQuality(d) * in.Source.Reliability,
		})
	}
	if len(cands) == 0 {
		return lowConfidence(r.Table, types.FieldDescription, types.Description{}, len(inputs)), nil
	}
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.Source.Name != b.Source.Name || a.Source.Reliability != b.Source.Reliability {
			return lessSource(a.Source, b.Source)
		}
		return a.Value.Text < b.Value.Text
	})

	winner := cands[0]
	winnerTokens := similarity.TokenSet(winner.Value.Text)
	agreeing := []types.MetadataSource{winner.Source}
	var divergent []scoredDescription
	for _, c := range cands[1:] {
		if similarity.Array(winnerTokens, similarity.TokenSet(c.Value.Text)) >= r.Table.DescriptionDivergence {
			agreeing = append(agreeing, c.Source)
		} else {
			divergent = append(divergent, c)
		}
	}
	agreeing = dedupeSources(agreeing)
	sort.SliceStable(agreeing, func(i, j int) bool { return lessSource(agreeing[i], agreeing[j]) })

	var conflict *types.Conflict
	if len(divergent) > 0 {
		conflict = &types.Conflict{Field: string(types.FieldDescription)}
		conflict.Values = append(conflict.Values, types.ConflictValue{Value: winner.Value.Text, Source: winner.Source})
		for _, d := range divergent {
			conflict.Values = append(conflict.Values, types.ConflictValue{Value: d.Value.Text, Source: d.Source})
		}
		conflict.Resolution = fmt.Sprintf("kept %s %s description from %s (score %.2f); %d candidate(s) describe different content",
			winner.Value.Length, winner.Value.Type, winner.Source.Name, winner.score, len(divergent))
	}

	reasoning := fmt.Sprintf("%s %s description from %s scored %.2f", winner.Value.Length, winner.Value.Type, winner.Source.Name, winner.score)
	if len(agreeing) > 1 {
		reasoning += fmt.Sprintf("; %d sources agree", len(agreeing))
	}
	return types.ReconciledField[types.Description]{
		Value:      winner.Value,
		Confidence: r.finish(r.agreement(agreeing), conflict != nil),
		Sources:    agreeing,
		Conflicts:  conflicts(conflict),
		Reasoning:  reasoning,
	}, nil
}

// dedupeSources keeps the first occurrence of each source name.
func dedupeSources(sources []types.MetadataSource) []types.MetadataSource {
	seen := make(map[string]bool, len(sources))
	out := sources[:0:0]
	for _, s := range sources {
		if seen[s.Name] {
			continue
		}
		seen[s.Name] = true
		out = append(out, s)
	}
	return out
}
