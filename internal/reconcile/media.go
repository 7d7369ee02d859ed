// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pdiddy/book-enricher/internal/similarity"
	"github.com/pdiddy/book-enricher/pkg/types"
)

// commonRatingScale is the scale ratings are projected onto before they
// are combined.
const commonRatingScale = 5.0

// reviewQuality is 0.3 for a verified reviewer, 0.4 times the helpful vote
// ratio, and 0.3 scaled by text length up to 1000 characters.
func reviewQuality(rv types.Review) float64 {
	q := 0.0
	if rv.Verified {
		q += 0.3
	}
	if rv.TotalVotes > 0 {
		q += 0.4 * math.Min(float64(rv.HelpfulVotes)/float64(rv.TotalVotes), 1)
	}
	q += 0.3 * math.Min(float64(len([]rune(rv.Text)))/1000, 1)
	return q
}

func reviewKey(rv types.Review) string {
	text := similarity.NormalizeTitle(rv.Text)
	if r := []rune(text); len(r) > 80 {
		text = string(r[:80])
	}
	return similarity.NormalizeAuthor(rv.Author) + "|" + text
}

// ReconcileReviews flattens every source's reviews, drops repeats of the
// same author and opening text, ranks the rest by quality, and keeps at
// most MaxReviews.
func (r *Reconciler) ReconcileReviews(inputs []Input[[]types.Review]) (types.ReconciledField[[]types.Review], error) {
	if len(inputs) == 0 {
		return types.ReconciledField[[]types.Review]{}, noInputs(types.FieldReviews)
	}
	type scored struct {
		review types.Review
		key    string
		score  float64
		source types.MetadataSource
	}
	var all []scored
	for _, in := range inputs {
		for _, rv := range in.Value {
			rv.Text = CleanDescription(rv.Text)
			if rv.Text == "" {
				continue
			}
			if rv.Source == "" {
				rv.Source = in.Source.Name
			}
			all = append(all, scored{review: rv, key: reviewKey(rv), score: reviewQuality(rv), source: in.Source})
		}
	}
	if len(all) == 0 {
		return lowConfidence(r.Table, types.FieldReviews, []types.Review{}, len(inputs)), nil
	}
	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.source.Name != b.source.Name || a.source.Reliability != b.source.Reliability {
			return lessSource(a.source, b.source)
		}
		return a.key < b.key
	})

	seen := make(map[string]bool)
	var kept []types.Review
	var sources []types.MetadataSource
	duplicates := 0
	for _, s := range all {
		if seen[s.key] {
			duplicates++
			continue
		}
		seen[s.key] = true
		if len(kept) < r.Table.MaxReviews {
			kept = append(kept, s.review)
			sources = append(sources, s.source)
		}
	}
	sources = dedupeSources(sources)
	sort.SliceStable(sources, func(i, j int) bool { return lessSource(sources[i], sources[j]) })

	reasoning := fmt.Sprintf("kept %d of %d review(s) ranked by verification, helpfulness, and length", len(kept), len(all)-duplicates)
	if duplicates > 0 {
		reasoning += fmt.Sprintf("; %d duplicate(s) dropped", duplicates)
	}
	return types.ReconciledField[[]types.Review]{
		Value:      kept,
		Confidence: r.finish(r.agreement(sources), false),
		Sources:    sources,
		Reasoning:  reasoning,
	}, nil
}

// ReconcileRating projects each rating onto a 5-point scale and combines
// them weighted by vote count. The result keeps the most common source
// scale and the total count. Projected values further apart than
// RatingSpread are a conflict.
func (r *Reconciler) ReconcileRating(inputs []Input[types.Rating]) (types.ReconciledField[types.Rating], error) {
	if len(inputs) == 0 {
		return types.ReconciledField[types.Rating]{}, noInputs(types.FieldRating)
	}
	usable := sortInputs(inputs, func(rt types.Rating) string {
		if rt.Scale <= 0 || rt.Value < 0 || rt.Value > rt.Scale {
			return ""
		}
		return fmt.Sprintf("%g/%g", rt.Value, rt.Scale)
	})
	if len(usable) == 0 {
		return lowConfidence(r.Table, types.FieldRating, types.Rating{}, len(inputs)), nil
	}

	var weighted, weights float64
	count := 0
	lo, hi := math.Inf(1), math.Inf(-1)
	scales := make(map[float64]int)
	for _, u := range usable {
		projected := u.Value.Value / u.Value.Scale * commonRatingScale
		w := float64(max(u.Value.Count, 1))
		weighted += projected * w
		weights += w
		count += u.Value.Count
		lo, hi = math.Min(lo, projected), math.Max(hi, projected)
		scales[u.Value.Scale]++
	}
	scale := modeScale(scales)
	value := weighted / weights / commonRatingScale * scale
	value = math.Round(value*100) / 100

	var conflict *types.Conflict
	if hi-lo > r.Table.RatingSpread {
		conflict = &types.Conflict{Field: string(types.FieldRating)}
		for _, u := range usable {
			conflict.Values = append(conflict.Values, types.ConflictValue{Value: u.Value, Source: u.Source})
		}
		conflict.Resolution = fmt.Sprintf("combined as a vote-weighted average; ratings span %.2f points on a %g-point scale", hi-lo, commonRatingScale)
	}

	sources := contributingSources(usable)
	return types.ReconciledField[types.Rating]{
		Value:      types.Rating{Value: value, Scale: scale, Count: count},
		Confidence: r.finish(r.agreement(sources), conflict != nil),
		Sources:    sources,
		Conflicts:  conflicts(conflict),
		Reasoning: fmt.Sprintf("weighted average of %d rating(s) from %s over %d vote(s)",
			len(usable), sourceNames(sources), count),
	}, nil
}

// modeScale returns the most common scale, preferring the larger on ties.
func modeScale(scales map[float64]int) float64 {
	best, bestN := 0.0, 0
	for s, n := range scales {
		if n > bestN || (n == bestN && s > best) {
			best, bestN = s, n
		}
	}
	return best
}

var qualityTier = map[types.ImageQuality]int{
	types.QualityOriginal: 4,
	types.QualityHigh:     3,
	types.QualityMedium:   2,
	types.QualityLow:      1,
}

// ReconcileCovers deduplicates cover images by URL, fills in the aspect
// ratio when both dimensions are known, and ranks by quality tier, then
// verification, then pixel area, then source reliability.
func (r *Reconciler) ReconcileCovers(inputs []Input[types.CoverImage]) (types.ReconciledField[[]types.CoverImage], error) {
	if len(inputs) == 0 {
		return types.ReconciledField[[]types.CoverImage]{}, noInputs(types.FieldCover)
	}
	sorted := sortInputs(inputs, func(c types.CoverImage) string { return strings.TrimSpace(c.URL) })
	if len(sorted) == 0 {
		return lowConfidence(r.Table, types.FieldCover, []types.CoverImage{}, len(inputs)), nil
	}

	type ranked struct {
		image  types.CoverImage
		source types.MetadataSource
		votes  []types.MetadataSource
	}
	var images []ranked
	for _, g := range groupSorted(sorted) {
		img := g.members[0].Value
		img.URL = g.key
		for _, m := range g.members[1:] {
			img.Verified = img.Verified || m.Value.Verified
			if img.Width == 0 && img.Height == 0 {
				img.Width, img.Height = m.Value.Width, m.Value.Height
			}
			if qualityTier[m.Value.Quality] > qualityTier[img.Quality] {
				img.Quality = m.Value.Quality
			}
		}
		if img.Width > 0 && img.Height > 0 {
			img.AspectRatio = math.Round(float64(img.Width)/float64(img.Height)*1000) / 1000
		}
		images = append(images, ranked{image: img, source: g.members[0].Source, votes: g.sources()})
	}
	sort.SliceStable(images, func(i, j int) bool {
		a, b := images[i], images[j]
		if qa, qb := qualityTier[a.image.Quality], qualityTier[b.image.Quality]; qa != qb {
			return qa > qb
		}
		if a.image.Verified != b.image.Verified {
			return a.image.Verified
		}
		if aa, ab := a.image.Width*a.image.Height, b.image.Width*b.image.Height; aa != ab {
			return aa > ab
		}
		if a.source.Name != b.source.Name || a.source.Reliability != b.source.Reliability {
			return lessSource(a.source, b.source)
		}
		return a.image.URL < b.image.URL
	})

	out := make([]types.CoverImage, len(images))
	for i, img := range images {
		out[i] = img.image
	}
	best := images[0]
	return types.ReconciledField[[]types.CoverImage]{
		Value:      out,
		Confidence: r.finish(r.agreement(best.votes), false),
		Sources:    contributingSources(sorted),
		Reasoning: fmt.Sprintf("%d distinct cover(s); best is %s quality from %s",
			len(out), qualityOrUnknown(best.image.Quality), best.source.Name),
	}, nil
}

func qualityOrUnknown(q types.ImageQuality) string {
	if q == "" {
		return "unknown"
	}
	return string(q)
}
