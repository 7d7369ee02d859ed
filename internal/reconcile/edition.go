// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/book-enricher/internal/language"
	"github.com/pdiddy/book-enricher/internal/similarity"
	"github.com/pdiddy/book-enricher/pkg/types"
)

// Edition selection defaults.
const (
	DefaultRecentWindow    = 5 * 365 * 24 * time.Hour
	DefaultMaxAlternatives = 3
)

// Score weights for edition selection.
const (
	weightCompleteness = 0.4
	weightRecency      = 0.2
	weightFormat       = 0.2
	weightLanguage     = 0.2
)

var formatScores = map[string]float64{
	"hardcover": 1.0,
	"paperback": 0.8,
	"ebook":     0.6,
	"audiobook": 0.4,
}

var formatAliases = map[string]string{
	"hardback": "hardcover", "hard cover": "hardcover", "hc": "hardcover",
	"softcover": "paperback", "trade paperback": "paperback", "mass market paperback": "paperback", "pb": "paperback",
	"kindle": "ebook", "e-book": "ebook", "epub": "ebook", "digital": "ebook",
	"audio": "audiobook", "audio cd": "audiobook", "audible": "audiobook",
}

// EditionOptions tunes edition selection. Zero values take the defaults;
// Now defaults to time.Now.
type EditionOptions struct {
	Now               time.Time
	RecentWindow      time.Duration
	PreferredLanguage string
	MaxAlternatives   int
}

func (o EditionOptions) withDefaults() EditionOptions {
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	if o.RecentWindow <= 0 {
		o.RecentWindow = DefaultRecentWindow
	}
	if o.MaxAlternatives <= 0 {
		o.MaxAlternatives = DefaultMaxAlternatives
	}
	return o
}

// NormalizeFormat maps free-text format names onto hardcover, paperback,
// ebook, or audiobook. Unrecognized formats come back lower-cased.
func NormalizeFormat(format string) string {
	f := strings.ToLower(strings.TrimSpace(format))
	if _, ok := formatScores[f]; ok {
		return f
	}
	if a, ok := formatAliases[f]; ok {
		return a
	}
	for _, canonical := range []string{"audiobook", "ebook", "hardcover", "paperback"} {
		if strings.Contains(f, canonical) {
			return canonical
		}
	}
	for _, alias := range formatAliasOrder {
		if strings.Contains(f, alias) {
			return formatAliases[alias]
		}
	}
	return f
}

// formatAliasOrder holds the multi-letter aliases, longest first.
var formatAliasOrder = func() []string {
	out := make([]string, 0, len(formatAliases))
	for a := range formatAliases {
		if len(a) > 2 {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}()

type editionScore struct {
	edition      types.Edition
	source       types.MetadataSource
	completeness float64
	recency      float64
	format       float64
	language     float64
	total        float64
	date         similarity.PartialDate
	dated        bool
}

func scoreEdition(e types.Edition, src types.MetadataSource, o EditionOptions) editionScore {
	s := editionScore{edition: e, source: src}

	present := 0
	for _, ok := range []bool{e.ISBN != "", e.PublicationDate != "", e.Publisher != "", e.PageCount > 0, e.Format != ""} {
		if ok {
			present++
		}
	}
	s.completeness = float64(present) / 5

	if d, ok := similarity.ParseDate(e.PublicationDate); ok {
		s.date, s.dated = d, true
		published := time.Date(d.Year, time.Month(max(d.Month, 1)), max(d.Day, 1), 0, 0, 0, 0, time.UTC)
		age := o.Now.Sub(published)
		switch {
		case age <= o.RecentWindow:
			s.recency = 1
		default:
			s.recency = float64(o.RecentWindow) / float64(age)
		}
	}

	s.format = 0.5
	if f, ok := formatScores[NormalizeFormat(e.Format)]; ok {
		s.format = f
	}

	s.language = 0.5
	if o.PreferredLanguage != "" && e.Language != "" {
		if language.Same(o.PreferredLanguage, e.Language) {
			s.language = 1
		} else {
			s.language = 0
		}
	}

	s.total = weightCompleteness*s.completeness + weightRecency*s.recency + weightFormat*s.format + weightLanguage*s.language
	return s
}

// SelectEdition scores every candidate edition on completeness, recency,
// format, and language, and returns the best with up to MaxAlternatives
// runners-up. Candidates sharing an ISBN (or an ID when there is no ISBN)
// are merged, keeping the most reliable source's copy.
func (r *Reconciler) SelectEdition(inputs []Input[types.Edition], opts EditionOptions) (types.ReconciledField[types.EditionSelection], error) {
	if len(inputs) == 0 {
		return types.ReconciledField[types.EditionSelection]{}, noInputs(types.FieldEditions)
	}
	o := opts.withDefaults()

	sorted := sortInputs(inputs, editionKey)
	if len(sorted) == 0 {
		return lowConfidence(r.Table, types.FieldEditions, types.EditionSelection{}, len(inputs)), nil
	}
	groups := groupSorted(sorted)
	scores := make([]editionScore, 0, len(groups))
	available := make([]types.Edition, 0, len(groups))
	for _, g := range groups {
		e := fillEdition(g)
		available = append(available, e)
		scores = append(scores, scoreEdition(e, g.members[0].Source, o))
	}
	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		if a.total != b.total {
			return a.total > b.total
		}
		if a.source.Name != b.source.Name || a.source.Reliability != b.source.Reliability {
			return lessSource(a.source, b.source)
		}
		return editionKey(a.edition) < editionKey(b.edition)
	})

	best := scores[0]
	sel := types.EditionSelection{
		SelectedEdition:   best.edition,
		AvailableEditions: available,
		SelectionReason:   selectionReason(best, o),
		Confidence:        clamp01(best.total),
	}
	for _, alt := range scores[1:] {
		if len(sel.Alternatives) == o.MaxAlternatives {
			break
		}
		sel.Alternatives = append(sel.Alternatives, types.EditionAlternative{
			Edition:    alt.edition,
			Score:      alt.total,
			Reason:     alternativeReason(best, alt),
			Advantages: advantages(best, alt),
		})
	}

	sources := contributingSources(sorted)
	c := r.agreement(sources[:1]) * best.total
	return types.ReconciledField[types.EditionSelection]{
		Value:      sel,
		Confidence: clamp01(c),
		Sources:    sources,
		Reasoning:  fmt.Sprintf("selected %s among %d edition(s): %s", editionLabel(best.edition), len(available), sel.SelectionReason),
	}, nil
}

func editionKey(e types.Edition) string {
	if isbn := NormalizeIdentifier(e.ISBN); isbn.Type == types.IdentifierISBN {
		return "isbn:" + isbn.Normalized
	}
	if id := strings.TrimSpace(e.ID); id != "" {
		return "id:" + id
	}
	if t := similarity.NormalizeTitle(e.Title); t != "" {
		return "title:" + t + "|" + NormalizeFormat(e.Format) + "|" + e.PublicationDate
	}
	return ""
}

// fillEdition takes the most reliable copy and fills its blanks from the
// other copies of the same edition.
func fillEdition(g group[types.Edition]) types.Edition {
	e := g.members[0].Value
	for _, m := range g.members[1:] {
		o := m.Value
		if e.Title == "" {
			e.Title = o.Title
		}
		if e.ISBN == "" {
			e.ISBN = o.ISBN
		}
		if e.PublicationDate == "" {
			e.PublicationDate = o.PublicationDate
		}
		if e.Publisher == "" {
			e.Publisher = o.Publisher
		}
		if e.PageCount == 0 {
			e.PageCount = o.PageCount
		}
		if e.Format == "" {
			e.Format = o.Format
		}
		if e.Language == "" {
			e.Language = o.Language
		}
	}
	return e
}

func editionLabel(e types.Edition) string {
	parts := []string{}
	if e.Format != "" {
		parts = append(parts, NormalizeFormat(e.Format))
	}
	if e.PublicationDate != "" {
		parts = append(parts, e.PublicationDate)
	}
	if e.ISBN != "" {
		parts = append(parts, e.ISBN)
	}
	if len(parts) == 0 {
		return e.ID
	}
	return strings.Join(parts, " ")
}

func selectionReason(best editionScore, o EditionOptions) string {
	var why []string
	if best.completeness == 1 {
		why = append(why, "complete metadata")
	} else {
		why = append(why, fmt.Sprintf("%.0f%% complete metadata", best.completeness*100))
	}
	if best.recency == 1 {
		why = append(why, "recent publication")
	}
	if f := NormalizeFormat(best.edition.Format); f != "" {
		why = append(why, f+" format")
	}
	if best.language == 1 {
		why = append(why, "matches language "+o.PreferredLanguage)
	}
	return fmt.Sprintf("highest score %.2f (%s)", best.total, strings.Join(why, ", "))
}

func alternativeReason(best, alt editionScore) string {
	type gap struct {
		name string
		diff float64
	}
	gaps := []gap{
		{"less complete metadata", weightCompleteness * (best.completeness - alt.completeness)},
		{"older publication", weightRecency * (best.recency - alt.recency)},
		{"less preferred format", weightFormat * (best.format - alt.format)},
		{"language mismatch", weightLanguage * (best.language - alt.language)},
	}
	sort.SliceStable(gaps, func(i, j int) bool { return gaps[i].diff > gaps[j].diff })
	if gaps[0].diff <= 0 {
		return fmt.Sprintf("scored %.2f, tied on every criterion and ranked by source reliability", alt.total)
	}
	return fmt.Sprintf("scored %.2f against %.2f: %s", alt.total, best.total, gaps[0].name)
}

// advantages lists concrete ways alt is better than the selected edition.
func advantages(best, alt editionScore) []string {
	var out []string
	if alt.edition.PageCount > best.edition.PageCount && best.edition.PageCount > 0 {
		out = append(out, fmt.Sprintf("more pages (%d vs %d)", alt.edition.PageCount, best.edition.PageCount))
	} else if alt.edition.PageCount > 0 && best.edition.PageCount == 0 {
		out = append(out, fmt.Sprintf("known page count (%d)", alt.edition.PageCount))
	}
	if alt.dated && (!best.dated || alt.date.String() > best.date.String()) {
		out = append(out, "more recent publication")
	}
	if alt.completeness > best.completeness {
		out = append(out, "more complete metadata")
	}
	if alt.format > best.format {
		out = append(out, "preferred format ("+NormalizeFormat(alt.edition.Format)+")")
	}
	if alt.language > best.language {
		out = append(out, "better language match")
	}
	return out
}
