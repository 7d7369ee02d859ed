// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/book-enricher/internal/similarity"
	"github.com/pdiddy/book-enricher/pkg/types"
)

var (
	// tocPage matches a trailing page number after leader dots, an
	// ellipsis, a tab, or two or more spaces.
	tocPage = regexp.MustCompile(`^(.*?)(?:\s*\.{2,}\s*|\s*…\s*|\t+|\s{2,})(\d+)\s*$`)

	// tocNumbering matches "1.", "1.2", "1.2.3" section numbers.
	tocNumbering = regexp.MustCompile(`^(\d+(?:\.\d+)*)\.?\s+`)
)

// TOCCandidate is one provider's table of contents, either as free text or
// as already structured entries. Entries win when both are set.
type TOCCandidate struct {
	Text    string
	Entries []types.TOCEntry
}

// ParseTOC parses a free-text outline, one entry per line. A trailing page
// number may follow leader dots, an ellipsis, or a tab. Nesting comes from
// dotted section numbers, else from indentation (two spaces or one tab per
// level).
func ParseTOC(text string) []types.TOCEntry {
	var entries []types.TOCEntry
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		level := indentLevel(line)
		title := strings.TrimSpace(line)
		page := 0
		if m := tocPage.FindStringSubmatch(title); m != nil && strings.TrimSpace(m[1]) != "" {
			title = strings.TrimSpace(m[1])
			page, _ = strconv.Atoi(m[2])
		}
		if m := tocNumbering.FindStringSubmatch(title); m != nil {
			level = strings.Count(m[1], ".") + 1
		}
		entries = append(entries, types.TOCEntry{Title: title, Page: page, Level: level})
	}
	return entries
}

func indentLevel(line string) int {
	width := 0
	for _, r := range line {
		switch r {
		case ' ':
			width++
		case '\t':
			width += 2
		default:
			return width/2 + 1
		}
	}
	return 1
}

func (c TOCCandidate) entries() []types.TOCEntry {
	if len(c.Entries) > 0 {
		out := make([]types.TOCEntry, 0, len(c.Entries))
		for _, e := range c.Entries {
			e.Title = strings.TrimSpace(e.Title)
			if e.Title == "" {
				continue
			}
			if e.Level == 0 {
				e.Level = 1
			}
			out = append(out, e)
		}
		return out
	}
	return ParseTOC(c.Text)
}

func withPages(entries []types.TOCEntry) int {
	n := 0
	for _, e := range entries {
		if e.Page > 0 {
			n++
		}
	}
	return n
}

func tocTitles(entries []types.TOCEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = similarity.NormalizeTitle(e.Title)
	}
	return out
}

type parsedTOC struct {
	entries []types.TOCEntry
	pages   int
	source  types.MetadataSource
}

// ReconcileTOC prefers the candidate with the most entries, then the most
// explicit page numbers, then the most reliable source. Candidates whose
// entry titles overlap the winner's by less than half are a conflict.
func (r *Reconciler) ReconcileTOC(inputs []Input[TOCCandidate]) (types.ReconciledField[[]types.TOCEntry], error) {
	if len(inputs) == 0 {
		return types.ReconciledField[[]types.TOCEntry]{}, noInputs(types.FieldTOC)
	}
	var cands []parsedTOC
	for _, in := range inputs {
		e := in.Value.entries()
		if len(e) == 0 {
			continue
		}
		cands = append(cands, parsedTOC{entries: e, pages: withPages(e), source: in.Source})
	}
	if len(cands) == 0 {
		return lowConfidence(r.Table, types.FieldTOC, []types.TOCEntry{}, len(inputs)), nil
	}
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if len(a.entries) != len(b.entries) {
			return len(a.entries) > len(b.entries)
		}
		if a.pages != b.pages {
			return a.pages > b.pages
		}
		if a.source.Name != b.source.Name || a.source.Reliability != b.source.Reliability {
			return lessSource(a.source, b.source)
		}
		return fmt.Sprint(a.entries) < fmt.Sprint(b.entries)
	})

	winner := cands[0]
	winnerTitles := tocTitles(winner.entries)
	agreeing := []types.MetadataSource{winner.source}
	var conflict *types.Conflict
	for _, c := range cands[1:] {
		if similarity.Array(winnerTitles, tocTitles(c.entries)) >= 0.5 {
			agreeing = append(agreeing, c.source)
			continue
		}
		if conflict == nil {
			conflict = &types.Conflict{
				Field:  string(types.FieldTOC),
				Values: []types.ConflictValue{{Value: winner.entries, Source: winner.source}},
			}
		}
		conflict.Values = append(conflict.Values, types.ConflictValue{Value: c.entries, Source: c.source})
	}
	if conflict != nil {
		conflict.Resolution = fmt.Sprintf("kept the %d-entry contents from %s", len(winner.entries), winner.source.Name)
	}
	agreeing = dedupeSources(agreeing)
	sort.SliceStable(agreeing, func(i, j int) bool { return lessSource(agreeing[i], agreeing[j]) })

	return types.ReconciledField[[]types.TOCEntry]{
		Value:      winner.entries,
		Confidence: r.finish(r.agreement(agreeing), conflict != nil),
		Sources:    agreeing,
		Conflicts:  conflicts(conflict),
		Reasoning: fmt.Sprintf("%d entries (%d with page numbers) from %s; %d candidate(s) considered",
			len(winner.entries), winner.pages, winner.source.Name, len(cands)),
	}, nil
}
