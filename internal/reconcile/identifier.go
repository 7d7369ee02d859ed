// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/pdiddy/book-enricher/pkg/types"
)

var (
	isbn10Pattern = regexp.MustCompile(`^\d{9}[\dX]$`)
	isbn13Pattern = regexp.MustCompile(`^\d{13}$`)

	// doiPattern matches bare DOIs: "10.1145/1234567.1234568".
	doiPattern = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)

	oclcPrefixPattern = regexp.MustCompile(`^(?:\(ocolc\)|oclc:?|ocm|ocn|on)\s*0*(\d+)$`)
	digitsPattern     = regexp.MustCompile(`^\d+$`)

	// lccnPattern matches LCCNs with an alphabetic prefix or a hyphenated
	// year-serial form: "n78-890351", "sn 85-1234", "2001-12345".
	lccnPattern = regexp.MustCompile(`^([a-z]{1,3})?\s?(\d{2}|\d{4})-?(\d{1,6})$`)

	asinPattern      = regexp.MustCompile(`^B0[0-9A-Z]{8}$`)
	amazonPathID     = regexp.MustCompile(`(?i)/(?:dp|gp/product|product)/([0-9a-z]{10})`)
	goodreadsPathID  = regexp.MustCompile(`/book/show/(\d+)`)
	googleEditionID  = regexp.MustCompile(`/books/edition/[^/]*/([A-Za-z0-9_-]+)`)
	schemePrefix     = regexp.MustCompile(`^([a-z]+)\s*:\s*(.+)$`)
	isbnPrefixRemove = regexp.MustCompile(`^(?:urn:)?isbn(?:-1[03])?\s*:?\s*`)
)

// identifierOrder ranks identifier types for output. Lower sorts first.
var identifierOrder = map[types.IdentifierType]int{
	types.IdentifierISBN:      0,
	types.IdentifierDOI:       1,
	types.IdentifierOCLC:      2,
	types.IdentifierLCCN:      3,
	types.IdentifierAmazon:    4,
	types.IdentifierGoodreads: 5,
	types.IdentifierGoogle:    6,
	types.IdentifierOther:     7,
}

// NormalizeIdentifier classifies a raw identifier and returns its canonical
// form. Detection order is ISBN, DOI, OCLC, LCCN, then Amazon, Goodreads,
// and Google Books URLs or prefixed schemes. Anything else non-empty is
// "other" and valid; an empty string is "other" and invalid. Normalizing
// the Normalized value again yields the same Normalized value.
func NormalizeIdentifier(raw string) types.Identifier {
	value := strings.TrimSpace(raw)
	id := types.Identifier{Type: types.IdentifierOther, Value: value, Normalized: value}
	if value == "" {
		return id
	}
	lower := strings.ToLower(value)

	if isbn, ok := compactISBN(lower); ok {
		return normalizeISBN(value, isbn)
	}
	if doi, ok := extractDOI(lower); ok {
		id.Type = types.IdentifierDOI
		id.Normalized = doi
		id.Valid = doiPattern.MatchString(doi)
		return id
	}
	if oclc, ok := extractOCLC(lower); ok {
		id.Type = types.IdentifierOCLC
		id.Normalized = oclc
		id.Valid = true
		return id
	}
	if lccn, ok := extractLCCN(lower); ok {
		id.Type = types.IdentifierLCCN
		id.Normalized = lccn
		id.Valid = true
		return id
	}
	if typ, opaque, ok := extractOpaque(value); ok {
		id.Type = typ
		id.Normalized = opaque
		id.Valid = opaque != ""
		return id
	}
	id.Valid = true
	return id
}

// Qualified returns a string that NormalizeIdentifier maps back to id's
// type and normalized value. Bare digit strings are ambiguous between
// OCLC, LCCN, and Goodreads numbers, so non-ISBN types carry a scheme.
func Qualified(id types.Identifier) string {
	if id.Normalized == "" {
		return id.Value
	}
	switch id.Type {
	case types.IdentifierISBN:
		return id.Normalized
	case types.IdentifierDOI:
		return "doi:" + id.Normalized
	case types.IdentifierOCLC:
		return "oclc:" + id.Normalized
	case types.IdentifierLCCN:
		return "lccn:" + id.Normalized
	case types.IdentifierAmazon:
		return "asin:" + id.Normalized
	case types.IdentifierGoodreads:
		return "goodreads:" + id.Normalized
	case types.IdentifierGoogle:
		return "google:" + id.Normalized
	}
	return id.Value
}

// compactISBN strips an "ISBN" label, hyphens, and spaces and reports
// whether what remains has ISBN-10 or ISBN-13 shape.
func compactISBN(lower string) (string, bool) {
	s := isbnPrefixRemove.ReplaceAllString(lower, "")
	s = strings.NewReplacer("-", "", " ", "", "‐", "", "‑", "").Replace(s)
	s = strings.ToUpper(s)
	if isbn10Pattern.MatchString(s) || isbn13Pattern.MatchString(s) {
		return s, true
	}
	return "", false
}

// normalizeISBN converts valid ISBN-10s to ISBN-13. An ISBN-10 with a bad
// check digit keeps its compact form so re-normalizing is stable.
func normalizeISBN(value, compact string) types.Identifier {
	id := types.Identifier{Type: types.IdentifierISBN, Value: value, Normalized: compact}
	if len(compact) == 10 {
		if ValidISBN10(compact) {
			id.Normalized = To13(compact)
			id.Valid = true
		}
		return id
	}
	id.Valid = ValidISBN13(compact)
	return id
}

func extractDOI(lower string) (string, bool) {
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/", "doi.org/", "doi:"} {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(lower, prefix)), true
		}
	}
	if doiPattern.MatchString(lower) {
		return lower, true
	}
	return "", false
}

func extractOCLC(lower string) (string, bool) {
	if m := oclcPrefixPattern.FindStringSubmatch(lower); m != nil {
		return trimLeadingZeros(m[1]), true
	}
	if u, err := url.Parse(lower); err == nil && strings.Contains(u.Host, "worldcat.org") {
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) >= 2 && parts[len(parts)-2] == "oclc" && digitsPattern.MatchString(parts[len(parts)-1]) {
			return trimLeadingZeros(parts[len(parts)-1]), true
		}
	}
	if digitsPattern.MatchString(lower) {
		return trimLeadingZeros(lower), true
	}
	return "", false
}

func trimLeadingZeros(s string) string {
	t := strings.TrimLeft(s, "0")
	if t == "" {
		return "0"
	}
	return t
}

// extractLCCN normalizes an LCCN per the Library of Congress rules:
// spaces removed, serial zero-padded to six digits after the hyphen.
func extractLCCN(lower string) (string, bool) {
	s := lower
	if strings.HasPrefix(s, "lccn:") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "lccn:"))
	} else if u, err := url.Parse(s); err == nil && u.Host == "lccn.loc.gov" {
		s = strings.Trim(u.Path, "/")
	}
	m := lccnPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	prefix, year, serial := m[1], m[2], m[3]
	if prefix == "" && !strings.Contains(s, "-") && s == lower {
		// Plain digit strings were already claimed as OCLC numbers.
		return "", false
	}
	return prefix + year + strings.Repeat("0", 6-len(serial)) + serial, true
}

// extractOpaque pulls the trailing opaque ID out of Amazon, Goodreads, and
// Google Books URLs or "asin:", "goodreads:", "google:" prefixed values.
func extractOpaque(value string) (types.IdentifierType, string, bool) {
	lower := strings.ToLower(value)
	if m := schemePrefix.FindStringSubmatch(lower); m != nil && !strings.HasPrefix(lower, "http") {
		opaque := strings.TrimSpace(value[len(value)-len(m[2]):])
		switch m[1] {
		case "asin", "amazon":
			return types.IdentifierAmazon, strings.ToUpper(opaque), true
		case "goodreads", "gr":
			return types.IdentifierGoodreads, opaque, true
		case "google", "gbid", "googlebooks":
			return types.IdentifierGoogle, opaque, true
		}
	}
	if asinPattern.MatchString(strings.ToUpper(value)) {
		return types.IdentifierAmazon, strings.ToUpper(value), true
	}

	u, err := url.Parse(value)
	if err != nil || u.Host == "" {
		return "", "", false
	}
	host := strings.ToLower(u.Host)
	switch {
	case strings.Contains(host, "amazon."):
		if m := amazonPathID.FindStringSubmatch(u.Path); m != nil {
			return types.IdentifierAmazon, strings.ToUpper(m[1]), true
		}
		return types.IdentifierAmazon, "", true
	case strings.Contains(host, "goodreads.com"):
		if m := goodreadsPathID.FindStringSubmatch(u.Path); m != nil {
			return types.IdentifierGoodreads, m[1], true
		}
		return types.IdentifierGoodreads, "", true
	case strings.Contains(host, "books.google.") || (strings.Contains(host, "google.") && strings.Contains(u.Path, "/books")):
		if id := u.Query().Get("id"); id != "" {
			return types.IdentifierGoogle, id, true
		}
		if m := googleEditionID.FindStringSubmatch(u.Path); m != nil {
			return types.IdentifierGoogle, m[1], true
		}
		return types.IdentifierGoogle, "", true
	}
	return "", "", false
}

// ReconcileIdentifiers merges the identifiers each source offered. Every
// distinct normalized identifier is kept; when several sources offer the
// same one, the most reliable source supplies its raw value. Sources that
// disagree on an identifier's type or validity, or whose ISBNs share none
// with the most reliable source, produce a conflict.
func (r *Reconciler) ReconcileIdentifiers(inputs []Input[[]string]) (types.ReconciledField[[]types.Identifier], error) {
	if len(inputs) == 0 {
		return types.ReconciledField[[]types.Identifier]{}, noInputs(types.FieldIdentifiers)
	}

	var flat []Input[types.Identifier]
	for _, in := range inputs {
		for _, raw := range in.Value {
			id := NormalizeIdentifier(raw)
			if id.Value == "" {
				continue
			}
			flat = append(flat, Input[types.Identifier]{Value: id, Source: in.Source})
		}
	}
	sorted := sortInputs(flat, func(id types.Identifier) string { return id.Normalized })
	if len(sorted) == 0 {
		return lowConfidence(r.Table, types.FieldIdentifiers, []types.Identifier{}, len(inputs)), nil
	}

	groups := groupSorted(sorted)
	var ids []types.Identifier
	var conflictList []types.Conflict
	for _, g := range groups {
		top := g.members[0].Value
		ids = append(ids, top)
		for _, m := range g.members[1:] {
			if m.Value.Type != top.Type || m.Value.Valid != top.Valid {
				conflictList = append(conflictList, types.Conflict{
					Field:      string(types.FieldIdentifiers),
					Values:     groupValues(g),
					Resolution: fmt.Sprintf("kept %s %s from %s (reliability %.2f)", top.Type, top.Normalized, g.members[0].Source.Name, g.members[0].Source.Reliability),
				})
				break
			}
		}
	}
	if c := isbnDisagreement(sorted); c != nil {
		conflictList = append(conflictList, *c)
	}

	sort.SliceStable(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		if identifierOrder[a.Type] != identifierOrder[b.Type] {
			return identifierOrder[a.Type] < identifierOrder[b.Type]
		}
		if a.Valid != b.Valid {
			return a.Valid
		}
		return a.Normalized < b.Normalized
	})

	// Confidence follows the sources behind the primary identifier.
	var primary group[types.Identifier]
	for _, g := range groups {
		if g.key == ids[0].Normalized {
			primary = g
			break
		}
	}
	c := r.agreement(primary.sources())
	if !ids[0].Valid {
		c *= r.Table.InvalidIdentifierFactor
	}
	c = r.finish(c, len(conflictList) > 0)

	sources := contributingSources(sorted)
	reasoning := fmt.Sprintf("%d distinct identifier(s) from %s; primary %s %s", len(ids), sourceNames(sources), ids[0].Type, ids[0].Normalized)
	if !ids[0].Valid {
		reasoning += " failed validation"
	}
	if len(conflictList) > 0 {
		reasoning += fmt.Sprintf("; %d conflict(s) resolved by reliability", len(conflictList))
	}
	return types.ReconciledField[[]types.Identifier]{
		Value:      ids,
		Confidence: c,
		Sources:    sources,
		Conflicts:  conflictList,
		Reasoning:  reasoning,
	}, nil
}

func groupValues[T any](g group[T]) []types.ConflictValue {
	out := make([]types.ConflictValue, 0, len(g.members))
	for _, m := range g.members {
		out = append(out, types.ConflictValue{Value: m.Value, Source: m.Source})
	}
	return out
}

// isbnDisagreement reports a conflict when a source's ISBNs share nothing
// with the ISBNs of the most reliable source that offered any.
func isbnDisagreement(sorted []keyed[types.Identifier]) *types.Conflict {
	bySource := make(map[string]map[string]bool)
	var order []types.MetadataSource
	for _, k := range sorted {
		if k.Value.Type != types.IdentifierISBN {
			continue
		}
		set, ok := bySource[k.Source.Name]
		if !ok {
			set = make(map[string]bool)
			bySource[k.Source.Name] = set
			order = append(order, k.Source)
		}
		set[k.Value.Normalized] = true
	}
	if len(order) < 2 {
		return nil
	}
	reference := bySource[order[0].Name]
	var disjoint []types.MetadataSource
	for _, src := range order[1:] {
		shared := false
		for isbn := range bySource[src.Name] {
			if reference[isbn] {
				shared = true
				break
			}
		}
		if !shared {
			disjoint = append(disjoint, src)
		}
	}
	if len(disjoint) == 0 {
		return nil
	}
	c := &types.Conflict{Field: string(types.FieldISBN)}
	for _, src := range append([]types.MetadataSource{order[0]}, disjoint...) {
		c.Values = append(c.Values, types.ConflictValue{Value: sortedKeys(bySource[src.Name]), Source: src})
	}
	c.Resolution = fmt.Sprintf("ISBNs from %s (reliability %.2f) listed first; %d source(s) offered only different ISBNs",
		order[0].Name, order[0].Reliability, len(disjoint))
	return c
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// contributingSources lists each distinct source once, in resolution order.
func contributingSources[T any](sorted []keyed[T]) []types.MetadataSource {
	seen := make(map[string]bool)
	var out []types.MetadataSource
	for _, k := range sorted {
		if seen[k.Source.Name] {
			continue
		}
		seen[k.Source.Name] = true
		out = append(out, k.Source)
	}
	return out
}
