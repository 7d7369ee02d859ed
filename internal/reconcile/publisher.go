// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"fmt"
	"math"
	"strings"

	"github.com/pdiddy/book-enricher/internal/similarity"
	"github.com/pdiddy/book-enricher/pkg/types"
)

// publisherGroups maps a canonical publisher to the imprints and former
// names that should compare equal to it. Keys and aliases are in the form
// produced by similarity.StripCorporateSuffixes.
var publisherGroups = map[string][]string{
	"penguin random house": {
		"penguin", "random house", "bantam", "bantam dell", "doubleday", "knopf",
		"alfred a knopf", "vintage", "crown", "ballantine", "del rey", "viking",
		"puffin", "dutton", "putnam", "g p putnam s sons", "berkley", "ace",
		"anchor", "riverhead", "penguin books", "penguin group",
	},
	"harpercollins": {
		"harper", "collins", "harper and row", "harper collins", "harperperennial",
		"harper perennial", "william morrow", "avon", "harlequin",
	},
	"simon and schuster": {"simon schuster", "scribner", "charles scribner s sons", "atria", "pocket"},
	"hachette":           {"hachette book", "little brown", "little brown and", "grand central", "orbit"},
	"macmillan":          {"st martin s", "st martin s press", "tor", "farrar straus and giroux", "henry holt", "picador"},
	"oxford university press":    {"oup", "clarendon press"},
	"cambridge university press": {"cup"},
}

// majorPublishers earn a confidence boost when they win reconciliation.
var majorPublishers = map[string]bool{
	"penguin random house":       true,
	"harpercollins":              true,
	"simon and schuster":         true,
	"hachette":                   true,
	"macmillan":                  true,
	"oxford university press":    true,
	"cambridge university press": true,
	"wiley":                      true,
	"springer":                   true,
	"scholastic":                 true,
}

var publisherAliases = buildAliases()

func buildAliases() map[string]string {
	m := make(map[string]string)
	for canonical, aliases := range publisherGroups {
		m[canonical] = canonical
		for _, a := range aliases {
			m[a] = canonical
		}
	}
	return m
}

// NormalizePublisher cleans a publisher statement. A leading "Place :"
// imprint prefix moves to Location; corporate suffixes are stripped and
// known imprints map to their parent house so that, for example, Bantam
// Books and Penguin share a normalized name.
func NormalizePublisher(raw string) types.Publisher {
	name := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), "[]"))
	p := types.Publisher{Name: name}
	if i := strings.Index(name, " : "); i > 0 {
		p.Location = strings.TrimSpace(name[:i])
		p.Name = strings.TrimSpace(name[i+3:])
	}
	key := similarity.StripCorporateSuffixes(similarity.Fold(p.Name))
	p.Normalized = canonicalPublisher(key)
	return p
}

// canonicalPublisher resolves an exact alias first, then the longest alias
// that is a whole-word prefix of the key ("bantam spectra" is Bantam).
func canonicalPublisher(key string) string {
	if key == "" {
		return ""
	}
	if c, ok := publisherAliases[key]; ok {
		return c
	}
	best, bestLen := "", 0
	for alias, canonical := range publisherAliases {
		if len(alias) > bestLen && strings.HasPrefix(key, alias+" ") {
			best, bestLen = canonical, len(alias)
		}
	}
	if best != "" {
		return best
	}
	return key
}

// ReconcilePublisher groups publisher statements by normalized name and
// keeps the group holding the most reliable source. Known major houses get
// a small confidence boost.
func (r *Reconciler) ReconcilePublisher(inputs []Input[string]) (types.ReconciledField[types.Publisher], error) {
	if len(inputs) == 0 {
		return types.ReconciledField[types.Publisher]{}, noInputs(types.FieldPublisher)
	}
	pubs := make([]Input[types.Publisher], 0, len(inputs))
	for _, in := range inputs {
		pubs = append(pubs, Input[types.Publisher]{Value: NormalizePublisher(in.Value), Source: in.Source})
	}
	res, ok := resolve(types.FieldPublisher, pubs, func(p types.Publisher) string { return p.Normalized })
	if !ok {
		return lowConfidence(r.Table, types.FieldPublisher, types.Publisher{}, len(inputs)), nil
	}

	value := res.winner.members[0].Value
	if value.Location == "" {
		for _, m := range res.winner.members[1:] {
			if m.Value.Location != "" {
				value.Location = m.Value.Location
				break
			}
		}
	}

	sources := res.winner.sources()
	c := r.agreement(sources)
	reasoning := agreementReasoning(types.FieldPublisher, res)
	if majorPublishers[value.Normalized] {
		c = math.Min(c+r.Table.MajorPublisherBoost, math.Max(c, r.Table.MajorPublisherCap))
		reasoning += fmt.Sprintf("; %s is a major publisher", value.Normalized)
	}
	return types.ReconciledField[types.Publisher]{
		Value:      value,
		Confidence: r.finish(c, res.conflict != nil),
		Sources:    sources,
		Conflicts:  conflicts(res.conflict),
		Reasoning:  reasoning,
	}, nil
}
