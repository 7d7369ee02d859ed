// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/pdiddy/book-enricher/internal/similarity"
	"github.com/pdiddy/book-enricher/pkg/types"
)

type city struct {
	name    string
	country string
	coords  types.Coordinates
}

// cities maps alias spellings to canonical cities.
var cities = map[string]city{}

func addCity(name, country string, lat, lon float64, aliases ...string) {
	c := city{name: name, country: country, coords: types.Coordinates{Latitude: lat, Longitude: lon}}
	cities[name] = c
	for _, a := range aliases {
		cities[a] = c
	}
}

func init() {
	addCity("new york", "united states", 40.7128, -74.0060, "nyc", "new york city", "n y", "ny", "manhattan")
	addCity("london", "united kingdom", 51.5074, -0.1278, "londres", "londra")
	addCity("paris", "france", 48.8566, 2.3522)
	addCity("boston", "united states", 42.3601, -71.0589)
	addCity("chicago", "united states", 41.8781, -87.6298)
	addCity("philadelphia", "united states", 39.9526, -75.1652, "phila")
	addCity("san francisco", "united states", 37.7749, -122.4194, "sf")
	addCity("los angeles", "united states", 34.0522, -118.2437, "la")
	addCity("washington", "united states", 38.9072, -77.0369, "washington dc", "washington d c")
	addCity("toronto", "canada", 43.6532, -79.3832)
	addCity("berlin", "germany", 52.5200, 13.4050)
	addCity("frankfurt", "germany", 50.1109, 8.6821, "frankfurt am main")
	addCity("leipzig", "germany", 51.3397, 12.3731)
	addCity("munich", "germany", 48.1351, 11.5820, "munchen", "münchen")
	addCity("amsterdam", "netherlands", 52.3676, 4.9041)
	addCity("tokyo", "japan", 35.6762, 139.6503)
	addCity("oxford", "united kingdom", 51.7520, -1.2577)
	addCity("cambridge", "united kingdom", 52.2053, 0.1218)
	addCity("edinburgh", "united kingdom", 55.9533, -3.1883)
	addCity("madrid", "spain", 40.4168, -3.7038)
	addCity("barcelona", "spain", 41.3874, 2.1686)
	addCity("milan", "italy", 45.4642, 9.1900, "milano")
	addCity("rome", "italy", 41.9028, 12.4964, "roma")
	addCity("sydney", "australia", -33.8688, 151.2093)

	for a := range cities {
		sortedCityAliases = append(sortedCityAliases, a)
	}
	sort.Strings(sortedCityAliases)
}

// publishingCenters earn an extra confidence boost.
var publishingCenters = map[string]bool{
	"new york": true, "london": true, "paris": true, "boston": true,
	"chicago": true, "philadelphia": true, "toronto": true, "berlin": true,
	"frankfurt": true, "amsterdam": true, "tokyo": true, "oxford": true,
	"cambridge": true, "edinburgh": true, "madrid": true, "milan": true,
	"leipzig": true,
}

// countries maps alias spellings and codes to canonical country names.
var countries = map[string]string{
	"united states": "united states", "usa": "united states", "us": "united states",
	"u s a": "united states", "u s": "united states", "united states of america": "united states",
	"america": "united states",
	"united kingdom": "united kingdom", "uk": "united kingdom", "u k": "united kingdom",
	"england": "united kingdom", "great britain": "united kingdom", "britain": "united kingdom",
	"scotland": "united kingdom", "wales": "united kingdom", "gb": "united kingdom",
	"france": "france", "fr": "france",
	"germany": "germany", "deutschland": "germany", "de": "germany",
	"canada": "canada", "ca": "canada",
	"netherlands": "netherlands", "holland": "netherlands", "nl": "netherlands",
	"japan": "japan", "jp": "japan",
	"spain": "spain", "espana": "spain", "es": "spain",
	"italy": "italy", "italia": "italy", "it": "italy",
	"australia": "australia", "au": "australia",
}

// usStates resolves trailing state names and abbreviations to the US.
var usStates = map[string]bool{
	"ma": true, "mass": true, "massachusetts": true, "il": true, "ill": true, "illinois": true,
	"pa": true, "pennsylvania": true, "calif": true, "california": true,
	"nj": true, "new jersey": true, "conn": true, "ct": true, "connecticut": true,
	"tx": true, "texas": true, "dc": true, "d c": true, "ny": true, "n y": true,
}

// cleanPlace lower-cases and folds a place string, removes a leading
// "the" and punctuation, and collapses whitespace.
func cleanPlace(s string) string {
	s = strings.ToLower(similarity.Fold(strings.TrimSpace(s)))
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, s)
	words := strings.Fields(s)
	if len(words) > 1 && words[0] == "the" {
		words = words[1:]
	}
	return strings.Join(words, " ")
}

// lookupCity resolves a cleaned place via the alias table, falling back to
// a fuzzy match above 0.9 similarity. Candidates are scanned in sorted
// order so ties break deterministically.
func lookupCity(key string) (city, bool) {
	if c, ok := cities[key]; ok {
		return c, true
	}
	if len(key) < 4 {
		return city{}, false
	}
	best, bestScore := city{}, 0.9
	found := false
	for _, alias := range sortedCityAliases {
		if s := similarity.String(key, alias); s > bestScore {
			best, bestScore, found = cities[alias], s, true
		}
	}
	return best, found
}

var sortedCityAliases []string

// ExtractCountry scans comma-separated segments right to left and returns
// the first that names a country or a US state.
func ExtractCountry(raw string) string {
	segments := strings.Split(raw, ",")
	for i := len(segments) - 1; i >= 0; i-- {
		seg := cleanPlace(segments[i])
		if seg == "" {
			continue
		}
		if c, ok := countries[seg]; ok {
			return c
		}
		if usStates[seg] {
			return "united states"
		}
	}
	return ""
}

// NormalizePlace resolves a publication place to a canonical city with its
// country and coordinates when the city is known. An explicit country in
// the input wins over the city's default; when they disagree the
// coordinates are dropped because the city is ambiguous.
func NormalizePlace(raw string) types.PublicationPlace {
	name := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), "[]"))
	p := types.PublicationPlace{Name: name}
	if name == "" {
		return p
	}
	country := ExtractCountry(name)
	head := cleanPlace(strings.Split(name, ",")[0])
	p.Normalized = head
	if country != "" && countries[head] == country && !strings.Contains(name, ",") {
		// The whole place is a country.
		p.Country = country
		return p
	}
	if c, ok := lookupCity(head); ok {
		p.Normalized = c.name
		p.Country = c.country
		coords := c.coords
		p.Coordinates = &coords
		if country != "" && country != c.country {
			p.Country = country
			p.Coordinates = nil
		}
		return p
	}
	p.Country = country
	return p
}

// ReconcilePlace groups places by normalized city and keeps the group
// holding the most reliable source. Confidence is boosted for a known
// city, a resolved country, and a major publishing center.
func (r *Reconciler) ReconcilePlace(inputs []Input[string]) (types.ReconciledField[types.PublicationPlace], error) {
	if len(inputs) == 0 {
		return types.ReconciledField[types.PublicationPlace]{}, noInputs(types.FieldPlace)
	}
	places := make([]Input[types.PublicationPlace], 0, len(inputs))
	for _, in := range inputs {
		places = append(places, Input[types.PublicationPlace]{Value: NormalizePlace(in.Value), Source: in.Source})
	}
	res, ok := resolve(types.FieldPlace, places, func(p types.PublicationPlace) string { return p.Normalized })
	if !ok {
		return lowConfidence(r.Table, types.FieldPlace, types.PublicationPlace{}, len(inputs)), nil
	}

	value := res.winner.members[0].Value
	if value.Country == "" {
		for _, m := range res.winner.members[1:] {
			if m.Value.Country != "" {
				value.Country = m.Value.Country
				value.Coordinates = m.Value.Coordinates
				break
			}
		}
	}

	sources := res.winner.sources()
	c := r.agreement(sources)
	var boosts []string
	if _, known := cities[value.Normalized]; known {
		c *= r.Table.CanonicalCityBoost
		boosts = append(boosts, "known city")
	}
	if value.Country != "" {
		c *= r.Table.CountryBoost
		boosts = append(boosts, "country "+value.Country)
	}
	if publishingCenters[value.Normalized] {
		c *= r.Table.PublishingCenterBoost
		boosts = append(boosts, "publishing center")
	}
	reasoning := agreementReasoning(types.FieldPlace, res)
	if len(boosts) > 0 {
		reasoning += fmt.Sprintf("; boosted for %s", strings.Join(boosts, ", "))
	}
	return types.ReconciledField[types.PublicationPlace]{
		Value:      value,
		Confidence: r.finish(c, res.conflict != nil),
		Sources:    sources,
		Conflicts:  conflicts(res.conflict),
		Reasoning:  reasoning,
	}, nil
}
