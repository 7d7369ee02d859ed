// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import "strings"

// ScoringTable holds the confidence policy constants. They were tuned
// against real provider behaviour and are versioned so output can be traced
// to the table that produced it. Adjustments apply in this order:
// agreement (capped), field boosts, conflict penalty, clamp to [0,1].
type ScoringTable struct {
	Version string

	// LowConfidence is returned for inputs that carry no usable data.
	LowConfidence float64

	// AgreementBonus is added per agreeing source beyond the first.
	AgreementBonus float64

	// AgreementCap is the ceiling of a source with no entry in
	// ProviderCaps. Agreement confidence is bounded by the highest
	// ceiling among the contributing sources.
	AgreementCap float64

	// ProviderCaps are per-provider ceilings keyed by lower-case name.
	ProviderCaps map[string]float64

	// ConflictPenalty multiplies confidence when a conflict is recorded.
	ConflictPenalty float64

	// MajorPublisherBoost is added when the publisher is a known major
	// house, bounded by MajorPublisherCap.
	MajorPublisherBoost float64
	MajorPublisherCap   float64

	// Place boosts are multiplicative.
	CanonicalCityBoost    float64
	CountryBoost          float64
	PublishingCenterBoost float64

	// InvalidIdentifierFactor multiplies confidence when the primary
	// identifier fails validation.
	InvalidIdentifierFactor float64

	// DescriptionDivergence is the token-set similarity below which two
	// descriptions are treated as describing different things.
	DescriptionDivergence float64

	// RatingSpread is the largest gap on the common 5-point scale that
	// is not reported as a conflict.
	RatingSpread float64

	// MaxReviews bounds the reconciled review list.
	MaxReviews int

	// PageCountTolerance is the relative difference under which two page
	// counts agree.
	PageCountTolerance float64
}

// ScoringV1 returns the v1 scoring table.
func ScoringV1() ScoringTable {
	return ScoringTable{
		Version:        "v1",
		LowConfidence:  0.1,
		AgreementBonus: 0.05,
		AgreementCap:   0.95,
		ProviderCaps: map[string]float64{
			"openlibrary": 0.92,
			"googlebooks": 0.95,
			"wikidata":    0.90,
			"loc":         0.98,
			"worldcat":    0.97,
			"goodreads":   0.88,
			"amazon":      0.93,
		},
		ConflictPenalty:         0.9,
		MajorPublisherBoost:     0.05,
		MajorPublisherCap:       0.98,
		CanonicalCityBoost:      1.10,
		CountryBoost:            1.05,
		PublishingCenterBoost:   1.10,
		InvalidIdentifierFactor: 0.5,
		DescriptionDivergence:   0.3,
		RatingSpread:            1.0,
		MaxReviews:              10,
		PageCountTolerance:      0.1,
	}
}

// capFor returns the confidence ceiling for a contributing source.
func (t ScoringTable) capFor(source string) float64 {
	if c, ok := t.ProviderCaps[strings.ToLower(source)]; ok {
		return c
	}
	return t.AgreementCap
}
