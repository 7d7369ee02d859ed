// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provider defines the metadata-provider capability interface and the
// resilient wrapper that invokes providers with rate limiting, timeouts,
// retry with backoff, and error classification. Providers fail soft: the
// wrapper never returns a provider error to its caller, it reports a
// degraded Result instead.
package provider

import (
	"context"
	"errors"

	"github.com/pdiddy/book-enricher/pkg/types"
)

// Kind tags a provider variant. The consensus strategy uses it to spread
// queries across independent kinds of source.
type Kind string

const (
	KindCatalog       Kind = "catalog"
	KindKnowledgeBase Kind = "knowledge-base"
	KindCommercial    Kind = "commercial"
	KindCommunity     Kind = "community"
)

// ParseKind maps a configured kind name onto a Kind; unknown names map to
// KindCatalog.
func ParseKind(s string) Kind {
	switch Kind(s) {
	case KindKnowledgeBase, KindCommercial, KindCommunity:
		return Kind(s)
	default:
		return KindCatalog
	}
}

// Provider is a bibliographic metadata source. Implementations hand back
// normalized records; wire formats are their own concern. Search methods
// must respect ctx cancellation.
type Provider interface {
	Name() string
	Priority() int
	Kind() Kind
	RateLimit() types.RateLimitConfig
	Timeout() types.TimeoutConfig

	// Languages lists the languages the provider covers. An empty list
	// leaves the provider on the default coverage.
	Languages() []string

	// ReliabilityScore returns the provider's trust weight for a field in [0,1].
	ReliabilityScore(field types.FieldType) float64
	SupportsDataType(field types.FieldType) bool

	SearchByTitle(ctx context.Context, title string) ([]types.MetadataRecord, error)
	SearchByISBN(ctx context.Context, isbn string) ([]types.MetadataRecord, error)
	SearchByCreator(ctx context.Context, creator string) ([]types.MetadataRecord, error)
	SearchMultiCriteria(ctx context.Context, q types.Query) ([]types.MetadataRecord, error)
}

// Operation names the search method used for a query.
type Operation string

const (
	OpTitle   Operation = "title"
	OpISBN    Operation = "isbn"
	OpCreator Operation = "creator"
	OpMulti   Operation = "multi"
)

// ErrEmptyQuery is returned when a query carries no title, ISBN, or author.
var ErrEmptyQuery = errors.New("query is empty: provide a title, ISBN, or author")

// OperationFor picks the most specific operation the query supports.
// An ISBN wins over everything else; title plus authors uses the
// multi-criteria search.
func OperationFor(q types.Query) (Operation, error) {
	switch {
	case q.ISBN != "":
		return OpISBN, nil
	case q.Title != "" && len(q.Authors) > 0:
		return OpMulti, nil
	case q.Title != "":
		return OpTitle, nil
	case len(q.Authors) > 0:
		return OpCreator, nil
	default:
		return "", ErrEmptyQuery
	}
}

// invoke dispatches op to the matching Provider method.
func invoke(ctx context.Context, p Provider, op Operation, q types.Query) ([]types.MetadataRecord, error) {
	switch op {
	case OpISBN:
		return p.SearchByISBN(ctx, q.ISBN)
	case OpTitle:
		return p.SearchByTitle(ctx, q.Title)
	case OpCreator:
		creator := ""
		if len(q.Authors) > 0 {
			creator = q.Authors[0]
		}
		return p.SearchByCreator(ctx, creator)
	default:
		return p.SearchMultiCriteria(ctx, q)
	}
}
