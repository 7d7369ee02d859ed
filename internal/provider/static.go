// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/book-enricher/internal/similarity"
	"github.com/pdiddy/book-enricher/pkg/types"
)

// Static is a provider variant that answers from records held in memory,
// typically loaded from a YAML fixture. It lets the CLI and tests drive the
// whole enrichment path without network clients.
type Static struct {
	cfg types.ProviderConfig
}

// NewStatic builds a Static provider from its configuration.
func NewStatic(cfg types.ProviderConfig) *Static {
	return &Static{cfg: cfg}
}

func (s *Static) Name() string                     { return s.cfg.Name }
func (s *Static) Priority() int                    { return s.cfg.Priority }
func (s *Static) Kind() Kind                       { return ParseKind(s.cfg.Kind) }
func (s *Static) RateLimit() types.RateLimitConfig { return s.cfg.RateLimit }
func (s *Static) Timeout() types.TimeoutConfig     { return s.cfg.Timeout }

// Languages returns the configured language coverage.
func (s *Static) Languages() []string { return s.cfg.Languages }

func (s *Static) ReliabilityScore(field types.FieldType) float64 {
	return s.cfg.Reliability[field]
}

func (s *Static) SupportsDataType(field types.FieldType) bool {
	_, ok := s.cfg.Reliability[field]
	return ok
}

func (s *Static) SearchByTitle(ctx context.Context, title string) ([]types.MetadataRecord, error) {
	want := similarity.NormalizeTitle(title)
	if want == "" {
		return nil, fmt.Errorf("%s: %w", s.cfg.Name, ErrMalformedRequest)
	}
	return s.filter(ctx, func(r types.MetadataRecord) bool {
		return titleMatches(r.Title, want)
	})
}

func (s *Static) SearchByISBN(ctx context.Context, isbn string) ([]types.MetadataRecord, error) {
	if similarity.CompactISBN(isbn) == "" {
		return nil, fmt.Errorf("%s: %w", s.cfg.Name, ErrMalformedRequest)
	}
	return s.filter(ctx, func(r types.MetadataRecord) bool {
		return similarity.ISBN(r.ISBN, []string{isbn}) == 1
	})
}

func (s *Static) SearchByCreator(ctx context.Context, creator string) ([]types.MetadataRecord, error) {
	want := similarity.NormalizeAuthor(creator)
	if want == "" {
		return nil, fmt.Errorf("%s: %w", s.cfg.Name, ErrMalformedRequest)
	}
	return s.filter(ctx, func(r types.MetadataRecord) bool {
		return authorMatches(r.Authors, want)
	})
}

func (s *Static) SearchMultiCriteria(ctx context.Context, q types.Query) ([]types.MetadataRecord, error) {
	if q.IsEmpty() {
		return nil, fmt.Errorf("%s: %w", s.cfg.Name, ErrMalformedRequest)
	}
	title := similarity.NormalizeTitle(q.Title)
	return s.filter(ctx, func(r types.MetadataRecord) bool {
		if q.ISBN != "" && similarity.ISBN(r.ISBN, []string{q.ISBN}) == 1 {
			return true
		}
		if title != "" && !titleMatches(r.Title, title) {
			return false
		}
		for _, a := range q.Authors {
			if authorMatches(r.Authors, similarity.NormalizeAuthor(a)) {
				return true
			}
		}
		return title != "" && len(q.Authors) == 0
	})
}

// filter returns copies of matching records with provenance filled in.
func (s *Static) filter(ctx context.Context, match func(types.MetadataRecord) bool) ([]types.MetadataRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []types.MetadataRecord
	for i, r := range s.cfg.Records {
		if !match(r) {
			continue
		}
		if r.ID == "" {
			r.ID = fmt.Sprintf("%s-%d", s.cfg.Name, i+1)
		}
		if r.Source.Name == "" {
			r.Source.Name = s.cfg.Name
		}
		if r.Source.Reliability == 0 {
			r.Source.Reliability = s.cfg.Reliability[types.FieldTitle]
		}
		if r.Timestamp.IsZero() {
			r.Timestamp = time.Now().UTC()
		}
		out = append(out, r)
	}
	return out, nil
}

func titleMatches(recordTitle, want string) bool {
	got := similarity.NormalizeTitle(recordTitle)
	if got == "" {
		return false
	}
	return got == want || strings.Contains(got, want) || similarity.String(got, want) >= 0.85
}

func authorMatches(authors []string, want string) bool {
	if want == "" {
		return false
	}
	for _, a := range authors {
		got := similarity.NormalizeAuthor(a)
		if got != "" && (got == want || strings.Contains(got, want) || strings.Contains(want, got)) {
			return true
		}
	}
	return false
}

// fixtureFile is the on-disk layout of a provider fixture.
type fixtureFile struct {
	Providers []types.ProviderConfig `yaml:"providers"`
}

// LoadFixtures reads provider configurations (with their canned records)
// from a YAML file.
func LoadFixtures(path string) ([]types.ProviderConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixtures %s: %w", path, err)
	}
	var ff fixtureFile
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("parsing fixtures %s: %w", path, err)
	}
	for i, p := range ff.Providers {
		if p.Name == "" {
			return nil, fmt.Errorf("fixtures %s: provider %d has no name", path, i+1)
		}
	}
	return ff.Providers, nil
}

// FromConfigs builds a Static provider per configuration.
func FromConfigs(cfgs []types.ProviderConfig) []Provider {
	out := make([]Provider, 0, len(cfgs))
	for _, c := range cfgs {
		out = append(out, NewStatic(c))
	}
	return out
}
