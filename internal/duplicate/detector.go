// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package duplicate decides whether a candidate import is already known,
// either as the exact same file, as an edition sharing an identifier, or
// as a work with a near-identical title and authors.
package duplicate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/pdiddy/book-enricher/internal/reconcile"
	"github.com/pdiddy/book-enricher/internal/similarity"
	"github.com/pdiddy/book-enricher/pkg/types"
)

// Verdict confidences and thresholds.
const (
	IdentifierConfidence      = 0.95
	DifferentFormatConfidence = 0.9
	DifferentFormatThreshold  = 0.9
	FuzzyThreshold            = 0.85
	fuzzyScale                = 0.9
	titleWeight               = 0.7
	authorWeight              = 0.3
)

// Index is the read side of a known-items store.
type Index interface {
	AssetByChecksum(ctx context.Context, checksum string) (*types.ExistingAsset, error)
	EditionsByIdentifier(ctx context.Context, id types.Identifier) ([]types.ExistingEdition, error)
	EditionsByWork(ctx context.Context, workID string) ([]types.ExistingEdition, error)
	Work(ctx context.Context, id string) (*types.ExistingWork, error)
	CandidateWorks(ctx context.Context, title string, authors []string) ([]types.ExistingWork, error)
}

// Candidate is the metadata of an import being checked.
type Candidate struct {
	Title       string   `json:"title,omitempty" yaml:"title,omitempty"`
	Authors     []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	Identifiers []string `json:"identifiers,omitempty" yaml:"identifiers,omitempty"`
	Format      string   `json:"format,omitempty" yaml:"format,omitempty"`
	Checksum    string   `json:"checksum,omitempty" yaml:"checksum,omitempty"`
}

// Detector runs the checksum, identifier, and fuzzy strategies in order.
type Detector struct {
	index  Index
	logger *slog.Logger
}

// NewDetector returns a Detector over index. A nil logger uses slog.Default.
func NewDetector(index Index, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{index: index, logger: logger}
}

// Checksum returns the hex SHA-256 of r's content.
func Checksum(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hashing content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Detect returns the first confident verdict. A candidate that matches
// nothing yields HasDuplicate false and confidence 0. Only index errors
// are returned.
func (d *Detector) Detect(ctx context.Context, c Candidate) (types.DuplicateCheckResult, error) {
	if c.Checksum != "" {
		res, ok, err := d.byChecksum(ctx, c)
		if err != nil || ok {
			return res, err
		}
	}

	ids := matchableIdentifiers(c.Identifiers)
	if len(ids) > 0 {
		res, ok, err := d.byIdentifier(ctx, c, ids)
		if err != nil || ok {
			return res, err
		}
		res, ok, err = d.byFormat(ctx, c, ids)
		if err != nil || ok {
			return res, err
		}
	}

	if strings.TrimSpace(c.Title) != "" {
		res, ok, err := d.byTitle(ctx, c)
		if err != nil || ok {
			return res, err
		}
	}
	return types.DuplicateCheckResult{HasDuplicate: false, Confidence: 0}, nil
}

func (d *Detector) byChecksum(ctx context.Context, c Candidate) (types.DuplicateCheckResult, bool, error) {
	asset, err := d.index.AssetByChecksum(ctx, strings.ToLower(c.Checksum))
	if err != nil {
		return types.DuplicateCheckResult{}, false, fmt.Errorf("looking up checksum: %w", err)
	}
	if asset == nil {
		return types.DuplicateCheckResult{}, false, nil
	}
	d.logger.Debug("duplicate asset", "asset", asset.ID, "checksum", asset.Checksum)
	return types.DuplicateCheckResult{
		HasDuplicate:  true,
		Type:          types.DuplicateExactAsset,
		ExistingAsset: asset,
		Confidence:    1.0,
		Description:   fmt.Sprintf("identical content already stored as asset %s", asset.ID),
	}, true, nil
}

// matchableIdentifiers keeps ISBNs and ASINs, the identifiers that name a
// single edition.
func matchableIdentifiers(raw []string) []types.Identifier {
	var out []types.Identifier
	seen := make(map[string]bool)
	for _, r := range raw {
		id := reconcile.NormalizeIdentifier(r)
		if id.Type != types.IdentifierISBN && id.Type != types.IdentifierAmazon {
			continue
		}
		if id.Normalized == "" || seen[id.Normalized] {
			continue
		}
		seen[id.Normalized] = true
		out = append(out, id)
	}
	return out
}

func (d *Detector) byIdentifier(ctx context.Context, c Candidate, ids []types.Identifier) (types.DuplicateCheckResult, bool, error) {
	for _, id := range ids {
		editions, err := d.index.EditionsByIdentifier(ctx, id)
		if err != nil {
			return types.DuplicateCheckResult{}, false, fmt.Errorf("looking up %s %s: %w", id.Type, id.Normalized, err)
		}
		if len(editions) == 0 {
			continue
		}
		ed := editions[0]
		work, err := d.index.Work(ctx, ed.WorkID)
		if err != nil {
			return types.DuplicateCheckResult{}, false, fmt.Errorf("loading work %s: %w", ed.WorkID, err)
		}
		typ := types.DuplicateSameISBN
		if id.Type == types.IdentifierAmazon {
			typ = types.DuplicateSameASIN
		}
		return types.DuplicateCheckResult{
			HasDuplicate:    true,
			Type:            typ,
			ExistingWork:    work,
			ExistingEdition: &ed,
			Confidence:      IdentifierConfidence,
			Description:     fmt.Sprintf("edition %s already carries %s %s", ed.ID, id.Type, id.Normalized),
		}, true, nil
	}
	return types.DuplicateCheckResult{}, false, nil
}

// byFormat catches another format of a known work: none of the
// candidate's identifiers are known, but a work matches title and authors
// closely and already has editions under other identifiers.
func (d *Detector) byFormat(ctx context.Context, c Candidate, ids []types.Identifier) (types.DuplicateCheckResult, bool, error) {
	if strings.TrimSpace(c.Title) == "" {
		return types.DuplicateCheckResult{}, false, nil
	}
	works, err := d.index.CandidateWorks(ctx, c.Title, c.Authors)
	if err != nil {
		return types.DuplicateCheckResult{}, false, fmt.Errorf("finding candidate works: %w", err)
	}
	for _, w := range works {
		title := TitleSimilarity(c.Title, w.Title)
		author, ok := AuthorSimilarity(c.Authors, w.Authors)
		if title < DifferentFormatThreshold || !ok || author < DifferentFormatThreshold {
			continue
		}
		editions, err := d.index.EditionsByWork(ctx, w.ID)
		if err != nil {
			return types.DuplicateCheckResult{}, false, fmt.Errorf("loading editions of %s: %w", w.ID, err)
		}
		for _, ed := range editions {
			if len(ed.Identifiers) == 0 {
				continue
			}
			work := w
			edition := ed
			return types.DuplicateCheckResult{
				HasDuplicate:    true,
				Type:            types.DuplicateDifferentFormat,
				ExistingWork:    &work,
				ExistingEdition: &edition,
				Confidence:      DifferentFormatConfidence,
				Description: fmt.Sprintf("work %s matches (title %.2f, authors %.2f) under different identifiers; candidate %s%s",
					w.ID, title, author, ids[0].Normalized, formatNote(c.Format, ed.Format)),
			}, true, nil
		}
	}
	return types.DuplicateCheckResult{}, false, nil
}

func formatNote(candidate, existing string) string {
	cf, ef := reconcile.NormalizeFormat(candidate), reconcile.NormalizeFormat(existing)
	if cf == "" || ef == "" || cf == ef {
		return ""
	}
	return fmt.Sprintf(" is %s, existing edition is %s", cf, ef)
}

func (d *Detector) byTitle(ctx context.Context, c Candidate) (types.DuplicateCheckResult, bool, error) {
	works, err := d.index.CandidateWorks(ctx, c.Title, c.Authors)
	if err != nil {
		return types.DuplicateCheckResult{}, false, fmt.Errorf("finding candidate works: %w", err)
	}
	var best *types.ExistingWork
	bestScore := 0.0
	for i := range works {
		score := MatchScore(c.Title, c.Authors, works[i].Title, works[i].Authors)
		if score > bestScore || (score == bestScore && best != nil && works[i].ID < best.ID) {
			best, bestScore = &works[i], score
		}
	}
	if best == nil || bestScore < FuzzyThreshold {
		return types.DuplicateCheckResult{}, false, nil
	}
	work := *best
	return types.DuplicateCheckResult{
		HasDuplicate: true,
		Type:         types.DuplicateSimilarTitle,
		ExistingWork: &work,
		Confidence:   bestScore * fuzzyScale,
		Description:  fmt.Sprintf("work %s %q has a similar title and authors (score %.2f)", work.ID, work.Title, bestScore),
	}, true, nil
}

// TitleSimilarity compares two titles after normalization.
func TitleSimilarity(a, b string) float64 {
	return similarity.String(similarity.NormalizeTitle(a), similarity.NormalizeTitle(b))
}

// AuthorSimilarity averages, over the shorter list, each author's best
// match in the other list. It reports false when either list is empty.
func AuthorSimilarity(a, b []string) (float64, bool) {
	na, nb := normalizedAuthors(a), normalizedAuthors(b)
	if len(na) == 0 || len(nb) == 0 {
		return 0, false
	}
	if len(na) > len(nb) {
		na, nb = nb, na
	}
	total := 0.0
	for _, x := range na {
		best := 0.0
		for _, y := range nb {
			best = max(best, similarity.String(x, y))
		}
		total += best
	}
	return total / float64(len(na)), true
}

func normalizedAuthors(authors []string) []string {
	var out []string
	for _, a := range authors {
		if n := similarity.NormalizeAuthor(a); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// MatchScore is the fuzzy title and author score: 0.7 title plus 0.3
// authors, or the title alone scaled by 0.9 when either side has no
// authors.
func MatchScore(titleA string, authorsA []string, titleB string, authorsB []string) float64 {
	title := TitleSimilarity(titleA, titleB)
	author, ok := AuthorSimilarity(authorsA, authorsB)
	if !ok {
		return title * fuzzyScale
	}
	return titleWeight*title + authorWeight*author
}
