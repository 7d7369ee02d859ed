// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/book-enricher/internal/similarity"
	"github.com/pdiddy/book-enricher/pkg/types"
)

// maxCandidates bounds CandidateWorks.
const maxCandidates = 200

// AssetByChecksum returns the asset with the given checksum, or nil.
func (s *Store) AssetByChecksum(ctx context.Context, checksum string) (*types.ExistingAsset, error) {
	var (
		a         types.ExistingAsset
		editionID sql.NullString
		path      sql.NullString
		size      sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, edition_id, checksum, path, size FROM assets WHERE checksum = ?`,
		strings.ToLower(strings.TrimSpace(checksum)),
	).Scan(&a.ID, &editionID, &a.Checksum, &path, &size)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying asset: %w", err)
	}
	a.EditionID = editionID.String
	a.Path = path.String
	a.Size = size.Int64
	return &a, nil
}

// EditionsByIdentifier returns the editions carrying id, matched on type
// and normalized value.
func (s *Store) EditionsByIdentifier(ctx context.Context, id types.Identifier) ([]types.ExistingEdition, error) {
	return s.queryEditions(ctx,
		`SELECT DISTINCT e.id, e.work_id, e.title, e.format
		 FROM editions e
		 JOIN edition_identifiers i ON i.edition_id = e.id
		 WHERE i.type = ? AND i.normalized = ?
		 ORDER BY e.id`,
		string(id.Type), id.Normalized,
	)
}

// EditionsByWork returns the editions of a work ordered by ID.
func (s *Store) EditionsByWork(ctx context.Context, workID string) ([]types.ExistingEdition, error) {
	return s.queryEditions(ctx,
		`SELECT id, work_id, title, format FROM editions WHERE work_id = ? ORDER BY id`,
		workID,
	)
}

func (s *Store) queryEditions(ctx context.Context, query string, args ...any) ([]types.ExistingEdition, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying editions: %w", err)
	}
	defer rows.Close()

	var editions []types.ExistingEdition
	for rows.Next() {
		var (
			e      types.ExistingEdition
			title  sql.NullString
			format sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.WorkID, &title, &format); err != nil {
			return nil, fmt.Errorf("scanning edition: %w", err)
		}
		e.Title = title.String
		e.Format = format.String
		editions = append(editions, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating editions: %w", err)
	}
	rows.Close()

	for i := range editions {
		ids, err := s.identifiers(ctx, editions[i].ID)
		if err != nil {
			return nil, err
		}
		editions[i].Identifiers = ids
	}
	return editions, nil
}

func (s *Store) identifiers(ctx context.Context, editionID string) ([]types.Identifier, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT type, normalized, value, valid FROM edition_identifiers
		 WHERE edition_id = ? ORDER BY type, normalized`, editionID)
	if err != nil {
		return nil, fmt.Errorf("querying identifiers of %s: %w", editionID, err)
	}
	defer rows.Close()

	var ids []types.Identifier
	for rows.Next() {
		var (
			id    types.Identifier
			typ   string
			value sql.NullString
		)
		if err := rows.Scan(&typ, &id.Normalized, &value, &id.Valid); err != nil {
			return nil, fmt.Errorf("scanning identifier: %w", err)
		}
		id.Type = types.IdentifierType(typ)
		id.Value = value.String
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Work returns the work with the given ID, or nil.
func (s *Store) Work(ctx context.Context, id string) (*types.ExistingWork, error) {
	var (
		w       types.ExistingWork
		authors sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, authors FROM works WHERE id = ?`, id,
	).Scan(&w.ID, &w.Title, &authors)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying work %s: %w", id, err)
	}
	w.Authors = decodeAuthors(authors)
	return &w, nil
}

// CandidateWorks returns works that may be title matches: exact
// normalized-title matches first, then works sharing the most title words
// of three or more letters, stop words aside. A title with no such word
// matches every work. Authors are not used to narrow the set; the
// detector scores them.
func (s *Store) CandidateWorks(ctx context.Context, title string, _ []string) ([]types.ExistingWork, error) {
	tokens := similarity.SearchTokens(title)
	if len(tokens) == 0 {
		return s.listWorks(ctx, "", nil, "id", maxCandidates)
	}

	exact, err := s.listWorks(ctx, " WHERE title_key = ?", []any{similarity.NormalizeTitle(title)}, "id", maxCandidates)
	if err != nil {
		return nil, err
	}

	var (
		likes []string
		hits  []string
		args  []any
	)
	for _, tok := range tokens {
		like := `(' ' || title_key || ' ') LIKE ?`
		likes = append(likes, like)
		hits = append(hits, "(CASE WHEN "+like+" THEN 1 ELSE 0 END)")
		args = append(args, "% "+tok+" %")
	}
	// Placeholders in the ORDER BY follow those in the WHERE clause.
	args = append(args, args...)
	ranked, err := s.listWorks(ctx, " WHERE "+strings.Join(likes, " OR "), args,
		strings.Join(hits, " + ")+" DESC, id", maxCandidates)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(exact))
	for _, w := range exact {
		seen[w.ID] = true
	}
	works := exact
	for _, w := range ranked {
		if len(works) == maxCandidates {
			break
		}
		if !seen[w.ID] {
			works = append(works, w)
		}
	}
	return works, nil
}

// listWorks runs a works query with the given ORDER BY terms. A negative
// limit returns every row.
func (s *Store) listWorks(ctx context.Context, where string, args []any, orderBy string, limit int) ([]types.ExistingWork, error) {
	query := `SELECT id, title, authors FROM works` + where + ` ORDER BY ` + orderBy + ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying works: %w", err)
	}
	defer rows.Close()

	var works []types.ExistingWork
	for rows.Next() {
		var (
			w       types.ExistingWork
			authors sql.NullString
		)
		if err := rows.Scan(&w.ID, &w.Title, &authors); err != nil {
			return nil, fmt.Errorf("scanning work: %w", err)
		}
		w.Authors = decodeAuthors(authors)
		works = append(works, w)
	}
	return works, rows.Err()
}

func decodeAuthors(raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var authors []string
	if err := json.Unmarshal([]byte(raw.String), &authors); err != nil {
		return nil
	}
	return authors
}
