// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/book-enricher/internal/reconcile"
	"github.com/pdiddy/book-enricher/pkg/types"
)

// File is the YAML catalog layout used by Import and Export.
type File struct {
	Works []WorkEntry `json:"works" yaml:"works"`
}

// WorkEntry is a work with its editions.
type WorkEntry struct {
	ID       string         `json:"id,omitempty" yaml:"id,omitempty"`
	Title    string         `json:"title" yaml:"title"`
	Authors  []string       `json:"authors,omitempty" yaml:"authors,omitempty"`
	Editions []EditionEntry `json:"editions,omitempty" yaml:"editions,omitempty"`
}

// EditionEntry is an edition with its raw identifiers and assets.
type EditionEntry struct {
	ID          string       `json:"id,omitempty" yaml:"id,omitempty"`
	Title       string       `json:"title,omitempty" yaml:"title,omitempty"`
	Format      string       `json:"format,omitempty" yaml:"format,omitempty"`
	Identifiers []string     `json:"identifiers,omitempty" yaml:"identifiers,omitempty"`
	Assets      []AssetEntry `json:"assets,omitempty" yaml:"assets,omitempty"`
}

// AssetEntry is a stored file of an edition.
type AssetEntry struct {
	ID       string `json:"id,omitempty" yaml:"id,omitempty"`
	Checksum string `json:"checksum" yaml:"checksum"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
	Size     int64  `json:"size,omitempty" yaml:"size,omitempty"`
}

// ImportSummary holds counts from an import run.
type ImportSummary struct {
	Works    int
	Editions int
	Assets   int
	Failed   int
}

// ImportFile reads a YAML catalog file and imports it.
func (s *Store) ImportFile(ctx context.Context, path string, w io.Writer) (ImportSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("opening catalog file: %w", err)
	}
	defer f.Close()
	return s.Import(ctx, f, w)
}

// Import decodes a YAML catalog and upserts every work, edition, and
// asset. A work that fails is reported on w and counted; the rest of the
// file is still imported.
func (s *Store) Import(ctx context.Context, r io.Reader, w io.Writer) (ImportSummary, error) {
	var file File
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return ImportSummary{}, fmt.Errorf("parsing catalog: %w", err)
	}

	var summary ImportSummary
	for _, entry := range file.Works {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		editions, assets, err := s.importWork(ctx, entry)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", entry.Title, err)
			summary.Failed++
			continue
		}
		fmt.Fprintf(w, "imported %s (%d editions)\n", entry.Title, editions)
		summary.Works++
		summary.Editions += editions
		summary.Assets += assets
	}

	fmt.Fprintf(w, "\nworks: %d, editions: %d, assets: %d, failed: %d\n",
		summary.Works, summary.Editions, summary.Assets, summary.Failed)
	return summary, nil
}

func (s *Store) importWork(ctx context.Context, entry WorkEntry) (int, int, error) {
	work, err := s.PutWork(ctx, types.ExistingWork{ID: entry.ID, Title: entry.Title, Authors: entry.Authors})
	if err != nil {
		return 0, 0, err
	}
	assets := 0
	for _, ee := range entry.Editions {
		ids := make([]types.Identifier, len(ee.Identifiers))
		for i, raw := range ee.Identifiers {
			ids[i] = types.Identifier{Value: raw}
		}
		title := ee.Title
		if title == "" {
			title = work.Title
		}
		ed, err := s.PutEdition(ctx, types.ExistingEdition{
			ID: ee.ID, WorkID: work.ID, Title: title, Format: ee.Format, Identifiers: ids,
		})
		if err != nil {
			return 0, 0, err
		}
		for _, ae := range ee.Assets {
			if _, err := s.PutAsset(ctx, types.ExistingAsset{
				ID: ae.ID, EditionID: ed.ID, Checksum: ae.Checksum, Path: ae.Path, Size: ae.Size,
			}); err != nil {
				return 0, 0, err
			}
			assets++
		}
	}
	return len(entry.Editions), assets, nil
}

// Export writes the whole catalog as YAML, works ordered by ID.
func (s *Store) Export(ctx context.Context, w io.Writer) error {
	file, err := s.exportFile(ctx)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// ExportYAML writes the catalog to dir/index/export.yaml.
func (s *Store) ExportYAML(ctx context.Context) (string, error) {
	file, err := s.exportFile(ctx)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(file)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	path := filepath.Join(s.dir, indexDir, "export.yaml")
	return path, os.WriteFile(path, data, 0o644)
}

func (s *Store) exportFile(ctx context.Context) (File, error) {
	works, err := s.listWorks(ctx, "", nil, "id", -1)
	if err != nil {
		return File{}, fmt.Errorf("querying for export: %w", err)
	}
	file := File{Works: make([]WorkEntry, 0, len(works))}
	for _, w := range works {
		editions, err := s.EditionsByWork(ctx, w.ID)
		if err != nil {
			return File{}, err
		}
		entry := WorkEntry{ID: w.ID, Title: w.Title, Authors: w.Authors}
		for _, e := range editions {
			ee := EditionEntry{ID: e.ID, Title: e.Title, Format: e.Format}
			for _, id := range e.Identifiers {
				ee.Identifiers = append(ee.Identifiers, reconcile.Qualified(id))
			}
			assets, err := s.assetsOf(ctx, e.ID)
			if err != nil {
				return File{}, err
			}
			ee.Assets = assets
			entry.Editions = append(entry.Editions, ee)
		}
		file.Works = append(file.Works, entry)
	}
	return file, nil
}

func (s *Store) assetsOf(ctx context.Context, editionID string) ([]AssetEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, checksum, COALESCE(path, ''), COALESCE(size, 0) FROM assets
		 WHERE edition_id = ? ORDER BY id`, editionID)
	if err != nil {
		return nil, fmt.Errorf("querying assets of %s: %w", editionID, err)
	}
	defer rows.Close()

	var assets []AssetEntry
	for rows.Next() {
		var a AssetEntry
		if err := rows.Scan(&a.ID, &a.Checksum, &a.Path, &a.Size); err != nil {
			return nil, fmt.Errorf("scanning asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}
