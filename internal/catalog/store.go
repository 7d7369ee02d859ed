// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog persists the known works, editions, identifiers, and
// asset checksums that duplicate detection matches imports against.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/book-enricher/internal/reconcile"
	"github.com/pdiddy/book-enricher/internal/similarity"
	"github.com/pdiddy/book-enricher/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "catalog.db"
)

// Store manages the catalog SQLite database.
type Store struct {
	db  *sql.DB
	dir string
}

// NewStore opens or creates the catalog database at dir/index/catalog.db
// and creates the schema if it does not exist.
func NewStore(cfg types.CatalogConfig) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errors.New("catalog directory is required")
	}
	dbDir := filepath.Join(cfg.Dir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dir: cfg.Dir}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS works (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			title_key TEXT NOT NULL,
			authors TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS editions (
			id TEXT PRIMARY KEY,
			work_id TEXT NOT NULL REFERENCES works(id) ON DELETE CASCADE,
			title TEXT,
			format TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS edition_identifiers (
			edition_id TEXT NOT NULL REFERENCES editions(id) ON DELETE CASCADE,
			type TEXT NOT NULL,
			normalized TEXT NOT NULL,
			value TEXT,
			valid INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (edition_id, type, normalized)
		)`,
		`CREATE TABLE IF NOT EXISTS assets (
			id TEXT PRIMARY KEY,
			edition_id TEXT REFERENCES editions(id) ON DELETE SET NULL,
			checksum TEXT NOT NULL UNIQUE,
			path TEXT,
			size INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_works_title_key ON works(title_key)`,
		`CREATE INDEX IF NOT EXISTS idx_editions_work_id ON editions(work_id)`,
		`CREATE INDEX IF NOT EXISTS idx_identifiers_lookup ON edition_identifiers(type, normalized)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// PutWork inserts or updates a work. A work without an ID gets a new one.
func (s *Store) PutWork(ctx context.Context, w types.ExistingWork) (types.ExistingWork, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if strings.TrimSpace(w.Title) == "" {
		return w, fmt.Errorf("work %s: title is required", w.ID)
	}
	authorsJSON, _ := json.Marshal(w.Authors)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO works (id, title, title_key, authors) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, title_key=excluded.title_key, authors=excluded.authors`,
		w.ID, w.Title, similarity.NormalizeTitle(w.Title), string(authorsJSON),
	)
	if err != nil {
		return w, fmt.Errorf("upserting work %s: %w", w.ID, err)
	}
	return w, nil
}

// PutEdition inserts or updates an edition and replaces its identifiers.
// Identifiers are stored in normalized form.
func (s *Store) PutEdition(ctx context.Context, e types.ExistingEdition) (types.ExistingEdition, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.WorkID == "" {
		return e, fmt.Errorf("edition %s: work id is required", e.ID)
	}
	e.Identifiers = normalizeIdentifiers(e.Identifiers)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return e, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO editions (id, work_id, title, format) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			work_id=excluded.work_id, title=excluded.title, format=excluded.format`,
		e.ID, e.WorkID, e.Title, e.Format,
	)
	if err != nil {
		return e, fmt.Errorf("upserting edition %s: %w", e.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM edition_identifiers WHERE edition_id = ?`, e.ID); err != nil {
		return e, fmt.Errorf("deleting old identifiers: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO edition_identifiers (edition_id, type, normalized, value, valid)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return e, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, id := range e.Identifiers {
		if _, err := stmt.ExecContext(ctx, e.ID, string(id.Type), id.Normalized, id.Value, id.Valid); err != nil {
			return e, fmt.Errorf("inserting identifier %s: %w", id.Normalized, err)
		}
	}
	return e, tx.Commit()
}

// PutAsset inserts or updates an asset. The checksum is stored lower-cased.
func (s *Store) PutAsset(ctx context.Context, a types.ExistingAsset) (types.ExistingAsset, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Checksum = strings.ToLower(strings.TrimSpace(a.Checksum))
	if a.Checksum == "" {
		return a, fmt.Errorf("asset %s: checksum is required", a.ID)
	}
	var editionID any
	if a.EditionID != "" {
		editionID = a.EditionID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO assets (id, edition_id, checksum, path, size) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			edition_id=excluded.edition_id, checksum=excluded.checksum,
			path=excluded.path, size=excluded.size`,
		a.ID, editionID, a.Checksum, a.Path, a.Size,
	)
	if err != nil {
		return a, fmt.Errorf("upserting asset %s: %w", a.ID, err)
	}
	return a, nil
}

func normalizeIdentifiers(ids []types.Identifier) []types.Identifier {
	seen := make(map[string]bool)
	var out []types.Identifier
	for _, id := range ids {
		raw := id.Value
		if raw == "" {
			raw = id.Normalized
		}
		n := reconcile.NormalizeIdentifier(raw)
		if n.Normalized == "" {
			continue
		}
		key := string(n.Type) + ":" + n.Normalized
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}

// Stats reports row counts per table.
type Stats struct {
	Works       int `json:"works" yaml:"works"`
	Editions    int `json:"editions" yaml:"editions"`
	Identifiers int `json:"identifiers" yaml:"identifiers"`
	Assets      int `json:"assets" yaml:"assets"`
}

// Stats counts the stored rows.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	counts := []struct {
		table string
		dst   *int
	}{
		{"works", &st.Works},
		{"editions", &st.Editions},
		{"edition_identifiers", &st.Identifiers},
		{"assets", &st.Assets},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM `+c.table).Scan(c.dst); err != nil {
			return st, fmt.Errorf("counting %s: %w", c.table, err)
		}
	}
	return st, nil
}
