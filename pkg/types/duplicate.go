// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// DuplicateType names the strategy that produced a duplicate verdict.
type DuplicateType string

const (
	DuplicateExactAsset      DuplicateType = "exact-asset"
	DuplicateSameISBN        DuplicateType = "same-isbn"
	DuplicateSameASIN        DuplicateType = "same-asin"
	DuplicateSimilarTitle    DuplicateType = "similar-title"
	DuplicateDifferentFormat DuplicateType = "different-format"
)

// ExistingWork is an already-known work.
type ExistingWork struct {
	ID      string   `json:"id" yaml:"id"`
	Title   string   `json:"title" yaml:"title"`
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`
}

// ExistingEdition is an already-known edition of a work.
type ExistingEdition struct {
	ID          string       `json:"id" yaml:"id"`
	WorkID      string       `json:"work_id" yaml:"work_id"`
	Title       string       `json:"title,omitempty" yaml:"title,omitempty"`
	Format      string       `json:"format,omitempty" yaml:"format,omitempty"`
	Identifiers []Identifier `json:"identifiers,omitempty" yaml:"identifiers,omitempty"`
}

// ExistingAsset is an already-ingested file.
type ExistingAsset struct {
	ID        string `json:"id" yaml:"id"`
	EditionID string `json:"edition_id,omitempty" yaml:"edition_id,omitempty"`
	Checksum  string `json:"checksum" yaml:"checksum"`
	Path      string `json:"path,omitempty" yaml:"path,omitempty"`
	Size      int64  `json:"size,omitempty" yaml:"size,omitempty"`
}

// DuplicateCheckResult is the verdict of matching a candidate import against
// known works, editions, and assets. It is computed per ingestion attempt and
// never persisted; the caller decides whether to skip, merge, or prompt.
type DuplicateCheckResult struct {
	HasDuplicate    bool             `json:"has_duplicate" yaml:"has_duplicate"`
	Type            DuplicateType    `json:"type,omitempty" yaml:"type,omitempty"`
	ExistingWork    *ExistingWork    `json:"existing_work,omitempty" yaml:"existing_work,omitempty"`
	ExistingEdition *ExistingEdition `json:"existing_edition,omitempty" yaml:"existing_edition,omitempty"`
	ExistingAsset   *ExistingAsset   `json:"existing_asset,omitempty" yaml:"existing_asset,omitempty"`
	Confidence      float64          `json:"confidence" yaml:"confidence"`
	Description     string           `json:"description,omitempty" yaml:"description,omitempty"`
}
