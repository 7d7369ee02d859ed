// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// IdentifierType classifies a normalized identifier.
type IdentifierType string

const (
	IdentifierISBN      IdentifierType = "isbn"
	IdentifierDOI       IdentifierType = "doi"
	IdentifierOCLC      IdentifierType = "oclc"
	IdentifierLCCN      IdentifierType = "lccn"
	IdentifierGoodreads IdentifierType = "goodreads"
	IdentifierAmazon    IdentifierType = "amazon"
	IdentifierGoogle    IdentifierType = "google"
	IdentifierOther     IdentifierType = "other"
)

// Identifier is a typed, normalized book identifier. Normalized is the
// canonical deduplication key; Valid reflects structural and checksum
// validation only.
type Identifier struct {
	Type       IdentifierType `json:"type" yaml:"type"`
	Value      string         `json:"value" yaml:"value"`
	Normalized string         `json:"normalized" yaml:"normalized"`
	Valid      bool           `json:"valid" yaml:"valid"`
}

// Publisher is a publisher name with its comparison key.
type Publisher struct {
	Name       string `json:"name" yaml:"name"`
	Normalized string `json:"normalized" yaml:"normalized"`
	Location   string `json:"location,omitempty" yaml:"location,omitempty"`
}

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// PublicationPlace is a normalized place of publication.
type PublicationPlace struct {
	Name        string       `json:"name" yaml:"name"`
	Normalized  string       `json:"normalized" yaml:"normalized"`
	Country     string       `json:"country,omitempty" yaml:"country,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty" yaml:"coordinates,omitempty"`
}

// EnrichedRecord is the merged, reconciled view of a book assembled from
// every contributing provider.
type EnrichedRecord struct {
	Title           string            `json:"title,omitempty" yaml:"title,omitempty"`
	Authors         []string          `json:"authors,omitempty" yaml:"authors,omitempty"`
	Identifiers     []Identifier      `json:"identifiers,omitempty" yaml:"identifiers,omitempty"`
	PublicationDate string            `json:"publication_date,omitempty" yaml:"publication_date,omitempty"`
	Publisher       *Publisher        `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	Place           *PublicationPlace `json:"place,omitempty" yaml:"place,omitempty"`
	Language        string            `json:"language,omitempty" yaml:"language,omitempty"`
	PageCount       int               `json:"page_count,omitempty" yaml:"page_count,omitempty"`
	Description     *Description      `json:"description,omitempty" yaml:"description,omitempty"`
	Subjects        []string          `json:"subjects,omitempty" yaml:"subjects,omitempty"`
	Series          *Series           `json:"series,omitempty" yaml:"series,omitempty"`
	CoverImages     []CoverImage      `json:"cover_images,omitempty" yaml:"cover_images,omitempty"`
	Rating          *Rating           `json:"rating,omitempty" yaml:"rating,omitempty"`
	Reviews         []Review          `json:"reviews,omitempty" yaml:"reviews,omitempty"`
	TableOfContents []TOCEntry        `json:"table_of_contents,omitempty" yaml:"table_of_contents,omitempty"`
	Edition         *EditionSelection `json:"edition,omitempty" yaml:"edition,omitempty"`
}
