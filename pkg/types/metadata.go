// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the book-enricher core:
// provider records, reconciled fields, identifiers, content fields, editions,
// duplicate verdicts, and configuration.
package types

import "time"

// FieldType names a reconcilable field family. Providers declare support and
// reliability per FieldType.
type FieldType string

const (
	FieldTitle       FieldType = "title"
	FieldAuthors     FieldType = "authors"
	FieldISBN        FieldType = "isbn"
	FieldIdentifiers FieldType = "identifiers"
	FieldPublisher   FieldType = "publisher"
	FieldPlace       FieldType = "place"
	FieldDate        FieldType = "date"
	FieldLanguage    FieldType = "language"
	FieldPageCount   FieldType = "pageCount"
	FieldDescription FieldType = "description"
	FieldSubjects    FieldType = "subjects"
	FieldSeries      FieldType = "series"
	FieldCover       FieldType = "cover"
	FieldRating      FieldType = "rating"
	FieldReviews     FieldType = "reviews"
	FieldTOC         FieldType = "toc"
	FieldEditions    FieldType = "editions"
)

// AllFieldTypes returns every field family in display order.
func AllFieldTypes() []FieldType {
	return []FieldType{
		FieldTitle, FieldAuthors, FieldISBN, FieldIdentifiers, FieldPublisher,
		FieldPlace, FieldDate, FieldLanguage, FieldPageCount, FieldDescription,
		FieldSubjects, FieldSeries, FieldCover, FieldRating, FieldReviews,
		FieldTOC, FieldEditions,
	}
}

// MetadataSource describes where a value came from. Reliability is the
// provider's trust weight in [0,1].
type MetadataSource struct {
	Name        string    `json:"name" yaml:"name" mapstructure:"name"`
	Reliability float64   `json:"reliability" yaml:"reliability" mapstructure:"reliability"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp" mapstructure:"timestamp"`
}

// Series identifies a book series and the volume within it.
type Series struct {
	Name   string `json:"name" yaml:"name" mapstructure:"name"`
	Volume string `json:"volume,omitempty" yaml:"volume,omitempty" mapstructure:"volume"`
}

// MetadataRecord is a single candidate result from one provider for one
// query. Records are produced by provider clients and never mutated here.
type MetadataRecord struct {
	ID              string         `json:"id" yaml:"id" mapstructure:"id"`
	Source          MetadataSource `json:"source" yaml:"source" mapstructure:"source"`
	Timestamp       time.Time      `json:"timestamp" yaml:"timestamp" mapstructure:"timestamp"`
	Confidence      float64        `json:"confidence" yaml:"confidence" mapstructure:"confidence"`
	Title           string         `json:"title,omitempty" yaml:"title,omitempty" mapstructure:"title"`
	Authors         []string       `json:"authors,omitempty" yaml:"authors,omitempty" mapstructure:"authors"`
	ISBN            []string       `json:"isbn,omitempty" yaml:"isbn,omitempty" mapstructure:"isbn"`
	PublicationDate string         `json:"publication_date,omitempty" yaml:"publication_date,omitempty" mapstructure:"publication_date"`
	Publisher       string         `json:"publisher,omitempty" yaml:"publisher,omitempty" mapstructure:"publisher"`
	Language        string         `json:"language,omitempty" yaml:"language,omitempty" mapstructure:"language"`
	PageCount       int            `json:"page_count,omitempty" yaml:"page_count,omitempty" mapstructure:"page_count"`
	Description     string         `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Subjects        []string       `json:"subjects,omitempty" yaml:"subjects,omitempty" mapstructure:"subjects"`
	Series          *Series        `json:"series,omitempty" yaml:"series,omitempty" mapstructure:"series"`
	Edition         string         `json:"edition,omitempty" yaml:"edition,omitempty" mapstructure:"edition"`
	CoverImage      *CoverImage    `json:"cover_image,omitempty" yaml:"cover_image,omitempty" mapstructure:"cover_image"`

	// Identifiers holds raw non-ISBN identifiers (DOI, OCLC, LCCN, URLs).
	Identifiers      []string   `json:"identifiers,omitempty" yaml:"identifiers,omitempty" mapstructure:"identifiers"`
	PublicationPlace string     `json:"publication_place,omitempty" yaml:"publication_place,omitempty" mapstructure:"publication_place"`
	Rating           *Rating    `json:"rating,omitempty" yaml:"rating,omitempty" mapstructure:"rating"`
	Reviews          []Review   `json:"reviews,omitempty" yaml:"reviews,omitempty" mapstructure:"reviews"`
	TableOfContents  string     `json:"table_of_contents,omitempty" yaml:"table_of_contents,omitempty" mapstructure:"table_of_contents"`
	TOCEntries       []TOCEntry `json:"toc_entries,omitempty" yaml:"toc_entries,omitempty" mapstructure:"toc_entries"`
	Editions         []Edition  `json:"editions,omitempty" yaml:"editions,omitempty" mapstructure:"editions"`

	// ProviderData is opaque per-provider payload carried for callers.
	ProviderData map[string]any `json:"provider_data,omitempty" yaml:"provider_data,omitempty" mapstructure:"provider_data"`
}

// ConflictValue is one of the competing values recorded in a Conflict.
type ConflictValue struct {
	Value  any            `json:"value" yaml:"value"`
	Source MetadataSource `json:"source" yaml:"source"`
}

// Conflict records that two or more normalized-distinct values were offered
// for the same logical field. Resolution is a human-readable justification.
type Conflict struct {
	Field      string          `json:"field" yaml:"field"`
	Values     []ConflictValue `json:"values" yaml:"values"`
	Resolution string          `json:"resolution" yaml:"resolution"`
}

// ReconciledField is the output unit of every reconciler. Confidence is
// derived only from the inputs of the reconciliation call that produced it.
type ReconciledField[T any] struct {
	Value      T                `json:"value" yaml:"value"`
	Confidence float64          `json:"confidence" yaml:"confidence"`
	Sources    []MetadataSource `json:"sources" yaml:"sources"`
	Conflicts  []Conflict       `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
	Reasoning  string           `json:"reasoning" yaml:"reasoning"`
}

// HasConflicts reports whether the reconciliation recorded any conflict.
func (f ReconciledField[T]) HasConflicts() bool {
	return len(f.Conflicts) > 0
}

// SourceNames returns the names of the contributing sources in order.
func (f ReconciledField[T]) SourceNames() []string {
	names := make([]string, len(f.Sources))
	for i, s := range f.Sources {
		names[i] = s.Name
	}
	return names
}

// Query describes what the caller already knows about a book. The
// presence of each field drives operation and provider selection.
type Query struct {
	Title     string   `json:"title,omitempty" yaml:"title,omitempty"`
	ISBN      string   `json:"isbn,omitempty" yaml:"isbn,omitempty"`
	Authors   []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	Publisher string   `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	Languages []string `json:"languages,omitempty" yaml:"languages,omitempty"`
	Year      int      `json:"year,omitempty" yaml:"year,omitempty"`
}

// IsEmpty reports whether the query contains no searchable terms.
func (q Query) IsEmpty() bool {
	return q.Title == "" && q.ISBN == "" && len(q.Authors) == 0
}

// PresentFields lists the field types the query carries values for.
func (q Query) PresentFields() []FieldType {
	var fields []FieldType
	if q.Title != "" {
		fields = append(fields, FieldTitle)
	}
	if q.ISBN != "" {
		fields = append(fields, FieldISBN)
	}
	if len(q.Authors) > 0 {
		fields = append(fields, FieldAuthors)
	}
	if q.Publisher != "" {
		fields = append(fields, FieldPublisher)
	}
	if q.Year > 0 {
		fields = append(fields, FieldDate)
	}
	return fields
}
