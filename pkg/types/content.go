// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// DescriptionType classifies free-text descriptive content.
type DescriptionType string

const (
	DescriptionSynopsis DescriptionType = "synopsis"
	DescriptionSummary  DescriptionType = "summary"
	DescriptionBlurb    DescriptionType = "blurb"
)

// DescriptionLength buckets a description by character count.
type DescriptionLength string

const (
	LengthShort  DescriptionLength = "short"
	LengthMedium DescriptionLength = "medium"
	LengthLong   DescriptionLength = "long"
)

// Description is cleaned descriptive text with its classification.
type Description struct {
	Text   string            `json:"text" yaml:"text"`
	Type   DescriptionType   `json:"type" yaml:"type"`
	Length DescriptionLength `json:"length" yaml:"length"`
}

// TOCEntry is one line of a table of contents. Page is 0 when unknown.
type TOCEntry struct {
	Title string `json:"title" yaml:"title" mapstructure:"title"`
	Page  int    `json:"page,omitempty" yaml:"page,omitempty" mapstructure:"page"`
	Level int    `json:"level,omitempty" yaml:"level,omitempty" mapstructure:"level"`
}

// Review is a reader or editorial review.
type Review struct {
	Author       string  `json:"author,omitempty" yaml:"author,omitempty" mapstructure:"author"`
	Text         string  `json:"text" yaml:"text" mapstructure:"text"`
	Rating       float64 `json:"rating,omitempty" yaml:"rating,omitempty" mapstructure:"rating"`
	Verified     bool    `json:"verified,omitempty" yaml:"verified,omitempty" mapstructure:"verified"`
	HelpfulVotes int     `json:"helpful_votes,omitempty" yaml:"helpful_votes,omitempty" mapstructure:"helpful_votes"`
	TotalVotes   int     `json:"total_votes,omitempty" yaml:"total_votes,omitempty" mapstructure:"total_votes"`
	Date         string  `json:"date,omitempty" yaml:"date,omitempty" mapstructure:"date"`
	Source       string  `json:"source,omitempty" yaml:"source,omitempty" mapstructure:"source"`
}

// Rating is an aggregate rating on a provider-specific scale.
type Rating struct {
	Value float64 `json:"value" yaml:"value" mapstructure:"value"`
	Scale float64 `json:"scale" yaml:"scale" mapstructure:"scale"`
	Count int     `json:"count" yaml:"count" mapstructure:"count"`
}

// ImageQuality is the declared resolution tier of a cover image.
type ImageQuality string

const (
	QualityLow      ImageQuality = "low"
	QualityMedium   ImageQuality = "medium"
	QualityHigh     ImageQuality = "high"
	QualityOriginal ImageQuality = "original"
)

// CoverImage is a candidate cover image.
type CoverImage struct {
	URL         string       `json:"url" yaml:"url" mapstructure:"url"`
	Width       int          `json:"width,omitempty" yaml:"width,omitempty" mapstructure:"width"`
	Height      int          `json:"height,omitempty" yaml:"height,omitempty" mapstructure:"height"`
	Quality     ImageQuality `json:"quality,omitempty" yaml:"quality,omitempty" mapstructure:"quality"`
	Verified    bool         `json:"verified,omitempty" yaml:"verified,omitempty" mapstructure:"verified"`
	AspectRatio float64      `json:"aspect_ratio,omitempty" yaml:"aspect_ratio,omitempty" mapstructure:"aspect_ratio"`
}

// Edition is one physical or digital manifestation of a work.
type Edition struct {
	ID              string `json:"id" yaml:"id" mapstructure:"id"`
	Title           string `json:"title,omitempty" yaml:"title,omitempty" mapstructure:"title"`
	ISBN            string `json:"isbn,omitempty" yaml:"isbn,omitempty" mapstructure:"isbn"`
	PublicationDate string `json:"publication_date,omitempty" yaml:"publication_date,omitempty" mapstructure:"publication_date"`
	Publisher       string `json:"publisher,omitempty" yaml:"publisher,omitempty" mapstructure:"publisher"`
	PageCount       int    `json:"page_count,omitempty" yaml:"page_count,omitempty" mapstructure:"page_count"`
	Format          string `json:"format,omitempty" yaml:"format,omitempty" mapstructure:"format"`
	Language        string `json:"language,omitempty" yaml:"language,omitempty" mapstructure:"language"`
}

// EditionAlternative is a ranked runner-up edition with the reasons it was
// not selected and what it offers over the selection.
type EditionAlternative struct {
	Edition    Edition  `json:"edition" yaml:"edition"`
	Score      float64  `json:"score" yaml:"score"`
	Reason     string   `json:"reason" yaml:"reason"`
	Advantages []string `json:"advantages,omitempty" yaml:"advantages,omitempty"`
}

// EditionSelection is the outcome of choosing among candidate editions.
type EditionSelection struct {
	SelectedEdition   Edition              `json:"selected_edition" yaml:"selected_edition"`
	AvailableEditions []Edition            `json:"available_editions" yaml:"available_editions"`
	SelectionReason   string               `json:"selection_reason" yaml:"selection_reason"`
	Confidence        float64              `json:"confidence" yaml:"confidence"`
	Alternatives      []EditionAlternative `json:"alternatives,omitempty" yaml:"alternatives,omitempty"`
}
