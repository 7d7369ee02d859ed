// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RateLimitConfig bounds how often a single provider may be called.
type RateLimitConfig struct {
	// MaxRequests is the number of calls allowed per Window (0 disables the window).
	MaxRequests int `json:"max_requests" yaml:"max_requests" mapstructure:"max_requests"`

	// Window is the period MaxRequests applies to.
	Window time.Duration `json:"window" yaml:"window" mapstructure:"window"`

	// RequestDelay is the minimum gap between consecutive calls to the provider.
	RequestDelay time.Duration `json:"request_delay" yaml:"request_delay" mapstructure:"request_delay"`
}

// TimeoutConfig holds the per-call and per-operation deadlines of a provider.
type TimeoutConfig struct {
	// RequestTimeout aborts a single attempt.
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout" mapstructure:"request_timeout"`

	// OperationTimeout bounds all attempts including backoff waits.
	OperationTimeout time.Duration `json:"operation_timeout" yaml:"operation_timeout" mapstructure:"operation_timeout"`
}

// RetryConfig controls retry of retryable provider errors.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts per call (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// BaseDelay is the first backoff delay; it doubles per attempt (default 500ms).
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay" mapstructure:"base_delay"`

	// MaxDelay caps a single backoff wait (default 10s).
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay" mapstructure:"max_delay"`
}

// ProviderConfig describes a provider: its static priority, trust weights,
// capabilities, limits, and (for the static variant) its fixture records.
type ProviderConfig struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"`

	// Kind tags the provider variant: catalog, knowledge-base, commercial, community.
	Kind string `json:"kind" yaml:"kind" mapstructure:"kind"`

	// Priority orders providers under the priority strategy; higher goes first.
	Priority int `json:"priority" yaml:"priority" mapstructure:"priority"`

	// Reliability holds per-field trust weights. Fields listed here are the
	// data types the provider supports.
	Reliability map[FieldType]float64 `json:"reliability" yaml:"reliability" mapstructure:"reliability"`

	// Languages lists the languages the provider covers (default ["en"]).
	Languages []string `json:"languages,omitempty" yaml:"languages,omitempty" mapstructure:"languages"`

	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`
	Timeout   TimeoutConfig   `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// Records are the canned results served by the static provider variant.
	Records []MetadataRecord `json:"records,omitempty" yaml:"records,omitempty" mapstructure:"records"`
}

// EnrichmentConfig holds settings for the orchestrator.
type EnrichmentConfig struct {
	// Strategy is the provider-selection strategy: all, priority, fastest, consensus.
	Strategy string `json:"strategy" yaml:"strategy" mapstructure:"strategy"`

	// MaxProviders truncates the selection; negative means unlimited.
	MaxProviders int `json:"max_providers" yaml:"max_providers" mapstructure:"max_providers"`

	// MinReliability drops providers below this trust for any required type.
	MinReliability float64 `json:"min_reliability" yaml:"min_reliability" mapstructure:"min_reliability"`

	// RequiredDataTypes lists field types every selected provider must support.
	RequiredDataTypes []FieldType `json:"required_data_types,omitempty" yaml:"required_data_types,omitempty" mapstructure:"required_data_types"`

	// ExcludeProviders lists provider names never to query.
	ExcludeProviders []string `json:"exclude_providers,omitempty" yaml:"exclude_providers,omitempty" mapstructure:"exclude_providers"`

	// OperationTimeout bounds the whole fan-out, independent of provider timeouts.
	OperationTimeout time.Duration `json:"operation_timeout" yaml:"operation_timeout" mapstructure:"operation_timeout"`

	// BaselineReliability is the trust given to caller-extracted baseline metadata.
	BaselineReliability float64 `json:"baseline_reliability" yaml:"baseline_reliability" mapstructure:"baseline_reliability"`

	// RecentEditionWindow is how far back an edition counts as recent (default 5 years).
	RecentEditionWindow time.Duration `json:"recent_edition_window" yaml:"recent_edition_window" mapstructure:"recent_edition_window"`

	// MaxEditionAlternatives limits ranked alternatives (default 3).
	MaxEditionAlternatives int `json:"max_edition_alternatives" yaml:"max_edition_alternatives" mapstructure:"max_edition_alternatives"`

	Retry RetryConfig `json:"retry" yaml:"retry" mapstructure:"retry"`
}

// CatalogConfig holds settings for the known-items index.
type CatalogConfig struct {
	// Dir is the base directory; the database lives at Dir/index/catalog.db.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is text or json.
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups all settings for the book-enricher CLI.
type Config struct {
	Enrichment EnrichmentConfig `json:"enrichment" yaml:"enrichment" mapstructure:"enrichment"`
	Catalog    CatalogConfig    `json:"catalog" yaml:"catalog" mapstructure:"catalog"`
	Log        LogConfig        `json:"log" yaml:"log" mapstructure:"log"`
	Providers  []ProviderConfig `json:"providers,omitempty" yaml:"providers,omitempty" mapstructure:"providers"`
}

// DefaultConfig returns the configuration used when no file overrides it.
func DefaultConfig() Config {
	return Config{
		Enrichment: EnrichmentConfig{
			Strategy:               "priority",
			MaxProviders:           -1,
			OperationTimeout:       30 * time.Second,
			BaselineReliability:    0.5,
			RecentEditionWindow:    5 * 365 * 24 * time.Hour,
			MaxEditionAlternatives: 3,
			Retry: RetryConfig{
				MaxAttempts: 3,
				BaseDelay:   500 * time.Millisecond,
				MaxDelay:    10 * time.Second,
			},
		},
		Catalog: CatalogConfig{Dir: "catalog"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}
