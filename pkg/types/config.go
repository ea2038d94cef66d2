// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "signal-scout/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SourcesConfig holds settings for the source adapters.
type SourcesConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxResults caps the number of records requested per provider (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// EnableGrants controls whether the grants-registry adapter is used.
	EnableGrants bool `json:"enable_grants" yaml:"enable_grants"`

	// EnablePublications controls whether the OpenAlex adapter is used.
	EnablePublications bool `json:"enable_publications" yaml:"enable_publications"`

	// EnableWebSearch controls whether the web-search adapter is used.
	EnableWebSearch bool `json:"enable_web_search" yaml:"enable_web_search"`

	// OpenAlexEmail is sent as the mailto parameter for polite pool access.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty"`

	// BraveAPIKey authenticates web-search requests. Required when
	// EnableWebSearch is set.
	BraveAPIKey string `json:"brave_api_key,omitempty" yaml:"brave_api_key,omitempty"`

	// RequestsPerSecond is the per-provider rate limit (default 1).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
}

// ScanConfig holds settings for the scan orchestrator.
type ScanConfig struct {
	// CacheTTL is how long a fetched signal set stays reusable,
	// measured from fetch time (default 24h).
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`

	// RelatedTerms is how many topic-expansion terms to attach to each
	// card (default 5).
	RelatedTerms int `json:"related_terms" yaml:"related_terms"`

	// ClusterSeed seeds the clustering RNG so runs are reproducible.
	ClusterSeed int64 `json:"cluster_seed" yaml:"cluster_seed"`
}

// AIConfig holds settings for components that call a generative-text API.
type AIConfig struct {
	// Model is the model identifier (e.g. "gpt-4o-mini").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxTokens limits response length (default 1000).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`
}

// StoreConfig holds settings for signal card persistence.
type StoreConfig struct {
	// Path is the SQLite database file. Empty disables persistence.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// ScoutConfig groups all component configurations.
type ScoutConfig struct {
	Sources SourcesConfig `json:"sources" yaml:"sources"`
	Scan    ScanConfig    `json:"scan" yaml:"scan"`
	AI      AIConfig      `json:"ai" yaml:"ai"`
	Store   StoreConfig   `json:"store" yaml:"store"`
}

// DefaultConfig returns the built-in configuration defaults.
func DefaultConfig() ScoutConfig {
	return ScoutConfig{
		Sources: SourcesConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   15 * time.Second,
				UserAgent: "signal-scout/0.1",
			},
			MaxResults:         20,
			EnableGrants:       true,
			EnablePublications: true,
			EnableWebSearch:    true,
			RequestsPerSecond:  1,
		},
		Scan: ScanConfig{
			CacheTTL:     24 * time.Hour,
			RelatedTerms: 5,
		},
		AI: AIConfig{
			Model:     "gpt-4o-mini",
			MaxTokens: 1000,
		},
	}
}
