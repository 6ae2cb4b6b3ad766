// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout. Zero keeps the transport default
	// (no timeout).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "bibfetch/0.1 (mailto:someone@example.org)").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// RegistryConfig holds settings for the CrossRef registry client.
type RegistryConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the registry root (default "https://api.crossref.org").
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Rate caps outgoing requests per second. Zero disables the throttle.
	Rate float64 `json:"rate" yaml:"rate" mapstructure:"rate"`

	// Mailto is the contact address advertised in the User-Agent, which
	// routes requests to CrossRef's polite pool.
	Mailto string `json:"mailto,omitempty" yaml:"mailto,omitempty" mapstructure:"mailto"`
}

// BatchConfig holds settings for the batch driver.
type BatchConfig struct {
	// OutputDir receives one citation file per resolved record.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// Extension is the citation file extension without the dot (default "bib").
	Extension string `json:"extension" yaml:"extension" mapstructure:"extension"`

	// Jobs is the number of records processed at once (default 1).
	Jobs int `json:"jobs" yaml:"jobs" mapstructure:"jobs"`

	// Validate rejects citation bodies that do not parse as BibTeX.
	Validate bool `json:"validate" yaml:"validate" mapstructure:"validate"`
}

// HistoryConfig holds settings for the run history ledger.
type HistoryConfig struct {
	// Path is the SQLite database file. Empty disables history.
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// Config groups all settings for a bibfetch invocation.
type Config struct {
	Registry RegistryConfig `json:"registry" yaml:"registry" mapstructure:"registry"`
	Batch    BatchConfig    `json:"batch" yaml:"batch" mapstructure:"batch"`
	History  HistoryConfig  `json:"history" yaml:"history" mapstructure:"history"`
}
