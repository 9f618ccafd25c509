// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings for components that talk to the
// research backend.
type HTTPConfig struct {
	// Timeout is the inactivity timeout for streaming connections. The
	// multi-stage pipeline can sit quiet for a while between stages, so
	// this is on the order of minutes (default 5m).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "answerstream/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ClientConfig holds settings for the streaming client.
type ClientConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the research backend root (e.g. "https://api.example.com").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// APIKey is an optional bearer token for the backend.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// ArchiveConfig holds settings for local persistence of completed queries.
type ArchiveConfig struct {
	// ArchiveDir is the base directory for the archive (contains index/
	// with the SQLite database and export files).
	ArchiveDir string `json:"archive_dir" yaml:"archive_dir"`

	// MaxResults is the default maximum number of history entries listed
	// (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// NotifyConfig holds settings for completion notifications.
type NotifyConfig struct {
	// Enabled controls whether completion notifications are emitted.
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// Config groups all client configuration.
type Config struct {
	Client  ClientConfig  `json:"client" yaml:"client"`
	Archive ArchiveConfig `json:"archive" yaml:"archive"`
	Notify  NotifyConfig  `json:"notify" yaml:"notify"`
}
