// Package config provides configuration management for the pulse
// agent.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds agent configuration. Supplied at construction, merged
// over defaults, immutable for the client's lifetime.
type Config struct {
	// Debug raises diagnostic logging for queue decisions, detector
	// failures, and transport fallbacks.
	Debug bool

	// APIEndpoint receives batch POSTs.
	APIEndpoint string

	// AutoEvents selects detectors by name. nil enables the full
	// built-in set; an empty non-nil slice disables auto events.
	AutoEvents []string

	// BatchSize is the size-flush threshold. Non-positive values fall
	// back to the default.
	BatchSize int

	// FlushInterval is the timer-flush delay. Non-positive values
	// fall back to the default.
	FlushInterval time.Duration

	// Batching, when nil, defaults to enabled. Disabled batching
	// dispatches every tracked event as its own singleton batch.
	Batching *bool

	// StateStoreURL locates the persistent state store
	// (sqlite://path or postgres://...). Consumed by the CLI; library
	// embedders supply a store directly.
	StateStoreURL string
}

// Defaults applied when fields are zero or out of range.
const (
	DefaultAPIEndpoint   = "http://localhost"
	DefaultBatchSize     = 10
	DefaultFlushInterval = 2 * time.Second
)

// Default returns configuration with default values.
func Default() *Config {
	return &Config{
		APIEndpoint:   DefaultAPIEndpoint,
		BatchSize:     DefaultBatchSize,
		FlushInterval: DefaultFlushInterval,
	}
}

// BatchingEnabled resolves the tri-state Batching field.
func (c *Config) BatchingEnabled() bool {
	return c.Batching == nil || *c.Batching
}

// Normalize applies the fallback rules for out-of-range values.
func (c *Config) Normalize() {
	if c.APIEndpoint == "" {
		c.APIEndpoint = DefaultAPIEndpoint
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = DefaultFlushInterval
	}
}

// Validate checks fields a config file could plausibly get wrong.
func (c *Config) Validate() error {
	if c.APIEndpoint != "" {
		u, err := url.Parse(c.APIEndpoint)
		if err != nil {
			return fmt.Errorf("invalid api_endpoint: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("api_endpoint scheme must be http or https, got %q", u.Scheme)
		}
	}
	return nil
}
