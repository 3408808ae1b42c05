// Package pulse is a usage-telemetry agent for applications that host
// pages: it assigns stable client and session identities, detects a
// fixed set of behavioral signals (first visit, session start, page
// view, engagement time, scroll depth, outbound navigation), and
// delivers the resulting events to a collection endpoint in batches
// that survive page teardown and transient network conditions.
//
// Each Client is an independent instance with its own queue, timers,
// and identity cache; multiple clients coexist without interference.
package pulse

import (
	"log/slog"
	"net/http"

	"github.com/coder/quartz"
	"github.com/pulsehq/pulse-go/internal/autoevents"
	"github.com/pulsehq/pulse-go/internal/core/config"
	"github.com/pulsehq/pulse-go/internal/types"
	"github.com/pulsehq/pulse-go/page"
	"github.com/pulsehq/pulse-go/store"
)

// Re-exported domain types.
type (
	// Config holds agent configuration; start from DefaultConfig.
	Config = config.Config
	// Event is a tracked event as delivered on the wire.
	Event = types.Event
	// Batch is the wire envelope for a dispatched group of events.
	Batch = types.Batch
	// DeviceInfo is the classification returned by a DeviceDescriber.
	DeviceInfo = types.DeviceInfo
	// BrowserInfo identifies the browser engine within DeviceInfo.
	BrowserInfo = types.BrowserInfo
)

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config { return config.Default() }

// LoadConfig loads configuration from a file with PULSE_* environment
// overrides.
func LoadConfig(path string) (*Config, error) { return config.LoadConfig(path) }

// DefaultAutoEvents returns the built-in detector names in activation
// order.
func DefaultAutoEvents() []string { return autoevents.DefaultNames() }

// DeviceDescriber classifies the hosting device. It is called at most
// once per client and the result is memoized, nil included. The
// classifier itself is an external collaborator; the agent only
// consumes its output.
type DeviceDescriber func() *DeviceInfo

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. Defaults to slog.Default when the
// config enables debug, and a discard logger otherwise.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithClock injects the clock driving flush timers and engagement
// countdowns. Defaults to the real clock.
func WithClock(clock quartz.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithPage attaches the hosting page surface. Without a page the
// agent has no URL or input events and Track is a no-op.
func WithPage(p page.Page) Option {
	return func(c *Client) { c.pg = p }
}

// WithStore attaches the persistent state store backing identities.
// Without a store, identity resolution degrades to null identities
// and storage-dependent detectors skip themselves.
func WithStore(kv store.Store) Option {
	return func(c *Client) { c.kv = kv }
}

// WithDeviceDescriber attaches the external device classifier.
func WithDeviceDescriber(d DeviceDescriber) Option {
	return func(c *Client) { c.describe = d }
}

// WithHTTPClient replaces the HTTP client used for batch delivery.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}
