package pulse

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/quartz"
	"github.com/pulsehq/pulse-go/internal/autoevents"
	"github.com/pulsehq/pulse-go/internal/batch"
	"github.com/pulsehq/pulse-go/internal/core/config"
	"github.com/pulsehq/pulse-go/internal/identity"
	"github.com/pulsehq/pulse-go/internal/transport"
	"github.com/pulsehq/pulse-go/internal/types"
	"github.com/pulsehq/pulse-go/page"
	"github.com/pulsehq/pulse-go/store"
)

// Client is an explicitly constructed telemetry agent instance. All
// mutable state (queue, timers, metadata marker, identity cache)
// belongs to the instance; nothing is shared between clients.
type Client struct {
	cfg        *config.Config
	log        *slog.Logger
	clock      quartz.Clock
	pg         page.Page
	kv         store.Store
	httpClient *http.Client
	describe   DeviceDescriber

	ids      *identity.Store
	disp     *transport.Dispatcher
	sched    *batch.Scheduler
	dispatch func([]types.Event)

	mu              sync.Mutex
	device          *types.DeviceInfo
	deviceResolved  bool
	metadataSentFor string // metadata key last enriched; "" = none yet
	clientUUID      string
	clientCreated   bool
	initialized     bool
	closed          bool
	flushHooked     bool
	teardowns       []func()
}

// New constructs a client. nil cfg means defaults. The configuration
// is copied and normalized; it is immutable afterwards.
func New(cfg *Config, opts ...Option) *Client {
	if cfg == nil {
		cfg = config.Default()
	}
	cc := *cfg
	cc.Normalize()

	c := &Client{
		cfg:   &cc,
		clock: quartz.NewReal(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		if cc.Debug {
			c.log = slog.Default()
		} else {
			c.log = slog.New(slog.DiscardHandler)
		}
	}

	c.ids = identity.New(c.kv, c.clock, c.log)

	dispOpts := []transport.Option{transport.WithClock(c.clock)}
	if c.httpClient != nil {
		dispOpts = append(dispOpts, transport.WithHTTPClient(c.httpClient))
	}
	c.disp = transport.NewDispatcher(cc.APIEndpoint, c.log, dispOpts...)
	c.dispatch = c.disp.Dispatch
	c.sched = batch.NewScheduler(cc.BatchSize, cc.FlushInterval, func(b []types.Event) {
		c.dispatch(b)
	}, c.clock, c.log)

	return c
}

// Init resolves identities, activates the configured auto-event
// detectors, and registers flush triggers. Calling Init again is a
// no-op.
func (c *Client) Init() {
	c.mu.Lock()
	if c.initialized || c.closed {
		c.mu.Unlock()
		return
	}
	c.initialized = true
	c.mu.Unlock()

	initTime := c.clock.Now()

	client := c.ids.ResolveClient()
	session := c.ids.ResolveSession()

	c.mu.Lock()
	c.clientUUID = client.UUID
	c.clientCreated = client.Created
	if session.UUID != "" && !session.Created {
		// A pre-existing session already received device metadata on
		// a previous page load; seed the marker so a reload does not
		// re-send it.
		c.metadataSentFor = session.UUID
	}
	c.mu.Unlock()

	caps := page.Probe(c.pg, c.ids.Available())

	names := c.cfg.AutoEvents
	if names == nil {
		names = autoevents.DefaultNames()
	}
	teardowns := autoevents.Activate(&autoevents.Context{
		Analytics:      c,
		Page:           c.pg,
		Identity:       c.ids,
		Clock:          c.clock,
		Log:            c.log,
		Caps:           caps,
		SessionCreated: session.Created,
		ClientCreated:  client.Created,
		Debug:          c.cfg.Debug,
		InitTime:       initTime,
	}, names)

	c.mu.Lock()
	c.teardowns = append(c.teardowns, toFuncs(teardowns)...)
	c.mu.Unlock()

	if c.cfg.BatchingEnabled() {
		c.registerFlushTriggers()
	} else {
		// Anything queued before batching was known to be off goes
		// out now; no timer stays armed.
		c.sched.Flush()
	}
}

// IsInitialized reports whether Init has run.
func (c *Client) IsInitialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// SessionUUID returns the current session identifier, empty when none
// is stored or storage is unavailable.
func (c *Client) SessionUUID() string {
	return c.ids.CurrentSession()
}

// ClientUUID returns the current client identifier without creating
// one, empty when absent.
func (c *Client) ClientUUID() string {
	c.mu.Lock()
	if c.clientUUID != "" {
		defer c.mu.Unlock()
		return c.clientUUID
	}
	c.mu.Unlock()

	id := c.ids.CurrentClient()
	if id != "" {
		c.mu.Lock()
		c.clientUUID = id
		c.mu.Unlock()
	}
	return id
}

// Device returns the memoized device classification, resolving it on
// first use. The describer runs at most once per client.
func (c *Client) Device() *DeviceInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deviceLocked()
}

func (c *Client) deviceLocked() *types.DeviceInfo {
	if !c.deviceResolved {
		c.deviceResolved = true
		if c.describe != nil {
			c.device = c.describe()
		}
	}
	return c.device
}

// Flush synchronously drains the event queue. Exposed for hosts with
// lifecycle signals the page surface cannot observe.
func (c *Client) Flush() {
	c.sched.Flush()
}

// Close releases detector and flush-trigger resources in reverse
// acquisition order, drains the queue, and shuts down the transport
// bounded by ctx. Safe to call more than once.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	teardowns := c.teardowns
	c.teardowns = nil
	c.mu.Unlock()

	for i := len(teardowns) - 1; i >= 0; i-- {
		teardowns[i]()
	}
	c.sched.Flush()
	return c.disp.Close(ctx)
}

// registerFlushTriggers arms the critical-lifecycle flushes: page
// hide and visibility loss. Registered once per client.
func (c *Client) registerFlushTriggers() {
	if c.pg == nil {
		return
	}
	c.mu.Lock()
	if c.flushHooked {
		c.mu.Unlock()
		return
	}
	c.flushHooked = true
	c.mu.Unlock()

	removeHide := c.pg.OnHide(func() {
		c.sched.Flush()
	})
	removeVisibility := c.pg.OnVisibilityChange(func(visible bool) {
		if !visible {
			c.sched.Flush()
		}
	})

	c.mu.Lock()
	c.teardowns = append(c.teardowns, removeHide, removeVisibility)
	c.mu.Unlock()
}

func toFuncs(tds []autoevents.Teardown) []func() {
	fns := make([]func(), len(tds))
	for i, td := range tds {
		fns[i] = td
	}
	return fns
}
