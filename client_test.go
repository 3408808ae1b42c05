package pulse

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/pulsehq/pulse-go/internal/types"
	"github.com/pulsehq/pulse-go/page"
	"github.com/pulsehq/pulse-go/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dispatchSink captures batches instead of sending them over the
// network.
type dispatchSink struct {
	mu      sync.Mutex
	batches [][]types.Event
}

func (d *dispatchSink) record(b []types.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.batches = append(d.batches, b)
}

func (d *dispatchSink) events() []types.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []types.Event
	for _, b := range d.batches {
		out = append(out, b...)
	}
	return out
}

func (d *dispatchSink) names() []string {
	var names []string
	for _, e := range d.events() {
		names = append(names, e.EventName)
	}
	return names
}

type testClient struct {
	*Client
	sim  *page.Sim
	kv   *store.Memory
	clk  *quartz.Mock
	sink *dispatchSink
}

func newTestClient(t *testing.T, cfg *Config, opts ...Option) *testClient {
	t.Helper()
	clk := quartz.NewMock(t)
	kv := store.NewMemory(clk)
	sim := page.NewSim("https://shop.example/checkout")
	sim.SetUserAgent("pulse-test/1.0")

	opts = append([]Option{
		WithPage(sim),
		WithStore(kv),
		WithClock(clk),
	}, opts...)

	c := New(cfg, opts...)
	sink := &dispatchSink{}
	c.dispatch = sink.record

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.Close(ctx)
	})

	return &testClient{Client: c, sim: sim, kv: kv, clk: clk, sink: sink}
}

func TestInit_FiresInitialAutoEvents(t *testing.T) {
	tc := newTestClient(t, nil)
	tc.Init()
	tc.Flush()

	require.Equal(t,
		[]string{types.EventFirstVisit, types.EventSessionStart, types.EventPageView},
		tc.sink.names())

	for _, ev := range tc.sink.events() {
		assert.Equal(t, "auto", ev.EventType)
		assert.Equal(t, "https://shop.example/checkout", ev.URL)
		assert.NotEmpty(t, ev.SentAt)
		require.NotNil(t, ev.SessionUUID)
		require.NotNil(t, ev.ClientUUID)
		assert.Equal(t, tc.SessionUUID(), *ev.SessionUUID)
		assert.Equal(t, tc.ClientUUID(), *ev.ClientUUID)
	}
}

func TestInit_Idempotent(t *testing.T) {
	tc := newTestClient(t, nil)
	tc.Init()
	tc.Init()
	tc.Flush()

	assert.Len(t, tc.sink.events(), 3)
	assert.True(t, tc.IsInitialized())
}

func TestInit_CustomAutoEventSelection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoEvents = []string{types.EventPageView}

	tc := newTestClient(t, cfg)
	tc.Init()
	tc.Flush()

	assert.Equal(t, []string{types.EventPageView}, tc.sink.names())
}

func TestInit_EmptyAutoEventsDisablesDetectors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoEvents = []string{}

	tc := newTestClient(t, cfg)
	tc.Init()
	tc.Flush()

	assert.Empty(t, tc.sink.events())
}

func TestTrack_MetadataOnFirstEventOnly(t *testing.T) {
	device := &DeviceInfo{Category: "desktop", OS: "linux"}
	tc := newTestClient(t, nil, WithDeviceDescriber(func() *DeviceInfo { return device }))

	tc.Track("custom", "add_to_cart", map[string]any{"sku": "A-1"})
	tc.Track("custom", "begin_checkout", nil)
	tc.Flush()

	events := tc.sink.events()
	require.Len(t, events, 2)

	first, second := events[0], events[1]
	assert.Equal(t, "pulse-test/1.0", first.Payload["user_agent"])
	assert.Equal(t, device, first.Payload["device"])
	assert.Equal(t, "A-1", first.Payload["sku"])

	assert.NotContains(t, second.Payload, "user_agent")
	assert.NotContains(t, second.Payload, "device")
}

func TestTrack_MetadataRespectsCallerUserAgent(t *testing.T) {
	tc := newTestClient(t, nil)

	tc.Track("custom", "imported", map[string]any{"user_agent": "historic/2.0"})
	tc.Flush()

	events := tc.sink.events()
	require.Len(t, events, 1)
	assert.Equal(t, "historic/2.0", events[0].Payload["user_agent"])
}

func TestInit_SeedsMetadataMarkerFromExistingSession(t *testing.T) {
	clk := quartz.NewMock(t)
	kv := store.NewMemory(clk)
	// A previous page load left both identities behind.
	require.NoError(t, kv.Set("pulse_client_uuid", "client-prev", 0))
	require.NoError(t, kv.Set("pulse_session_uuid", "session-prev", 0))

	sim := page.NewSim("https://shop.example/")
	sim.SetUserAgent("pulse-test/1.0")

	c := New(nil, WithPage(sim), WithStore(kv), WithClock(clk))
	sink := &dispatchSink{}
	c.dispatch = sink.record
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.Close(ctx)
	})

	c.Init()
	c.Flush()

	// Only page_view fires for a continuing session, and the marker
	// seed keeps bulky metadata off it.
	events := sink.events()
	require.Len(t, events, 1)
	assert.Equal(t, types.EventPageView, events[0].EventName)
	assert.NotContains(t, events[0].Payload, "user_agent")
	assert.NotContains(t, events[0].Payload, "device")
}

func TestTrack_NoPageIsNoop(t *testing.T) {
	c := New(nil, WithStore(store.NewMemory(quartz.NewMock(t))))
	sink := &dispatchSink{}
	c.dispatch = sink.record
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.Close(ctx)
	})

	c.Track("custom", "orphan", nil)
	c.Flush()

	assert.Empty(t, sink.events())
}

func TestTrack_PayloadCopied(t *testing.T) {
	tc := newTestClient(t, nil)

	payload := map[string]any{"step": 1}
	tc.Track("custom", "wizard", payload)
	payload["step"] = 2
	tc.Flush()

	events := tc.sink.events()
	require.Len(t, events, 1)
	assert.Equal(t, 1, events[0].Payload["step"])
}

func TestTrack_BatchingDisabledDispatchesImmediately(t *testing.T) {
	disabled := false
	cfg := DefaultConfig()
	cfg.Batching = &disabled

	tc := newTestClient(t, cfg)

	tc.Track("custom", "one", nil)
	tc.Track("custom", "two", nil)

	tc.sink.mu.Lock()
	batches := len(tc.sink.batches)
	tc.sink.mu.Unlock()
	assert.Equal(t, 2, batches, "each event should go out as its own batch")
}

func TestTrack_SizeThresholdFlushes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BatchSize = 3

	tc := newTestClient(t, cfg)
	for i := 0; i < 3; i++ {
		tc.Track("custom", "burst", nil)
	}

	assert.Len(t, tc.sink.events(), 3)
}

func TestTrack_TimerFlush(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tc := newTestClient(t, nil)
	tc.Track("custom", "slow", nil)

	assert.Empty(t, tc.sink.events())

	tc.clk.Advance(2 * time.Second).MustWait(ctx)
	assert.Len(t, tc.sink.events(), 1)
}

func TestFlushTriggers_HideAndVisibilityLoss(t *testing.T) {
	tc := newTestClient(t, nil)
	tc.Init()
	tc.Flush()
	tc.sink.mu.Lock()
	tc.sink.batches = nil
	tc.sink.mu.Unlock()

	tc.Track("custom", "pending", nil)
	tc.sim.EmitHide()
	assert.Len(t, tc.sink.events(), 1, "hide should flush the queue")

	tc.Track("custom", "pending2", nil)
	tc.sim.SetVisible(false)
	assert.Len(t, tc.sink.events(), 2, "visibility loss should flush the queue")
}

func TestClose_FlushesAndReleasesDetectors(t *testing.T) {
	tc := newTestClient(t, nil)
	tc.sim.SetViewport(1280, 800)
	tc.sim.SetContentSize(1280, 4000)
	tc.Init()

	tc.Track("custom", "pending", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, tc.Close(ctx))

	names := tc.sink.names()
	assert.Contains(t, names, "pending")

	// Detector subscriptions are gone: scrolling to the bottom after
	// close fires nothing.
	before := len(tc.sink.events())
	tc.sim.SetScroll(0, 3600)
	assert.Len(t, tc.sink.events(), before)

	require.NoError(t, tc.Close(ctx))
}

func TestClientUUID_ReadDoesNotCreate(t *testing.T) {
	tc := newTestClient(t, nil)

	assert.Empty(t, tc.ClientUUID())
	_, ok, err := tc.kv.Get("pulse_client_uuid")
	require.NoError(t, err)
	assert.False(t, ok, "reading the uuid must not persist one")
}

func TestClientUUID_StableAfterInit(t *testing.T) {
	tc := newTestClient(t, nil)
	tc.Init()

	id := tc.ClientUUID()
	require.NotEmpty(t, id)
	assert.Equal(t, id, tc.ClientUUID())

	stored, ok, err := tc.kv.Get("pulse_client_uuid")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, stored)
}

func TestTrack_CreatesClientLazily(t *testing.T) {
	tc := newTestClient(t, nil)

	tc.Track("custom", "pre_init", nil)
	tc.Flush()

	events := tc.sink.events()
	require.Len(t, events, 1)
	require.NotNil(t, events[0].ClientUUID)
	assert.NotEmpty(t, *events[0].ClientUUID)
	assert.Nil(t, events[0].SessionUUID, "no session exists before Init")
}

func TestDevice_DescriberMemoized(t *testing.T) {
	calls := 0
	tc := newTestClient(t, nil, WithDeviceDescriber(func() *DeviceInfo {
		calls++
		return nil
	}))

	assert.Nil(t, tc.Device())
	assert.Nil(t, tc.Device())
	assert.Equal(t, 1, calls, "describer must run at most once, nil result included")
}
