// Package transport delivers serialized event batches to the
// collection endpoint. Delivery is best-effort and at-most-once: a
// batch that fails both the beacon primitive and the HTTP fallback is
// dropped, never persisted or retried.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/pulsehq/pulse-go/internal/types"
)

// Beacon is the fire-and-forget send primitive tried first for every
// batch. Send must not block: it reports false when the primitive is
// unavailable or cannot accept the payload right now, in which case
// the dispatcher falls back to a plain HTTP request.
type Beacon interface {
	Send(endpoint string, body []byte) bool
}

// Dispatcher serializes batches and hands them to the network.
// Dispatch never returns an error and never panics into the caller.
type Dispatcher struct {
	endpoint string
	beacon   Beacon
	client   *http.Client
	clock    quartz.Clock
	log      *slog.Logger

	beaconSet bool // WithBeacon supplied, including an explicit nil

	wg     sync.WaitGroup // in-flight fallback requests
	closed chan struct{}
	once   sync.Once
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithBeacon replaces the default queued beacon. nil disables the
// beacon path entirely so every batch takes the HTTP fallback.
func WithBeacon(b Beacon) Option {
	return func(d *Dispatcher) {
		d.beacon = b
		d.beaconSet = true
	}
}

// WithHTTPClient replaces the fallback HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) { d.client = c }
}

// WithClock replaces the wall clock used for batch timestamps.
func WithClock(c quartz.Clock) Option {
	return func(d *Dispatcher) { d.clock = c }
}

// NewDispatcher creates a dispatcher for endpoint with a queued beacon
// as the primary primitive.
func NewDispatcher(endpoint string, log *slog.Logger, opts ...Option) *Dispatcher {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	d := &Dispatcher{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		clock:    quartz.NewReal(),
		log:      log,
		closed:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if !d.beaconSet {
		d.beacon = NewQueuedBeacon(d.client, log)
	}
	return d
}

// Dispatch serializes batch and sends it. Empty batches are ignored.
func (d *Dispatcher) Dispatch(batch []types.Event) {
	if len(batch) == 0 {
		return
	}
	select {
	case <-d.closed:
		d.log.Debug("dispatch after close dropped", "events", len(batch))
		return
	default:
	}

	body, err := json.Marshal(types.Batch{
		Events:      batch,
		BatchSentAt: types.ISOTime(d.clock.Now()),
	})
	if err != nil {
		d.log.Debug("batch serialization failed", "error", err, "events", len(batch))
		return
	}

	if d.beacon != nil && d.beacon.Send(d.endpoint, body) {
		return
	}

	// Fallback: asynchronous request that outlives the caller. A
	// rejected request is swallowed; the batch is gone either way.
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := post(context.Background(), d.client, d.endpoint, body); err != nil {
			d.log.Debug("fallback delivery failed", "error", err, "events", len(batch))
		}
	}()
}

// Close waits for in-flight fallback requests and drains the owned
// beacon queue, bounded by ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	var err error
	d.once.Do(func() {
		close(d.closed)

		done := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			err = ctx.Err()
		}

		if c, ok := d.beacon.(interface{ Close(context.Context) error }); ok {
			if cerr := c.Close(ctx); err == nil {
				err = cerr
			}
		}
	})
	return err
}

func post(ctx context.Context, client *http.Client, endpoint string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}
