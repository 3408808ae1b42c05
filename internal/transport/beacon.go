package transport

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
)

// beaconQueueDepth bounds the number of batches waiting behind the
// background sender. A full queue makes Send report false so the
// dispatcher falls back instead of blocking the caller.
const beaconQueueDepth = 32

type beaconItem struct {
	endpoint string
	body     []byte
}

// QueuedBeacon is the default beacon primitive: a bounded queue
// drained by a single background sender. Send never blocks.
type QueuedBeacon struct {
	client *http.Client
	log    *slog.Logger

	mu     sync.Mutex
	ch     chan beaconItem
	closed bool
	done   chan struct{}
}

// NewQueuedBeacon creates a beacon and starts its sender goroutine.
func NewQueuedBeacon(client *http.Client, log *slog.Logger) *QueuedBeacon {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	b := &QueuedBeacon{
		client: client,
		log:    log,
		ch:     make(chan beaconItem, beaconQueueDepth),
		done:   make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *QueuedBeacon) run() {
	defer close(b.done)
	for item := range b.ch {
		if err := post(context.Background(), b.client, item.endpoint, item.body); err != nil {
			b.log.Debug("beacon delivery failed", "error", err)
		}
	}
}

// Send enqueues body for delivery. Reports false when the queue is
// full or the beacon is closed.
func (b *QueuedBeacon) Send(endpoint string, body []byte) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	select {
	case b.ch <- beaconItem{endpoint: endpoint, body: body}:
		return true
	default:
		return false
	}
}

// Close stops accepting sends and waits for queued batches to drain,
// bounded by ctx.
func (b *QueuedBeacon) Close(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.ch)
	}
	b.mu.Unlock()

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
