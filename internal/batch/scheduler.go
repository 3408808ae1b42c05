// Package batch accumulates tracked events and flushes them to the
// dispatcher by size threshold, by timer, or on demand when a critical
// lifecycle signal arrives.
package batch

import (
	"log/slog"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/pulsehq/pulse-go/internal/types"
)

// Fallback values applied when configuration supplies a non-positive
// batch size or flush interval.
const (
	DefaultSize     = 10
	DefaultInterval = 2 * time.Second
)

// Scheduler owns the ordered event queue and the single pending flush
// timer. At most one timer is ever armed; arming while one is pending
// is a no-op.
type Scheduler struct {
	size     int
	interval time.Duration
	dispatch func([]types.Event)
	clock    quartz.Clock
	log      *slog.Logger

	mu    sync.Mutex
	queue []types.Event
	timer *quartz.Timer
}

// NewScheduler creates a scheduler delivering batches to dispatch.
// Non-positive size or interval fall back to the defaults.
func NewScheduler(size int, interval time.Duration, dispatch func([]types.Event), clock quartz.Clock, log *slog.Logger) *Scheduler {
	if size <= 0 {
		size = DefaultSize
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{
		size:     size,
		interval: interval,
		dispatch: dispatch,
		clock:    clock,
		log:      log,
	}
}

// Enqueue appends ev to the queue. Reaching the batch size triggers an
// immediate size flush that drains every full batch, leaves any
// remainder queued, and re-arms the timer for it. Below the threshold
// the flush timer is armed if not already pending.
func (s *Scheduler) Enqueue(ev types.Event) {
	s.mu.Lock()
	s.queue = append(s.queue, ev)

	var batches [][]types.Event
	if len(s.queue) >= s.size {
		batches = s.drainFullLocked()
		if len(s.queue) == 0 {
			s.stopTimerLocked()
		} else {
			s.armTimerLocked()
		}
	} else {
		s.armTimerLocked()
	}
	remaining := len(s.queue)
	s.mu.Unlock()

	for _, b := range batches {
		s.dispatch(b)
	}
	s.log.Debug("event queued",
		"event", ev.EventType+":"+ev.EventName,
		"queued", remaining,
		"dispatched_batches", len(batches))
}

// Flush synchronously drains the entire queue in batch-size chunks and
// cancels any pending timer. Used on page hide, unload, and when
// batching is administratively disabled.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	s.stopTimerLocked()
	batches := s.drainAllLocked()
	s.mu.Unlock()

	for _, b := range batches {
		s.dispatch(b)
	}
}

// Len reports the number of queued events.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Scheduler) onTimer() {
	s.mu.Lock()
	s.timer = nil
	batches := s.drainAllLocked()
	s.mu.Unlock()

	for _, b := range batches {
		s.dispatch(b)
	}
}

// drainFullLocked pops every full batch, leaving the remainder queued.
func (s *Scheduler) drainFullLocked() [][]types.Event {
	var batches [][]types.Event
	for len(s.queue) >= s.size {
		batches = append(batches, s.popLocked(s.size))
	}
	return batches
}

// drainAllLocked pops the whole queue in chunks, the final chunk
// possibly short.
func (s *Scheduler) drainAllLocked() [][]types.Event {
	var batches [][]types.Event
	for len(s.queue) > 0 {
		n := s.size
		if len(s.queue) < n {
			n = len(s.queue)
		}
		batches = append(batches, s.popLocked(n))
	}
	return batches
}

func (s *Scheduler) popLocked(n int) []types.Event {
	chunk := make([]types.Event, n)
	copy(chunk, s.queue[:n])
	s.queue = s.queue[n:]
	return chunk
}

func (s *Scheduler) armTimerLocked() {
	if s.timer != nil {
		return
	}
	s.timer = s.clock.AfterFunc(s.interval, s.onTimer)
}

func (s *Scheduler) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
