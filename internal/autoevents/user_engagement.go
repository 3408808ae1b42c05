package autoevents

import (
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/pulsehq/pulse-go/internal/types"
)

// engagement is the continuous timing state machine behind
// user_engagement. The page is "active" while visible and focused;
// active time accumulates and is reported in fixed quanta, each
// refreshing the session activity timestamp. This is the only
// detector that emits repeatedly over a page's lifetime.
type engagement struct {
	ctx *Context

	mu          sync.Mutex
	timer       *quartz.Timer
	engaged     time.Duration
	activeStart time.Time // zero when no period is open
	active      bool
	visible     bool
	focused     bool
	closed      bool
}

func setupUserEngagement(ctx *Context) (Teardown, error) {
	if !ctx.Caps.Page {
		return nil, nil
	}

	e := &engagement{
		ctx:     ctx,
		visible: ctx.Page.Visible(),
		focused: ctx.Page.Focused(),
	}

	removeVisibility := ctx.Page.OnVisibilityChange(func(visible bool) {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.closed {
			return
		}
		e.visible = visible
		e.updateLocked()
	})
	removeFocus := ctx.Page.OnFocusChange(func(focused bool) {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.closed {
			return
		}
		e.focused = focused
		e.updateLocked()
	})

	e.mu.Lock()
	e.updateLocked()
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		e.closed = true
		e.clearTimerLocked()
		e.active = false
		e.activeStart = time.Time{}
		e.mu.Unlock()
		removeVisibility()
		removeFocus()
	}, nil
}

func (e *engagement) updateLocked() {
	if e.visible && e.focused {
		e.activateLocked()
	} else {
		e.deactivateLocked()
	}
}

func (e *engagement) activateLocked() {
	if e.active {
		e.ensureTimerLocked()
		return
	}
	e.active = true
	e.flushLocked()
	e.activeStart = e.ctx.Clock.Now()
	e.ensureTimerLocked()
}

func (e *engagement) deactivateLocked() {
	if !e.active {
		return
	}
	e.active = false
	e.clearTimerLocked()
	e.accumulateLocked()
	e.activeStart = time.Time{}
	e.flushLocked()
}

// accumulateLocked folds the open period into the counter and restarts
// the period at now. Negative deltas from clock adjustment count as
// zero.
func (e *engagement) accumulateLocked() {
	if e.activeStart.IsZero() {
		return
	}
	now := e.ctx.Clock.Now()
	if d := now.Sub(e.activeStart); d > 0 {
		e.engaged += d
	}
	e.activeStart = now
}

// flushLocked emits one event per complete quantum accumulated.
func (e *engagement) flushLocked() {
	for e.engaged >= types.EngagementQuantum {
		e.engaged -= types.EngagementQuantum
		e.emitLocked()
	}
}

func (e *engagement) emitLocked() {
	e.ctx.Analytics.Track(types.EventTypeAuto, types.EventUserEngagement, map[string]any{
		"engagement_time_msec": types.EngagementQuantum.Milliseconds(),
	})
	if !e.ctx.Identity.TouchActivity(e.ctx.Clock.Now()) && e.ctx.Debug {
		e.ctx.Log.Warn("failed to persist session activity timestamp")
	}
}

// ensureTimerLocked arms the countdown for the remainder of the
// current quantum. At most one countdown is ever live.
func (e *engagement) ensureTimerLocked() {
	if !e.active || e.closed || e.timer != nil {
		return
	}
	remaining := types.EngagementQuantum - e.engaged
	if remaining <= 0 {
		e.flushLocked()
		remaining = types.EngagementQuantum - e.engaged
	}
	e.timer = e.ctx.Clock.AfterFunc(remaining, e.onElapsed)
}

func (e *engagement) onElapsed() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.timer = nil
	if !e.active || e.closed {
		return
	}
	e.accumulateLocked()
	e.flushLocked()
	e.ensureTimerLocked()
}

func (e *engagement) clearTimerLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}
