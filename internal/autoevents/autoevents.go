// Package autoevents implements the auto-event detection engine: a
// fixed registry of detectors that observe page state through the
// shared context and call Track when their trigger condition is met.
//
// Detector failures are isolated at the registry boundary; one
// detector failing to set up never prevents the others from
// activating and never reaches the hosting application.
package autoevents

import (
	"log/slog"
	"time"

	"github.com/coder/quartz"
	"github.com/pulsehq/pulse-go/internal/identity"
	"github.com/pulsehq/pulse-go/internal/types"
	"github.com/pulsehq/pulse-go/page"
)

// Analytics is the handle detectors use to emit events and read
// identity state.
type Analytics interface {
	Track(eventType, eventName string, payload map[string]any)
	Device() *types.DeviceInfo
	SessionUUID() string
	ClientUUID() string
}

// Context is the shared read-only context handed to every detector
// setup.
type Context struct {
	Analytics Analytics
	Page      page.Page
	Identity  *identity.Store
	Clock     quartz.Clock
	Log       *slog.Logger
	Caps      page.Capabilities

	SessionCreated bool
	ClientCreated  bool
	Debug          bool
	InitTime       time.Time
}

// Teardown releases resources a detector acquired during setup.
type Teardown func()

// Definition binds a detector name to its setup. Setup may return a
// nil Teardown when nothing was acquired.
type Definition struct {
	Name  string
	Setup func(ctx *Context) (Teardown, error)
}

// registry holds the built-in detectors in their fixed activation
// order.
var registry = []Definition{
	{Name: types.EventFirstVisit, Setup: setupFirstVisit},
	{Name: types.EventSessionStart, Setup: setupSessionStart},
	{Name: types.EventPageView, Setup: setupPageView},
	{Name: types.EventUserEngagement, Setup: setupUserEngagement},
	{Name: types.EventScroll, Setup: setupScroll},
	{Name: types.EventOutboundClick, Setup: setupOutboundClick},
}

// DefaultNames returns the built-in detector names in activation
// order.
func DefaultNames() []string {
	names := make([]string, len(registry))
	for i, def := range registry {
		names[i] = def.Name
	}
	return names
}

// Activate sets up the requested detectors. Requested names are
// deduplicated and unknown names dropped; activation walks the fixed
// registry order regardless of request order. Returned teardowns are
// the caller's to release on shutdown.
func Activate(ctx *Context, names []string) []Teardown {
	if len(names) == 0 {
		return nil
	}
	requested := make(map[string]bool, len(names))
	for _, n := range names {
		requested[n] = true
	}

	var teardowns []Teardown
	for _, def := range registry {
		if !requested[def.Name] {
			continue
		}
		if td := activateOne(ctx, def); td != nil {
			teardowns = append(teardowns, td)
		}
	}
	return teardowns
}

// activateOne runs a single detector setup, absorbing errors and
// panics so failures stay isolated.
func activateOne(ctx *Context, def Definition) (td Teardown) {
	defer func() {
		if r := recover(); r != nil {
			ctx.Log.Warn("auto-event setup panicked", "detector", def.Name, "panic", r)
			td = nil
		}
	}()

	td, err := def.Setup(ctx)
	if err != nil {
		if ctx.Debug {
			ctx.Log.Warn("auto-event setup failed", "detector", def.Name, "error", err)
		}
		return nil
	}
	return td
}
