package autoevents

import (
	"github.com/pulsehq/pulse-go/internal/types"
)

// setupSessionStart fires once at activation when either the session
// was newly created for this initialization or the elapsed time since
// the last recorded activity crossed the inactivity window. Firing
// records the current instant as the new activity baseline.
func setupSessionStart(ctx *Context) (Teardown, error) {
	now := ctx.Clock.Now()

	last, ok := ctx.Identity.LastActivity()
	inactiveTooLong := ok && now.Sub(last) >= types.SessionTimeout

	if !ctx.SessionCreated && !inactiveTooLong {
		return nil, nil
	}

	if !ctx.Identity.TouchActivity(now) && ctx.Debug {
		ctx.Log.Warn("failed to persist session activity timestamp")
	}

	payload := map[string]any{
		"session_started_at": types.ISOTime(ctx.InitTime),
	}
	if device := ctx.Analytics.Device(); device != nil {
		payload["device"] = device
	}
	ctx.Analytics.Track(types.EventTypeAuto, types.EventSessionStart, payload)
	return nil, nil
}
