package autoevents

import (
	"github.com/pulsehq/pulse-go/internal/types"
)

// setupPageView fires once at activation. The device snapshot rides
// along only on session-opening page views; the envelope url already
// carries the location on every event.
func setupPageView(ctx *Context) (Teardown, error) {
	if !ctx.Caps.Page {
		return nil, nil
	}

	payload := map[string]any{}
	if title := ctx.Page.Title(); title != "" {
		payload["page_title"] = title
	}
	if referrer := ctx.Page.Referrer(); referrer != "" {
		payload["page_referrer"] = referrer
	}

	if ctx.SessionCreated {
		if device := ctx.Analytics.Device(); device != nil {
			payload["device"] = device
		}
	}

	ctx.Analytics.Track(types.EventTypeAuto, types.EventPageView, payload)
	return nil, nil
}
