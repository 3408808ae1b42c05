package autoevents

import (
	"math"
	"sync"

	"github.com/pulsehq/pulse-go/internal/types"
)

// scrollDepthThreshold is the progress ratio treated as "reached the
// bottom".
const scrollDepthThreshold = 0.9

// setupScroll tracks a single scroll event when the viewport bottom
// first covers 90% of the content, then detaches. The very first
// callback is suppressed unless the offset actually moved from the
// initial position, guarding against spurious zero-delta scroll
// events some hosts fire on load.
func setupScroll(ctx *Context) (Teardown, error) {
	if !ctx.Caps.Page {
		return nil, nil
	}

	initialX, initialY := ctx.Page.ScrollPosition()

	var mu sync.Mutex
	var remove func()
	hasUserScrolled := false
	fired := false

	remove = ctx.Page.OnScroll(func() {
		mu.Lock()
		defer mu.Unlock()
		if fired {
			return
		}

		x, y := ctx.Page.ScrollPosition()
		if !hasUserScrolled {
			if x == initialX && y == initialY {
				return
			}
			hasUserScrolled = true
		}

		progress := scrollProgress(ctx)
		if progress < scrollDepthThreshold {
			return
		}
		fired = true
		remove()

		vpW, vpH := ctx.Page.Viewport()
		ctx.Analytics.Track(types.EventTypeAuto, types.EventScroll, map[string]any{
			"scroll_y":             y,
			"scroll_x":             x,
			"viewport_height":      vpH,
			"viewport_width":       vpW,
			"scroll_depth_ratio":   math.Round(progress*10000) / 10000,
			"scroll_depth_percent": int(math.Round(progress * 100)),
		})
	})

	return func() {
		mu.Lock()
		defer mu.Unlock()
		remove()
	}, nil
}

// scrollProgress computes (scroll offset + viewport height) over the
// largest content-height candidate, clamped to [0,1].
func scrollProgress(ctx *Context) float64 {
	_, vpH := ctx.Page.Viewport()
	_, contentH := ctx.Page.ContentSize()
	_, scrollY := ctx.Page.ScrollPosition()

	scrollHeight := contentH
	if vpH > scrollHeight {
		scrollHeight = vpH
	}
	if scrollHeight <= 0 {
		return 1
	}
	if vpH == 0 && scrollY == 0 {
		return 0
	}

	progress := float64(scrollY+vpH) / float64(scrollHeight)
	return math.Max(0, math.Min(progress, 1))
}
