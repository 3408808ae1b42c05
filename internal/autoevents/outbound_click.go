package autoevents

import (
	"net/url"
	"strings"

	"github.com/pulsehq/pulse-go/internal/types"
	"github.com/pulsehq/pulse-go/page"
)

// setupOutboundClick watches primary-button clicks on link elements
// for the page's lifetime and tracks those whose resolved target
// origin differs from the page's own.
func setupOutboundClick(ctx *Context) (Teardown, error) {
	if !ctx.Caps.Page {
		return nil, nil
	}

	remove := ctx.Page.OnClick(func(c page.Click) {
		if c.Button != 0 || c.DefaultPrevented || c.LinkHref == "" {
			return
		}

		base, err := url.Parse(ctx.Page.URL())
		if err != nil {
			return
		}
		resolved, err := base.Parse(c.LinkHref)
		if err != nil || !resolved.IsAbs() {
			return
		}
		if origin(resolved) == origin(base) {
			return
		}

		payload := map[string]any{
			"link_url":    resolved.String(),
			"link_domain": resolved.Hostname(),
		}
		if text := strings.TrimSpace(c.LinkText); text != "" {
			payload["link_text"] = text
		}
		if c.LinkTarget != "" {
			payload["link_target"] = c.LinkTarget
		}

		ctx.Analytics.Track(types.EventTypeAuto, types.EventOutboundClick, payload)
	})

	return Teardown(remove), nil
}

// origin is scheme://host, the comparison unit for outbound
// detection. Host keeps an explicit port, so http://example.com and
// http://example.com:8080 are distinct origins.
func origin(u *url.URL) string {
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}
