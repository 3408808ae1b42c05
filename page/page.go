// Package page defines the surface the hosting page exposes to the
// agent: document metadata, visibility and focus state, scroll
// geometry, and the input events the auto-event detectors observe.
//
// Hosts embedding the agent (webview shells, kiosks, instrumented
// browser harnesses) implement Page once; detectors never probe the
// environment themselves. Sim is a scriptable implementation for tests
// and offline replay.
package page

// Click describes a pointer click delivered by the host page. Link
// fields refer to the nearest enclosing link element of the click
// target; LinkHref is empty when there is none.
type Click struct {
	Button           int
	DefaultPrevented bool
	LinkHref         string
	LinkText         string
	LinkTarget       string
}

// Page is the read-and-subscribe contract of the hosting page.
//
// Reads return current state. Subscriptions return a remove function;
// callbacks are delivered synchronously on the emitting goroutine, so
// implementations must not hold internal locks while invoking them.
type Page interface {
	URL() string
	Title() string
	Referrer() string
	UserAgent() string

	Visible() bool
	Focused() bool
	ScrollPosition() (x, y int)
	Viewport() (width, height int)
	ContentSize() (width, height int)

	OnVisibilityChange(fn func(visible bool)) (remove func())
	OnFocusChange(fn func(focused bool)) (remove func())
	OnScroll(fn func()) (remove func())
	OnClick(fn func(Click)) (remove func())

	// OnHide fires when the page is about to be torn down or
	// backgrounded for good (pagehide/unload analogue). Used for
	// critical flushes.
	OnHide(fn func()) (remove func())
}

// Capabilities describes environment presence, probed once at
// initialization and handed to every detector.
type Capabilities struct {
	Page    bool
	Storage bool
}

// Probe builds the capability descriptor for an initialization.
func Probe(p Page, storageAvailable bool) Capabilities {
	return Capabilities{Page: p != nil, Storage: storageAvailable}
}
