// Package types provides domain models shared across pulse components.
//
// Kept dependency-light: types.go and errors.go use only the standard
// library so embedding hosts that vendor the SDK pull in as little as
// possible. ID helpers in ids.go import uuid but are isolated in their
// own file for selective inclusion.
package types

import "time"

// Auto-event names in their fixed activation order. The registry walks
// this order regardless of the order names appear in configuration.
const (
	EventFirstVisit     = "first_visit"
	EventSessionStart   = "session_start"
	EventPageView       = "page_view"
	EventUserEngagement = "user_engagement"
	EventScroll         = "scroll"
	EventOutboundClick  = "outbound_click"
)

// EventTypeAuto is the eventType stamped on events emitted by the
// auto-event engine. External bridges supply their own types.
const EventTypeAuto = "auto"

// SessionTimeout is the inactivity window after which a session is
// considered expired. Matches the 30 minute cutoff conventional in
// web analytics.
const SessionTimeout = 30 * time.Minute

// EngagementQuantum is the fixed unit in which active user time is
// reported. Downstream aggregation expects fixed-size ticks rather
// than variable-length periods.
const EngagementQuantum = 10 * time.Second

// Event is a single tracked event as queued and delivered on the wire.
// Immutable once enqueued; ownership passes from the scheduler to the
// dispatcher and the event is discarded after the send attempt.
type Event struct {
	EventType   string         `json:"eventType"`
	EventName   string         `json:"eventName"`
	Payload     map[string]any `json:"payload"`
	SessionUUID *string        `json:"sessionUuid"`
	ClientUUID  *string        `json:"clientUuid"`
	URL         string         `json:"url"`
	SentAt      string         `json:"sentAt"`
}

// Batch is the wire envelope for a dispatched group of events.
type Batch struct {
	Events      []Event `json:"events"`
	BatchSentAt string  `json:"batchSentAt"`
}

// FirstVisitRecord is the persisted first-visit marker. ClientUUID is
// nil for records written before the field existed; the first_visit
// detector migrates those in place.
type FirstVisitRecord struct {
	FirstVisitAt string  `json:"first_visit_at"`
	ClientUUID   *string `json:"client_uuid"`
}

// BrowserInfo identifies the browser engine reported by the device
// classifier.
type BrowserInfo struct {
	Name    string  `json:"name"`
	Version *string `json:"version"`
}

// DeviceInfo is the classification returned by the external device
// describer. The agent treats it as opaque: memoized once per page
// load and attached to payloads under the metadata policy.
type DeviceInfo struct {
	Category       string      `json:"category"`
	OS             string      `json:"os"`
	UserAgent      string      `json:"userAgent"`
	IsTouchCapable bool        `json:"isTouchCapable"`
	ViewPort       string      `json:"view_port"`
	Touch          bool        `json:"touch"`
	Pointer        string      `json:"pointer"`
	Hover          string      `json:"hover"`
	DPR            float64     `json:"dpr"`
	Width          int         `json:"width"`
	Height         int         `json:"height"`
	Orientation    string      `json:"orientation"`
	ReducedMotion  bool        `json:"reduced_motion"`
	Browser        BrowserInfo `json:"browser"`
}

// ISOTime renders a timestamp the way the wire format expects:
// UTC, millisecond precision, trailing Z.
func ISOTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// EpochMillis renders a timestamp as integer milliseconds since the
// Unix epoch, the encoding used for the activity-timestamp key.
func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}
