package pulse

import (
	"github.com/pulsehq/pulse-go/internal/types"
)

// metadataNoSession is the metadata key used while no session uuid
// exists, so metadata still goes out exactly once per page load.
const metadataNoSession = "__no_session__"

// Track is the single ingestion entry point for detectors and
// external bridges. The event is stamped with the current identities,
// page URL, and timestamp; bulky device/user-agent metadata is
// attached only to the first event of a given session (or of the
// no-session state) during this page's lifetime.
func (c *Client) Track(eventType, eventName string, payload map[string]any) {
	if c.pg == nil {
		return
	}

	enriched := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		enriched[k] = v
	}

	session := c.ids.CurrentSession()
	client := c.ensureClientUUID()

	key := session
	if key == "" {
		key = metadataNoSession
	}

	c.mu.Lock()
	if c.metadataSentFor != key {
		if ua := c.pg.UserAgent(); ua != "" {
			if _, exists := enriched["user_agent"]; !exists {
				enriched["user_agent"] = ua
			}
		}
		if device := c.deviceLocked(); device != nil {
			enriched["device"] = device
		}
		c.metadataSentFor = key
	}
	c.mu.Unlock()

	ev := types.Event{
		EventType:   eventType,
		EventName:   eventName,
		Payload:     enriched,
		SessionUUID: nullable(session),
		ClientUUID:  nullable(client),
		URL:         c.pg.URL(),
		SentAt:      types.ISOTime(c.clock.Now()),
	}

	if !c.cfg.BatchingEnabled() {
		c.log.Debug("event dispatched immediately", "event", eventType+":"+eventName)
		c.dispatch([]types.Event{ev})
		return
	}
	c.sched.Enqueue(ev)
}

// ensureClientUUID returns the client identifier, lazily creating and
// persisting one when absent. Empty when storage is unavailable.
func (c *Client) ensureClientUUID() string {
	c.mu.Lock()
	if c.clientUUID != "" {
		defer c.mu.Unlock()
		return c.clientUUID
	}
	c.mu.Unlock()

	id := c.ids.ResolveClient()
	if id.UUID != "" {
		c.mu.Lock()
		c.clientUUID = id.UUID
		c.mu.Unlock()
	}
	return id.UUID
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
