package pulse

import "sync"

// DataLayerEntry is one queued tuple on a host-supplied data layer.
type DataLayerEntry struct {
	EventType string
	EventName string
	Payload   map[string]any
}

// DataLayer is an append-only event list a host page can fill before
// (and after) the agent is ready. Attaching a client replays every
// existing entry, then forwards each subsequent Push as it happens.
type DataLayer struct {
	mu      sync.Mutex
	entries []DataLayerEntry
	sink    func(DataLayerEntry)
}

// Push appends an entry. Before a client is attached entries just
// accumulate; afterwards each is forwarded immediately.
func (dl *DataLayer) Push(eventType, eventName string, payload map[string]any) {
	entry := DataLayerEntry{EventType: eventType, EventName: eventName, Payload: payload}
	dl.mu.Lock()
	dl.entries = append(dl.entries, entry)
	sink := dl.sink
	dl.mu.Unlock()
	if sink != nil {
		sink(entry)
	}
}

// Len reports the number of entries pushed so far.
func (dl *DataLayer) Len() int {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	return len(dl.entries)
}

// AttachDataLayer hooks dl to the client: existing entries replay in
// order, future pushes are intercepted and forwarded. Attaching a
// layer twice, or a nil layer, is a no-op.
func (c *Client) AttachDataLayer(dl *DataLayer) {
	if dl == nil {
		return
	}
	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.sink != nil {
		return
	}
	for _, entry := range dl.entries {
		c.forwardEntry(entry)
	}
	dl.sink = c.forwardEntry
}

// forwardEntry validates a tuple before handing it to Track; entries
// without both type and name are dropped.
func (c *Client) forwardEntry(entry DataLayerEntry) {
	if entry.EventType == "" || entry.EventName == "" {
		return
	}
	payload := entry.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	c.Track(entry.EventType, entry.EventName, payload)
}
