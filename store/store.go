// Package store provides the persistent key-value state store backing
// identity resolution: the agent's analogue of cookie and local-storage
// persistence. Durable backends run over SQLite (default) and
// PostgreSQL via sqlx; an in-memory store serves hosts without
// persistence and tests.
//
// Writes may fail silently from the caller's point of view: identity
// code treats every error as "storage unavailable" and degrades rather
// than propagating.
package store

import (
	"sync"
	"time"

	"github.com/coder/quartz"
)

// Store is the key-value persistence contract. TTL of zero means the
// key never expires; expired keys read as absent.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string, ttl time.Duration) error
	Delete(key string) error
	Close() error
}

// Memory is an in-memory Store. Safe for concurrent use.
type Memory struct {
	clock quartz.Clock

	mu     sync.Mutex
	data   map[string]memEntry
	closed bool
}

type memEntry struct {
	value     string
	expiresAt time.Time // zero = no expiry
}

// NewMemory creates an empty in-memory store. A nil clock defaults to
// the real clock.
func NewMemory(clock quartz.Clock) *Memory {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Memory{clock: clock, data: make(map[string]memEntry)}
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", false, ErrClosed
	}
	e, ok := m.data[key]
	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.IsZero() && !m.clock.Now().Before(e.expiresAt) {
		delete(m.data, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	e := memEntry{value: value}
	if ttl > 0 {
		e.expiresAt = m.clock.Now().Add(ttl)
	}
	m.data[key] = e
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.data, key)
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
