// Package identity resolves the durable client identity and the
// per-visit session identity, and owns the persisted records the
// session lifecycle depends on: the activity timestamp and the
// first-visit record.
//
// Every operation degrades on storage failure: resolution returns a
// null identity and readers report absence rather than erroring, so
// detectors built on top can skip instead of crash.
package identity

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/coder/quartz"
	"github.com/pulsehq/pulse-go/internal/types"
	"github.com/pulsehq/pulse-go/store"
)

// Persisted keys. The client key carries the cookie-analogue TTL;
// all other keys live until overwritten.
const (
	clientKey     = "pulse_client_uuid"
	sessionKey    = "pulse_session_uuid"
	activityKey   = "pulse:last_session_timestamp"
	firstVisitKey = "pulse_first_visit_at"
)

// ClientTTL matches the ~2-year cookie expiry of the client identity.
const ClientTTL = 2 * 365 * 24 * time.Hour

// Identity is a resolved identifier plus whether this resolution
// created it. A zero Identity means "no identity" (storage
// unavailable).
type Identity struct {
	UUID    string
	Created bool
}

// Store resolves and persists identities over a key-value state store.
type Store struct {
	kv    store.Store // nil when the host provided no persistence
	clock quartz.Clock
	log   *slog.Logger
}

// New creates an identity store. kv may be nil; every operation then
// reports absence.
func New(kv store.Store, clock quartz.Clock, log *slog.Logger) *Store {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Store{kv: kv, clock: clock, log: log}
}

// Available reports whether a state store is present. Feeds the
// capability probe.
func (s *Store) Available() bool {
	return s.kv != nil
}

// ResolveClient returns the durable client identity, creating and
// persisting a new one when no value is stored. Cookie absence is the
// sole creation trigger; a stored value is re-read, never regenerated.
func (s *Store) ResolveClient() Identity {
	if s.kv == nil {
		return Identity{}
	}
	existing, ok, err := s.kv.Get(clientKey)
	if err != nil {
		s.log.Debug("client identity read failed", "error", err)
		return Identity{}
	}
	if ok && existing != "" {
		return Identity{UUID: existing}
	}

	id := types.NewClientUUID()
	if err := s.kv.Set(clientKey, id, ClientTTL); err != nil {
		s.log.Debug("client identity write failed", "error", err)
		return Identity{}
	}
	return Identity{UUID: id, Created: true}
}

// CurrentClient returns the stored client identity without creating
// one. Empty when absent or unavailable.
func (s *Store) CurrentClient() string {
	if s.kv == nil {
		return ""
	}
	v, ok, err := s.kv.Get(clientKey)
	if err != nil || !ok {
		return ""
	}
	return v
}

// ResolveSession returns the session identity, creating one when no
// session uuid is currently stored. Expiry is not evaluated here: a
// session's conceptual validity is judged against the activity
// timestamp by the session_start detector, independent of uuid
// rotation.
func (s *Store) ResolveSession() Identity {
	if s.kv == nil {
		return Identity{}
	}
	existing, ok, err := s.kv.Get(sessionKey)
	if err != nil {
		s.log.Debug("session identity read failed", "error", err)
		return Identity{}
	}
	if ok && existing != "" {
		return Identity{UUID: existing}
	}

	id := types.NewSessionUUID()
	if err := s.kv.Set(sessionKey, id, 0); err != nil {
		s.log.Debug("session identity write failed", "error", err)
		return Identity{}
	}
	return Identity{UUID: id, Created: true}
}

// CurrentSession returns the stored session uuid without creating one.
func (s *Store) CurrentSession() string {
	if s.kv == nil {
		return ""
	}
	v, ok, err := s.kv.Get(sessionKey)
	if err != nil || !ok {
		return ""
	}
	return v
}

// LastActivity returns the recorded last-active instant.
func (s *Store) LastActivity() (time.Time, bool) {
	if s.kv == nil {
		return time.Time{}, false
	}
	raw, ok, err := s.kv.Get(activityKey)
	if err != nil || !ok {
		return time.Time{}, false
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(millis), true
}

// TouchActivity persists t as the last-active instant. Reports
// success so callers can log in debug mode without treating failure
// as fatal.
func (s *Store) TouchActivity(t time.Time) bool {
	if s.kv == nil {
		return false
	}
	if err := s.kv.Set(activityKey, strconv.FormatInt(types.EpochMillis(t), 10), 0); err != nil {
		s.log.Debug("activity timestamp write failed", "error", err)
		return false
	}
	return true
}

// FirstVisit returns the persisted first-visit record. A stored value
// that does not parse as the JSON record shape is interpreted as a
// legacy record: the raw string is the timestamp and the client uuid
// is unknown.
func (s *Store) FirstVisit() (types.FirstVisitRecord, bool) {
	if s.kv == nil {
		return types.FirstVisitRecord{}, false
	}
	raw, ok, err := s.kv.Get(firstVisitKey)
	if err != nil || !ok || raw == "" {
		return types.FirstVisitRecord{}, false
	}

	var rec types.FirstVisitRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.FirstVisitAt == "" {
		s.log.Debug("first-visit record fell back to legacy shape",
			"error", types.ErrMalformedRecord)
		return types.FirstVisitRecord{FirstVisitAt: raw}, true
	}
	return rec, true
}

// WriteFirstVisit persists the first-visit record.
func (s *Store) WriteFirstVisit(rec types.FirstVisitRecord) error {
	if s.kv == nil {
		return types.ErrStoreUnavailable
	}
	buf, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.kv.Set(firstVisitKey, string(buf), 0)
}
