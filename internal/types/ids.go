package types

import "github.com/google/uuid"

// NewClientUUID generates a random client identifier. Random v4 rather
// than time-ordered v7: client uuids are cookie values, and embedding a
// creation timestamp in them would leak first-seen time to anything
// that can read the cookie.
func NewClientUUID() string {
	return uuid.NewString()
}

// NewSessionUUID generates a random session identifier.
func NewSessionUUID() string {
	return uuid.NewString()
}

// ValidUUID reports whether s parses as a UUID. Used when deciding
// whether a persisted identity value is trustworthy.
func ValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
