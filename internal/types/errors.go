package types

import "errors"

// Sentinel errors for pulse operations.
var (
	// ErrStoreUnavailable indicates persistent storage is disabled or
	// unreachable. Identity resolution degrades to "no identity" and
	// dependent detectors no-op.
	ErrStoreUnavailable = errors.New("state store unavailable")

	// ErrMalformedRecord indicates a persisted value did not parse as
	// its expected shape. Callers recover by falling back to the
	// legacy interpretation; never fatal.
	ErrMalformedRecord = errors.New("malformed persisted record")
)
