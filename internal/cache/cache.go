// Package cache provides the shared key/value store with per-entry expiry
// used to keep issue labels for a short time.
//
// Writers to the same key race with last-write-wins semantics; no
// compare-and-swap or versioning is offered.
package cache

import (
	"context"
	"time"
)

// Cache is a string key/value store with time-to-live.
type Cache interface {
	// Get returns the value for key and whether it was present and fresh.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key for ttl. A ttl <= 0 stores without expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}
