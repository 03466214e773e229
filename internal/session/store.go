// Package session keeps the short lived correlation entries of the login and
// launch legs, and the verified launch messages, in a TTL'd key value store.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by a Store when a key is absent or expired.
var ErrNotFound = errors.New("session entry not found")

// Store is a string key value store with per entry expiry.
type Store interface {
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns ErrNotFound for absent or expired keys.
	Get(ctx context.Context, key string) (string, error)
	// Take is Get followed by an atomic delete of the key.
	Take(ctx context.Context, key string) (string, error)
}

func StateKey(state string) string {
	return "state:" + state
}

func NonceKey(nonce string) string {
	return "nonce:" + nonce
}

func LaunchKey(launchID string) string {
	return "launch:" + launchID
}
