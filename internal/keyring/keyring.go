// Package keyring owns the tool's signing keys. A KeyRing keeps a current
// key and, during the rotation window before the current key expires, a
// successor that is published ahead of the switch so that remote verifiers
// can cache it before tokens signed with it show up.
package keyring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/lti-tool/internal/serviceerr"
)

const (
	DefaultValidity       = time.Hour
	DefaultRotationWindow = 500 * time.Second

	minimumValidity = time.Second
)

type Option func(*KeyRing)

// WithClock overrides the time source used by the methods that do not take
// an explicit instant.
func WithClock(now func() time.Time) Option {
	return func(r *KeyRing) {
		if now != nil {
			r.now = now
		}
	}
}

type KeyRing struct {
	generator      Generator
	validity       time.Duration
	rotationWindow time.Duration
	now            func() time.Time

	mu      sync.Mutex
	current *SigningKey
	next    *SigningKey
}

// New creates an empty key ring. Keys are minted lazily by the first Refresh.
func New(generator Generator, validity, rotationWindow time.Duration, opts ...Option) (*KeyRing, error) {
	if generator == nil {
		return nil, serviceerr.New(serviceerr.CodeInvalidConfig, "key generator is required")
	}
	if validity < minimumValidity {
		return nil, serviceerr.New(serviceerr.CodeInvalidConfig, fmt.Sprintf("key validity must be at least %s, got %s", minimumValidity, validity))
	}
	if rotationWindow < 0 || rotationWindow >= validity {
		return nil, serviceerr.New(serviceerr.CodeInvalidConfig, fmt.Sprintf("rotation window must be within [0, %s), got %s", validity, rotationWindow))
	}

	r := &KeyRing{
		generator:      generator,
		validity:       validity,
		rotationWindow: rotationWindow,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Refresh brings the ring up to date for the given instant. It is idempotent:
// calling it again for the same instant changes nothing.
func (r *KeyRing) Refresh(ctx context.Context, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.refreshLocked(ctx, now)
}

func (r *KeyRing) refreshLocked(ctx context.Context, now time.Time) error {
	if r.current == nil || !now.Before(r.current.Expiry) {
		// The successor is promoted only while it is still valid. A successor
		// whose expiry has passed is replaced by a fresh key, even when it
		// expired less than one rotation window ago.
		successor := r.next
		if successor == nil || !successor.Expiry.After(now) {
			key, err := r.mint(ctx, now)
			if err != nil {
				return err
			}
			successor = &key
		}

		if r.current != nil {
			slogctx.Info(ctx, "Signing key rotated", "expired_kid", r.current.ID, "current_kid", successor.ID)
		}
		r.current, r.next = successor, nil

		return nil
	}

	if now.Before(r.current.Expiry.Add(-r.rotationWindow)) {
		return nil
	}
	if r.next != nil && now.Before(r.next.Expiry.Add(-r.rotationWindow)) {
		return nil
	}

	key, err := r.mint(ctx, now)
	if err != nil {
		return err
	}
	r.next = &key
	slogctx.Info(ctx, "Published successor signing key", "current_kid", r.current.ID, "next_kid", key.ID)

	return nil
}

func (r *KeyRing) mint(ctx context.Context, now time.Time) (SigningKey, error) {
	key, err := r.generator.Generate(ctx, now.Add(r.validity))
	if err != nil {
		return SigningKey{}, fmt.Errorf("minting signing key: %w", err)
	}

	return key, nil
}

// PublishedKeys refreshes the ring and returns the keys that verifiers should
// accept: the current key and, inside the rotation window, its successor.
func (r *KeyRing) PublishedKeys(ctx context.Context, now time.Time) ([]SigningKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.refreshLocked(ctx, now); err != nil {
		return nil, err
	}

	return r.publishedLocked(), nil
}

func (r *KeyRing) publishedLocked() []SigningKey {
	keys := make([]SigningKey, 0, 2)
	if r.current != nil {
		keys = append(keys, *r.current)
	}
	if r.next != nil {
		keys = append(keys, *r.next)
	}

	return keys
}

// AvailableKey returns the most recently minted key without refreshing: the
// successor when one is published, else the current key.
func (r *KeyRing) AvailableKey() (SigningKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.availableLocked()
}

func (r *KeyRing) availableLocked() (SigningKey, error) {
	switch {
	case r.next != nil:
		return *r.next, nil
	case r.current != nil:
		return *r.current, nil
	default:
		return SigningKey{}, serviceerr.ErrNoKeyAvailable
	}
}

// SigningKey refreshes the ring and returns the key new tokens are signed
// with. Only the current key signs; a published successor is held back until
// it is promoted.
func (r *KeyRing) SigningKey(ctx context.Context, now time.Time) (SigningKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.refreshLocked(ctx, now); err != nil {
		return SigningKey{}, err
	}
	if r.current == nil {
		return SigningKey{}, serviceerr.ErrNoKeyAvailable
	}

	return *r.current, nil
}

// JWKS refreshes the ring and returns the published key set document.
func (r *KeyRing) JWKS(ctx context.Context, now time.Time) (JWKS, error) {
	keys, err := r.PublishedKeys(ctx, now)
	if err != nil {
		return JWKS{}, err
	}

	return NewJWKS(keys), nil
}

// VerificationKeys returns the public halves of the published keys.
func (r *KeyRing) VerificationKeys(ctx context.Context) (jose.JSONWebKeySet, error) {
	keys, err := r.PublishedKeys(ctx, r.now())
	if err != nil {
		return jose.JSONWebKeySet{}, err
	}

	set := jose.JSONWebKeySet{Keys: make([]jose.JSONWebKey, 0, len(keys))}
	for _, key := range keys {
		set.Keys = append(set.Keys, key.PublicJWK())
	}

	return set, nil
}

// PublishedIDs returns the ids of the published keys without refreshing.
func (r *KeyRing) PublishedIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := r.publishedLocked()
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, key.ID)
	}

	return ids
}

// Now returns the ring's notion of the current time.
func (r *KeyRing) Now() time.Time {
	return r.now()
}
