package keyring

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
)

var ErrInvalidState = errors.New("invalid key ring state")

// StoredKey is a signing key in its persisted form.
type StoredKey struct {
	JWK    jose.JSONWebKey `json:"jwk"`
	Expiry time.Time       `json:"expiry"`
}

// State is the serialisable content of a KeyRing.
type State struct {
	Current *StoredKey `json:"current,omitempty"`
	Next    *StoredKey `json:"next,omitempty"`
}

// IDs returns the ids of the keys in the state, current first.
func (s State) IDs() []string {
	ids := make([]string, 0, 2)
	if s.Current != nil {
		ids = append(ids, s.Current.JWK.KeyID)
	}
	if s.Next != nil {
		ids = append(ids, s.Next.JWK.KeyID)
	}

	return ids
}

// LatestExpiry returns the expiry of the longest lived key in the state.
func (s State) LatestExpiry() time.Time {
	var latest time.Time
	for _, key := range []*StoredKey{s.Current, s.Next} {
		if key != nil && key.Expiry.After(latest) {
			latest = key.Expiry
		}
	}

	return latest
}

// Snapshot captures the ring's keys.
func (r *KeyRing) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	return State{
		Current: toStored(r.current),
		Next:    toStored(r.next),
	}
}

// Restore replaces the ring's keys with the ones in state. The ring is left
// untouched when the state is invalid.
func (r *KeyRing) Restore(state State) error {
	current, err := fromStored(state.Current)
	if err != nil {
		return fmt.Errorf("restoring current key: %w", err)
	}
	next, err := fromStored(state.Next)
	if err != nil {
		return fmt.Errorf("restoring next key: %w", err)
	}
	if current == nil && next != nil {
		return errors.Join(ErrInvalidState, errors.New("next key without current key"))
	}
	if current != nil && next != nil && current.ID == next.ID {
		return errors.Join(ErrInvalidState, fmt.Errorf("duplicate key id %s", current.ID))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.current, r.next = current, next

	return nil
}

func toStored(key *SigningKey) *StoredKey {
	if key == nil {
		return nil
	}

	return &StoredKey{JWK: key.SigningJWK(), Expiry: key.Expiry}
}

func fromStored(stored *StoredKey) (*SigningKey, error) {
	if stored == nil {
		return nil, nil
	}

	privateKey, ok := stored.JWK.Key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.Join(ErrInvalidState, errNotRSAKey)
	}
	if stored.JWK.KeyID == "" {
		return nil, errors.Join(ErrInvalidState, errors.New("missing key id"))
	}

	algorithm := jose.SignatureAlgorithm(stored.JWK.Algorithm)
	if algorithm == "" {
		algorithm = defaultAlgorithm
	}
	use := stored.JWK.Use
	if use == "" {
		use = KeyUseSignature
	}

	return &SigningKey{
		ID:         stored.JWK.KeyID,
		PrivateKey: privateKey,
		Algorithm:  algorithm,
		Use:        use,
		Expiry:     stored.Expiry,
	}, nil
}
