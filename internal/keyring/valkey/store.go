package keyringvalkey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/openkcm/lti-tool/internal/keyring"
	"github.com/openkcm/lti-tool/internal/valkeystore"
)

const objectTypeKeyRing = "keyring"

var (
	ErrLoadState  = errors.New("loading key ring state from store")
	ErrStoreState = errors.New("storing key ring state")
)

// Store keeps key ring state in valkey until the last of its keys expires.
type Store struct {
	store *valkeystore.Store
	now   func() time.Time
}

var _ = keyring.Store(&Store{})

func NewStore(valkeyClient valkey.Client, prefix string) *Store {
	return &Store{
		store: valkeystore.New(valkeyClient, prefix),
		now:   time.Now,
	}
}

func (s *Store) Load(ctx context.Context, name string) (keyring.State, error) {
	var state keyring.State
	if err := s.store.Get(ctx, objectTypeKeyRing, name, &state); err != nil {
		if errors.Is(err, valkeystore.ErrNotFound) {
			return keyring.State{}, keyring.ErrStateNotFound
		}

		return keyring.State{}, errors.Join(ErrLoadState, err)
	}

	return state, nil
}

func (s *Store) Save(ctx context.Context, name string, state keyring.State) error {
	ttl := state.LatestExpiry().Sub(s.now())
	if ttl <= 0 {
		return errors.Join(ErrStoreState, fmt.Errorf("key ring %s holds no live keys", name))
	}

	if err := s.store.Set(ctx, objectTypeKeyRing, name, state, ttl); err != nil {
		return errors.Join(ErrStoreState, err)
	}

	return nil
}
