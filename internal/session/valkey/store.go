package sessionvalkey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/openkcm/lti-tool/internal/session"
	"github.com/openkcm/lti-tool/internal/valkeystore"
)

const objectTypeEntry = "lti"

type Store struct {
	store *valkeystore.Store
}

var _ = session.Store(&Store{})

func NewStore(valkeyClient valkey.Client, prefix string) *Store {
	return &Store{
		store: valkeystore.New(valkeyClient, prefix),
	}
}

func (s *Store) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.store.Set(ctx, objectTypeEntry, key, value, ttl); err != nil {
		return fmt.Errorf("setting entry into storage: %w", err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	if err := s.store.Get(ctx, objectTypeEntry, key, &value); err != nil {
		return "", mapError("getting entry from store", err)
	}

	return value, nil
}

func (s *Store) Take(ctx context.Context, key string) (string, error) {
	var value string
	if err := s.store.Take(ctx, objectTypeEntry, key, &value); err != nil {
		return "", mapError("taking entry from store", err)
	}

	return value, nil
}

func mapError(op string, err error) error {
	if errors.Is(err, valkeystore.ErrNotFound) {
		return session.ErrNotFound
	}

	return fmt.Errorf("%s: %w", op, err)
}
