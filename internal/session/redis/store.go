package sessionredis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openkcm/lti-tool/internal/session"
)

// Store keeps session entries in redis under <prefix>:<key>.
type Store struct {
	client redis.UniversalClient
	prefix string
}

var _ = session.Store(&Store{})

func NewStore(client redis.UniversalClient, prefix string) *Store {
	return &Store{
		client: client,
		prefix: strings.TrimSuffix(prefix, ":"),
	}
}

func (s *Store) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("executing set command: %w", err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		return "", mapError("get", err)
	}

	return value, nil
}

func (s *Store) Take(ctx context.Context, key string) (string, error) {
	value, err := s.client.GetDel(ctx, s.key(key)).Result()
	if err != nil {
		return "", mapError("getdel", err)
	}

	return value, nil
}

func (s *Store) key(key string) string {
	if s.prefix == "" {
		return key
	}

	return s.prefix + ":" + key
}

func mapError(command string, err error) error {
	if errors.Is(err, redis.Nil) {
		return session.ErrNotFound
	}

	return fmt.Errorf("executing %s command: %w", command, err)
}
