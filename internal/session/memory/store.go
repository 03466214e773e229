package sessionmemory

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/openkcm/lti-tool/internal/session"
)

const cleanupInterval = time.Minute

// Store keeps session entries in process memory. It is only suitable for a
// single instance deployment.
type Store struct {
	// mu makes Take atomic; go-cache itself has no get-and-delete.
	mu    sync.Mutex
	cache *cache.Cache
}

var _ = session.Store(&Store{})

func NewStore() *Store {
	return &Store{
		cache: cache.New(cache.NoExpiration, cleanupInterval),
	}
}

func (s *Store) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Set(key, value, ttl)

	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	return s.get(key)
}

func (s *Store) Take(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	value, err := s.get(key)
	if err != nil {
		return "", err
	}
	s.cache.Delete(key)

	return value, nil
}

func (s *Store) get(key string) (string, error) {
	cached, ok := s.cache.Get(key)
	if !ok {
		return "", session.ErrNotFound
	}
	value, ok := cached.(string)
	if !ok {
		return "", session.ErrNotFound
	}

	return value, nil
}
