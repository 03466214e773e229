package sessionmock

import (
	"context"
	"sync"
	"time"

	"github.com/openkcm/lti-tool/internal/session"
)

type StoreOption func(*Store)

type entry struct {
	value  string
	expiry time.Time
}

// Store is an in-memory session.Store for tests. Expiry is evaluated against
// the store's clock.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time

	delay                   time.Duration
	putErr, getErr, takeErr error
}

var _ = session.Store(&Store{})

func WithEntry(key, value string) StoreOption {
	return func(s *Store) { s.entries[key] = entry{value: value} }
}
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}
func WithPutError(err error) StoreOption {
	return func(s *Store) { s.putErr = err }
}
func WithGetError(err error) StoreOption {
	return func(s *Store) { s.getErr = err }
}
func WithTakeError(err error) StoreOption {
	return func(s *Store) { s.takeErr = err }
}

// WithDelay makes every call wait for d or until the context is done.
func WithDelay(d time.Duration) StoreOption {
	return func(s *Store) { s.delay = d }
}

func NewInMemStore(opts ...StoreOption) *Store {
	s := &Store{
		entries: make(map[string]entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

func (s *Store) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	if s.putErr != nil {
		return s.putErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{value: value, expiry: s.now().Add(ttl)}

	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := s.wait(ctx); err != nil {
		return "", err
	}
	if s.getErr != nil {
		return "", s.getErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lookup(key)
}

func (s *Store) Take(ctx context.Context, key string) (string, error) {
	if err := s.wait(ctx); err != nil {
		return "", err
	}
	if s.takeErr != nil {
		return "", s.takeErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	value, err := s.lookup(key)
	delete(s.entries, key)

	return value, err
}

// Has reports whether key holds a live entry.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.lookup(key)
	return err == nil
}

func (s *Store) lookup(key string) (string, error) {
	e, ok := s.entries[key]
	if !ok {
		return "", session.ErrNotFound
	}
	if !e.expiry.IsZero() && !s.now().Before(e.expiry) {
		return "", session.ErrNotFound
	}

	return e.value, nil
}

func (s *Store) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}

	select {
	case <-time.After(s.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
