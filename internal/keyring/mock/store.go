package keyringmock

import (
	"context"
	"sync"

	"github.com/openkcm/lti-tool/internal/keyring"
)

type StoreOption func(*Store)

// Store is an in-memory keyring.Store for tests.
type Store struct {
	mu     sync.Mutex
	states map[string]keyring.State
	saves  int

	loadErr, saveErr error
}

var _ = keyring.Store(&Store{})

func WithState(name string, state keyring.State) StoreOption {
	return func(s *Store) { s.states[name] = state }
}
func WithLoadError(err error) StoreOption {
	return func(s *Store) { s.loadErr = err }
}
func WithSaveError(err error) StoreOption {
	return func(s *Store) { s.saveErr = err }
}

func NewInMemStore(opts ...StoreOption) *Store {
	s := &Store{states: make(map[string]keyring.State)}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

func (s *Store) Load(_ context.Context, name string) (keyring.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadErr != nil {
		return keyring.State{}, s.loadErr
	}
	state, ok := s.states[name]
	if !ok {
		return keyring.State{}, keyring.ErrStateNotFound
	}

	return state, nil
}

func (s *Store) Save(_ context.Context, name string, state keyring.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saveErr != nil {
		return s.saveErr
	}
	s.states[name] = state
	s.saves++

	return nil
}

// Saves returns how many times Save succeeded.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saves
}
