package keyring

import (
	"context"
	"errors"
	"fmt"
	"slices"

	slogctx "github.com/veqryn/slog-context"
)

var ErrStateNotFound = errors.New("key ring state not found")

// Store persists key ring state shared between instances.
type Store interface {
	// Load returns ErrStateNotFound when nothing has been saved under name.
	Load(ctx context.Context, name string) (State, error)
	Save(ctx context.Context, name string, state State) error
}

// Syncer keeps a KeyRing consistent with the state held in a Store.
// Concurrent syncs from different instances are last-write-wins.
type Syncer struct {
	ring  *KeyRing
	store Store
	name  string
}

func NewSyncer(ring *KeyRing, store Store, name string) *Syncer {
	return &Syncer{ring: ring, store: store, name: name}
}

// Sync loads the shared state, refreshes it and writes it back when the
// published keys changed. A stored state whose keys all expire before the
// local ones is not restored.
func (s *Syncer) Sync(ctx context.Context) error {
	ctx = slogctx.With(ctx, "keyring", s.name)

	var loaded []string
	state, err := s.store.Load(ctx, s.name)
	switch {
	case err == nil:
		loaded = state.IDs()
		// Keys minted locally after the last save are kept over an older state.
		if state.LatestExpiry().Before(s.ring.Snapshot().LatestExpiry()) {
			slogctx.Debug(ctx, "Keeping local keys newer than the stored state", "stored_kids", loaded)
			break
		}
		if err := s.ring.Restore(state); err != nil {
			slogctx.Warn(ctx, "Ignoring invalid stored key ring state", "error", err)
			loaded = nil
		}
	case errors.Is(err, ErrStateNotFound):
		slogctx.Debug(ctx, "No stored key ring state")
	default:
		return fmt.Errorf("loading key ring state: %w", err)
	}

	if err := s.ring.Refresh(ctx, s.ring.Now()); err != nil {
		return fmt.Errorf("refreshing key ring: %w", err)
	}

	published := s.ring.PublishedIDs()
	if slices.Equal(loaded, published) {
		return nil
	}

	if err := s.store.Save(ctx, s.name, s.ring.Snapshot()); err != nil {
		return fmt.Errorf("saving key ring state: %w", err)
	}
	slogctx.Info(ctx, "Key ring state saved", "kids", published)

	return nil
}
