package keyring_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/lti-tool/internal/keyring"
	keyringmock "github.com/openkcm/lti-tool/internal/keyring/mock"
)

func TestKeyRing_SnapshotRestore(t *testing.T) {
	ctx := t.Context()
	source, err := keyring.New(newStubGenerator(t), 3600*time.Second, 500*time.Second)
	require.NoError(t, err)
	require.NoError(t, source.Refresh(ctx, at(0)))
	require.NoError(t, source.Refresh(ctx, at(3200)))

	raw, err := json.Marshal(source.Snapshot())
	require.NoError(t, err)

	var state keyring.State
	require.NoError(t, json.Unmarshal(raw, &state))
	assert.Equal(t, []string{"K1", "K2"}, state.IDs())
	assert.Equal(t, at(6800), state.LatestExpiry().UTC())

	target, err := keyring.New(newStubGenerator(t), 3600*time.Second, 500*time.Second)
	require.NoError(t, err)
	require.NoError(t, target.Restore(state))

	want, err := source.JWKS(ctx, at(3300))
	require.NoError(t, err)
	got, err := target.JWKS(ctx, at(3300))
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("restored key set differs (-want +got):\n%s", diff)
	}
}

func TestKeyRing_RestoreRejectsInvalidState(t *testing.T) {
	key := sharedKey(t)
	stored := func(id string, k any) *keyring.StoredKey {
		return &keyring.StoredKey{JWK: jose.JSONWebKey{Key: k, KeyID: id}, Expiry: at(100)}
	}

	tests := []struct {
		name  string
		state keyring.State
	}{
		{name: "public key only", state: keyring.State{Current: stored("K1", &key.PublicKey)}},
		{name: "missing key id", state: keyring.State{Current: stored("", key)}},
		{name: "next without current", state: keyring.State{Next: stored("K2", key)}},
		{name: "duplicate ids", state: keyring.State{Current: stored("K1", key), Next: stored("K1", key)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ring, err := keyring.New(newStubGenerator(t), time.Hour, time.Minute)
			require.NoError(t, err)
			require.NoError(t, ring.Refresh(t.Context(), at(0)))

			err = ring.Restore(tt.state)
			require.ErrorIs(t, err, keyring.ErrInvalidState)
			assert.Equal(t, []string{"K1"}, ring.PublishedIDs(), "ring must be left untouched")
		})
	}
}

func TestSyncer_Sync(t *testing.T) {
	ctx := t.Context()

	t.Run("saves freshly minted keys", func(t *testing.T) {
		now := at(0)
		ring, err := keyring.New(newStubGenerator(t), time.Hour, 10*time.Minute, keyring.WithClock(func() time.Time { return now }))
		require.NoError(t, err)
		store := keyringmock.NewInMemStore()

		require.NoError(t, keyring.NewSyncer(ring, store, "tool").Sync(ctx))
		assert.Equal(t, 1, store.Saves())

		state, err := store.Load(ctx, "tool")
		require.NoError(t, err)
		assert.Equal(t, []string{"K1"}, state.IDs())
	})

	t.Run("adopts stored keys and skips unchanged saves", func(t *testing.T) {
		now := at(0)
		seed, err := keyring.New(newStubGenerator(t), time.Hour, 10*time.Minute)
		require.NoError(t, err)
		require.NoError(t, seed.Refresh(ctx, now))
		store := keyringmock.NewInMemStore(keyringmock.WithState("tool", seed.Snapshot()))

		gen := newStubGenerator(t)
		gen.calls = 100
		ring, err := keyring.New(gen, time.Hour, 10*time.Minute, keyring.WithClock(func() time.Time { return now }))
		require.NoError(t, err)

		require.NoError(t, keyring.NewSyncer(ring, store, "tool").Sync(ctx))
		assert.Equal(t, []string{"K1"}, ring.PublishedIDs())
		assert.Equal(t, 0, store.Saves())
		assert.Equal(t, 100, gen.calls, "no key minted")
	})

	t.Run("saves rotated keys", func(t *testing.T) {
		now := at(0)
		clock := func() time.Time { return now }
		ring, err := keyring.New(newStubGenerator(t), time.Hour, 10*time.Minute, keyring.WithClock(clock))
		require.NoError(t, err)
		store := keyringmock.NewInMemStore()
		syncer := keyring.NewSyncer(ring, store, "tool")

		require.NoError(t, syncer.Sync(ctx))
		now = at(3100)
		require.NoError(t, syncer.Sync(ctx))

		assert.Equal(t, 2, store.Saves())
		state, err := store.Load(ctx, "tool")
		require.NoError(t, err)
		assert.Equal(t, []string{"K1", "K2"}, state.IDs())
	})

	t.Run("keeps newer local keys over an older stored state", func(t *testing.T) {
		seed, err := keyring.New(newStubGenerator(t), time.Hour, 10*time.Minute)
		require.NoError(t, err)
		require.NoError(t, seed.Refresh(ctx, at(0)))
		store := keyringmock.NewInMemStore(keyringmock.WithState("tool", seed.Snapshot()))

		now := at(3100)
		gen := newStubGenerator(t)
		gen.calls = 100
		ring, err := keyring.New(gen, time.Hour, 10*time.Minute, keyring.WithClock(func() time.Time { return now }))
		require.NoError(t, err)
		require.NoError(t, ring.Refresh(ctx, now))
		require.Equal(t, []string{"K101"}, ring.PublishedIDs())

		require.NoError(t, keyring.NewSyncer(ring, store, "tool").Sync(ctx))

		assert.Equal(t, []string{"K101"}, ring.PublishedIDs())
		assert.Equal(t, 1, store.Saves())
		state, err := store.Load(ctx, "tool")
		require.NoError(t, err)
		assert.Equal(t, []string{"K101"}, state.IDs())
	})

	t.Run("adopts a newer stored state", func(t *testing.T) {
		local, err := keyring.New(newStubGenerator(t), time.Hour, 10*time.Minute)
		require.NoError(t, err)
		require.NoError(t, local.Refresh(ctx, at(0)))

		gen := newStubGenerator(t)
		gen.calls = 100
		seed, err := keyring.New(gen, time.Hour, 10*time.Minute)
		require.NoError(t, err)
		require.NoError(t, seed.Refresh(ctx, at(60)))
		store := keyringmock.NewInMemStore(keyringmock.WithState("tool", seed.Snapshot()))

		now := at(120)
		ring, err := keyring.New(newStubGenerator(t), time.Hour, 10*time.Minute, keyring.WithClock(func() time.Time { return now }))
		require.NoError(t, err)
		require.NoError(t, ring.Restore(local.Snapshot()))

		require.NoError(t, keyring.NewSyncer(ring, store, "tool").Sync(ctx))

		assert.Equal(t, []string{"K101"}, ring.PublishedIDs())
		assert.Equal(t, 0, store.Saves())
	})

	t.Run("returns load errors", func(t *testing.T) {
		ring, err := keyring.New(newStubGenerator(t), time.Hour, time.Minute)
		require.NoError(t, err)
		store := keyringmock.NewInMemStore(keyringmock.WithLoadError(errors.New("connection refused")))

		err = keyring.NewSyncer(ring, store, "tool").Sync(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "loading key ring state")
	})

	t.Run("returns save errors", func(t *testing.T) {
		ring, err := keyring.New(newStubGenerator(t), time.Hour, time.Minute)
		require.NoError(t, err)
		store := keyringmock.NewInMemStore(keyringmock.WithSaveError(errors.New("read only replica")))

		err = keyring.NewSyncer(ring, store, "tool").Sync(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "saving key ring state")
	})
}
