package session_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/lti-tool/internal/claims"
	"github.com/openkcm/lti-tool/internal/config"
	"github.com/openkcm/lti-tool/internal/serviceerr"
	"github.com/openkcm/lti-tool/internal/session"
	sessionmock "github.com/openkcm/lti-tool/internal/session/mock"
)

var errStore = errors.New("connection refused")

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newConfig(singleUse bool) *config.SessionStore {
	return &config.SessionStore{
		Timeout:   time.Second,
		StateTTL:  60 * time.Second,
		LaunchTTL: 2 * time.Hour,
		SingleUse: singleUse,
	}
}

func TestManager_Correlation(t *testing.T) {
	ctx := t.Context()
	clk := &clock{t: time.Unix(1_700_000_000, 0)}
	store := sessionmock.NewInMemStore(sessionmock.WithClock(clk.now))
	manager := session.NewManager(newConfig(true), store, session.WithClock(clk.now))

	require.NoError(t, manager.StoreCorrelation(ctx, "state-1", "nonce-1"))
	assert.True(t, store.Has(session.StateKey("state-1")))
	assert.True(t, store.Has(session.NonceKey("nonce-1")))

	value, err := store.Get(ctx, session.NonceKey("nonce-1"))
	require.NoError(t, err)
	assert.Equal(t, "1700000060", value)

	nonce, err := manager.ConsumeCorrelation(ctx, "state-1")
	require.NoError(t, err)
	assert.Equal(t, "nonce-1", nonce)

	assert.False(t, store.Has(session.StateKey("state-1")))
	assert.False(t, store.Has(session.NonceKey("nonce-1")))

	_, err = manager.ConsumeCorrelation(ctx, "state-1")
	require.ErrorIs(t, err, serviceerr.ErrBadRequest)
}

func TestManager_CorrelationReusable(t *testing.T) {
	ctx := t.Context()
	manager := session.NewManager(newConfig(false), sessionmock.NewInMemStore())

	require.NoError(t, manager.StoreCorrelation(ctx, "state-1", "nonce-1"))

	for range 2 {
		nonce, err := manager.ConsumeCorrelation(ctx, "state-1")
		require.NoError(t, err)
		assert.Equal(t, "nonce-1", nonce)
	}
}

func TestManager_ConsumeCorrelationErrors(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name    string
		entries []sessionmock.StoreOption
		opts    []sessionmock.StoreOption
		at      time.Time
		wantErr error
	}{
		{
			name:    "unknown state",
			wantErr: serviceerr.ErrBadRequest,
		},
		{
			name: "nonce missing",
			entries: []sessionmock.StoreOption{
				sessionmock.WithEntry(session.StateKey("s"), "n"),
			},
			wantErr: serviceerr.ErrBadRequest,
		},
		{
			name: "nonce marker expired",
			entries: []sessionmock.StoreOption{
				sessionmock.WithEntry(session.StateKey("s"), "n"),
				sessionmock.WithEntry(session.NonceKey("n"), "1700000060"),
			},
			at:      start.Add(61 * time.Second),
			wantErr: serviceerr.ErrBadRequest,
		},
		{
			name: "malformed marker",
			entries: []sessionmock.StoreOption{
				sessionmock.WithEntry(session.StateKey("s"), "n"),
				sessionmock.WithEntry(session.NonceKey("n"), "soon"),
			},
			wantErr: serviceerr.ErrBadRequest,
		},
		{
			name:    "store failure",
			opts:    []sessionmock.StoreOption{sessionmock.WithTakeError(errStore)},
			wantErr: serviceerr.ErrStoreUnavailable,
		},
		{
			name:    "store timeout",
			opts:    []sessionmock.StoreOption{sessionmock.WithDelay(time.Minute)},
			wantErr: serviceerr.ErrStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := tt.at
			if at.IsZero() {
				at = start
			}
			now := func() time.Time { return at }

			cfg := newConfig(true)
			cfg.Timeout = 50 * time.Millisecond

			store := sessionmock.NewInMemStore(append(tt.entries, tt.opts...)...)
			manager := session.NewManager(cfg, store, session.WithClock(now))

			_, err := manager.ConsumeCorrelation(t.Context(), "s")
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestManager_StoreCorrelationFailure(t *testing.T) {
	store := sessionmock.NewInMemStore(sessionmock.WithPutError(errStore))
	manager := session.NewManager(newConfig(true), store)

	err := manager.StoreCorrelation(t.Context(), "s", "n")
	require.ErrorIs(t, err, serviceerr.ErrStoreUnavailable)
	require.ErrorIs(t, err, errStore)
}

func TestManager_Launch(t *testing.T) {
	ctx := t.Context()
	clk := &clock{t: time.Unix(1_700_000_000, 0)}
	store := sessionmock.NewInMemStore(sessionmock.WithClock(clk.now))
	manager := session.NewManager(newConfig(true), store, session.WithClock(clk.now))

	msg := claims.Message{
		LaunchID:     "launch-abc",
		Issuer:       "https://platform.example",
		Audience:     []string{"client-1"},
		DeploymentID: "dep-1",
		MessageType:  claims.MessageTypeResourceLinkRequest,
		Version:      "1.3.0",
		Nonce:        "nonce-1",
		State:        "state-1",
	}
	require.NoError(t, manager.SaveLaunch(ctx, msg))

	loaded, err := manager.LoadLaunch(ctx, "launch-abc")
	require.NoError(t, err)
	assert.Equal(t, msg.Issuer, loaded.Issuer)
	assert.Equal(t, msg.DeploymentID, loaded.DeploymentID)
	assert.Equal(t, "client-1", loaded.ClientID())
	assert.Equal(t, "launch-abc", loaded.LaunchID)

	clk.advance(manager.LaunchTTL())
	_, err = manager.LoadLaunch(ctx, "launch-abc")
	require.ErrorIs(t, err, serviceerr.ErrNotFound)

	_, err = manager.LoadLaunch(ctx, "")
	require.ErrorIs(t, err, serviceerr.ErrNotFound)
}

func TestManager_LoadLaunchStoreFailure(t *testing.T) {
	store := sessionmock.NewInMemStore(sessionmock.WithGetError(errStore))
	manager := session.NewManager(newConfig(true), store)

	_, err := manager.LoadLaunch(t.Context(), "launch-abc")
	require.ErrorIs(t, err, serviceerr.ErrStoreUnavailable)
}
