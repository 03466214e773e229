package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/lti-tool/internal/claims"
	"github.com/openkcm/lti-tool/internal/config"
	"github.com/openkcm/lti-tool/internal/serviceerr"
)

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager stores and checks the state and nonce handed out at login, and
// caches verified launch messages.
type Manager struct {
	store Store
	now   func() time.Time

	timeout   time.Duration
	stateTTL  time.Duration
	launchTTL time.Duration
	singleUse bool
}

func NewManager(cfg *config.SessionStore, store Store, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		now:       time.Now,
		timeout:   cfg.Timeout,
		stateTTL:  cfg.StateTTL,
		launchTTL: cfg.LaunchTTL,
		singleUse: cfg.SingleUse,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// StoreCorrelation records state -> nonce and a marker for the nonce, both
// expiring after the state TTL.
func (m *Manager) StoreCorrelation(ctx context.Context, state, nonce string) error {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	if err := m.store.Put(ctx, StateKey(state), nonce, m.stateTTL); err != nil {
		return errors.Join(serviceerr.ErrStoreUnavailable, fmt.Errorf("storing state: %w", err))
	}

	marker := strconv.FormatInt(m.now().Add(m.stateTTL).Unix(), 10)
	if err := m.store.Put(ctx, NonceKey(nonce), marker, m.stateTTL); err != nil {
		return errors.Join(serviceerr.ErrStoreUnavailable, fmt.Errorf("storing nonce: %w", err))
	}

	return nil
}

// ConsumeCorrelation returns the nonce issued together with state. With
// single use enabled both entries are deleted by the read, so a second launch
// presenting the same state fails.
func (m *Manager) ConsumeCorrelation(ctx context.Context, state string) (string, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	nonce, err := m.read(ctx, StateKey(state))
	if errors.Is(err, ErrNotFound) {
		return "", serviceerr.New(serviceerr.CodeInvalidRequest, "unknown or expired state")
	}
	if err != nil {
		return "", errors.Join(serviceerr.ErrStoreUnavailable, fmt.Errorf("reading state: %w", err))
	}

	marker, err := m.read(ctx, NonceKey(nonce))
	if errors.Is(err, ErrNotFound) {
		return "", serviceerr.New(serviceerr.CodeInvalidRequest, "unknown or already used nonce")
	}
	if err != nil {
		return "", errors.Join(serviceerr.ErrStoreUnavailable, fmt.Errorf("reading nonce: %w", err))
	}

	expiresAt, err := strconv.ParseInt(marker, 10, 64)
	if err != nil {
		return "", serviceerr.New(serviceerr.CodeInvalidRequest, "malformed nonce marker")
	}
	if m.now().Unix() > expiresAt {
		return "", serviceerr.New(serviceerr.CodeInvalidRequest, "expired nonce")
	}

	return nonce, nil
}

func (m *Manager) read(ctx context.Context, key string) (string, error) {
	if m.singleUse {
		return m.store.Take(ctx, key)
	}

	return m.store.Get(ctx, key)
}

// SaveLaunch caches a verified message under its launch id.
func (m *Manager) SaveLaunch(ctx context.Context, msg claims.Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding launch message: %w", err)
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	if err := m.store.Put(ctx, LaunchKey(msg.LaunchID), string(raw), m.launchTTL); err != nil {
		return errors.Join(serviceerr.ErrStoreUnavailable, fmt.Errorf("storing launch message: %w", err))
	}
	slogctx.Debug(ctx, "Launch message cached", "launch_id", msg.LaunchID, "ttl", m.launchTTL)

	return nil
}

// LoadLaunch returns the cached message for launchID.
func (m *Manager) LoadLaunch(ctx context.Context, launchID string) (claims.Message, error) {
	if launchID == "" {
		return claims.Message{}, serviceerr.ErrNotFound
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	raw, err := m.store.Get(ctx, LaunchKey(launchID))
	if errors.Is(err, ErrNotFound) {
		return claims.Message{}, serviceerr.ErrNotFound
	}
	if err != nil {
		return claims.Message{}, errors.Join(serviceerr.ErrStoreUnavailable, fmt.Errorf("reading launch message: %w", err))
	}

	msg, err := claims.Parse([]byte(raw))
	if err != nil {
		return claims.Message{}, fmt.Errorf("decoding launch message: %w", err)
	}

	return msg, nil
}

// LaunchTTL is how long launch messages are kept.
func (m *Manager) LaunchTTL() time.Duration {
	return m.launchTTL
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, m.timeout)
}
