package business

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/lti-tool/internal/config"
	"github.com/openkcm/lti-tool/internal/dbtest/valkeytest"
	"github.com/openkcm/lti-tool/internal/keyring"
	keyringmock "github.com/openkcm/lti-tool/internal/keyring/mock"
	"github.com/openkcm/lti-tool/internal/session"
	sessionmemory "github.com/openkcm/lti-tool/internal/session/memory"
	"github.com/openkcm/lti-tool/internal/token"
)

func embedded(value string) commoncfg.SourceRef {
	return commoncfg.SourceRef{Source: "embedded", Value: value}
}

func missingFile() commoncfg.SourceRef {
	return commoncfg.SourceRef{Source: "file", File: commoncfg.CredentialFile{Path: "/nonexistent/file"}}
}

func testConfig() *config.Config {
	cfg := &config.Config{
		HTTP: config.HTTPServer{Address: "localhost:0", ShutdownTimeout: time.Second},
		SessionStore: config.SessionStore{
			Type:      config.StoreTypeMemory,
			Timeout:   time.Second,
			StateTTL:  time.Minute,
			LaunchTTL: 2 * time.Hour,
			SingleUse: true,
		},
		LTI: config.LTI{
			Issuer:           "https://platform.example",
			ClientID:         "client-1",
			DeploymentID:     "deployment-1",
			PlatformLoginURL: "https://platform.example/auth",
			ToolLaunchURL:    "https://tool.example/lti/launch",
			BasePath:         "/lti",
			ClockSkew:        time.Minute,
			JWKSCacheTTL:     time.Minute,
			PlatformClient:   config.PlatformClient{Type: config.ClientTypeInsecure, Timeout: time.Second},
		},
		KeyRing: config.KeyRing{
			Name:           "tool",
			Validity:       time.Hour,
			RotationWindow: 500 * time.Second,
			KeyBits:        2048,
			SyncInterval:   time.Minute,
		},
		KeyRotator: config.KeyRotator{TriggerInterval: time.Minute},
	}
	cfg.ApplyCookieDefaults()

	return cfg
}

func TestLoadHTTPClient(t *testing.T) {
	tests := []struct {
		name      string
		conf      config.PlatformClient
		assertErr assert.ErrorAssertionFunc
		contains  string
	}{
		{
			name: "mtls without readable certificates",
			conf: config.PlatformClient{
				Type: config.ClientTypeMTLS,
				MTLS: &commoncfg.MTLS{
					Cert:    commoncfg.SourceRef{Source: "file", File: commoncfg.CredentialFile{Path: "/nonexistent/cert.pem"}},
					CertKey: commoncfg.SourceRef{Source: "file", File: commoncfg.CredentialFile{Path: "/nonexistent/key.pem"}},
				},
			},
			assertErr: assert.Error,
			contains:  "loading mTLS config",
		},
		{
			name:      "insecure",
			conf:      config.PlatformClient{Type: config.ClientTypeInsecure, Timeout: 3 * time.Second},
			assertErr: assert.NoError,
		},
		{
			name:      "unknown type",
			conf:      config.PlatformClient{Type: "oauth"},
			assertErr: assert.Error,
			contains:  "unknown platform client type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := loadHTTPClient(tt.conf)
			tt.assertErr(t, err)
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
				return
			}
			require.NotNil(t, client)
			assert.Equal(t, tt.conf.Timeout, client.Timeout)
		})
	}
}

func TestInitSessionStore(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		svc := &services{}
		store, err := initSessionStore(testConfig(), nil, svc)
		require.NoError(t, err)
		assert.IsType(t, &sessionmemory.Store{}, store)
		assert.Empty(t, svc.closers)
	})

	t.Run("redis", func(t *testing.T) {
		mini := miniredis.RunT(t)

		cfg := testConfig()
		cfg.SessionStore.Type = config.StoreTypeRedis
		cfg.Redis = config.Redis{Address: embedded(mini.Addr()), Prefix: "lti-tool"}

		svc := &services{}
		defer svc.close()

		store, err := initSessionStore(cfg, nil, svc)
		require.NoError(t, err)
		assert.Len(t, svc.closers, 1)

		require.NoError(t, store.Put(t.Context(), session.StateKey("s"), "n", time.Minute))
		value, err := mini.Get("lti-tool:state:s")
		require.NoError(t, err)
		assert.Equal(t, "n", value)
	})

	t.Run("redis with unreadable address", func(t *testing.T) {
		cfg := testConfig()
		cfg.SessionStore.Type = config.StoreTypeRedis
		cfg.Redis = config.Redis{Address: missingFile()}

		_, err := initSessionStore(cfg, nil, &services{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "loading redis options")
	})

	t.Run("unknown type", func(t *testing.T) {
		cfg := testConfig()
		cfg.SessionStore.Type = "etcd"

		_, err := initSessionStore(cfg, nil, &services{})
		require.Error(t, err)
	})
}

func TestInitKeySource(t *testing.T) {
	ring, _, err := initKeyRing(t.Context(), testConfig(), nil)
	require.NoError(t, err)

	t.Run("own key ring", func(t *testing.T) {
		keys, err := initKeySource(testConfig(), ring)
		require.NoError(t, err)
		assert.Same(t, ring, keys)
	})

	t.Run("platform key set", func(t *testing.T) {
		cfg := testConfig()
		cfg.LTI.PlatformJWKSURL = "https://platform.example/jwks"

		keys, err := initKeySource(cfg, ring)
		require.NoError(t, err)
		assert.IsType(t, &token.RemoteKeySet{}, keys)
	})
}

func TestInitKeyRing_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.KeyRing.RotationWindow = cfg.KeyRing.Validity

	_, _, err := initKeyRing(t.Context(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating key ring")
}

func TestInitServices(t *testing.T) {
	t.Run("in-memory deployment", func(t *testing.T) {
		svc, err := initServices(t.Context(), testConfig())
		require.NoError(t, err)
		defer svc.close()

		assert.Nil(t, svc.syncer)
		require.NotNil(t, svc.ring)
		assert.NotNil(t, svc.server.Login)
		assert.NotNil(t, svc.server.Launch)
		assert.NotNil(t, svc.server.Sessions)
		assert.NotNil(t, svc.server.Random)
		assert.Len(t, svc.ring.PublishedIDs(), 0)
	})

	t.Run("invalid valkey config", func(t *testing.T) {
		cfg := testConfig()
		cfg.SessionStore.Type = config.StoreTypeValKey
		cfg.ValKey = config.ValKey{Host: missingFile()}

		_, err := initServices(t.Context(), cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "loading valkey options")
	})
}

func TestRunKeySync(t *testing.T) {
	generator, err := keyring.NewRSAGenerator(0)
	require.NoError(t, err)
	ring, err := keyring.New(generator, time.Hour, 500*time.Second)
	require.NoError(t, err)

	store := keyringmock.NewInMemStore()
	syncer := keyring.NewSyncer(ring, store, "tool")

	ctx, cancel := context.WithTimeout(t.Context(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, runKeySync(ctx, syncer, 10*time.Millisecond))
	assert.Equal(t, 1, store.Saves())
	assert.Len(t, ring.PublishedIDs(), 1)
}

func TestKeyRotatorMain_InvalidValkeyConfig(t *testing.T) {
	cfg := testConfig()
	cfg.ValKey = config.ValKey{Host: missingFile()}

	err := KeyRotatorMain(t.Context(), cfg)
	require.ErrorIs(t, err, errNoKeyRingStore)
}

func TestSharedKeyRing(t *testing.T) {
	ctx := t.Context()
	_, port, terminate := valkeytest.Start(ctx)
	defer terminate(ctx)

	cfg := testConfig()
	cfg.ValKey = config.ValKey{
		Host:   embedded(net.JoinHostPort("localhost", port.Port())),
		Prefix: valkeytest.Prefix("business-test"),
	}

	var first bytes.Buffer
	require.NoError(t, WriteJWKS(ctx, cfg, &first))

	var jwks keyring.JWKS
	require.NoError(t, json.Unmarshal(first.Bytes(), &jwks))
	require.Len(t, jwks.Keys, 1)

	// A second instance picks up the stored key instead of minting its own.
	var second bytes.Buffer
	require.NoError(t, WriteJWKS(ctx, cfg, &second))
	assert.JSONEq(t, first.String(), second.String())

	svc, err := initServices(ctx, cfg)
	require.NoError(t, err)
	defer svc.close()

	require.NotNil(t, svc.syncer)
	assert.Equal(t, []string{jwks.Keys[0].Kid}, svc.ring.PublishedIDs())
}
