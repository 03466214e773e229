package business

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/valkey-io/valkey-go"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/lti-tool/internal/business/server"
	"github.com/openkcm/lti-tool/internal/config"
	"github.com/openkcm/lti-tool/internal/keyring"
	keyringvalkey "github.com/openkcm/lti-tool/internal/keyring/valkey"
	"github.com/openkcm/lti-tool/internal/lti"
	"github.com/openkcm/lti-tool/internal/random"
	"github.com/openkcm/lti-tool/internal/session"
	sessionmemory "github.com/openkcm/lti-tool/internal/session/memory"
	sessionredis "github.com/openkcm/lti-tool/internal/session/redis"
	sessionvalkey "github.com/openkcm/lti-tool/internal/session/valkey"
	"github.com/openkcm/lti-tool/internal/token"
)

// Main starts the HTTP server and keeps the key ring in sync with the
// shared state.
func Main(ctx context.Context, cfg *config.Config) error {
	svc, err := initServices(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialising services: %w", err)
	}
	defer svc.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// errChan is used to capture the first error and shutdown the workers.
	errChan := make(chan error, 2)

	// wg is used to wait for all workers to shutdown.
	var wg sync.WaitGroup

	wg.Go(func() {
		errChan <- server.StartHTTPServer(ctx, cfg, svc.server)
	})

	if svc.syncer != nil {
		wg.Go(func() {
			errChan <- runKeySync(ctx, svc.syncer, cfg.KeyRing.SyncInterval)
		})
	}

	// wait for any error to initiate the shutdown
	if err := <-errChan; err != nil {
		slogctx.Error(ctx, "Shutting down", "error", err)
	}
	cancel()

	wg.Wait()

	return nil
}

type services struct {
	server server.Services
	ring   *keyring.KeyRing
	syncer *keyring.Syncer

	closers []func()
}

func (s *services) close() {
	for _, fn := range s.closers {
		fn()
	}
}

func initServices(ctx context.Context, cfg *config.Config) (_ *services, err error) {
	svc := &services{}
	defer func() {
		if err != nil {
			svc.close()
		}
	}()

	var valkeyClient valkey.Client
	if cfg.SessionStore.Type == config.StoreTypeValKey || cfg.ValKey.Host.Source != "" {
		valkeyClient, err = newValKeyClient(cfg.ValKey)
		if err != nil {
			return nil, err
		}
		svc.closers = append(svc.closers, valkeyClient.Close)
	}

	store, err := initSessionStore(cfg, valkeyClient, svc)
	if err != nil {
		return nil, err
	}

	svc.ring, svc.syncer, err = initKeyRing(ctx, cfg, valkeyClient)
	if err != nil {
		return nil, err
	}

	keys, err := initKeySource(cfg, svc.ring)
	if err != nil {
		return nil, err
	}
	codec := token.NewCodec(keys, token.WithLeeway(cfg.LTI.ClockSkew), token.WithSigner(svc.ring))

	login, err := lti.NewLoginInitiator(cfg.LTI)
	if err != nil {
		return nil, fmt.Errorf("creating login initiator: %w", err)
	}

	svc.server = server.Services{
		Login:    login,
		Launch:   lti.NewLaunchValidator(codec, lti.LaunchContextFromConfig(cfg.LTI)),
		Sessions: session.NewManager(&cfg.SessionStore, store),
		KeyRing:  svc.ring,
		Random:   random.Source{},
	}

	return svc, nil
}

func newValKeyClient(conf config.ValKey) (valkey.Client, error) {
	opts, err := config.ValKeyClientOption(conf)
	if err != nil {
		return nil, fmt.Errorf("loading valkey options: %w", err)
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("creating a new valkey client: %w", err)
	}

	return client, nil
}

func initSessionStore(cfg *config.Config, valkeyClient valkey.Client, svc *services) (session.Store, error) {
	switch cfg.SessionStore.Type {
	case config.StoreTypeValKey:
		return sessionvalkey.NewStore(valkeyClient, cfg.ValKey.Prefix), nil
	case config.StoreTypeRedis:
		opts, err := config.RedisOptions(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("loading redis options: %w", err)
		}

		client := redis.NewClient(opts)
		svc.closers = append(svc.closers, func() { _ = client.Close() })

		return sessionredis.NewStore(client, cfg.Redis.Prefix), nil
	case config.StoreTypeMemory:
		return sessionmemory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown session store type %q", cfg.SessionStore.Type)
	}
}

// initKeyRing creates the key ring. With a valkey client the ring is shared
// through a syncer and synced once before it is returned.
func initKeyRing(ctx context.Context, cfg *config.Config, valkeyClient valkey.Client) (*keyring.KeyRing, *keyring.Syncer, error) {
	generator, err := keyring.NewRSAGenerator(cfg.KeyRing.KeyBits)
	if err != nil {
		return nil, nil, fmt.Errorf("creating key generator: %w", err)
	}

	ring, err := keyring.New(generator, cfg.KeyRing.Validity, cfg.KeyRing.RotationWindow)
	if err != nil {
		return nil, nil, fmt.Errorf("creating key ring: %w", err)
	}

	if valkeyClient == nil {
		slogctx.Warn(ctx, "No valkey configured, signing keys are local to this instance")
		return ring, nil, nil
	}

	syncer := keyring.NewSyncer(ring, keyringvalkey.NewStore(valkeyClient, cfg.ValKey.Prefix), cfg.KeyRing.Name)
	if err := syncer.Sync(ctx); err != nil {
		return nil, nil, fmt.Errorf("syncing key ring: %w", err)
	}

	return ring, syncer, nil
}

// initKeySource selects the keys launch tokens are verified against: the
// platform's published key set when configured, else the tool's own ring.
func initKeySource(cfg *config.Config, ring *keyring.KeyRing) (token.KeySource, error) {
	if cfg.LTI.PlatformJWKSURL == "" {
		return ring, nil
	}

	httpClient, err := loadHTTPClient(cfg.LTI.PlatformClient)
	if err != nil {
		return nil, fmt.Errorf("loading http client: %w", err)
	}

	return token.NewRemoteKeySet(cfg.LTI.PlatformJWKSURL, httpClient, cfg.LTI.JWKSCacheTTL), nil
}
