package cmdutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/openkcm/common-sdk/pkg/health"
	"github.com/redis/go-redis/v9"
	"github.com/valkey-io/valkey-go"

	"github.com/openkcm/lti-tool/internal/config"
)

const (
	valkeyCheckName = "valkey"
	redisCheckName  = "redis"
)

// storeChecks returns a PING readiness check for every cache the service
// talks to. The returned func releases the clients behind the checks.
func storeChecks(cfg *config.Config) ([]health.Check, func(), error) {
	var (
		checks  []health.Check
		closers []func()
	)
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.SessionStore.Type == config.StoreTypeValKey || cfg.ValKey.Host.Source != "" {
		opts, err := config.ValKeyClientOption(cfg.ValKey)
		if err != nil {
			return nil, nil, fmt.Errorf("loading valkey options: %w", err)
		}

		ping := &valkeyPing{opts: opts}
		closers = append(closers, ping.close)
		checks = append(checks, health.Check{Name: valkeyCheckName, Check: ping.check})
	}

	if cfg.SessionStore.Type == config.StoreTypeRedis {
		opts, err := config.RedisOptions(cfg.Redis)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("loading redis options: %w", err)
		}

		client := redis.NewClient(opts)
		closers = append(closers, func() { _ = client.Close() })
		checks = append(checks, health.Check{
			Name: redisCheckName,
			Check: func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			},
		})
	}

	return checks, closeAll, nil
}

// valkeyPing connects on first use, so an unreachable server reports not
// ready instead of failing the status server.
type valkeyPing struct {
	opts valkey.ClientOption

	mu     sync.Mutex
	client valkey.Client
}

func (p *valkeyPing) check(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		client, err := valkey.NewClient(p.opts)
		if err != nil {
			return fmt.Errorf("connecting to valkey: %w", err)
		}
		p.client = client
	}

	return p.client.Do(ctx, p.client.B().Ping().Build()).Error()
}

func (p *valkeyPing) close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		p.client.Close()
		p.client = nil
	}
}
