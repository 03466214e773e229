package business

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/lti-tool/internal/config"
	"github.com/openkcm/lti-tool/internal/keyring"
)

var errNoKeyRingStore = errors.New("the key ring needs a valkey connection")

// KeyRotatorMain keeps the shared key ring rotated, independently of any API
// server instance.
func KeyRotatorMain(ctx context.Context, cfg *config.Config) error {
	_, syncer, closeFn, err := initSharedKeyRing(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	slogctx.Info(ctx, "Starting key rotation job")
	return runKeySync(ctx, syncer, cfg.KeyRotator.TriggerInterval)
}

// WriteJWKS syncs the shared key ring and writes its key set document to w.
func WriteJWKS(ctx context.Context, cfg *config.Config, w io.Writer) error {
	ring, _, closeFn, err := initSharedKeyRing(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	jwks, err := ring.JWKS(ctx, ring.Now())
	if err != nil {
		return fmt.Errorf("building key set: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(jwks)
}

// initSharedKeyRing connects to valkey and returns a synced key ring.
func initSharedKeyRing(ctx context.Context, cfg *config.Config) (*keyring.KeyRing, *keyring.Syncer, func(), error) {
	client, err := newValKeyClient(cfg.ValKey)
	if err != nil {
		return nil, nil, nil, errors.Join(errNoKeyRingStore, err)
	}

	ring, syncer, err := initKeyRing(ctx, cfg, client)
	if err != nil {
		client.Close()
		return nil, nil, nil, err
	}

	return ring, syncer, client.Close, nil
}

func runKeySync(ctx context.Context, syncer *keyring.Syncer, interval time.Duration) error {
	c := time.Tick(interval)
	for {
		select {
		case <-c:
		case <-ctx.Done():
			return nil
		}

		slogctx.Debug(ctx, "Triggering key ring sync")
		if err := syncer.Sync(ctx); err != nil {
			slogctx.Error(ctx, "Failed to sync key ring", "error", err)
		}
	}
}
