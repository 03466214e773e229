package keyring_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"

	"github.com/openkcm/lti-tool/internal/keyring"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

func sharedKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()

	testKeyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testKey = key
	})

	return testKey
}

// stubGenerator hands out the same RSA material under sequential key ids.
type stubGenerator struct {
	key   *rsa.PrivateKey
	err   error
	calls int
}

func newStubGenerator(t *testing.T) *stubGenerator {
	t.Helper()
	return &stubGenerator{key: sharedKey(t)}
}

func (g *stubGenerator) Generate(_ context.Context, expiry time.Time) (keyring.SigningKey, error) {
	if g.err != nil {
		return keyring.SigningKey{}, g.err
	}
	g.calls++

	return keyring.SigningKey{
		ID:         fmt.Sprintf("K%d", g.calls),
		PrivateKey: g.key,
		Algorithm:  jose.RS256,
		Use:        keyring.KeyUseSignature,
		Expiry:     expiry,
	}, nil
}

func at(seconds int64) time.Time {
	return time.Unix(seconds, 0).UTC()
}

func ids(keys []keyring.SigningKey) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.ID)
	}
	return out
}
