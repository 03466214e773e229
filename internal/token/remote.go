package token

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/patrickmn/go-cache"

	slogctx "github.com/veqryn/slog-context"
)

const DefaultRemoteKeySetTTL = 5 * time.Minute

// RemoteKeySet fetches a platform JWKS document over HTTP and caches it.
type RemoteKeySet struct {
	uri    string
	client *http.Client
	cache  *cache.Cache
}

var _ = KeySource(&RemoteKeySet{})

func NewRemoteKeySet(uri string, client *http.Client, ttl time.Duration) *RemoteKeySet {
	if client == nil {
		client = http.DefaultClient
	}
	if ttl <= 0 {
		ttl = DefaultRemoteKeySetTTL
	}

	return &RemoteKeySet{
		uri:    uri,
		client: client,
		cache:  cache.New(ttl, 2*ttl),
	}
}

func (r *RemoteKeySet) VerificationKeys(ctx context.Context) (jose.JSONWebKeySet, error) {
	if cached, ok := r.cache.Get(r.uri); ok {
		if keySet, ok := cached.(jose.JSONWebKeySet); ok {
			return keySet, nil
		}
	}

	keySet, err := r.fetch(ctx)
	if err != nil {
		return jose.JSONWebKeySet{}, err
	}
	r.cache.SetDefault(r.uri, keySet)
	slogctx.Debug(ctx, "Fetched platform key set", "uri", r.uri, "keys", len(keySet.Keys))

	return keySet, nil
}

func (r *RemoteKeySet) fetch(ctx context.Context) (jose.JSONWebKeySet, error) {
	var keySet jose.JSONWebKeySet

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.uri, nil)
	if err != nil {
		return keySet, fmt.Errorf("creating a new HTTP request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return keySet, fmt.Errorf("executing an http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return keySet, fmt.Errorf("unexpected status fetching key set: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(&keySet); err != nil {
		return keySet, fmt.Errorf("decoding keyset response: %w", err)
	}

	return keySet, nil
}
