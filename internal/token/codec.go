// Package token signs and verifies compact JWS tokens.
package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"

	"github.com/openkcm/lti-tool/internal/keyring"
)

var (
	ErrMissingExpiry = errors.New("token has no exp claim")
	ErrNoKeys        = errors.New("no verification keys available")
)

// KeySource provides the keys tokens are verified against.
type KeySource interface {
	VerificationKeys(ctx context.Context) (jose.JSONWebKeySet, error)
}

// SignerSource provides the key new tokens are signed with.
type SignerSource interface {
	SigningKey(ctx context.Context, now time.Time) (keyring.SigningKey, error)
}

type Option func(*Codec)

func WithLeeway(leeway time.Duration) Option {
	return func(c *Codec) { c.leeway = leeway }
}

func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

func WithAlgorithms(algs ...jose.SignatureAlgorithm) Option {
	return func(c *Codec) {
		if len(algs) > 0 {
			c.algorithms = algs
		}
	}
}

func WithSigner(signer SignerSource) Option {
	return func(c *Codec) { c.signer = signer }
}

type Codec struct {
	keys       KeySource
	signer     SignerSource
	algorithms []jose.SignatureAlgorithm
	leeway     time.Duration
	now        func() time.Time
}

func NewCodec(keys KeySource, opts ...Option) *Codec {
	c := &Codec{
		keys:       keys,
		algorithms: []jose.SignatureAlgorithm{jose.RS256, jose.RS384, jose.RS512},
		leeway:     jwt.DefaultLeeway,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Decode verifies the token signature and its exp, nbf and iat claims and
// returns the raw JSON payload.
func (c *Codec) Decode(ctx context.Context, raw string) (json.RawMessage, error) {
	token, err := jwt.ParseSigned(raw, c.algorithms)
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	keySet, err := c.keys.VerificationKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting verification keys: %w", err)
	}
	if len(keySet.Keys) == 0 {
		return nil, ErrNoKeys
	}

	var standardClaims jwt.Claims
	var payload json.RawMessage
	if err := token.Claims(&keySet, &standardClaims, &payload); err != nil {
		return nil, fmt.Errorf("verifying token: %w", err)
	}

	if standardClaims.Expiry == nil {
		return nil, ErrMissingExpiry
	}
	if err := standardClaims.ValidateWithLeeway(jwt.Expected{Time: c.now()}, c.leeway); err != nil {
		return nil, fmt.Errorf("validating token times: %w", err)
	}

	return payload, nil
}

// Encode signs claims with the signer's current key. The key id is carried in
// the kid header.
func (c *Codec) Encode(ctx context.Context, claims any) (string, error) {
	if c.signer == nil {
		return "", errors.New("codec has no signer")
	}

	key, err := c.signer.SigningKey(ctx, c.now())
	if err != nil {
		return "", fmt.Errorf("getting signing key: %w", err)
	}

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: key.Algorithm, Key: key.SigningJWK()},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("creating signer: %w", err)
	}

	signed, err := jwt.Signed(signer).Claims(claims).Serialize()
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	return signed, nil
}
