package keyring

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/google/uuid"
)

const (
	KeyUseSignature  = "sig"
	DefaultKeyBits   = 2048
	minimumKeyBits   = 2048
	defaultAlgorithm = jose.RS256
)

// SigningKey is an RSA signing key with an identity and an expiry.
// It is never mutated after creation.
type SigningKey struct {
	ID         string
	PrivateKey *rsa.PrivateKey
	Algorithm  jose.SignatureAlgorithm
	Use        string
	Expiry     time.Time
}

// PublicKey returns the public half of the key.
func (k SigningKey) PublicKey() *rsa.PublicKey {
	return &k.PrivateKey.PublicKey
}

// PublicJWK returns the verification key as a JWK.
func (k SigningKey) PublicJWK() jose.JSONWebKey {
	return jose.JSONWebKey{
		Key:       k.PublicKey(),
		KeyID:     k.ID,
		Algorithm: string(k.Algorithm),
		Use:       k.Use,
	}
}

// SigningJWK returns the private key as a JWK, suitable for a jose.Signer.
func (k SigningKey) SigningJWK() jose.JSONWebKey {
	return jose.JSONWebKey{
		Key:       k.PrivateKey,
		KeyID:     k.ID,
		Algorithm: string(k.Algorithm),
		Use:       k.Use,
	}
}

// Generator mints new signing keys.
type Generator interface {
	Generate(ctx context.Context, expiry time.Time) (SigningKey, error)
}

// RSAGenerator generates RS256 keys of the configured size.
type RSAGenerator struct {
	bits   int
	random io.Reader
}

func NewRSAGenerator(bits int) (*RSAGenerator, error) {
	if bits == 0 {
		bits = DefaultKeyBits
	}
	if bits < minimumKeyBits {
		return nil, fmt.Errorf("rsa key size must be at least %d bits, got %d", minimumKeyBits, bits)
	}

	return &RSAGenerator{bits: bits, random: rand.Reader}, nil
}

func (g *RSAGenerator) Generate(ctx context.Context, expiry time.Time) (SigningKey, error) {
	if err := ctx.Err(); err != nil {
		return SigningKey{}, err
	}

	privateKey, err := rsa.GenerateKey(g.random, g.bits)
	if err != nil {
		return SigningKey{}, fmt.Errorf("generating rsa key: %w", err)
	}

	return SigningKey{
		ID:         uuid.NewString(),
		PrivateKey: privateKey,
		Algorithm:  defaultAlgorithm,
		Use:        KeyUseSignature,
		Expiry:     expiry,
	}, nil
}

var errNotRSAKey = errors.New("key is not an rsa private key")
