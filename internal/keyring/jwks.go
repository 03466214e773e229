package keyring

import (
	"encoding/json"
	"fmt"
)

// JWK is a published verification key. N and E are base64url encoded
// without padding. Exp is the key's expiry in unix seconds.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
	Exp int64  `json:"exp"`
}

type JWKS struct {
	Keys []JWK `json:"keys"`
}

// NewJWKS renders the public halves of keys, one entry per key, in order.
func NewJWKS(keys []SigningKey) JWKS {
	set := JWKS{Keys: make([]JWK, 0, len(keys))}
	for _, key := range keys {
		jwk, err := publicJWK(key)
		if err != nil {
			// Only reachable for keys without RSA material, which the
			// generator and Restore both reject.
			continue
		}
		set.Keys = append(set.Keys, jwk)
	}

	return set
}

func publicJWK(key SigningKey) (JWK, error) {
	if key.PrivateKey == nil {
		return JWK{}, errNotRSAKey
	}

	raw, err := json.Marshal(key.PublicJWK())
	if err != nil {
		return JWK{}, fmt.Errorf("marshalling public key %s: %w", key.ID, err)
	}

	var jwk JWK
	if err := json.Unmarshal(raw, &jwk); err != nil {
		return JWK{}, fmt.Errorf("unmarshalling public key %s: %w", key.ID, err)
	}
	jwk.Exp = key.Expiry.Unix()

	return jwk, nil
}
