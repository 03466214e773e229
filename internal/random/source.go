// Package random mints the correlation secrets used by the login and launch
// legs. It is only called at the HTTP boundary; the validators themselves
// take these values as inputs.
package random

import (
	"crypto/rand"
	"math/big"
)

const (
	StatePrefix  = "state-"
	NoncePrefix  = "nonce-"
	LaunchPrefix = "launch-"

	// Entropy E = L * log2(64) = 43 * 6 = 258 bits
	secretLength = 43
)

// Generator produces the identifiers handed out during login and launch.
type Generator interface {
	State() string
	Nonce() string
	LaunchID() string
}

type Source struct{}

var _ = Generator(Source{})

func (p Source) randString(n int) string {
	const letters = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-_"

	ret := make([]byte, n)
	for i := range n {
		num, _ := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		ret[i] = letters[num.Int64()]
	}

	return string(ret)
}

func (p Source) State() string {
	return StatePrefix + p.randString(secretLength)
}

func (p Source) Nonce() string {
	return NoncePrefix + p.randString(secretLength)
}

func (p Source) LaunchID() string {
	return LaunchPrefix + p.randString(secretLength)
}

// Fixed returns the same values every time. It is meant for tests.
type Fixed struct {
	StateValue, NonceValue, LaunchIDValue string
}

var _ = Generator(Fixed{})

func (f Fixed) State() string    { return f.StateValue }
func (f Fixed) Nonce() string    { return f.NonceValue }
func (f Fixed) LaunchID() string { return f.LaunchIDValue }
