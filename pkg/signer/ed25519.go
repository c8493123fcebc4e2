package signer

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

type ed25519Signer struct{}

func (ed25519Signer) GenerateSecret() ([]byte, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("ed25519: generate: %w", err)
	}
	// ed25519.PrivateKey is a 64-byte seed||pubkey; we carry only the
	// 32-byte seed as the canonical "secret key" multikey payload.
	return priv.Seed(), nil
}

func (ed25519Signer) DerivePublic(secret []byte) ([]byte, error) {
	if len(secret) != ed25519.SeedSize {
		return nil, fmt.Errorf("ed25519: secret seed must be %d bytes", ed25519.SeedSize)
	}
	priv := ed25519.NewKeyFromSeed(secret)
	pub := priv.Public().(ed25519.PublicKey)
	return []byte(pub), nil
}

// Sign produces a pure Ed25519 signature over the canonicalized message
// bytes — deterministic by construction, per RFC 8032.
func (ed25519Signer) Sign(secret, message []byte) ([]byte, error) {
	if len(secret) != ed25519.SeedSize {
		return nil, fmt.Errorf("ed25519: secret seed must be %d bytes", ed25519.SeedSize)
	}
	priv := ed25519.NewKeyFromSeed(secret)
	return ed25519.Sign(priv, message), nil
}

func (ed25519Signer) Verify(public, message, sig []byte) bool {
	if len(public) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(public), message, sig)
}
