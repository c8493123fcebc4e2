package signer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"
)

type p256Signer struct{}

func (p256Signer) GenerateSecret() ([]byte, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("p256: generate: %w", err)
	}
	return fixedWidth(priv.D.Bytes(), 32), nil
}

func (p256Signer) DerivePublic(secret []byte) ([]byte, error) {
	if len(secret) != 32 {
		return nil, fmt.Errorf("p256: secret key must be 32 bytes")
	}
	curve := elliptic.P256()
	d := new(big.Int).SetBytes(secret)
	x, y := curve.ScalarBaseMult(d.Bytes())
	return elliptic.MarshalCompressed(curve, x, y), nil
}

// Sign hashes the message with SHA-256 and produces a deterministic
// (RFC 6979) fixed-width r||s signature, the ecdsa-p256-2019 cryptosuite's
// signing algorithm.
func (p256Signer) Sign(secret, message []byte) ([]byte, error) {
	if len(secret) != 32 {
		return nil, fmt.Errorf("p256: secret key must be 32 bytes")
	}
	d := new(big.Int).SetBytes(secret)
	h := sha256.Sum256(message)
	r, s := ecdsaSign(elliptic.P256(), d, h[:])
	return fixedWidthPair(r, s, 32), nil
}

func (p256Signer) Verify(public, message, sig []byte) bool {
	curve := elliptic.P256()
	x, y := elliptic.UnmarshalCompressed(curve, public)
	if x == nil {
		return false
	}
	r, s, ok := splitFixedWidthPair(sig, 32)
	if !ok {
		return false
	}
	h := sha256.Sum256(message)
	return ecdsaVerify(curve, x, y, h[:], r, s)
}

func fixedWidth(b []byte, n int) []byte {
	if len(b) >= n {
		return b[len(b)-n:]
	}
	out := make([]byte, n)
	copy(out[n-len(b):], b)
	return out
}
