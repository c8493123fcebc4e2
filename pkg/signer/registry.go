// Package signer implements the signature suite registry: for each of
// {Secp256k1, Ed25519, P-256} it produces and verifies signatures with no
// non-deterministic randomness in the signing path. Ed25519 is deterministic
// by construction; both ECDSA suites use RFC 6979 nonce derivation.
package signer

import (
	"github.com/onionoriginals/originals-go/pkg/coreerrors"
	"github.com/onionoriginals/originals-go/pkg/multikey"
)

// Suite re-exports multikey.Suite so callers need only import one package
// for suite identifiers.
type Suite = multikey.Suite

const (
	Secp256k1 = multikey.Secp256k1
	Ed25519   = multikey.Ed25519
	P256      = multikey.P256
)

// Cryptosuite identifiers used in Data Integrity proofs.
const (
	CryptosuiteSecp256k1 = "ecdsa-secp256k1-2019"
	CryptosuiteEd25519   = "eddsa-rdfc-2022"
	CryptosuiteP256      = "ecdsa-p256-2019"
)

// CryptosuiteForSuite maps a key suite to its proof cryptosuite identifier.
func CryptosuiteForSuite(s Suite) (string, error) {
	switch s {
	case Secp256k1:
		return CryptosuiteSecp256k1, nil
	case Ed25519:
		return CryptosuiteEd25519, nil
	case P256:
		return CryptosuiteP256, nil
	default:
		return "", coreerrors.Newf(coreerrors.CodeUnsupportedSuite, "signer: unsupported suite %q", s)
	}
}

// SuiteForCryptosuite is the inverse of CryptosuiteForSuite.
func SuiteForCryptosuite(cryptosuite string) (Suite, error) {
	switch cryptosuite {
	case CryptosuiteSecp256k1:
		return Secp256k1, nil
	case CryptosuiteEd25519:
		return Ed25519, nil
	case CryptosuiteP256:
		return P256, nil
	default:
		return "", coreerrors.Newf(coreerrors.CodeUnsupportedSuite, "signer: unrecognized cryptosuite %q", cryptosuite)
	}
}

// Impl is the per-suite signing/verification/key-derivation implementation.
type Impl interface {
	GenerateSecret() ([]byte, error)
	DerivePublic(secret []byte) ([]byte, error)
	Sign(secret, message []byte) ([]byte, error)
	Verify(public, message, sig []byte) bool
}

var registry = map[Suite]Impl{
	Secp256k1: secp256k1Signer{},
	Ed25519:   ed25519Signer{},
	P256:      p256Signer{},
}

// For returns the Impl registered for suite, or an error if unsupported.
func For(s Suite) (Impl, error) {
	impl, ok := registry[s]
	if !ok {
		return nil, coreerrors.Newf(coreerrors.CodeUnsupportedSuite, "signer: unsupported suite %q", s)
	}
	return impl, nil
}

// Sign is a convenience wrapper around For(suite).Sign.
func Sign(suite Suite, secret, message []byte) ([]byte, error) {
	impl, err := For(suite)
	if err != nil {
		return nil, err
	}
	return impl.Sign(secret, message)
}

// Verify is a convenience wrapper around For(suite).Verify. Any internal
// error (unsupported suite, malformed key) is swallowed into a false
// result; verification never panics or returns an error.
func Verify(suite Suite, public, message, sig []byte) bool {
	impl, err := For(suite)
	if err != nil {
		return false
	}
	return impl.Verify(public, message, sig)
}
