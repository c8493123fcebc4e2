// Package keymanager generates and derives key material for each supported
// suite. Derivation is a hardened-HMAC scheme (HMAC-SHA512 over parent key
// + chain code + index) applied uniformly to all three suites: the 64-byte
// HMAC output is split into a 32-byte child key and a 32-byte chain code,
// and the child key is then reduced to a valid scalar for whichever suite
// is requested.
package keymanager

import (
	"crypto/elliptic"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/onionoriginals/originals-go/pkg/coreerrors"
	"github.com/onionoriginals/originals-go/pkg/multikey"
	"github.com/onionoriginals/originals-go/pkg/signer"
)

func p256Order() *big.Int {
	return elliptic.P256().Params().N
}

const hardenedOffset uint32 = 0x80000000

// KeyPair is a generated or derived key, ready to embed in a
// VerificationMethod as public_key_multibase / secret_key_multibase.
type KeyPair struct {
	Suite           multikey.Suite
	PublicMultibase string
	SecretMultibase string
}

// Generate produces fresh, suite-appropriate key material using the
// suite's own secure random source.
func Generate(suite multikey.Suite) (KeyPair, error) {
	impl, err := signer.For(suite)
	if err != nil {
		return KeyPair{}, err
	}
	secret, err := impl.GenerateSecret()
	if err != nil {
		return KeyPair{}, fmt.Errorf("keymanager: generate secret: %w", err)
	}
	return fromSecret(suite, secret)
}

// Seed is opaque master key material from which child keys are derived
// deterministically. It is never logged or persisted by this package.
type Seed struct {
	key   []byte
	chain []byte
}

// NewSeed derives the master key/chain-code pair from arbitrary entropy
// via HMAC("originals seed", entropy).
func NewSeed(entropy []byte) (Seed, error) {
	if len(entropy) < 16 {
		return Seed{}, fmt.Errorf("keymanager: seed entropy must be at least 16 bytes")
	}
	i := hmacSHA512([]byte("originals seed"), entropy)
	return Seed{key: i[:32], chain: i[32:]}, nil
}

// Derive walks one hardened level of the chain at the given index and
// returns suite-appropriate key material. Only hardened derivation is
// supported: non-hardened child derivation is undefined for Ed25519 and is
// not offered for the other suites either, keeping one derivation rule
// across all three.
func (s Seed) Derive(suite multikey.Suite, index uint32) (KeyPair, error) {
	index |= hardenedOffset
	data := make([]byte, 1+32+4)
	copy(data[1:], s.key)
	binary.BigEndian.PutUint32(data[33:], index)

	i := hmacSHA512(s.chain, data)
	childKey := i[:32]

	secret, err := reduceToScalar(suite, childKey)
	if err != nil {
		return KeyPair{}, err
	}
	return fromSecret(suite, secret)
}

func fromSecret(suite multikey.Suite, secret []byte) (KeyPair, error) {
	impl, err := signer.For(suite)
	if err != nil {
		return KeyPair{}, err
	}
	public, err := impl.DerivePublic(secret)
	if err != nil {
		return KeyPair{}, fmt.Errorf("keymanager: derive public: %w", err)
	}
	pubEnc, err := multikey.EncodePublicKey(suite, public)
	if err != nil {
		return KeyPair{}, err
	}
	secEnc, err := multikey.EncodeSecretKey(suite, secret)
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{Suite: suite, PublicMultibase: pubEnc, SecretMultibase: secEnc}, nil
}

// reduceToScalar maps 32 bytes of HMAC output onto a valid secret key for
// suite: Ed25519 consumes all 32 bytes as a seed directly; the ECDSA
// suites reduce modulo the curve order so the result is always a valid
// scalar; a reduction to zero (vanishingly unlikely) is returned as an
// error so the caller can derive again with a different index.
func reduceToScalar(suite multikey.Suite, raw []byte) ([]byte, error) {
	switch suite {
	case multikey.Ed25519:
		return raw, nil
	case multikey.Secp256k1:
		n := btcec.S256().Params().N
		x := new(big.Int).SetBytes(raw)
		x.Mod(x, n)
		if x.Sign() == 0 {
			return nil, fmt.Errorf("keymanager: derived zero scalar, re-derive with a different index")
		}
		return leftPad(x.Bytes(), 32), nil
	case multikey.P256:
		n := p256Order()
		x := new(big.Int).SetBytes(raw)
		x.Mod(x, n)
		if x.Sign() == 0 {
			return nil, fmt.Errorf("keymanager: derived zero scalar, re-derive with a different index")
		}
		return leftPad(x.Bytes(), 32), nil
	default:
		return nil, coreerrors.Newf(coreerrors.CodeUnsupportedSuite, "keymanager: unsupported suite %q", suite)
	}
}

func leftPad(b []byte, n int) []byte {
	if len(b) >= n {
		return b[len(b)-n:]
	}
	out := make([]byte, n)
	copy(out[n-len(b):], b)
	return out
}

func hmacSHA512(key, data []byte) []byte {
	h := hmac.New(sha512.New, key)
	h.Write(data)
	return h.Sum(nil)
}
