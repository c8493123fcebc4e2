package signer

import (
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
)

type secp256k1Signer struct{}

func (secp256k1Signer) GenerateSecret() ([]byte, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("secp256k1: generate: %w", err)
	}
	return priv.Serialize(), nil
}

func (secp256k1Signer) DerivePublic(secret []byte) ([]byte, error) {
	priv, _ := btcec.PrivKeyFromBytes(secret)
	return priv.PubKey().SerializeCompressed(), nil
}

// Sign hashes the message with SHA-256 and produces a deterministic
// (RFC 6979) fixed-width r||s signature, the ecdsa-secp256k1-2019
// cryptosuite's signing algorithm.
func (secp256k1Signer) Sign(secret, message []byte) ([]byte, error) {
	if len(secret) != 32 {
		return nil, fmt.Errorf("secp256k1: secret key must be 32 bytes")
	}
	d := new(big.Int).SetBytes(secret)
	h := sha256.Sum256(message)
	r, s := ecdsaSign(btcec.S256(), d, h[:])
	return fixedWidthPair(r, s, 32), nil
}

func (secp256k1Signer) Verify(public, message, sig []byte) bool {
	pub, err := btcec.ParsePubKey(public)
	if err != nil {
		return false
	}
	r, s, ok := splitFixedWidthPair(sig, 32)
	if !ok {
		return false
	}
	h := sha256.Sum256(message)
	ecPub := pub.ToECDSA()
	return ecdsaVerify(btcec.S256(), ecPub.X, ecPub.Y, h[:], r, s)
}
