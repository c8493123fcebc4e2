// Package multikey encodes and decodes public and secret keys in the
// self-describing multibase+multicodec form used throughout the originals
// SDK: a base58btc (multibase prefix 'z') string over a 2-byte multicodec
// header followed by raw key bytes.
package multikey

import (
	"fmt"

	"github.com/mr-tron/base58"
	mbase "github.com/multiformats/go-multibase"
	"github.com/onionoriginals/originals-go/pkg/coreerrors"
)

// Suite identifies a supported signature/key suite.
type Suite string

const (
	Secp256k1 Suite = "Secp256k1"
	Ed25519   Suite = "Ed25519"
	P256      Suite = "P256"
)

// header is the fixed 2-byte multicodec prefix for a (suite, keyKind)
// pair, per the multicodec registry.
type header [2]byte

var (
	hdrSecp256k1Pub = header{0xe7, 0x01}
	hdrEd25519Pub   = header{0xed, 0x01}
	hdrP256Pub      = header{0x80, 0x24}

	// Secret-key counterparts from the multicodec registry.
	hdrSecp256k1Priv = header{0x81, 0x26}
	hdrEd25519Priv   = header{0x80, 0x26}
	hdrP256Priv      = header{0x86, 0x26}
)

var pubHeaders = map[Suite]header{
	Secp256k1: hdrSecp256k1Pub,
	Ed25519:   hdrEd25519Pub,
	P256:      hdrP256Pub,
}

var privHeaders = map[Suite]header{
	Secp256k1: hdrSecp256k1Priv,
	Ed25519:   hdrEd25519Priv,
	P256:      hdrP256Priv,
}

var suiteByPubHeader = invertHeaders(pubHeaders)
var suiteByPrivHeader = invertHeaders(privHeaders)

func invertHeaders(m map[Suite]header) map[header]Suite {
	out := make(map[header]Suite, len(m))
	for s, h := range m {
		out[h] = s
	}
	return out
}

// expectedKeyLen returns the raw byte length required for (suite, kind), or 0
// if variable/unknown.
func expectedKeyLen(suite Suite, isPrivate bool) int {
	switch suite {
	case Secp256k1:
		if isPrivate {
			return 32
		}
		return 33 // compressed point
	case Ed25519:
		if isPrivate {
			return 32
		}
		return 32
	case P256:
		if isPrivate {
			return 32
		}
		return 33 // compressed point
	}
	return 0
}

// Decoded is the result of decoding a multikey string.
type Decoded struct {
	Suite Suite
	Bytes []byte
}

// EncodePublicKey encodes a raw public key into "z<base58btc(header||bytes)>".
func EncodePublicKey(suite Suite, raw []byte) (string, error) {
	return encode(suite, raw, false)
}

// EncodeSecretKey encodes a raw secret key analogously to EncodePublicKey.
func EncodeSecretKey(suite Suite, raw []byte) (string, error) {
	return encode(suite, raw, true)
}

func encode(suite Suite, raw []byte, isPrivate bool) (string, error) {
	var h header
	var ok bool
	if isPrivate {
		h, ok = privHeaders[suite]
	} else {
		h, ok = pubHeaders[suite]
	}
	if !ok {
		return "", coreerrors.Newf(coreerrors.CodeUnsupportedSuite, "multikey: unsupported suite %q", suite)
	}
	if want := expectedKeyLen(suite, isPrivate); want != 0 && len(raw) != want {
		return "", fmt.Errorf("multikey: %q key for suite %q must be %d bytes, got %d", kindLabel(isPrivate), suite, want, len(raw))
	}
	buf := make([]byte, 0, 2+len(raw))
	buf = append(buf, h[0], h[1])
	buf = append(buf, raw...)

	enc, err := mbase.Encode(mbase.Base58BTC, buf)
	if err != nil {
		return "", fmt.Errorf("multikey: multibase encode: %w", err)
	}
	return enc, nil
}

// DecodePublicKey decodes a multikey-encoded public key string.
func DecodePublicKey(s string) (Decoded, error) {
	return decode(s, false)
}

// DecodeSecretKey decodes a multikey-encoded secret key string.
func DecodeSecretKey(s string) (Decoded, error) {
	return decode(s, true)
}

func decode(s string, isPrivate bool) (Decoded, error) {
	if s == "" {
		return Decoded{}, fmt.Errorf("multikey: empty input")
	}
	if s[0] != 'z' {
		return Decoded{}, fmt.Errorf("multikey: unsupported multibase prefix %q", s[0:1])
	}
	enc, data, err := mbase.Decode(s)
	if err != nil || enc != mbase.Base58BTC {
		// Fall back to raw base58 decode for inputs produced without the
		// go-multibase encoder (e.g. hand-constructed test vectors).
		raw, berr := base58.Decode(s[1:])
		if berr != nil {
			return Decoded{}, fmt.Errorf("multikey: invalid base58btc: %w", err)
		}
		data = raw
	}
	if len(data) < 2 {
		return Decoded{}, fmt.Errorf("multikey: truncated multicodec header")
	}
	h := header{data[0], data[1]}
	var suite Suite
	var ok bool
	if isPrivate {
		suite, ok = suiteByPrivHeader[h]
	} else {
		suite, ok = suiteByPubHeader[h]
	}
	if !ok {
		return Decoded{}, fmt.Errorf("multikey: unrecognized multicodec header %x", data[0:2])
	}
	raw := data[2:]
	if want := expectedKeyLen(suite, isPrivate); want != 0 && len(raw) != want {
		return Decoded{}, fmt.Errorf("multikey: suite %q key length mismatch: want %d, got %d", suite, want, len(raw))
	}
	return Decoded{Suite: suite, Bytes: raw}, nil
}

func kindLabel(isPrivate bool) string {
	if isPrivate {
		return "secret"
	}
	return "public"
}
