package multikey

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func TestRoundTripAllSuites(t *testing.T) {
	cases := []struct {
		suite Suite
		n     int
	}{
		{Secp256k1, 33},
		{Ed25519, 32},
		{P256, 33},
	}
	for _, c := range cases {
		raw := make([]byte, c.n)
		if _, err := rand.Read(raw); err != nil {
			t.Fatal(err)
		}
		enc, err := EncodePublicKey(c.suite, raw)
		if err != nil {
			t.Fatalf("%s: encode: %v", c.suite, err)
		}
		if enc[0] != 'z' {
			t.Fatalf("%s: expected multibase prefix 'z', got %q", c.suite, enc[0])
		}
		dec, err := DecodePublicKey(enc)
		if err != nil {
			t.Fatalf("%s: decode: %v", c.suite, err)
		}
		if dec.Suite != c.suite {
			t.Fatalf("%s: suite mismatch: got %s", c.suite, dec.Suite)
		}
		if !bytes.Equal(dec.Bytes, raw) {
			t.Fatalf("%s: bytes mismatch", c.suite)
		}
	}
}

func TestDecodeInvalidPrefix(t *testing.T) {
	if _, err := DecodePublicKey("abc"); err == nil {
		t.Fatal("expected error for non-multibase-z input")
	}
}

func TestEncodeRejectsBadLength(t *testing.T) {
	enc, err := EncodePublicKey(Ed25519, make([]byte, 32))
	if err != nil {
		t.Fatal(err)
	}
	// A 31-byte Ed25519 public key is one byte short and must be rejected.
	if _, err := EncodePublicKey(Ed25519, make([]byte, 31)); err == nil {
		t.Fatal("expected length mismatch error")
	}
	_ = enc
}

func TestDecodeUnrecognizedHeader(t *testing.T) {
	enc, err := EncodePublicKey(Secp256k1, make([]byte, 33))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeSecretKey(enc); err == nil {
		t.Fatal("expected header mismatch when decoding a public key as secret")
	}
}
