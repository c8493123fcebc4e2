package keymanager

import (
	"testing"

	"github.com/onionoriginals/originals-go/pkg/multikey"
	"github.com/onionoriginals/originals-go/pkg/signer"
)

func TestGenerateAllSuites(t *testing.T) {
	for _, suite := range []multikey.Suite{multikey.Secp256k1, multikey.Ed25519, multikey.P256} {
		kp, err := Generate(suite)
		if err != nil {
			t.Fatalf("%s: %v", suite, err)
		}
		if kp.PublicMultibase[0] != 'z' || kp.SecretMultibase[0] != 'z' {
			t.Fatalf("%s: expected multibase-z encoded keys", suite)
		}
	}
}

func TestDeriveDeterministic(t *testing.T) {
	seed, err := NewSeed([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatal(err)
	}
	kp1, err := seed.Derive(multikey.Ed25519, 0)
	if err != nil {
		t.Fatal(err)
	}
	kp2, err := seed.Derive(multikey.Ed25519, 0)
	if err != nil {
		t.Fatal(err)
	}
	if kp1.SecretMultibase != kp2.SecretMultibase {
		t.Fatal("expected identical derivation for the same seed and index")
	}
	kp3, err := seed.Derive(multikey.Ed25519, 1)
	if err != nil {
		t.Fatal(err)
	}
	if kp3.SecretMultibase == kp1.SecretMultibase {
		t.Fatal("expected different keys for different indices")
	}
}

func TestDerivedKeyUsableForSigning(t *testing.T) {
	seed, err := NewSeed([]byte("a-sufficiently-long-seed-value!!"))
	if err != nil {
		t.Fatal(err)
	}
	for _, suite := range []multikey.Suite{multikey.Secp256k1, multikey.Ed25519, multikey.P256} {
		kp, err := seed.Derive(suite, 7)
		if err != nil {
			t.Fatalf("%s: %v", suite, err)
		}
		dec, err := multikey.DecodeSecretKey(kp.SecretMultibase)
		if err != nil {
			t.Fatal(err)
		}
		sig, err := signer.Sign(suite, dec.Bytes, []byte("msg"))
		if err != nil {
			t.Fatal(err)
		}
		pubDec, err := multikey.DecodePublicKey(kp.PublicMultibase)
		if err != nil {
			t.Fatal(err)
		}
		if !signer.Verify(suite, pubDec.Bytes, []byte("msg"), sig) {
			t.Fatalf("%s: derived key failed to verify its own signature", suite)
		}
	}
}
