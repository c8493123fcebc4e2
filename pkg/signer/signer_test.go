package signer

import "testing"

func TestSignVerifyAllSuites(t *testing.T) {
	for _, suite := range []Suite{Secp256k1, Ed25519, P256} {
		impl, err := For(suite)
		if err != nil {
			t.Fatalf("%s: %v", suite, err)
		}
		secret, err := impl.GenerateSecret()
		if err != nil {
			t.Fatalf("%s: generate: %v", suite, err)
		}
		pub, err := impl.DerivePublic(secret)
		if err != nil {
			t.Fatalf("%s: derive: %v", suite, err)
		}
		msg := []byte("hello originals")
		sig, err := impl.Sign(secret, msg)
		if err != nil {
			t.Fatalf("%s: sign: %v", suite, err)
		}
		if !impl.Verify(pub, msg, sig) {
			t.Fatalf("%s: verify failed for freshly-signed message", suite)
		}
		if impl.Verify(pub, []byte("tampered"), sig) {
			t.Fatalf("%s: verify succeeded for tampered message", suite)
		}
	}
}

func TestSignDeterministic(t *testing.T) {
	for _, suite := range []Suite{Secp256k1, Ed25519, P256} {
		impl, _ := For(suite)
		secret, _ := impl.GenerateSecret()
		msg := []byte("deterministic signing")
		sig1, err := impl.Sign(secret, msg)
		if err != nil {
			t.Fatal(err)
		}
		sig2, err := impl.Sign(secret, msg)
		if err != nil {
			t.Fatal(err)
		}
		if string(sig1) != string(sig2) {
			t.Fatalf("%s: signatures over identical input differ: %x vs %x", suite, sig1, sig2)
		}
	}
}

func TestCryptosuiteRoundTrip(t *testing.T) {
	for _, suite := range []Suite{Secp256k1, Ed25519, P256} {
		cs, err := CryptosuiteForSuite(suite)
		if err != nil {
			t.Fatal(err)
		}
		back, err := SuiteForCryptosuite(cs)
		if err != nil {
			t.Fatal(err)
		}
		if back != suite {
			t.Fatalf("expected %s, got %s", suite, back)
		}
	}
}
