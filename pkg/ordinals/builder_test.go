package ordinals

import (
	"math"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
)

func TestEnvelopeVSizeApproximatesScenario(t *testing.T) {
	// Content size 4059 bytes, content-type image/png, no metadata: the
	// size model gives 150 + ceil(4059*0.25) + ceil(4059*0.1) =
	// 150 + 1015 + 406 = 1571 vB, a fee of 15710 sats at 10 sat/vB. The
	// range below is an order-of-magnitude check on the size model rather
	// than an exact fixture.
	vsize := EnvelopeVSize(4059)
	if vsize < 900 || vsize > 1800 {
		t.Fatalf("expected vsize in a plausible range for a 4059-byte envelope, got %d", vsize)
	}
	fee := int64(math.Ceil(float64(vsize) * 10))
	if fee <= 0 {
		t.Fatalf("expected positive fee, got %d", fee)
	}
}

func TestPrepareAndBuildRevealRoundTrip(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	content := []byte("hello ordinal world")

	prepared, err := Prepare(content, "text/plain", nil, priv.PubKey(), &chaincfg.MainNetParams)
	if err != nil {
		t.Fatal(err)
	}
	if prepared.CommitAddress == nil {
		t.Fatal("expected a non-nil commit address")
	}
	if len(prepared.ControlBlock) == 0 {
		t.Fatal("expected a non-empty control block")
	}

	commitUtxo := Utxo{Txid: "1111111111111111111111111111111111111111111111111111111111111111", Vout: 0, ValueSats: 100000}
	dest, err := Prepare(content, "text/plain", nil, priv.PubKey(), &chaincfg.MainNetParams)
	if err != nil {
		t.Fatal(err)
	}
	reveal, err := BuildReveal(commitUtxo, prepared, 10, dest.CommitAddress)
	if err != nil {
		t.Fatal(err)
	}
	if reveal.Tx == nil || len(reveal.Tx.TxIn) != 1 || len(reveal.Tx.TxOut) != 1 {
		t.Fatalf("expected a 1-input/1-output reveal transaction, got %+v", reveal.Tx)
	}
	if reveal.Fee <= 0 {
		t.Fatalf("expected positive fee, got %d", reveal.Fee)
	}
}

func TestBuildRevealRejectsNonPositiveFeeRate(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	prepared, err := Prepare([]byte("x"), "text/plain", nil, priv.PubKey(), &chaincfg.MainNetParams)
	if err != nil {
		t.Fatal(err)
	}
	commitUtxo := Utxo{Txid: "2222222222222222222222222222222222222222222222222222222222222222", Vout: 0, ValueSats: 100000}
	if _, err := BuildReveal(commitUtxo, prepared, 0, prepared.CommitAddress); err == nil {
		t.Fatal("expected TOO_LOW_FEE")
	}
}
