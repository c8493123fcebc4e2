package ordinals

import (
	"testing"

	"github.com/onionoriginals/originals-go/pkg/coreerrors"
)

func TestSelectUtxosRejectsNonPositiveFeeRate(t *testing.T) {
	_, err := SelectUtxos([]Utxo{{ValueSats: 10000}}, SelectionRequest{TargetSats: 1000, FeeRateSatsPerVByte: 0})
	if err == nil {
		t.Fatal("expected TOO_LOW_FEE")
	}
}

func TestSelectUtxosRejectsSubDustTarget(t *testing.T) {
	_, err := SelectUtxos([]Utxo{{ValueSats: 10000}}, SelectionRequest{TargetSats: DustLimit - 1, FeeRateSatsPerVByte: 1})
	if err == nil {
		t.Fatal("expected DUST_OUTPUT")
	}
}

func TestSelectUtxosAcceptsExactlyDustTarget(t *testing.T) {
	_, err := SelectUtxos([]Utxo{{ValueSats: 10000}}, SelectionRequest{TargetSats: DustLimit, FeeRateSatsPerVByte: 1})
	if err != nil {
		t.Fatalf("expected dust-limit target to be accepted, got %v", err)
	}
}

func TestSelectUtxosExactMatchZeroChange(t *testing.T) {
	vbytes := estimateVBytes([]Utxo{{ValueSats: 1000}})
	fee := computeFee(vbytes, 1)
	target := int64(1000) - fee
	if target < DustLimit {
		t.Skip("synthetic target fell below dust limit for this vbyte estimate")
	}
	res, err := SelectUtxos([]Utxo{{ValueSats: 1000}}, SelectionRequest{TargetSats: target, FeeRateSatsPerVByte: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Selected) != 1 {
		t.Fatalf("expected one utxo selected, got %d", len(res.Selected))
	}
	if res.ChangeSats != 0 {
		t.Fatalf("expected zero change, got %d", res.ChangeSats)
	}
}

func TestSelectUtxosAbsorbsSubDustChangeIntoFee(t *testing.T) {
	vbytes := estimateVBytes([]Utxo{{ValueSats: 2000}})
	fee := computeFee(vbytes, 1)
	// Target leaves a change smaller than DustLimit but greater than zero.
	target := int64(2000) - fee - (DustLimit - 1)
	res, err := SelectUtxos([]Utxo{{ValueSats: 2000}}, SelectionRequest{TargetSats: target, FeeRateSatsPerVByte: 1})
	if err != nil {
		t.Fatal(err)
	}
	if res.ChangeSats != 0 {
		t.Fatalf("expected sub-dust change to be absorbed into fee, got change=%d", res.ChangeSats)
	}
	if res.FeeSats <= fee {
		t.Fatalf("expected fee to have absorbed the suppressed change, got fee=%d (base %d)", res.FeeSats, fee)
	}
}

func TestSelectUtxosInsufficientFunds(t *testing.T) {
	_, err := SelectUtxos([]Utxo{{ValueSats: 1000}}, SelectionRequest{TargetSats: 100000, FeeRateSatsPerVByte: 1})
	if err == nil {
		t.Fatal("expected INSUFFICIENT_FUNDS")
	}
}

func TestSelectUtxosConflictingLocks(t *testing.T) {
	// The locked coin alone covers target plus fee: the failure is the lock,
	// not the balance.
	_, err := SelectUtxos([]Utxo{{ValueSats: 100000, Locked: true}}, SelectionRequest{TargetSats: 50000, FeeRateSatsPerVByte: 1})
	if err == nil {
		t.Fatal("expected CONFLICTING_LOCKS")
	}
	coreErr, ok := err.(*coreerrors.Error)
	if !ok {
		t.Fatalf("expected *coreerrors.Error, got %T: %v", err, err)
	}
	if coreErr.Code != coreerrors.CodeConflictingLocks {
		t.Fatalf("expected code %q, got %q", coreerrors.CodeConflictingLocks, coreErr.Code)
	}
}

func TestSelectUtxosSmallLockedUtxoIsInsufficientNotConflicting(t *testing.T) {
	// The locked coin is far too small to close the gap: unlocking it would
	// not help, so the failure is INSUFFICIENT_FUNDS, not CONFLICTING_LOCKS.
	utxos := []Utxo{
		{ValueSats: 10, Locked: true},
		{ValueSats: 1000},
	}
	_, err := SelectUtxos(utxos, SelectionRequest{TargetSats: 1000000, FeeRateSatsPerVByte: 1})
	if err == nil {
		t.Fatal("expected INSUFFICIENT_FUNDS")
	}
	coreErr, ok := err.(*coreerrors.Error)
	if !ok {
		t.Fatalf("expected *coreerrors.Error, got %T: %v", err, err)
	}
	if coreErr.Code != coreerrors.CodeInsufficientFunds {
		t.Fatalf("expected code %q, got %q", coreerrors.CodeInsufficientFunds, coreErr.Code)
	}
}

func TestSelectUtxosRequiredInscriptionUtxoAlwaysIncluded(t *testing.T) {
	required := Utxo{Txid: "abc", Vout: 0, ValueSats: 600, Inscriptions: []string{"insc1"}}
	res, err := SelectUtxos([]Utxo{{Txid: "def", Vout: 0, ValueSats: 50000}}, SelectionRequest{
		TargetSats:              DustLimit,
		FeeRateSatsPerVByte:     1,
		RequiredInscriptionUtxo: &required,
	})
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, u := range res.Selected {
		if u.Txid == "abc" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected required inscription utxo to always be included")
	}
}

func TestSelectUtxosExcludesInscriptionBearingWhenForbidden(t *testing.T) {
	utxos := []Utxo{
		{Txid: "a", ValueSats: 100000, Inscriptions: []string{"x"}},
		{Txid: "b", ValueSats: 100000},
	}
	res, err := SelectUtxos(utxos, SelectionRequest{TargetSats: DustLimit, FeeRateSatsPerVByte: 1, ForbidInscriptionBearingInputs: true})
	if err != nil {
		t.Fatal(err)
	}
	for _, u := range res.Selected {
		if u.Txid == "a" {
			t.Fatal("expected inscription-bearing utxo to be excluded")
		}
	}
}
