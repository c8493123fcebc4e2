package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/onionoriginals/originals-go/pkg/coreerrors"
	"github.com/onionoriginals/originals-go/pkg/credential"
	"github.com/onionoriginals/originals-go/pkg/did"
	"github.com/onionoriginals/originals-go/pkg/keymanager"
	"github.com/onionoriginals/originals-go/pkg/multikey"
	"github.com/onionoriginals/originals-go/pkg/ordinals"
)

// mockGateway is a fully in-memory ordinals.Gateway test double: every
// broadcast transaction id is considered confirmed immediately, and
// GetSatInfo reports whatever inscriptions the test has pre-seeded.
type mockGateway struct {
	satInscriptions map[uint64][]string
	feeRate         int64
}

func newMockGateway() *mockGateway {
	return &mockGateway{satInscriptions: map[uint64][]string{}, feeRate: 5}
}

func (g *mockGateway) GetSatInfo(ctx context.Context, sat uint64) (ordinals.SatInfo, error) {
	return ordinals.SatInfo{InscriptionIDs: g.satInscriptions[sat]}, nil
}

func (g *mockGateway) ResolveInscription(ctx context.Context, inscriptionID string) (ordinals.Inscription, error) {
	return ordinals.Inscription{}, coreerrors.New(coreerrors.CodeNotFound, "not implemented in mock")
}

func (g *mockGateway) GetMetadata(ctx context.Context, inscriptionID string) ([]byte, error) {
	return nil, coreerrors.New(coreerrors.CodeNotFound, "not implemented in mock")
}

func (g *mockGateway) BroadcastTransaction(ctx context.Context, network string, txHex string) (string, error) {
	return "reveal-" + network + "-txid", nil
}

func (g *mockGateway) GetTransactionStatus(ctx context.Context, network string, txid string) (ordinals.TxStatus, error) {
	return ordinals.TxStatus{Confirmed: true}, nil
}

func (g *mockGateway) EstimateFee(ctx context.Context, blocks int) (int64, error) {
	return g.feeRate, nil
}

// mockWallet funds a commit by handing back a fixed txid/vout/sat without
// touching any real UTXO set. The txid must be valid hex since BuildReveal
// parses it into a chainhash.
const mockCommitTxid = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

type mockWallet struct {
	nextSat uint64
}

func (w *mockWallet) FundAndSignCommit(ctx context.Context, commitAddress string, amountSats int64, feeRate int64) (string, uint32, uint64, error) {
	return mockCommitTxid, 0, w.nextSat, nil
}

func testResource(t *testing.T) Resource {
	t.Helper()
	return NewResource("text/plain", []byte("hello originals"))
}

// testSigner generates an Ed25519 key pair and returns a Signer whose
// VerificationMethod is the key's own multikey-encoded public string — the
// credential engine's "inline verification method" path (pkg/credential's
// resolveVerificationMethod), which needs no DocumentLoader.
func testSigner(t *testing.T) Signer {
	t.Helper()
	kp, err := keymanager.Generate(multikey.Ed25519)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	dec, err := multikey.DecodeSecretKey(kp.SecretMultibase)
	if err != nil {
		t.Fatalf("decode secret: %v", err)
	}
	return Signer{VerificationMethod: kp.PublicMultibase, Suite: multikey.Ed25519, SecretKey: dec.Bytes}
}

func TestNewOriginalDerivesPeerIdentity(t *testing.T) {
	o, err := New([]Resource{testResource(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if o.ID.Method != did.MethodPeer {
		t.Fatalf("expected peer-layer identity, got %q", o.ID.Method)
	}
	if len(o.ProvenanceLog) != 0 {
		t.Fatalf("expected empty provenance log at genesis, got %d entries", len(o.ProvenanceLog))
	}
}

func TestNewOriginalRejectsEmptyResourceSet(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected New to reject an empty resource set")
	}
}

func TestPromoteToWebVHIssuesMigrationCredential(t *testing.T) {
	o, err := New([]Resource{testResource(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	genesisKP, err := keymanager.Generate(multikey.Ed25519)
	if err != nil {
		t.Fatalf("generate genesis key: %v", err)
	}
	genesisDec, err := multikey.DecodeSecretKey(genesisKP.SecretMultibase)
	if err != nil {
		t.Fatalf("decode genesis secret: %v", err)
	}
	// The same key both signs the webvh genesis entry (it must be one of
	// the genesis document's own assertionMethod keys) and issues the
	// lifecycle credential below, so its VerificationMethod is the
	// credential engine's inline-resolvable public key string.
	sig := Signer{Suite: multikey.Ed25519, SecretKey: genesisDec.Bytes, VerificationMethod: genesisKP.PublicMultibase}

	engine := &Engine{Credentials: credential.New(nil)}
	signed, err := engine.PromoteToWebVH(o, "example.com", nil,
		[]did.VerificationMethod{{ID: "#key-1", Type: "Multikey", PublicKeyMultibase: genesisKP.PublicMultibase}},
		sig, "did:peer:creator")
	if err != nil {
		t.Fatalf("PromoteToWebVH: %v", err)
	}
	if o.ID.Method != did.MethodWebVH {
		t.Fatalf("expected webvh-layer identity, got %q", o.ID.Method)
	}
	if len(o.ProvenanceLog) != 1 {
		t.Fatalf("expected exactly one provenance entry, got %d", len(o.ProvenanceLog))
	}
	if o.ProvenanceLog[0].PrevHash != "" {
		t.Fatal("expected genesis provenance entry to have no prev hash")
	}
	if signed.Types[len(signed.Types)-1] != credential.TypeResourceMigrated {
		t.Fatalf("expected ResourceMigrated credential, got types %v", signed.Types)
	}

	result := engine.Credentials.Verify(*signed)
	if !result.OK {
		t.Fatalf("expected migration credential to verify, got errors: %v", result.Errors)
	}
}

func TestFullLifecycleToInscriptionAndUpdate(t *testing.T) {
	o, err := New([]Resource{testResource(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	peerKP, err := keymanager.Generate(multikey.Ed25519)
	if err != nil {
		t.Fatalf("generate peer key: %v", err)
	}
	peerDec, err := multikey.DecodeSecretKey(peerKP.SecretMultibase)
	if err != nil {
		t.Fatalf("decode peer secret: %v", err)
	}
	peerSigner := Signer{Suite: multikey.Ed25519, SecretKey: peerDec.Bytes}

	gw := newMockGateway()
	wallet := &mockWallet{nextSat: 500000}
	engine := &Engine{
		Credentials:    credential.New(nil),
		Gateway:        gw,
		FeeOracle:      ordinals.ConstantFeeOracle{SatsPerVByte: 5},
		Wallet:         wallet,
		Network:        &chaincfg.RegressionNetParams,
		NetworkName:    did.NetworkTestnet,
		ConfirmOptions: ordinals.DefaultConfirmOptions(),
	}

	peerSigner.VerificationMethod = "#key-1"
	vm := did.VerificationMethod{ID: "#key-1", Type: "Multikey", PublicKeyMultibase: peerKP.PublicMultibase}
	if _, err := engine.PromoteToWebVH(o, "example.com", nil, []did.VerificationMethod{vm}, peerSigner, "did:peer:creator"); err != nil {
		t.Fatalf("PromoteToWebVH: %v", err)
	}
	webvhVM := o.ID.String() + "#key-1"
	peerSigner.VerificationMethod = webvhVM

	revealPriv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("generate reveal key: %v", err)
	}
	destAddr, err := btcutil.NewAddressTaproot(schnorr.SerializePubKey(revealPriv.PubKey()), &chaincfg.RegressionNetParams)
	if err != nil {
		t.Fatalf("derive destination address: %v", err)
	}

	result, err := engine.Inscribe(context.Background(), o, revealPriv.PubKey(), destAddr, peerSigner, "did:peer:creator")
	if err != nil {
		t.Fatalf("Inscribe: %v", err)
	}
	if result.Status != StatusConfirmed {
		t.Fatalf("expected inscribe to confirm in the mock gateway, got status %q", result.Status)
	}
	if o.ID.Method != did.MethodBtco {
		t.Fatalf("expected btco-layer identity after inscribe, got %q", o.ID.Method)
	}
	if o.ID.Sat != wallet.nextSat {
		t.Fatalf("expected original to bind to the wallet's chosen sat %d, got %d", wallet.nextSat, o.ID.Sat)
	}
	if len(o.ProvenanceLog) != 2 {
		t.Fatalf("expected two provenance entries after inscribe, got %d", len(o.ProvenanceLog))
	}

	gw.satInscriptions[o.ID.Sat] = []string{ordinals.InscriptionID("reveal-testnet-txid", 0)}

	btcoSigner := Signer{Suite: multikey.Ed25519, SecretKey: peerDec.Bytes, VerificationMethod: o.ID.String() + "#key-1"}
	updateResult, err := engine.UpdateBtco(context.Background(), o, []byte("updated content"), "text/plain", revealPriv.PubKey(), destAddr, btcoSigner, "did:peer:creator")
	if err != nil {
		t.Fatalf("UpdateBtco: %v", err)
	}
	if updateResult.Status != StatusConfirmed {
		t.Fatalf("expected update to confirm, got %q", updateResult.Status)
	}
	if o.ID.Sat != wallet.nextSat {
		t.Fatal("expected UpdateBtco to preserve the original satoshi")
	}
	if !o.ID.HasIndex || o.ID.Index != 1 {
		t.Fatalf("expected update to advance to index 1, got index=%d hasIndex=%v", o.ID.Index, o.ID.HasIndex)
	}
	if len(o.ProvenanceLog) != 3 {
		t.Fatalf("expected three provenance entries after update, got %d", len(o.ProvenanceLog))
	}
}

func TestInscribeRejectsNonWebVHOriginal(t *testing.T) {
	o, err := New([]Resource{testResource(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	engine := &Engine{Credentials: credential.New(nil), Gateway: newMockGateway(), FeeOracle: ordinals.ConstantFeeOracle{SatsPerVByte: 5}, Wallet: &mockWallet{nextSat: 1}, Network: &chaincfg.RegressionNetParams, NetworkName: did.NetworkTestnet, ConfirmOptions: ordinals.DefaultConfirmOptions()}
	revealPriv, _ := btcec.NewPrivateKey()
	destAddr, _ := btcutil.NewAddressTaproot(schnorr.SerializePubKey(revealPriv.PubKey()), &chaincfg.RegressionNetParams)
	sig := Signer{Suite: multikey.Ed25519}
	if _, err := engine.Inscribe(context.Background(), o, revealPriv.PubKey(), destAddr, sig, "creator"); err == nil {
		t.Fatal("expected Inscribe to reject a peer-layer original")
	}
}

func TestDeactivateRequiresOptIn(t *testing.T) {
	o, err := New([]Resource{testResource(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	engine := &Engine{Credentials: credential.New(nil)}
	sig := Signer{Suite: multikey.Ed25519, VerificationMethod: o.ID.String() + "#key-1"}
	if _, err := engine.Deactivate(o, sig, "creator"); err == nil {
		t.Fatal("expected Deactivate to fail when AllowDeactivation is false")
	}

	engine.AllowDeactivation = true
	kp, err := keymanager.Generate(multikey.Ed25519)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	dec, err := multikey.DecodeSecretKey(kp.SecretMultibase)
	if err != nil {
		t.Fatalf("decode secret: %v", err)
	}
	sig.SecretKey = dec.Bytes
	if _, err := engine.Deactivate(o, sig, "creator"); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if !o.IsDeactivated() {
		t.Fatal("expected original to report deactivated")
	}
	if _, err := engine.Deactivate(o, sig, "creator"); err == nil {
		t.Fatal("expected a second Deactivate call to fail")
	}
}

// toggleConfirmGateway wraps mockGateway but lets a test flip whether
// GetTransactionStatus reports a txid as confirmed, so resume-from-pending
// paths can be exercised deterministically.
type toggleConfirmGateway struct {
	*mockGateway
	confirmed bool
}

func (g *toggleConfirmGateway) GetTransactionStatus(ctx context.Context, network string, txid string) (ordinals.TxStatus, error) {
	return ordinals.TxStatus{Confirmed: g.confirmed}, nil
}

func TestDeactivateBtcoWritesOnChainMarkerAndResumes(t *testing.T) {
	o, err := New([]Resource{testResource(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	peerKP, err := keymanager.Generate(multikey.Ed25519)
	if err != nil {
		t.Fatalf("generate peer key: %v", err)
	}
	peerDec, err := multikey.DecodeSecretKey(peerKP.SecretMultibase)
	if err != nil {
		t.Fatalf("decode peer secret: %v", err)
	}
	peerSigner := Signer{Suite: multikey.Ed25519, SecretKey: peerDec.Bytes}

	gw := &toggleConfirmGateway{mockGateway: newMockGateway(), confirmed: true}
	wallet := &mockWallet{nextSat: 700000}
	engine := &Engine{
		Credentials:       credential.New(nil),
		Gateway:           gw,
		FeeOracle:         ordinals.ConstantFeeOracle{SatsPerVByte: 5},
		Wallet:            wallet,
		Network:           &chaincfg.RegressionNetParams,
		NetworkName:       did.NetworkTestnet,
		ConfirmOptions:    ordinals.DefaultConfirmOptions(),
		AllowDeactivation: true,
	}

	peerSigner.VerificationMethod = "#key-1"
	vm := did.VerificationMethod{ID: "#key-1", Type: "Multikey", PublicKeyMultibase: peerKP.PublicMultibase}
	if _, err := engine.PromoteToWebVH(o, "example.com", nil, []did.VerificationMethod{vm}, peerSigner, "did:peer:creator"); err != nil {
		t.Fatalf("PromoteToWebVH: %v", err)
	}
	peerSigner.VerificationMethod = o.ID.String() + "#key-1"

	revealPriv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("generate reveal key: %v", err)
	}
	destAddr, err := btcutil.NewAddressTaproot(schnorr.SerializePubKey(revealPriv.PubKey()), &chaincfg.RegressionNetParams)
	if err != nil {
		t.Fatalf("derive destination address: %v", err)
	}

	if _, err := engine.Inscribe(context.Background(), o, revealPriv.PubKey(), destAddr, peerSigner, "did:peer:creator"); err != nil {
		t.Fatalf("Inscribe: %v", err)
	}
	gw.satInscriptions[o.ID.Sat] = []string{ordinals.InscriptionID("reveal-testnet-txid", 0)}
	btcoSigner := Signer{Suite: multikey.Ed25519, SecretKey: peerDec.Bytes, VerificationMethod: o.ID.String() + "#key-1"}

	// Commit never confirms within the configured timeout: DeactivateBtco
	// must report StatusPending without flipping o.deactivated yet.
	gw.confirmed = false
	engine.ConfirmOptions = ordinals.ConfirmOptions{Timeout: -1 * time.Hour, PollInterval: time.Millisecond}
	result, err := engine.DeactivateBtco(context.Background(), o, revealPriv.PubKey(), destAddr, btcoSigner, "did:peer:creator")
	if err != nil {
		t.Fatalf("DeactivateBtco (pending): %v", err)
	}
	if result.Status != StatusPending {
		t.Fatalf("expected pending status while commit is unconfirmed, got %q", result.Status)
	}
	if o.IsDeactivated() {
		t.Fatal("expected original to remain active while the deactivation commit is unconfirmed")
	}

	// The commit (and then the reveal) now confirm: ResumeInscription must
	// dispatch to finishUpdate (not finishInscribe) since o is already
	// btco-layer, and must finalize the deactivation flag it parked.
	gw.confirmed = true
	engine.ConfirmOptions = ordinals.DefaultConfirmOptions()
	resumed, err := engine.ResumeInscription(context.Background(), o, destAddr, btcoSigner, "did:peer:creator")
	if err != nil {
		t.Fatalf("ResumeInscription: %v", err)
	}
	if resumed.Status != StatusConfirmed {
		t.Fatalf("expected resumed deactivation to confirm, got %q", resumed.Status)
	}
	if !o.IsDeactivated() {
		t.Fatal("expected original to report deactivated after the resumed reveal confirms")
	}
	if resumed.Credential.Types[len(resumed.Credential.Types)-1] != credential.TypeResourceUpdated {
		t.Fatalf("expected a ResourceUpdated credential for the deactivation, got types %v", resumed.Credential.Types)
	}

	if _, err := engine.UpdateBtco(context.Background(), o, []byte("should not apply"), "text/plain", revealPriv.PubKey(), destAddr, btcoSigner, "did:peer:creator"); err == nil {
		t.Fatal("expected UpdateBtco to refuse a deactivated original")
	}
}
