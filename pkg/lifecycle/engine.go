package lifecycle

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/onionoriginals/originals-go/pkg/coreerrors"
	"github.com/onionoriginals/originals-go/pkg/credential"
	"github.com/onionoriginals/originals-go/pkg/did"
	"github.com/onionoriginals/originals-go/pkg/multikey"
	"github.com/onionoriginals/originals-go/pkg/ordinals"
	"github.com/onionoriginals/originals-go/pkg/webvh"
)

// Engine owns every transition between layers and is the sole writer of an
// Original's provenance log and identifier. It holds no Original state
// itself; every method takes the Original to mutate as its first argument,
// so the engine carries no process-wide mutable state.
type Engine struct {
	Credentials *credential.Engine
	Gateway     ordinals.Gateway
	FeeOracle   ordinals.FeeOracle
	Wallet      WalletAdapter

	// Network is the chain parameters used to derive Taproot commit
	// addresses (pkg/ordinals.Prepare). NetworkName is its did.Network
	// counterpart, used both for did:btco identifiers and as the Gateway's
	// network argument.
	Network     *chaincfg.Params
	NetworkName did.Network

	ConfirmOptions ordinals.ConfirmOptions

	// AllowDeactivation gates Deactivate and DeactivateBtco. Deactivation
	// is irreversible, so a deployment must opt into it explicitly.
	AllowDeactivation bool
}

// TransitionStatus reports whether a Bitcoin-settling transition
// (Inscribe, UpdateBtco) has confirmed on-chain yet.
type TransitionStatus string

const (
	StatusConfirmed TransitionStatus = "confirmed"
	StatusPending   TransitionStatus = "pending"
)

// InscribeResult is the outcome of Inscribe, ResumeInscription, or
// UpdateBtco. When Status is StatusPending, Credential is nil and the
// Original's identifier has not changed: the caller should retry via
// ResumeInscription once the commit transaction confirms.
type InscribeResult struct {
	Status     TransitionStatus
	CommitTxid string
	RevealTxid string
	Credential *credential.Credential
}

// Signer bundles the key material every transition needs to issue its
// credential. It is never stored on an Original; key material is passed
// explicitly per call.
type Signer struct {
	VerificationMethod string
	Suite              multikey.Suite
	SecretKey          []byte
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// PromoteToWebVH implements the peer to webvh transition: it creates a
// genesis update log anchored at domain/pathSegments, carries the
// peer identity's verification methods forward into the webvh genesis
// state, and issues a ResourceMigrated credential linking the two
// identifiers. The webvh genesis entry and the lifecycle credential are
// signed by the same key, since the genesis document must already name its
// own assertionMethod as an authorized signer.
func (e *Engine) PromoteToWebVH(o *Original, domain string, pathSegments []string, vms []did.VerificationMethod, sig Signer, creator string) (*credential.Credential, error) {
	if o.ID.Method != did.MethodPeer {
		return nil, coreerrors.New(coreerrors.CodeIllegalTransition, "PromoteToWebVH requires a peer-layer original")
	}
	if len(vms) == 0 {
		return nil, coreerrors.New(coreerrors.CodeInvalidDocument, "webvh genesis requires at least one verification method")
	}

	fromID := o.ID.String()
	buildState := func(id did.Identifier) did.Document {
		didStr := id.String()
		docVMs := make([]did.VerificationMethod, len(vms))
		ids := make([]string, len(vms))
		for i, vm := range vms {
			vm.Controller = didStr
			vm.ID = didStr + vmFragment(vm.ID)
			docVMs[i] = vm
			ids[i] = vm.ID
		}
		return did.Document{
			Contexts:           did.DefaultContexts,
			ID:                 didStr,
			VerificationMethod: docVMs,
			Authentication:     ids,
			AssertionMethod:    ids,
		}
	}

	logv, newID, err := webvh.CreateGenesis(domain, pathSegments, webvh.Parameters{Portable: false}, buildState, webvh.Signer{
		Suite:     sig.Suite,
		SecretKey: sig.SecretKey,
	})
	if err != nil {
		return nil, coreerrors.Wrap(coreerrors.CodeInvalidDocument, err)
	}

	issuanceTime := nowRFC3339()
	unsigned := credential.NewResourceMigratedCredential(newID.String(), issuanceTime, credential.TransitionSubject{
		ResourceID:   o.Resources[0].ID,
		ResourceType: o.Resources[0].MediaType,
		CreatedTime:  issuanceTime,
		Creator:      creator,
		FromID:       fromID,
		ToID:         newID.String(),
	})
	signed, err := e.Credentials.IssueTransition(unsigned, sig.VerificationMethod, sig.Suite, sig.SecretKey)
	if err != nil {
		return nil, err
	}
	if err := o.appendProvenance(signed); err != nil {
		return nil, err
	}

	o.ID = newID
	o.webvhLog = logv
	o.webvhDomain = domain
	o.webvhSegments = pathSegments
	return &signed, nil
}

func vmFragment(id string) string {
	for i := len(id) - 1; i >= 0; i-- {
		if id[i] == '#' {
			return id[i:]
		}
	}
	return "#key-1"
}

// Inscribe implements the webvh to btco transition: it prepares the
// ordinals envelope for the original's primary resource,
// delegates the commit transaction to the caller's WalletAdapter, awaits
// its confirmation, re-checks the target satoshi for front-running
// (pkg/ordinals.CheckNotContested), and broadcasts the reveal.
//
// If the commit or the reveal is still unconfirmed when
// e.ConfirmOptions.Timeout elapses, Inscribe returns StatusPending and
// retains enough state on o for ResumeInscription to finish the job. Any
// other failure once the commit is funded (ctx cancelled or past its
// deadline, the reveal failing to build or broadcast) is returned as an
// error, with that same state retained on o. The Original's identifier is
// unchanged until the reveal actually confirms.
func (e *Engine) Inscribe(ctx context.Context, o *Original, revealPubKey *btcec.PublicKey, destination btcutil.Address, sig Signer, creator string) (InscribeResult, error) {
	if o.ID.Method != did.MethodWebVH {
		return InscribeResult{}, coreerrors.New(coreerrors.CodeIllegalTransition, "Inscribe requires a webvh-layer original")
	}
	if len(o.Resources) == 0 {
		return InscribeResult{}, coreerrors.New(coreerrors.CodeInvalidDocument, "original has no resource to inscribe")
	}
	resource := o.Resources[0]

	feeRate, err := e.FeeOracle.EstimateFee(ctx, 3)
	if err != nil {
		return InscribeResult{}, coreerrors.Wrap(coreerrors.CodeUnreachable, err).AsRecoverable()
	}

	prepared, err := ordinals.Prepare(resource.InlineBytes, resource.MediaType, nil, revealPubKey, e.Network)
	if err != nil {
		return InscribeResult{}, err
	}

	revealFee := ordinals.EnvelopeVSize(len(prepared.InscriptionScript)) * feeRate
	commitAmount := revealFee + ordinals.DustLimit

	commitTxid, commitVout, sat, err := e.Wallet.FundAndSignCommit(ctx, prepared.CommitAddress.String(), commitAmount, feeRate)
	if err != nil {
		return InscribeResult{}, coreerrors.Wrap(coreerrors.CodeBroadcastRejected, err)
	}

	pending := &pendingCommit{
		CommitTxid:          commitTxid,
		CommitVout:          commitVout,
		Prepared:            prepared,
		Sat:                 sat,
		Index:               nextInscriptionIndex(o),
		Network:             e.NetworkName,
		FeeRate:             feeRate,
		DestinationAddress:  destination.EncodeAddress(),
		DocContent:          resource.InlineBytes,
		ContentType:         resource.MediaType,
		KnownInscriptionIDs: nil,
		VerificationMethod:  sig.VerificationMethod,
	}
	o.pending = pending

	status, err := ordinals.AwaitConfirmation(ctx, e.Gateway, string(e.NetworkName), commitTxid, e.ConfirmOptions)
	if err != nil {
		if structuredIsTimeout(err) {
			return InscribeResult{Status: StatusPending, CommitTxid: commitTxid}, nil
		}
		return InscribeResult{}, err
	}
	_ = status

	return e.finishInscribe(ctx, o, destination, sig, creator)
}

// ResumeInscription continues an Inscribe, UpdateBtco, or DeactivateBtco
// call whose commit confirmed (or may since have confirmed) but whose
// reveal never broadcast. It dispatches to the matching finish step by o's
// current identifier method:
// Inscribe's pending commit is recorded while o is still webvh-layer (its id
// only becomes btco once finishInscribe succeeds), while UpdateBtco's and
// DeactivateBtco's pending commits are recorded against an id that is
// already btco-layer.
func (e *Engine) ResumeInscription(ctx context.Context, o *Original, destination btcutil.Address, sig Signer, creator string) (InscribeResult, error) {
	if o.pending == nil {
		return InscribeResult{}, coreerrors.New(coreerrors.CodeNotFound, "no pending inscription to resume")
	}
	status, err := e.Gateway.GetTransactionStatus(ctx, string(o.pending.Network), o.pending.CommitTxid)
	if err != nil {
		return InscribeResult{}, err
	}
	if !status.Confirmed {
		return InscribeResult{Status: StatusPending, CommitTxid: o.pending.CommitTxid}, nil
	}
	if o.ID.Method == did.MethodBtco {
		result, err := e.finishUpdate(ctx, o, destination, sig, creator)
		if err == nil && result.Status == StatusConfirmed && o.pendingDeactivation {
			o.deactivated = true
			o.pendingDeactivation = false
		}
		return result, err
	}
	return e.finishInscribe(ctx, o, destination, sig, creator)
}

func (e *Engine) finishInscribe(ctx context.Context, o *Original, destination btcutil.Address, sig Signer, creator string) (InscribeResult, error) {
	pending := o.pending
	if pending == nil {
		return InscribeResult{}, coreerrors.New(coreerrors.CodeNotFound, "no pending inscription artifacts")
	}

	commitUtxoValue := int64(ordinals.EnvelopeVSize(len(pending.Prepared.InscriptionScript))*pending.FeeRate) + ordinals.DustLimit
	commitUtxo := ordinals.Utxo{Txid: pending.CommitTxid, Vout: pending.CommitVout, ValueSats: commitUtxoValue}

	sat := pending.Sat
	if err := ordinals.CheckNotContested(ctx, e.Gateway, sat, pending.KnownInscriptionIDs); err != nil {
		return InscribeResult{}, err
	}

	reveal, err := ordinals.BuildReveal(commitUtxo, pending.Prepared, pending.FeeRate, destination)
	if err != nil {
		return InscribeResult{}, err
	}

	txHex, err := serializeTx(reveal)
	if err != nil {
		return InscribeResult{}, err
	}
	revealTxid, err := e.Gateway.BroadcastTransaction(ctx, string(pending.Network), txHex)
	if err != nil {
		return InscribeResult{}, coreerrors.Wrap(coreerrors.CodeBroadcastRejected, err)
	}

	revealStatus, err := ordinals.AwaitConfirmation(ctx, e.Gateway, string(pending.Network), revealTxid, e.ConfirmOptions)
	if err != nil {
		if structuredIsTimeout(err) {
			return InscribeResult{Status: StatusPending, CommitTxid: pending.CommitTxid, RevealTxid: revealTxid}, nil
		}
		return InscribeResult{}, err
	}
	_ = revealStatus

	index := pending.Index
	newID := did.NewBtco(pending.Network, sat, &index)
	fromID := o.ID.String()

	issuanceTime := nowRFC3339()
	unsigned := credential.NewResourceMigratedCredential(newID.String(), issuanceTime, credential.TransitionSubject{
		ResourceID:   o.Resources[0].ID,
		ResourceType: pending.ContentType,
		CreatedTime:  issuanceTime,
		Creator:      creator,
		FromID:       fromID,
		ToID:         newID.String(),
	})
	signed, err := e.Credentials.IssueTransition(unsigned, sig.VerificationMethod, sig.Suite, sig.SecretKey)
	if err != nil {
		return InscribeResult{}, err
	}
	if err := o.appendProvenance(signed); err != nil {
		return InscribeResult{}, err
	}

	o.ID = newID
	o.sat = sat
	o.hasSat = true
	o.nextIndex = index + 1
	o.pending = nil

	return InscribeResult{Status: StatusConfirmed, CommitTxid: pending.CommitTxid, RevealTxid: revealTxid, Credential: &signed}, nil
}

// UpdateBtco implements an in-layer btco update: a child inscription on
// the same satoshi carrying new content, at the next index.
// It reuses Inscribe's commit/reveal machinery but issues a
// ResourceUpdated credential (the identifier's method and satoshi are
// unchanged; only the index advances) instead of ResourceMigrated.
func (e *Engine) UpdateBtco(ctx context.Context, o *Original, content []byte, contentType string, revealPubKey *btcec.PublicKey, destination btcutil.Address, sig Signer, creator string) (InscribeResult, error) {
	if o.ID.Method != did.MethodBtco {
		return InscribeResult{}, coreerrors.New(coreerrors.CodeIllegalTransition, "UpdateBtco requires a btco-layer original")
	}
	if o.deactivated {
		return InscribeResult{}, coreerrors.New(coreerrors.CodeDeactivated, "original has been deactivated")
	}

	feeRate, err := e.FeeOracle.EstimateFee(ctx, 3)
	if err != nil {
		return InscribeResult{}, coreerrors.Wrap(coreerrors.CodeUnreachable, err).AsRecoverable()
	}
	prepared, err := ordinals.Prepare(content, contentType, nil, revealPubKey, e.Network)
	if err != nil {
		return InscribeResult{}, err
	}
	revealFee := ordinals.EnvelopeVSize(len(prepared.InscriptionScript)) * feeRate
	commitAmount := revealFee + ordinals.DustLimit

	commitTxid, commitVout, _, err := e.Wallet.FundAndSignCommit(ctx, prepared.CommitAddress.String(), commitAmount, feeRate)
	if err != nil {
		return InscribeResult{}, coreerrors.Wrap(coreerrors.CodeBroadcastRejected, err)
	}

	info, err := e.Gateway.GetSatInfo(ctx, o.ID.Sat)
	if err != nil {
		return InscribeResult{}, err
	}

	o.pending = &pendingCommit{
		CommitTxid:          commitTxid,
		CommitVout:          commitVout,
		Prepared:            prepared,
		Sat:                 o.ID.Sat,
		Index:               uint32(len(info.InscriptionIDs)),
		Network:             e.NetworkName,
		FeeRate:             feeRate,
		DestinationAddress:  destination.EncodeAddress(),
		DocContent:          content,
		ContentType:         contentType,
		KnownInscriptionIDs: info.InscriptionIDs,
		VerificationMethod:  sig.VerificationMethod,
	}

	status, err := ordinals.AwaitConfirmation(ctx, e.Gateway, string(e.NetworkName), commitTxid, e.ConfirmOptions)
	if err != nil {
		if structuredIsTimeout(err) {
			return InscribeResult{Status: StatusPending, CommitTxid: commitTxid}, nil
		}
		return InscribeResult{}, err
	}
	_ = status

	return e.finishUpdate(ctx, o, destination, sig, creator)
}

func (e *Engine) finishUpdate(ctx context.Context, o *Original, destination btcutil.Address, sig Signer, creator string) (InscribeResult, error) {
	pending := o.pending
	if pending == nil {
		return InscribeResult{}, coreerrors.New(coreerrors.CodeNotFound, "no pending update artifacts")
	}

	commitUtxoValue := int64(ordinals.EnvelopeVSize(len(pending.Prepared.InscriptionScript))*pending.FeeRate) + ordinals.DustLimit
	commitUtxo := ordinals.Utxo{Txid: pending.CommitTxid, Vout: pending.CommitVout, ValueSats: commitUtxoValue}

	if err := ordinals.CheckNotContested(ctx, e.Gateway, o.ID.Sat, pending.KnownInscriptionIDs); err != nil {
		return InscribeResult{}, err
	}

	reveal, err := ordinals.BuildReveal(commitUtxo, pending.Prepared, pending.FeeRate, destination)
	if err != nil {
		return InscribeResult{}, err
	}
	txHex, err := serializeTx(reveal)
	if err != nil {
		return InscribeResult{}, err
	}
	revealTxid, err := e.Gateway.BroadcastTransaction(ctx, string(pending.Network), txHex)
	if err != nil {
		return InscribeResult{}, coreerrors.Wrap(coreerrors.CodeBroadcastRejected, err)
	}

	revealStatus, err := ordinals.AwaitConfirmation(ctx, e.Gateway, string(pending.Network), revealTxid, e.ConfirmOptions)
	if err != nil {
		if structuredIsTimeout(err) {
			return InscribeResult{Status: StatusPending, CommitTxid: pending.CommitTxid, RevealTxid: revealTxid}, nil
		}
		return InscribeResult{}, err
	}
	_ = revealStatus

	newIndex := pending.Index
	newID := o.ID.WithExplicitIndex(newIndex)
	fromID := o.ID.String()

	issuanceTime := nowRFC3339()
	unsigned := credential.NewResourceUpdatedCredential(newID.String(), issuanceTime, credential.TransitionSubject{
		ResourceID:   o.Resources[0].ID,
		ResourceType: pending.ContentType,
		CreatedTime:  issuanceTime,
		Creator:      creator,
		FromID:       fromID,
		ToID:         newID.String(),
	})
	signed, err := e.Credentials.IssueTransition(unsigned, sig.VerificationMethod, sig.Suite, sig.SecretKey)
	if err != nil {
		return InscribeResult{}, err
	}
	if err := o.appendProvenance(signed); err != nil {
		return InscribeResult{}, err
	}

	o.ID = newID
	o.nextIndex = newIndex + 1
	o.pending = nil

	return InscribeResult{Status: StatusConfirmed, CommitTxid: pending.CommitTxid, RevealTxid: revealTxid, Credential: &signed}, nil
}

// Deactivate issues a terminal ResourceUpdated credential marking o
// deactivated. It is only available when e.AllowDeactivation is set, and
// it has no reverse transition. UpdateBtco, Deactivate and DeactivateBtco
// refuse an original that is already deactivated; PromoteToWebVH, Inscribe
// and ResumeInscription do not check the flag.
//
// For a btco-layer original this only records the credential-level
// deactivation flag; it does not write the on-chain {"deactivated": true}
// marker that resolution detects, since that requires broadcasting a
// commit/reveal pair. Callers deactivating a btco-layer original should
// use DeactivateBtco instead, which performs that inscription; this method
// remains the only path for a peer/webvh-layer original, which has no
// satoshi to inscribe on.
func (e *Engine) Deactivate(o *Original, sig Signer, creator string) (*credential.Credential, error) {
	if !e.AllowDeactivation {
		return nil, coreerrors.New(coreerrors.CodeIllegalTransition, "deactivation is not enabled for this engine")
	}
	if o.deactivated {
		return nil, coreerrors.New(coreerrors.CodeDeactivated, "original is already deactivated")
	}

	issuanceTime := nowRFC3339()
	unsigned := credential.NewResourceUpdatedCredential(o.ID.String(), issuanceTime, credential.TransitionSubject{
		ResourceID:   o.Resources[0].ID,
		ResourceType: o.Resources[0].MediaType,
		CreatedTime:  issuanceTime,
		Creator:      creator,
		ToID:         o.ID.String(),
	})
	unsigned.Subject["deactivated"] = true
	signed, err := e.Credentials.IssueTransition(unsigned, sig.VerificationMethod, sig.Suite, sig.SecretKey)
	if err != nil {
		return nil, err
	}
	if err := o.appendProvenance(signed); err != nil {
		return nil, err
	}
	o.deactivated = true
	return &signed, nil
}

// deactivationMarkerContent is the literal envelope content signalling
// on-chain deactivation, inscribed as application/json so pkg/did's
// ResolveBtco recognizes it via the same json.Unmarshal check it uses for
// every other btco resolution.
var deactivationMarkerContent = []byte(`{"deactivated":true}`)

// DeactivateBtco inscribes the literal {"deactivated": true} marker on the
// original's satoshi so subsequent resolutions report deactivation. It
// reuses UpdateBtco's commit/reveal machinery (on the wire a deactivation
// is just another child inscription on the same satoshi) but fixes the
// content to the deactivation marker and sets o's deactivated flag once
// the reveal confirms. Like Deactivate, it is gated behind
// e.AllowDeactivation and has no reverse transition.
func (e *Engine) DeactivateBtco(ctx context.Context, o *Original, revealPubKey *btcec.PublicKey, destination btcutil.Address, sig Signer, creator string) (InscribeResult, error) {
	if !e.AllowDeactivation {
		return InscribeResult{}, coreerrors.New(coreerrors.CodeIllegalTransition, "deactivation is not enabled for this engine")
	}
	if o.deactivated {
		return InscribeResult{}, coreerrors.New(coreerrors.CodeDeactivated, "original is already deactivated")
	}
	if o.ID.Method != did.MethodBtco {
		return InscribeResult{}, coreerrors.New(coreerrors.CodeIllegalTransition, "DeactivateBtco requires a btco-layer original")
	}

	o.pendingDeactivation = true
	result, err := e.UpdateBtco(ctx, o, deactivationMarkerContent, "application/json", revealPubKey, destination, sig, creator)
	if err != nil {
		o.pendingDeactivation = false
		return InscribeResult{}, err
	}
	if result.Status == StatusConfirmed {
		o.deactivated = true
		o.pendingDeactivation = false
	}
	return result, nil
}

// IsDeactivated reports whether o has been deactivated, either by
// Deactivate or by a DeactivateBtco marker inscription that confirmed
// (directly or through ResumeInscription).
func (o *Original) IsDeactivated() bool {
	return o.deactivated
}

func nextInscriptionIndex(o *Original) uint32 {
	if o.hasSat {
		return o.nextIndex
	}
	return 0
}

func structuredIsTimeout(err error) bool {
	var structured *coreerrors.Error
	return errors.As(err, &structured) && structured.Code == coreerrors.CodeTimeout
}

func serializeTx(r ordinals.RevealResult) (string, error) {
	var buf bytes.Buffer
	if err := r.Tx.Serialize(&buf); err != nil {
		return "", fmt.Errorf("lifecycle: serialize reveal transaction: %w", err)
	}
	return hex.EncodeToString(buf.Bytes()), nil
}
