package ordinals

import (
	"context"
	"fmt"
	"math"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/onionoriginals/originals-go/pkg/coreerrors"
)

// revealBaseVBytes is the reveal transaction's base overhead in the size
// model: one Taproot input, one output, version, and locktime.
const revealBaseVBytes = 150

// PreparedInscription is the result of Prepare: everything BuildReveal
// needs to spend the commit output along the script path.
type PreparedInscription struct {
	CommitAddress     btcutil.Address
	InscriptionScript []byte
	ControlBlock      []byte
	LeafVersion       byte
	InternalKey       *btcec.PublicKey
	OutputKey         *btcec.PublicKey
}

// Prepare computes the commit Taproot address whose script-path spends the
// inscription envelope script, plus the control block needed to spend it.
func Prepare(content []byte, contentType string, metadata any, revealPubKey *btcec.PublicKey, network *chaincfg.Params) (PreparedInscription, error) {
	envelope, err := BuildEnvelope(content, contentType, metadata)
	if err != nil {
		return PreparedInscription{}, err
	}

	leaf := txscript.NewBaseTapLeaf(envelope)
	tree := txscript.AssembleTaprootScriptTree(leaf)
	rootHash := tree.RootNode.TapHash()

	outputKey := txscript.ComputeTaprootOutputKey(revealPubKey, rootHash[:])
	commitAddr, err := btcutil.NewAddressTaproot(schnorr.SerializePubKey(outputKey), network)
	if err != nil {
		return PreparedInscription{}, fmt.Errorf("ordinals: derive commit address: %w", err)
	}

	proof := tree.LeafMerkleProofs[0]
	ctrlBlock := proof.ToControlBlock(revealPubKey)
	ctrlBlockBytes, err := ctrlBlock.ToBytes()
	if err != nil {
		return PreparedInscription{}, fmt.Errorf("ordinals: serialize control block: %w", err)
	}

	return PreparedInscription{
		CommitAddress:     commitAddr,
		InscriptionScript: envelope,
		ControlBlock:      ctrlBlockBytes,
		LeafVersion:       byte(txscript.BaseLeafVersion),
		InternalKey:       revealPubKey,
		OutputKey:         outputKey,
	}, nil
}

// RevealResult is the output of BuildReveal.
type RevealResult struct {
	Tx    *wire.MsgTx
	VSize int64
	Fee   int64
}

// EnvelopeVSize computes the reveal transaction's estimated vsize from the
// inscription's total envelope byte length:
// base(~150) + ceil(bytes*0.25) + extra(ceil(bytes*0.1) if bytes>1000).
// This is the single size formula used for both commit funding and reveal
// fees, so the two estimates can never drift apart.
func EnvelopeVSize(inscriptionBytes int) int64 {
	v := int64(revealBaseVBytes) + int64(math.Ceil(float64(inscriptionBytes)*0.25))
	if inscriptionBytes > 1000 {
		v += int64(math.Ceil(float64(inscriptionBytes) * 0.1))
	}
	return v
}

// BuildReveal builds a 1-input/1-output transaction spending commitUtxo
// along the script path described by prepared, paying destination.
func BuildReveal(commitUtxo Utxo, prepared PreparedInscription, feeRate int64, destination btcutil.Address) (RevealResult, error) {
	if feeRate <= 0 {
		return RevealResult{}, coreerrors.New(coreerrors.CodeTooLowFee, "fee rate must be positive")
	}

	hash, err := chainhash.NewHashFromStr(commitUtxo.Txid)
	if err != nil {
		return RevealResult{}, fmt.Errorf("ordinals: parse commit txid: %w", err)
	}

	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(hash, commitUtxo.Vout), nil, nil))

	vsize := EnvelopeVSize(len(prepared.InscriptionScript))
	fee := int64(math.Ceil(float64(vsize) * float64(feeRate)))

	outputSats := commitUtxo.ValueSats - fee
	if outputSats < DustLimit {
		return RevealResult{}, coreerrors.New(coreerrors.CodeDustOutput, "reveal output falls below the dust limit after fees")
	}

	destScript, err := txscript.PayToAddrScript(destination)
	if err != nil {
		return RevealResult{}, fmt.Errorf("ordinals: destination script: %w", err)
	}
	tx.AddTxOut(wire.NewTxOut(outputSats, destScript))

	witness := wire.TxWitness{prepared.InscriptionScript, prepared.ControlBlock}
	tx.TxIn[0].Witness = witness

	return RevealResult{Tx: tx, VSize: vsize, Fee: fee}, nil
}

// CheckNotContested re-queries the indexer for sat before broadcasting the
// reveal and aborts if a new inscription landed on it since preparation
// time, so a front-runner cannot steal the satoshi binding.
func CheckNotContested(ctx context.Context, gw Gateway, sat uint64, knownAtPrepareTime []string) error {
	info, err := gw.GetSatInfo(ctx, sat)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(knownAtPrepareTime))
	for _, id := range knownAtPrepareTime {
		known[id] = true
	}
	for _, id := range info.InscriptionIDs {
		if !known[id] {
			return coreerrors.New(coreerrors.CodeSatContested, "a new inscription landed on the satoshi between prepare and reveal")
		}
	}
	return nil
}
