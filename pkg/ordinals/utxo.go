package ordinals

import (
	"sort"

	"github.com/onionoriginals/originals-go/pkg/coreerrors"
)

// SelectionRequest is the input to SelectUtxos.
type SelectionRequest struct {
	TargetSats                     int64
	FeeRateSatsPerVByte            int64
	ForbidInscriptionBearingInputs bool
	RequiredInscriptionUtxo        *Utxo
}

// SelectionResult is the output of SelectUtxos.
type SelectionResult struct {
	Selected   []Utxo
	ChangeSats int64
	FeeSats    int64
}

// Base transaction overhead and per-input vbyte estimates for a
// P2WPKH-shaped transaction. Each inscription-bearing input adds the flat
// perInscriptionExtra; the envelope size model (EnvelopeVSize in
// builder.go) is not consulted here.
const (
	baseVBytes          = 150
	perInputVBytes      = 68
	perInscriptionExtra = 20
)

// SelectUtxos picks inputs greedy-descending by value until the target
// plus fee is covered, honoring dust, lock, and inscription-safety
// constraints.
func SelectUtxos(utxos []Utxo, req SelectionRequest) (SelectionResult, error) {
	if req.FeeRateSatsPerVByte <= 0 {
		return SelectionResult{}, coreerrors.New(coreerrors.CodeTooLowFee, "fee rate must be positive")
	}
	if req.TargetSats < DustLimit {
		return SelectionResult{}, coreerrors.New(coreerrors.CodeDustOutput, "target is below the dust limit")
	}

	var selected []Utxo
	var candidates []Utxo
	var lockedValue, lockedVBytes int64

	if req.RequiredInscriptionUtxo != nil {
		selected = append(selected, *req.RequiredInscriptionUtxo)
	}

	for _, u := range utxos {
		if req.RequiredInscriptionUtxo != nil && u.Txid == req.RequiredInscriptionUtxo.Txid && u.Vout == req.RequiredInscriptionUtxo.Vout {
			continue
		}
		if u.Locked {
			lockedValue += u.ValueSats
			lockedVBytes += perInputVBytes
			if len(u.Inscriptions) > 0 {
				lockedVBytes += perInscriptionExtra
			}
			continue
		}
		if req.ForbidInscriptionBearingInputs && len(u.Inscriptions) > 0 {
			continue
		}
		candidates = append(candidates, u)
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ValueSats > candidates[j].ValueSats })

	sum := sumValue(selected)
	vbytes := estimateVBytes(selected)
	txFee := computeFee(vbytes, req.FeeRateSatsPerVByte)

	idx := 0
	for sum < req.TargetSats+txFee && idx < len(candidates) {
		selected = append(selected, candidates[idx])
		idx++
		sum = sumValue(selected)
		vbytes = estimateVBytes(selected)
		txFee = computeFee(vbytes, req.FeeRateSatsPerVByte)
	}

	if sum < req.TargetSats+txFee {
		// CONFLICTING_LOCKS only when the locked coins would have closed the
		// gap: spending them adds their inputs to the transaction, so the
		// fee they must clear includes their own vbyte contribution.
		lockedFee := computeFee(vbytes+lockedVBytes, req.FeeRateSatsPerVByte)
		if lockedValue > 0 && sum+lockedValue >= req.TargetSats+lockedFee {
			return SelectionResult{}, coreerrors.New(coreerrors.CodeConflictingLocks, "sufficient funds exist only in locked inputs")
		}
		return SelectionResult{}, coreerrors.New(coreerrors.CodeInsufficientFunds, "no combination of available utxos covers target plus fee")
	}

	change := sum - req.TargetSats - txFee
	if change < DustLimit {
		txFee += change
		change = 0
	}

	return SelectionResult{Selected: selected, ChangeSats: change, FeeSats: txFee}, nil
}

func sumValue(utxos []Utxo) int64 {
	var total int64
	for _, u := range utxos {
		total += u.ValueSats
	}
	return total
}

func estimateVBytes(utxos []Utxo) int64 {
	total := int64(baseVBytes)
	for _, u := range utxos {
		total += perInputVBytes
		if len(u.Inscriptions) > 0 {
			total += perInscriptionExtra
		}
	}
	return total
}

func computeFee(vbytes, feeRate int64) int64 {
	return vbytes * feeRate
}
