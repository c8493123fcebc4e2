package lifecycle

import "context"

// WalletAdapter is the external custody boundary: the core never holds
// wallet keys and calls out to a caller-supplied signer. An inscription's
// reveal
// transaction spends along the unexecuted OP_FALSE OP_IF branch of the
// commit output's script path and therefore needs no signature at all
// (pkg/ordinals/builder.go's BuildReveal witness is just the envelope
// script and its control block) — only the commit transaction, which pays
// into that Taproot output from the caller's ordinary funds, needs external
// signing. WalletAdapter is that one remaining call.
type WalletAdapter interface {
	// FundAndSignCommit builds, signs, and broadcasts a transaction paying
	// amountSats to commitAddress at feeRateSatsPerVByte. It returns the
	// broadcast commit transaction's id, the output index of the payment to
	// commitAddress (the outpoint BuildReveal spends), and the ordinal
	// number of that output's first satoshi — ordinal theory assigns the
	// inscription to the first satoshi of the reveal transaction's sole
	// input, so whichever component selects and orders the commit
	// transaction's inputs is the one that can compute it.
	FundAndSignCommit(ctx context.Context, commitAddress string, amountSats int64, feeRateSatsPerVByte int64) (txid string, vout uint32, sat uint64, err error)
}
