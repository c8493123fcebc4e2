// Package ordinals implements the Bitcoin ordinals inscription layer:
// UTXO selection, fee-aware sizing, inscription envelope construction,
// and the retrying gateway to an external indexer.
package ordinals

// DustLimit is the minimum non-dust output value this SDK enforces.
const DustLimit = 546

// Utxo is an unspent transaction output as reported by the wallet or
// indexer, annotated with the inscription and lock state selection cares
// about.
type Utxo struct {
	Txid         string
	Vout         uint32
	ValueSats    int64
	Script       []byte
	Confirmed    bool
	BlockHeight  *int64
	Inscriptions []string
	Locked       bool
}

// Inscription is a resolved on-chain inscription. InscriptionID is
// deterministically derived from (RevealTxid, OutputIndex); see
// envelope.go's InscriptionID.
type Inscription struct {
	InscriptionID string
	Satoshi       uint64
	ContentType   string
	ContentBytes  []byte
	Metadata      []byte
	Txid          string
	Vout          uint32
}

// SatInfo is the result of OrdinalsGateway.GetSatInfo.
type SatInfo struct {
	InscriptionIDs []string
}

// TxStatus is the result of OrdinalsGateway.GetTransactionStatus.
type TxStatus struct {
	Confirmed     bool
	BlockHeight   *int64
	Confirmations *int64
}
