package ordinals

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/txscript"
	"github.com/fxamacker/cbor/v2"
)

// maxPushChunk is the largest single data push ordinals envelopes use; any
// content longer than this is split across multiple pushes.
const maxPushChunk = 520

// tagContentType and tagMetadata are the ordinals envelope's single-byte
// field tags.
const (
	tagContentType = 0x01
	tagMetadata    = 0x05
)

// BuildEnvelope renders the deterministic inscription envelope script:
// OP_FALSE OP_IF "ord" <tag 0x01, content-type> [<tag 0x05, CBOR metadata>]
// OP_0 <content, chunked> OP_ENDIF. Every field is a literal data push
// (OP_PUSHBYTES_N / OP_PUSHDATA1 / OP_PUSHDATA2 at the 75/255 boundaries)
// written through AddOps: the builder's AddData and AddFullData both
// rewrite single-byte fields such as the 0x01 tag into small-integer
// opcodes and would break the envelope's fixed layout.
func BuildEnvelope(content []byte, contentType string, metadata any) ([]byte, error) {
	b := txscript.NewScriptBuilder()
	push := func(data []byte) {
		switch n := len(data); {
		case n < txscript.OP_PUSHDATA1:
			b.AddOps([]byte{byte(n)})
		case n <= 0xff:
			b.AddOps([]byte{txscript.OP_PUSHDATA1, byte(n)})
		default:
			b.AddOps([]byte{txscript.OP_PUSHDATA2, byte(n), byte(n >> 8)})
		}
		b.AddOps(data)
	}
	b.AddOp(txscript.OP_FALSE)
	b.AddOp(txscript.OP_IF)
	push([]byte("ord"))

	push([]byte{tagContentType})
	push([]byte(contentType))

	if metadata != nil {
		encoded, err := encodeCanonicalCBOR(metadata)
		if err != nil {
			return nil, fmt.Errorf("ordinals: encode metadata CBOR: %w", err)
		}
		push([]byte{tagMetadata})
		for _, chunk := range chunkBytes(encoded, maxPushChunk) {
			push(chunk)
		}
	}

	b.AddOp(txscript.OP_0)
	for _, chunk := range chunkBytes(content, maxPushChunk) {
		push(chunk)
	}
	b.AddOp(txscript.OP_ENDIF)

	return b.Script()
}

// chunkBytes splits data into pieces of at most size bytes each. An empty
// input yields a single empty chunk, matching OP_0-style empty pushes.
func chunkBytes(data []byte, size int) [][]byte {
	if len(data) == 0 {
		return [][]byte{{}}
	}
	var chunks [][]byte
	for len(data) > 0 {
		n := size
		if n > len(data) {
			n = len(data)
		}
		chunks = append(chunks, data[:n])
		data = data[n:]
	}
	return chunks
}

// encodeCanonicalCBOR encodes v with CBOR's deterministic (core) encoding
// so that identical metadata always produces identical bytes.
func encodeCanonicalCBOR(v any) ([]byte, error) {
	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		return nil, err
	}
	return mode.Marshal(v)
}

// InscriptionID deterministically derives an inscription id from the
// reveal transaction id and the output index, using the ordinals
// protocol's own `<txid>i<index>` convention: it is already deterministic
// and collision-free per (txid, index) pair.
func InscriptionID(revealTxid string, outputIndex uint32) string {
	return fmt.Sprintf("%si%d", revealTxid, outputIndex)
}

// ContentHash computes the SHA-256 content hash a resource is identified
// by across layers.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return "sha256:" + hex.EncodeToString(sum[:])
}
