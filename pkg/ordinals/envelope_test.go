package ordinals

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/txscript"
)

func parsePushes(t *testing.T, script []byte) [][]byte {
	t.Helper()
	var pushes [][]byte
	tok := txscript.MakeScriptTokenizer(0, script)
	for tok.Next() {
		if tok.Opcode() <= txscript.OP_PUSHDATA4 && tok.Opcode() != txscript.OP_0 {
			pushes = append(pushes, append([]byte(nil), tok.Data()...))
		}
	}
	if err := tok.Err(); err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	return pushes
}

func TestBuildEnvelopeRoundTrip(t *testing.T) {
	content := []byte("hello ordinal world")
	script, err := BuildEnvelope(content, "text/plain", nil)
	if err != nil {
		t.Fatal(err)
	}
	pushes := parsePushes(t, script)
	if len(pushes) < 4 {
		t.Fatalf("expected at least 4 pushes (ord, tag, content-type, content), got %d", len(pushes))
	}
	if string(pushes[0]) != "ord" {
		t.Fatalf("expected first push to be 'ord', got %q", pushes[0])
	}
	if pushes[1][0] != tagContentType {
		t.Fatalf("expected second push to be content-type tag, got %x", pushes[1])
	}
	if string(pushes[2]) != "text/plain" {
		t.Fatalf("expected third push to be the content type, got %q", pushes[2])
	}
	last := pushes[len(pushes)-1]
	if !bytes.Equal(last, content) {
		t.Fatalf("expected last push to equal original content, got %q", last)
	}
}

func TestBuildEnvelopeWithMetadata(t *testing.T) {
	content := []byte("x")
	script, err := BuildEnvelope(content, "application/octet-stream", map[string]any{"k": "v"})
	if err != nil {
		t.Fatal(err)
	}
	pushes := parsePushes(t, script)
	foundMetadataTag := false
	for _, p := range pushes {
		if len(p) == 1 && p[0] == tagMetadata {
			foundMetadataTag = true
		}
	}
	if !foundMetadataTag {
		t.Fatal("expected metadata tag push to be present")
	}
}

func TestChunkBytesBoundaries(t *testing.T) {
	for _, size := range []int{74, 75, 76, 254, 255, 256, 519, 520, 521, 1041} {
		data := bytes.Repeat([]byte{0xAB}, size)
		chunks := chunkBytes(data, maxPushChunk)
		var total int
		for _, c := range chunks {
			if len(c) > maxPushChunk {
				t.Fatalf("chunk exceeds max push size: %d", len(c))
			}
			total += len(c)
		}
		if total != size {
			t.Fatalf("expected chunked total %d, got %d", size, total)
		}
	}
}

func TestInscriptionIDDeterministic(t *testing.T) {
	a := InscriptionID("abc123", 0)
	b := InscriptionID("abc123", 0)
	c := InscriptionID("abc123", 1)
	if a != b {
		t.Fatal("expected same (txid, index) to yield same inscription id")
	}
	if a == c {
		t.Fatal("expected different index to yield different inscription id")
	}
}

func TestContentHashDeterministic(t *testing.T) {
	h1 := ContentHash([]byte("same content"))
	h2 := ContentHash([]byte("same content"))
	h3 := ContentHash([]byte("different content"))
	if h1 != h2 {
		t.Fatal("expected identical content to hash identically")
	}
	if h1 == h3 {
		t.Fatal("expected different content to hash differently")
	}
}
